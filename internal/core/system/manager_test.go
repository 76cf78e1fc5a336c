package system

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/planetwalk/internal/core/events/bus"
)

type recorder struct {
	calls []string
}

type fakeSystem struct {
	name     string
	priority Priority
	rec      *recorder
	err      error
}

func (s *fakeSystem) Name() string       { return s.name }
func (s *fakeSystem) Priority() Priority { return s.priority }
func (s *fakeSystem) Update(float64, World) error {
	s.rec.calls = append(s.rec.calls, s.name)
	return s.err
}

type fakeWorld struct {
	paused bool
	events bus.EventBus
}

func (w *fakeWorld) DeltaTime() float64       { return 0.016 }
func (w *fakeWorld) TotalTime() time.Duration { return 0 }
func (w *fakeWorld) FrameCount() int64        { return 0 }
func (w *fakeWorld) Events() bus.EventBus     { return w.events }
func (w *fakeWorld) IsPaused() bool           { return w.paused }

func TestExecutionOrderByPriorityThenRegistration(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "camera", priority: PriorityLow, rec: rec}))
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "locomotion", priority: PriorityHighest, rec: rec}))
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "collision", priority: PriorityHigh, rec: rec}))
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "orientation", priority: PriorityHigh, rec: rec}))

	want := []string{"locomotion", "collision", "orientation", "camera"}
	assert.Equal(t, want, m.GetExecutionOrder())

	require.NoError(t, m.Update(0.016, &fakeWorld{}))
	assert.Equal(t, want, rec.calls)
}

func TestRegisterValidation(t *testing.T) {
	m := NewManager()
	assert.ErrorIs(t, m.RegisterSystem(nil), ErrNilSystem)
	assert.ErrorIs(t, m.RegisterSystem(&fakeSystem{rec: &recorder{}}), ErrUnnamedSystem)
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "a", rec: &recorder{}}))
	assert.ErrorIs(t, m.RegisterSystem(&fakeSystem{name: "a", rec: &recorder{}}), ErrSystemExists)
}

func TestUnregisterAndCallbacks(t *testing.T) {
	m := NewManager()
	var registered, unregistered []string
	m.OnSystemRegistered(func(s System) { registered = append(registered, s.Name()) })
	m.OnSystemUnregistered(func(name string) { unregistered = append(unregistered, name) })

	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "a", rec: &recorder{}}))
	assert.True(t, m.HasSystem("a"))
	require.NoError(t, m.UnregisterSystem("a"))
	assert.False(t, m.HasSystem("a"))
	assert.ErrorIs(t, m.UnregisterSystem("a"), ErrSystemNotFound)

	assert.Equal(t, []string{"a"}, registered)
	assert.Equal(t, []string{"a"}, unregistered)
	assert.Empty(t, m.ListSystems())
}

func TestDisabledSystemIsSkipped(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "a", priority: PriorityHigh, rec: rec}))
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "b", priority: PriorityLow, rec: rec}))
	require.NoError(t, m.DisableSystem("a"))

	require.NoError(t, m.Update(0.1, &fakeWorld{}))
	assert.Equal(t, []string{"b"}, rec.calls)

	require.NoError(t, m.EnableSystem("a"))
	require.NoError(t, m.Update(0.1, &fakeWorld{}))
	assert.Equal(t, []string{"b", "a", "b"}, rec.calls)
	assert.ErrorIs(t, m.DisableSystem("missing"), ErrSystemNotFound)
	assert.EqualError(t, m.DisableSystem("missing"), "missing: system not found")
}

func TestFailingSystemDoesNotStopFrame(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	m := NewManager()
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "a", priority: PriorityHigh, rec: rec, err: boom}))
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "b", priority: PriorityLow, rec: rec}))

	var failed []string
	m.OnSystemError(func(name string, err error) {
		failed = append(failed, name)
		assert.ErrorIs(t, err, boom)
	})

	err := m.Update(0.1, &fakeWorld{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "system a: boom")
	assert.Equal(t, []string{"a", "b"}, rec.calls)
	assert.Equal(t, []string{"a"}, failed)

	state, ok := m.SystemState("a")
	require.True(t, ok)
	assert.Equal(t, StateFailed, state)

	sm, ok := m.GetSystemMetrics("a")
	require.True(t, ok)
	assert.Equal(t, uint64(1), sm.ErrorCount)
	assert.Equal(t, uint64(1), sm.ExecutionCount)

	mm := m.GetMetrics()
	assert.Equal(t, uint32(2), mm.RegisteredSystems)
	assert.Equal(t, uint32(1), mm.SystemErrorCount["a"])
	assert.Equal(t, uint64(1), mm.Updates)
}

func TestPausedWorldSkipsUpdate(t *testing.T) {
	rec := &recorder{}
	m := NewManager()
	require.NoError(t, m.RegisterSystem(&fakeSystem{name: "a", rec: rec}))
	require.NoError(t, m.Update(0.1, &fakeWorld{paused: true}))
	assert.Empty(t, rec.calls)
}
