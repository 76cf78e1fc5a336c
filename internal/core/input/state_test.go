package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeTriggeredOncePerPress(t *testing.T) {
	s := NewState(nil)
	s.Apply(KeyDown("RBracket"))
	assert.True(t, s.JustPressed(ActionToggleDirectionLines))
	s.EndFrame()

	// Held across frames, with host auto-repeat.
	s.Apply(KeyDown("RBracket"))
	assert.False(t, s.JustPressed(ActionToggleDirectionLines))
	assert.True(t, s.Pressed(ActionToggleDirectionLines))
	s.EndFrame()

	s.Apply(KeyUp("RBracket"))
	s.Apply(KeyDown("RBracket"))
	assert.True(t, s.JustPressed(ActionToggleDirectionLines))
}

func TestTapWithinOneFrame(t *testing.T) {
	s := NewState(nil)
	s.Apply(KeyDown("RBracket"))
	s.Apply(KeyUp("RBracket"))
	assert.True(t, s.JustPressed(ActionToggleDirectionLines))
	assert.False(t, s.Pressed(ActionToggleDirectionLines))
}

func TestOpposingKeysCancel(t *testing.T) {
	s := NewState(nil)
	s.Apply(KeyDown("W"))
	s.Apply(KeyDown("S"))
	assert.Equal(t, 0.0, s.Axes().Forward)

	s.Apply(KeyUp("S"))
	s.Apply(KeyDown("A"))
	s.Apply(KeyDown("Space"))
	s.Apply(KeyDown("E"))
	assert.Equal(t, Axes{Forward: 1, Left: 1, Up: 1, Turn: -1}, s.Axes())
}

func TestWheelAccumulatesPerFrame(t *testing.T) {
	s := NewState(nil)
	s.Apply(Wheel(1))
	s.Apply(Wheel(0.5))
	assert.Equal(t, 1.5, s.Wheel())
	s.EndFrame()
	assert.Equal(t, 0.0, s.Wheel())
}

func TestTriggerBypassesKeymap(t *testing.T) {
	s := NewState(Keymap{})
	s.Apply(Trigger(ActionToggleDirectionLines))
	assert.True(t, s.JustPressed(ActionToggleDirectionLines))
	s.Apply(KeyDown("W"))
	assert.True(t, s.Axes().IsZero())
}

func TestReset(t *testing.T) {
	s := NewState(nil)
	s.Apply(KeyDown("W"))
	s.Reset()
	assert.False(t, s.Pressed(ActionForward))
}

func TestParseKeymap(t *testing.T) {
	m, err := ParseKeymap(map[string]string{"Up": "forward", "K": "Toggle_Direction_Lines"})
	require.NoError(t, err)
	assert.Equal(t, ActionForward, m["Up"])
	assert.Equal(t, ActionToggleDirectionLines, m["K"])

	_, err = ParseKeymap(map[string]string{"X": "jump"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestQueueDrain(t *testing.T) {
	var q Queue
	q.Push(KeyDown("W"), Wheel(2))
	q.Push(KeyUp("W"))
	events := q.Drain()
	require.Len(t, events, 3)
	assert.Equal(t, EventWheel, events[1].Kind)
	assert.Empty(t, q.Drain())
}
