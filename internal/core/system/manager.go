package system

import (
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Manager orchestrates the registered systems.
// Handles execution order, enable state and per-system metrics.
type Manager interface {
	// System registration

	RegisterSystem(System) error
	UnregisterSystem(name string) error
	GetSystem(name string) (System, bool)
	ListSystems() []System
	HasSystem(name string) bool

	// System lifecycle

	EnableSystem(name string) error
	DisableSystem(name string) error
	SystemState(name string) (StateIdentity, bool)

	// Execution control

	Update(deltaTime float64, world World) error

	// Monitoring and debugging

	GetMetrics() ManagerMetrics
	GetSystemMetrics(name string) (Metrics, bool)
	GetExecutionOrder() []string

	// Events

	OnSystemRegistered(func(System))
	OnSystemUnregistered(func(string))
	OnSystemError(func(string, error))
}

// ManagerMetrics provides system manager statistics
type ManagerMetrics struct {
	RegisteredSystems uint32
	EnabledSystems    uint32
	Updates           uint64
	TotalUpdateTime   time.Duration
	AverageUpdateTime time.Duration
	SystemErrorCount  map[string]uint32
	LastUpdateTime    time.Time
}

type entry struct {
	system  System
	seq     uint64
	state   StateIdentity
	metrics Metrics
}

type manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []*entry
	nextSeq uint64

	updates     uint64
	totalTime   time.Duration
	lastUpdate  time.Time
	errorCounts map[string]uint32

	onRegistered   []func(System)
	onUnregistered []func(string)
	onError        []func(string, error)
}

// NewManager creates an empty Manager.
func NewManager() Manager {
	return &manager{
		entries:     make(map[string]*entry),
		errorCounts: make(map[string]uint32),
	}
}

func (m *manager) RegisterSystem(s System) error {
	if s == nil {
		return ErrNilSystem
	}
	name := s.Name()
	if name == "" {
		return ErrUnnamedSystem
	}

	m.mu.Lock()
	if _, ok := m.entries[name]; ok {
		m.mu.Unlock()
		return errors.Wrapf(ErrSystemExists, "%s", name)
	}
	e := &entry{system: s, seq: m.nextSeq, state: StateEnabled}
	m.nextSeq++
	m.entries[name] = e
	m.order = append(m.order, e)
	m.sortLocked()
	callbacks := append([]func(System){}, m.onRegistered...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(s)
	}
	return nil
}

func (m *manager) UnregisterSystem(name string) error {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(ErrSystemNotFound, "%s", name)
	}
	delete(m.entries, name)
	for i, other := range m.order {
		if other == e {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	callbacks := append([]func(string){}, m.onUnregistered...)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(name)
	}
	return nil
}

func (m *manager) GetSystem(name string) (System, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return nil, false
	}
	return e.system, true
}

func (m *manager) ListSystems() []System {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]System, 0, len(m.order))
	for _, e := range m.order {
		out = append(out, e.system)
	}
	return out
}

func (m *manager) HasSystem(name string) bool {
	_, ok := m.GetSystem(name)
	return ok
}

func (m *manager) EnableSystem(name string) error {
	return m.setState(name, StateEnabled)
}

func (m *manager) DisableSystem(name string) error {
	return m.setState(name, StateDisabled)
}

func (m *manager) setState(name string, state StateIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return errors.Wrapf(ErrSystemNotFound, "%s", name)
	}
	e.state = state
	return nil
}

func (m *manager) SystemState(name string) (StateIdentity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Update runs every enabled system once in execution order. A failing system
// does not stop the ones after it; all failures are joined into the result.
func (m *manager) Update(deltaTime float64, world World) error {
	if world != nil && world.IsPaused() {
		return nil
	}

	m.mu.RLock()
	run := make([]*entry, 0, len(m.order))
	for _, e := range m.order {
		if e.state != StateDisabled {
			run = append(run, e)
		}
	}
	callbacks := append([]func(string, error){}, m.onError...)
	m.mu.RUnlock()

	start := time.Now()
	var all error
	for _, e := range run {
		began := time.Now()
		err := e.system.Update(deltaTime, world)
		elapsed := time.Since(began)

		m.mu.Lock()
		e.metrics.ExecutionCount++
		e.metrics.TotalExecutionTime += elapsed
		e.metrics.AverageExecutionTime = e.metrics.TotalExecutionTime / time.Duration(e.metrics.ExecutionCount)
		if elapsed > e.metrics.MaxExecutionTime {
			e.metrics.MaxExecutionTime = elapsed
		}
		e.metrics.LastExecutionTime = began
		if err != nil {
			e.metrics.ErrorCount++
			e.metrics.LastError = err
			e.state = StateFailed
			m.errorCounts[e.system.Name()]++
		} else if e.state == StateFailed {
			e.state = StateEnabled
		}
		m.mu.Unlock()

		if err != nil {
			for _, cb := range callbacks {
				cb(e.system.Name(), err)
			}
			all = stderrors.Join(all, errors.Wrapf(err, "system %s", e.system.Name()))
		}
	}

	m.mu.Lock()
	m.updates++
	m.totalTime += time.Since(start)
	m.lastUpdate = start
	m.mu.Unlock()
	return all
}

func (m *manager) GetMetrics() ManagerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := ManagerMetrics{
		RegisteredSystems: uint32(len(m.entries)),
		Updates:           m.updates,
		TotalUpdateTime:   m.totalTime,
		LastUpdateTime:    m.lastUpdate,
		SystemErrorCount:  make(map[string]uint32, len(m.errorCounts)),
	}
	for _, e := range m.entries {
		if e.state != StateDisabled {
			out.EnabledSystems++
		}
	}
	if m.updates > 0 {
		out.AverageUpdateTime = m.totalTime / time.Duration(m.updates)
	}
	for k, v := range m.errorCounts {
		out.SystemErrorCount[k] = v
	}
	return out
}

func (m *manager) GetSystemMetrics(name string) (Metrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return Metrics{}, false
	}
	return e.metrics, true
}

func (m *manager) GetExecutionOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.order))
	for _, e := range m.order {
		out = append(out, e.system.Name())
	}
	return out
}

func (m *manager) OnSystemRegistered(cb func(System)) {
	m.mu.Lock()
	m.onRegistered = append(m.onRegistered, cb)
	m.mu.Unlock()
}

func (m *manager) OnSystemUnregistered(cb func(string)) {
	m.mu.Lock()
	m.onUnregistered = append(m.onUnregistered, cb)
	m.mu.Unlock()
}

func (m *manager) OnSystemError(cb func(string, error)) {
	m.mu.Lock()
	m.onError = append(m.onError, cb)
	m.mu.Unlock()
}

func (m *manager) sortLocked() {
	sort.SliceStable(m.order, func(i, j int) bool {
		a, b := m.order[i], m.order[j]
		if a.system.Priority() != b.system.Priority() {
			return a.system.Priority() > b.system.Priority()
		}
		return a.seq < b.seq
	})
}
