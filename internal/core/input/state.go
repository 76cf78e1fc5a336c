package input

import "sync"

// EventKind discriminates Event.
type EventKind uint8

const (
	EventKey EventKind = iota
	EventWheel
	// EventAction fires an action edge directly, bypassing the keymap.
	EventAction
)

// Event is one host input signal.
type Event struct {
	Kind   EventKind
	Key    Key
	Down   bool
	Wheel  float64
	Action Action
}

func KeyDown(k Key) Event    { return Event{Kind: EventKey, Key: k, Down: true} }
func KeyUp(k Key) Event      { return Event{Kind: EventKey, Key: k} }
func Wheel(y float64) Event  { return Event{Kind: EventWheel, Wheel: y} }
func Trigger(a Action) Event { return Event{Kind: EventAction, Action: a} }

// Axes is the additive combination of opposing actions, each in {-1, 0, 1}.
type Axes struct {
	Forward float64 // forward - back
	Left    float64 // left - right
	Up      float64 // up - down
	Turn    float64 // turn_left - turn_right
}

// IsZero reports whether no movement is requested.
func (a Axes) IsZero() bool {
	return a == Axes{}
}

// State tracks held keys, per-frame press edges and wheel movement.
// It is owned by the simulation goroutine; use Queue to hand events over from other goroutines.
type State struct {
	keymap  Keymap
	held    map[Key]struct{}
	pressed map[Action]struct{}
	wheel   float64
}

func NewState(keymap Keymap) *State {
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	return &State{
		keymap:  keymap,
		held:    make(map[Key]struct{}),
		pressed: make(map[Action]struct{}),
	}
}

// Apply folds one event into the state. Repeated key-down events for a key that is
// already held do not produce a new press edge.
func (s *State) Apply(ev Event) {
	switch ev.Kind {
	case EventKey:
		if ev.Down {
			if _, already := s.held[ev.Key]; already {
				return
			}
			s.held[ev.Key] = struct{}{}
			if a, ok := s.keymap[ev.Key]; ok {
				s.pressed[a] = struct{}{}
			}
			return
		}
		delete(s.held, ev.Key)
	case EventWheel:
		s.wheel += ev.Wheel
	case EventAction:
		if ev.Action != ActionNone {
			s.pressed[ev.Action] = struct{}{}
		}
	}
}

// Pressed reports whether any key bound to a is held.
func (s *State) Pressed(a Action) bool {
	for k := range s.held {
		if s.keymap[k] == a {
			return true
		}
	}
	return false
}

// JustPressed reports whether a was pressed since the last EndFrame.
func (s *State) JustPressed(a Action) bool {
	_, ok := s.pressed[a]
	return ok
}

// Wheel returns the scroll accumulated since the last EndFrame.
func (s *State) Wheel() float64 { return s.wheel }

func (s *State) Axes() Axes {
	return Axes{
		Forward: s.axis(ActionForward, ActionBack),
		Left:    s.axis(ActionLeft, ActionRight),
		Up:      s.axis(ActionUp, ActionDown),
		Turn:    s.axis(ActionTurnLeft, ActionTurnRight),
	}
}

// EndFrame clears press edges and the wheel accumulator. Held keys persist.
func (s *State) EndFrame() {
	clear(s.pressed)
	s.wheel = 0
}

// Reset forgets everything, including held keys.
func (s *State) Reset() {
	clear(s.held)
	s.EndFrame()
}

func (s *State) axis(positive, negative Action) float64 {
	var v float64
	if s.Pressed(positive) {
		v++
	}
	if s.Pressed(negative) {
		v--
	}
	return v
}

// Queue buffers events produced by transport goroutines until the next tick drains them.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func (q *Queue) Push(events ...Event) {
	q.mu.Lock()
	q.events = append(q.events, events...)
	q.mu.Unlock()
}

// Drain returns the buffered events in arrival order and empties the queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}
