package input

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownAction = errors.New("unknown input action")

// Action is a named intent a key can be bound to.
type Action uint8

const (
	ActionNone Action = iota
	ActionForward
	ActionBack
	ActionLeft
	ActionRight
	ActionUp
	ActionDown
	ActionTurnLeft
	ActionTurnRight
	ActionToggleDirectionLines
)

var actionNames = map[Action]string{
	ActionForward:              "forward",
	ActionBack:                 "back",
	ActionLeft:                 "left",
	ActionRight:                "right",
	ActionUp:                   "up",
	ActionDown:                 "down",
	ActionTurnLeft:             "turn_left",
	ActionTurnRight:            "turn_right",
	ActionToggleDirectionLines: "toggle_direction_lines",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "none"
}

// ParseAction resolves a config name such as "turn_left" to its Action.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return ActionNone, errors.Wrapf(ErrUnknownAction, "%q", name)
}

// Key is a host key name, e.g. "W", "Space", "LControl", "RBracket".
type Key string

// Keymap binds keys to actions. Several keys may share one action.
type Keymap map[Key]Action

// DefaultKeymap binds WASD to planar movement, Space/LControl to vertical movement,
// Q/E to turning and RBracket to the direction line toggle.
func DefaultKeymap() Keymap {
	return Keymap{
		"W":        ActionForward,
		"S":        ActionBack,
		"A":        ActionLeft,
		"D":        ActionRight,
		"Space":    ActionUp,
		"LControl": ActionDown,
		"Q":        ActionTurnLeft,
		"E":        ActionTurnRight,
		"RBracket": ActionToggleDirectionLines,
	}
}

// ParseKeymap builds a Keymap from key → action-name pairs.
func ParseKeymap(bindings map[string]string) (Keymap, error) {
	m := make(Keymap, len(bindings))
	for key, name := range bindings {
		a, err := ParseAction(name)
		if err != nil {
			return nil, errors.Wrapf(err, "key %s", key)
		}
		m[Key(key)] = a
	}
	return m, nil
}
