// Package wire defines the JSON messages exchanged between the simulation
// host and remote renderers over WebSocket and QUIC.
package wire

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/sim"
	"github.com/zeusync/planetwalk/pkg/encoding"
)

// ALPN is the application protocol negotiated on QUIC connections.
const ALPN = "planetwalk"

// Client to server message types.
const (
	TypeHello  = "hello"
	TypeKey    = "key"
	TypeWheel  = "wheel"
	TypeToggle = "toggle"
)

// Server to client message types.
const (
	TypeWelcome  = "welcome"
	TypeSnapshot = "snapshot"
	TypeSpawn    = "spawn"
	TypeDespawn  = "despawn"
	TypeError    = "error"
)

var ErrUnknownType = errors.New("unknown message type")

// ClientMessage is sent by renderers. Only the fields of its Type are used.
type ClientMessage struct {
	Type  string  `json:"type"`
	Key   string  `json:"key,omitempty"`
	Down  bool    `json:"down,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Token string  `json:"token,omitempty"`
}

func Key(key string, down bool) ClientMessage {
	return ClientMessage{Type: TypeKey, Key: key, Down: down}
}
func Wheel(y float64) ClientMessage    { return ClientMessage{Type: TypeWheel, Y: y} }
func Toggle() ClientMessage            { return ClientMessage{Type: TypeToggle} }
func Hello(token string) ClientMessage { return ClientMessage{Type: TypeHello, Token: token} }

// Event converts an input message to a simulation input event.
func (m ClientMessage) Event() (input.Event, error) {
	switch m.Type {
	case TypeKey:
		if m.Key == "" {
			return input.Event{}, errors.Wrap(ErrUnknownType, "key message without key")
		}
		if m.Down {
			return input.KeyDown(input.Key(m.Key)), nil
		}
		return input.KeyUp(input.Key(m.Key)), nil
	case TypeWheel:
		return input.Wheel(m.Y), nil
	case TypeToggle:
		return input.Trigger(input.ActionToggleDirectionLines), nil
	default:
		return input.Event{}, errors.Wrapf(ErrUnknownType, "%q", m.Type)
	}
}

func (m *ClientMessage) Serialize() ([]byte, error)    { return encoding.MarshalJSON(m) }
func (m *ClientMessage) Deserialize(data []byte) error { return json.Unmarshal(data, m) }

// ServerMessage is sent to renderers.
type ServerMessage struct {
	Type     string           `json:"type"`
	ClientID string           `json:"client_id,omitempty"`
	Snapshot *sim.Snapshot    `json:"snapshot,omitempty"`
	Entity   *sim.EntityView  `json:"entity,omitempty"`
	Despawn  *sim.DespawnView `json:"despawn,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (m *ServerMessage) Serialize() ([]byte, error)    { return encoding.MarshalJSON(m) }
func (m *ServerMessage) Deserialize(data []byte) error { return json.Unmarshal(data, m) }
