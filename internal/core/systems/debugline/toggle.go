// Package debugline attaches a direction indicator to agents on demand.
//
// Each tracked agent runs a two-state machine. Flip changes what the agent wants; Sync
// moves the actual state towards it by spawning or despawning one child entity.
// Both are idempotent: running them again in the same tick changes nothing.
package debugline

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/planetwalk/internal/core/models"
	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

type State uint8

const (
	Hidden State = iota
	Visible
)

func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "hidden"
}

// Spawner is the entity store the toggle creates indicators in.
type Spawner interface {
	Exists(id models.EntityID) bool
	SpawnChild(parent models.EntityID, kind models.Kind, local physics.Transform, visual models.Visual) (models.EntityID, error)
	Despawn(id models.EntityID) error
}

// Indicator is the template for the spawned child.
type Indicator struct {
	Local  physics.Transform
	Visual models.Visual
}

const (
	IndicatorLength = 0.4
	IndicatorRadius = 0.01
)

// DefaultIndicator is a thin red capsule lying along the agent's forward axis,
// slightly above its center.
func DefaultIndicator(agentHeight float64) Indicator {
	local := physics.NewTransform(mgl64.Vec3{0, agentHeight / 1.8, -IndicatorLength / 2}).
		WithRotation(mgl64.QuatRotate(math.Pi/2, physics.AxisX))
	return Indicator{
		Local: local,
		Visual: models.Visual{
			Shape:    models.ShapeCapsule,
			Radius:   IndicatorRadius,
			Depth:    IndicatorLength,
			Segments: 30,
			Color:    models.Color{0.9, 0.1, 0.1},
		},
	}
}

// Transition is reported by Sync for every state change it performed.
type Transition struct {
	Agent     models.EntityID
	From, To  State
	Indicator models.EntityID
}

type entry struct {
	want      bool
	indicator models.EntityID
}

func (e *entry) state() State {
	if e.indicator.Valid() {
		return Visible
	}
	return Hidden
}

// Toggle holds the per-agent machines. Not safe for concurrent use.
type Toggle struct {
	template Indicator
	entries  map[models.EntityID]*entry
	order    []models.EntityID
}

func NewToggle(template Indicator) *Toggle {
	return &Toggle{
		template: template,
		entries:  make(map[models.EntityID]*entry),
	}
}

// Track starts managing agent. Tracking an agent twice only updates want.
func (t *Toggle) Track(agent models.EntityID, want bool) {
	if e, ok := t.entries[agent]; ok {
		e.want = want
		return
	}
	t.entries[agent] = &entry{want: want}
	t.order = append(t.order, agent)
}

// Untrack stops managing agent and removes its indicator if one is alive.
func (t *Toggle) Untrack(agent models.EntityID, s Spawner) error {
	e, ok := t.entries[agent]
	if !ok {
		return nil
	}
	var err error
	if e.indicator.Valid() && s.Exists(e.indicator) {
		err = s.Despawn(e.indicator)
	}
	t.forget(agent)
	return err
}

// Flip inverts want for every tracked agent. Call once per toggle key press.
func (t *Toggle) Flip() {
	for _, agent := range t.order {
		e := t.entries[agent]
		e.want = !e.want
	}
}

// Set forces want for one tracked agent.
func (t *Toggle) Set(agent models.EntityID, want bool) {
	if e, ok := t.entries[agent]; ok {
		e.want = want
	}
}

func (t *Toggle) Wants(agent models.EntityID) bool {
	e, ok := t.entries[agent]
	return ok && e.want
}

func (t *Toggle) State(agent models.EntityID) State {
	if e, ok := t.entries[agent]; ok {
		return e.state()
	}
	return Hidden
}

// IndicatorOf returns the live indicator of agent, or models.None.
func (t *Toggle) IndicatorOf(agent models.EntityID) models.EntityID {
	if e, ok := t.entries[agent]; ok {
		return e.indicator
	}
	return models.None
}

func (t *Toggle) Tracked() []models.EntityID {
	out := make([]models.EntityID, len(t.order))
	copy(out, t.order)
	return out
}

// Sync applies pending transitions. Agents that no longer exist are dropped without error.
// Spawn/despawn failures leave the agent in its previous state and are returned joined.
func (t *Toggle) Sync(s Spawner) ([]Transition, error) {
	var (
		transitions []Transition
		errs        []error
		gone        []models.EntityID
	)
	for _, agent := range t.order {
		e := t.entries[agent]
		if !s.Exists(agent) {
			gone = append(gone, agent)
			continue
		}
		// An indicator removed behind our back counts as hidden.
		if e.indicator.Valid() && !s.Exists(e.indicator) {
			e.indicator = models.None
		}

		switch {
		case e.want && e.state() == Hidden:
			id, err := s.SpawnChild(agent, models.KindIndicator, t.template.Local, t.template.Visual)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			e.indicator = id
			transitions = append(transitions, Transition{Agent: agent, From: Hidden, To: Visible, Indicator: id})
		case !e.want && e.state() == Visible:
			id := e.indicator
			if err := s.Despawn(id); err != nil {
				errs = append(errs, err)
				continue
			}
			e.indicator = models.None
			transitions = append(transitions, Transition{Agent: agent, From: Visible, To: Hidden, Indicator: id})
		}
	}
	for _, agent := range gone {
		t.forget(agent)
	}
	return transitions, errors.Join(errs...)
}

func (t *Toggle) forget(agent models.EntityID) {
	delete(t.entries, agent)
	for i, id := range t.order {
		if id == agent {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}
