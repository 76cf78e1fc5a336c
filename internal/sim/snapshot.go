package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/planetwalk/internal/core/models"
	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

// Snapshot is the immutable world state published after every tick.
// Transport goroutines only ever see snapshots, never the live registry.
type Snapshot struct {
	Frame         int64           `json:"frame"`
	Elapsed       float64         `json:"elapsed"`
	ClearColor    models.Color    `json:"clear_color"`
	Agent         models.EntityID `json:"agent"`
	Entities      []EntityView    `json:"entities"`
	Camera        CameraView      `json:"camera"`
	DirectionLine string          `json:"direction_line"`
}

// EntityView is an entity in world space. Rotation is x, y, z, w.
type EntityView struct {
	ID       models.EntityID `json:"id"`
	Kind     models.Kind     `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Parent   models.EntityID `json:"parent,omitempty"`
	Position [3]float64      `json:"position"`
	Rotation [4]float64      `json:"rotation"`
	Scale    [3]float64      `json:"scale"`
	Visual   models.Visual   `json:"visual"`
}

// DespawnView is the payload of an entity.despawn event.
type DespawnView struct {
	ID     models.EntityID `json:"id"`
	Kind   models.Kind     `json:"kind"`
	Parent models.EntityID `json:"parent,omitempty"`
}

type CameraView struct {
	ID       models.EntityID `json:"id"`
	Position [3]float64      `json:"position"`
	Rotation [4]float64      `json:"rotation"`
	Radius   float64         `json:"radius"`
	Offset   [3]float64      `json:"offset"`
}

func newEntityView(e Entity, world physics.Transform) EntityView {
	return EntityView{
		ID:       e.ID,
		Kind:     e.Kind,
		Name:     e.Name,
		Parent:   e.Parent,
		Position: world.Position,
		Rotation: quatArray(world.Rotation),
		Scale:    world.Scale,
		Visual:   e.Visual,
	}
}

func quatArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// Find returns the view of id, if present.
func (s *Snapshot) Find(id models.EntityID) (EntityView, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityView{}, false
}

// OfKind returns the views of the given kind in ID order.
func (s *Snapshot) OfKind(kind models.Kind) []EntityView {
	var out []EntityView
	for _, e := range s.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
