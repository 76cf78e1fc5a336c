package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/zeusync/planetwalk/internal/core/models"
)

var (
	ErrInvalidRadius   = errors.New("planet radius must be positive")
	ErrDuplicatePlanet = errors.New("planet already registered")
)

// Planet is a static sphere the agent can stand on or collide with.
type Planet struct {
	ID          models.EntityID
	Transform   Transform
	Radius      float64
	AlignTarget bool
}

func (p Planet) Center() mgl64.Vec3 { return p.Transform.Position }

// SurfaceDistance is the signed distance from point to the sphere grown by margin.
// Negative means the point is inside.
func (p Planet) SurfaceDistance(point mgl64.Vec3, margin float64) float64 {
	return point.Sub(p.Center()).Len() - (p.Radius + margin)
}

// Registry keeps planets in insertion order. Collision resolution walks that order.
type Registry struct {
	planets []Planet
	index   map[models.EntityID]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[models.EntityID]int)}
}

func (r *Registry) Add(p Planet) error {
	if !(p.Radius > 0) {
		return errors.Wrapf(ErrInvalidRadius, "planet %s radius %v", p.ID, p.Radius)
	}
	if _, exists := r.index[p.ID]; exists {
		return errors.Wrapf(ErrDuplicatePlanet, "planet %s", p.ID)
	}
	r.index[p.ID] = len(r.planets)
	r.planets = append(r.planets, p)
	return nil
}

func (r *Registry) Get(id models.EntityID) (Planet, bool) {
	i, ok := r.index[id]
	if !ok {
		return Planet{}, false
	}
	return r.planets[i], true
}

// All returns the planets in registry order. Callers must not modify the slice.
func (r *Registry) All() []Planet { return r.planets }

func (r *Registry) Len() int { return len(r.planets) }

// AlignTarget returns the first planet flagged as the alignment reference.
func (r *Registry) AlignTarget() (Planet, bool) {
	for _, p := range r.planets {
		if p.AlignTarget {
			return p, true
		}
	}
	return Planet{}, false
}
