// Package camera implements the chase camera that rides on the agent as a child offset.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

var (
	ErrInvalidBounds    = errors.New("camera radius bounds must satisfy 0 < min <= max")
	ErrDegenerateOffset = errors.New("camera offset must be non-zero")
)

// Rig keeps the camera at Direction*Radius in the agent's local frame, looking at the agent.
//
// Direction and Radius are stored apart so that zooming only ever changes the distance.
// At the clamp floor the offset is re-anchored on Direction and cannot creep.
type Rig struct {
	Direction     mgl64.Vec3
	Radius        float64
	MinRadius     float64
	MaxRadius     float64
	ZoomSpeed     float64
	LocalRotation mgl64.Quat
}

// NewRig builds a rig from an agent-local offset. The starting radius is clamped into bounds.
func NewRig(offset mgl64.Vec3, minRadius, maxRadius, zoomSpeed float64) (*Rig, error) {
	if !(minRadius > 0) || !(maxRadius >= minRadius) {
		return nil, errors.Wrapf(ErrInvalidBounds, "min=%v max=%v", minRadius, maxRadius)
	}
	length := offset.Len()
	if length < physics.Epsilon || math.IsNaN(length) {
		return nil, ErrDegenerateOffset
	}
	dir := offset.Mul(1 / length)

	rot, ok := physics.LookRotation(dir.Mul(-1), physics.AxisY)
	if !ok {
		// offset straight above or below the agent
		rot, _ = physics.LookRotation(dir.Mul(-1), physics.AxisZ)
	}

	return &Rig{
		Direction:     dir,
		Radius:        mgl64.Clamp(length, minRadius, maxRadius),
		MinRadius:     minRadius,
		MaxRadius:     maxRadius,
		ZoomSpeed:     zoomSpeed,
		LocalRotation: rot,
	}, nil
}

// Zoom returns the radius after applying wheel scroll for dt seconds. Positive wheel moves
// towards the agent. The result is always inside [MinRadius, MaxRadius]; a NaN radius
// is treated as MinRadius and a non-finite step leaves the radius unchanged.
func (r *Rig) Zoom(radius, wheel, dt float64) float64 {
	if math.IsNaN(radius) {
		radius = r.MinRadius
	}
	next := radius - wheel*r.ZoomSpeed*dt
	if math.IsNaN(next) || math.IsInf(next, 0) {
		next = radius
	}
	return mgl64.Clamp(next, r.MinRadius, r.MaxRadius)
}

// ApplyZoom updates Radius in place and returns it.
func (r *Rig) ApplyZoom(wheel, dt float64) float64 {
	r.Radius = r.Zoom(r.Radius, wheel, dt)
	return r.Radius
}

// Offset is the camera position relative to the agent, in agent-local space.
func (r *Rig) Offset() mgl64.Vec3 {
	return r.Direction.Mul(r.Radius)
}

// Local is the camera transform relative to the agent.
func (r *Rig) Local() physics.Transform {
	return physics.NewTransform(r.Offset()).WithRotation(r.LocalRotation)
}

// Follow resolves the camera's world transform from the agent's current transform,
// so the camera orbits with the agent when it reorients. It composes the agent with
// Local exactly as the entity hierarchy does.
func (r *Rig) Follow(agent physics.Transform) physics.Transform {
	return agent.Mul(r.Local())
}
