// Package locomotion turns discrete movement input into motion in the agent's local frame.
package locomotion

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

// Speed holds the walking speed (units/s) and turn rate (rad/s).
type Speed struct {
	Walk float64
	Turn float64
}

// DefaultSpeed is a walking rate of 30 units/s and a turning rate of 2 rad/s.
func DefaultSpeed() Speed {
	return Speed{Walk: 30, Turn: 2}
}

// Velocity returns the world-space velocity for axes expressed in t's current basis.
// Opposing inputs cancel; diagonals are not normalized.
func Velocity(t physics.Transform, axes input.Axes, walk float64) mgl64.Vec3 {
	v := t.Forward().Mul(axes.Forward).
		Add(t.Left().Mul(axes.Left)).
		Add(t.Up().Mul(axes.Up))
	return v.Mul(walk)
}

// Step moves t by one tick: translation along the current local axes, then yaw around
// local up. There is no acceleration; the returned velocity is applied as is.
func Step(t *physics.Transform, axes input.Axes, dt float64, speed Speed) mgl64.Vec3 {
	velocity := Velocity(*t, axes, speed.Walk)
	if dt <= 0 {
		return velocity
	}
	t.Translate(velocity.Mul(dt))
	t.RotateLocalY(speed.Turn * axes.Turn * dt)
	return velocity
}
