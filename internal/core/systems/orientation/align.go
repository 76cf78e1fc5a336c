// Package orientation keeps an agent upright on a sphere: its local up follows the outward
// radial direction while its heading carries over from the previous tick.
package orientation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/planetwalk/internal/core/systems/physics"
)

// parallelThreshold is the |sin| between forward and radial below which the reprojected
// forward is considered collapsed.
const parallelThreshold = 1e-6

// Result describes what Align did.
type Result struct {
	Rotation mgl64.Quat
	// Degenerate is set when the agent sits on the planet center; Rotation is then unchanged.
	Degenerate bool
	// Fallback is set when the current forward was (anti)parallel to the radial direction
	// and a reference forward was substituted.
	Fallback bool
}

// Align returns the rotation that stands the agent upright on planet.
//
// The current forward is reprojected onto the tangent plane through a double cross product
// with the direction towards the planet, so yaw around the new up is preserved.
func Align(agent, planet physics.Transform) Result {
	radial := agent.Position.Sub(planet.Position)
	radialLen := radial.Len()
	if radialLen < physics.Epsilon || math.IsNaN(radialLen) || math.IsInf(radialLen, 0) {
		return Result{Rotation: agent.Rotation, Degenerate: true}
	}

	toPlanet := radial.Mul(-1)
	side := agent.Forward().Cross(toPlanet)
	forward := toPlanet.Cross(side)

	res := Result{}
	// |forward| = |f0| * |radial|^2 * sin(angle between f0 and radial)
	if forward.Len() < parallelThreshold*radialLen*radialLen {
		forward = ReferenceForward(radial.Mul(1 / radialLen))
		res.Fallback = true
	}

	q, ok := physics.LookRotation(forward, radial)
	if !ok {
		// forward was rebuilt orthogonal to radial above, so this only trips on NaN input.
		return Result{Rotation: agent.Rotation, Degenerate: true}
	}
	res.Rotation = q
	return res
}

// ReferenceForward derives a stable tangent direction from a fixed world axis crossed with up.
func ReferenceForward(up mgl64.Vec3) mgl64.Vec3 {
	axis := physics.AxisX
	if math.Abs(up.Dot(axis)) > 0.9 {
		axis = physics.AxisZ
	}
	return axis.Cross(up).Normalize()
}
