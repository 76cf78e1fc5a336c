package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/planetwalk/internal/core/models"
)

// degenerateInward replaces normalize(delta) when the agent sits exactly on a planet center,
// so the push goes towards +Y.
var degenerateInward = mgl64.Vec3{0, -1, 0}

// Contact records one push-out performed by Resolve.
type Contact struct {
	Planet models.EntityID
	Depth  float64    // overlap removed, always > 0
	Normal mgl64.Vec3 // outward push direction
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Position mgl64.Vec3
	Contacts []Contact
}

func (r Resolution) Collided() bool { return len(r.Contacts) > 0 }

// Resolve pushes position out of every planet it penetrates. The agent is treated as a
// sphere of radius halfHeight. Planets are processed sequentially in the given order and
// each correction sees the result of the previous ones; overlapping planets are not
// reconciled globally.
func Resolve(position mgl64.Vec3, halfHeight float64, planets []Planet) Resolution {
	res := Resolution{Position: position}
	for _, planet := range planets {
		delta := planet.Center().Sub(res.Position)
		dist := delta.Len()
		penetration := dist - (planet.Radius + halfHeight)
		if penetration >= 0 {
			continue
		}

		inward := degenerateInward
		if dist >= Epsilon {
			inward = delta.Mul(1 / dist)
		}
		res.Position = res.Position.Add(inward.Mul(penetration))
		res.Contacts = append(res.Contacts, Contact{
			Planet: planet.ID,
			Depth:  -penetration,
			Normal: inward.Mul(-1),
		})
	}
	return res
}
