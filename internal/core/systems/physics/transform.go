// Package physics holds the spatial primitives shared by every simulation system:
// transforms, the planet registry and the sphere collision resolver.
//
// Axis convention: forward is -Z, up is +Y, right is +X in local space.
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the length below which a direction is treated as degenerate.
const Epsilon = 1e-9

var (
	AxisX = mgl64.Vec3{1, 0, 0}
	AxisY = mgl64.Vec3{0, 1, 0}
	AxisZ = mgl64.Vec3{0, 0, 1}
)

// Transform is position, unit rotation and scale of an entity.
type Transform struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Quat `json:"rotation"`
	Scale    mgl64.Vec3 `json:"scale"`
}

// NewTransform creates an identity-rotation, unit-scale transform at position.
func NewTransform(position mgl64.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// WithRotation returns a copy of t with rotation q (normalized).
func (t Transform) WithRotation(q mgl64.Quat) Transform {
	t.Rotation = q.Normalize()
	return t
}

func (t Transform) Forward() mgl64.Vec3 { return t.Rotation.Rotate(mgl64.Vec3{0, 0, -1}) }
func (t Transform) Back() mgl64.Vec3    { return t.Rotation.Rotate(AxisZ) }
func (t Transform) Up() mgl64.Vec3      { return t.Rotation.Rotate(AxisY) }
func (t Transform) Down() mgl64.Vec3    { return t.Rotation.Rotate(mgl64.Vec3{0, -1, 0}) }
func (t Transform) Right() mgl64.Vec3   { return t.Rotation.Rotate(AxisX) }
func (t Transform) Left() mgl64.Vec3    { return t.Rotation.Rotate(mgl64.Vec3{-1, 0, 0}) }

// Translate moves the transform by delta in world space.
func (t *Transform) Translate(delta mgl64.Vec3) {
	t.Position = t.Position.Add(delta)
}

// RotateLocalY yaws the transform around its own up axis.
func (t *Transform) RotateLocalY(angle float64) {
	if angle == 0 {
		return
	}
	t.Rotation = t.Rotation.Mul(mgl64.QuatRotate(angle, AxisY)).Normalize()
}

// LookTo points forward along dir keeping up exactly on the normalized up hint.
// Returns false and leaves t untouched when either vector is degenerate or they are parallel.
func (t *Transform) LookTo(dir, up mgl64.Vec3) bool {
	q, ok := LookRotation(dir, up)
	if !ok {
		return false
	}
	t.Rotation = q
	return true
}

// Mul composes a parent-relative child transform onto t, yielding the child's world transform.
func (t Transform) Mul(child Transform) Transform {
	scaled := mgl64.Vec3{
		child.Position.X() * t.Scale.X(),
		child.Position.Y() * t.Scale.Y(),
		child.Position.Z() * t.Scale.Z(),
	}
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(scaled)),
		Rotation: t.Rotation.Mul(child.Rotation).Normalize(),
		Scale: mgl64.Vec3{
			t.Scale.X() * child.Scale.X(),
			t.Scale.Y() * child.Scale.Y(),
			t.Scale.Z() * child.Scale.Z(),
		},
	}
}

// IsValid reports whether every component is finite and the rotation is unit length.
func (t Transform) IsValid() bool {
	if !finiteVec(t.Position) || !finiteVec(t.Scale) || !finiteVec(t.Rotation.V) || !finite(t.Rotation.W) {
		return false
	}
	return math.Abs(t.Rotation.Len()-1) < 1e-6
}

// LookRotation builds the rotation whose forward (-Z) is dir and whose up (+Y) is
// exactly normalize(up). dir only contributes its component orthogonal to up.
func LookRotation(dir, up mgl64.Vec3) (mgl64.Quat, bool) {
	upLen := up.Len()
	if upLen < Epsilon || !finiteVec(up) || !finiteVec(dir) {
		return mgl64.QuatIdent(), false
	}
	u := up.Mul(1 / upLen)

	f := dir.Sub(u.Mul(dir.Dot(u)))
	fLen := f.Len()
	if fLen < Epsilon {
		return mgl64.QuatIdent(), false
	}
	f = f.Mul(1 / fLen)

	right := f.Cross(u)
	back := f.Mul(-1)

	m := mgl64.Mat4FromCols(right.Vec4(0), u.Vec4(0), back.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(m).Normalize(), true
}

// SafeNormalize returns the unit vector along v, or fallback when v is degenerate.
func SafeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < Epsilon || !finite(l) {
		return fallback
	}
	return v.Mul(1 / l)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}
