package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-7)
}

func TestIdentityAxes(t *testing.T) {
	tr := NewTransform(mgl64.Vec3{})
	assertVec(t, mgl64.Vec3{0, 0, -1}, tr.Forward())
	assertVec(t, mgl64.Vec3{0, 1, 0}, tr.Up())
	assertVec(t, mgl64.Vec3{-1, 0, 0}, tr.Left())
	assertVec(t, mgl64.Vec3{1, 0, 0}, tr.Right())
	assert.True(t, tr.IsValid())
}

func TestRotateLocalYKeepsUp(t *testing.T) {
	tr := NewTransform(mgl64.Vec3{}).WithRotation(mgl64.QuatRotate(math.Pi/2, AxisX))
	up := tr.Up()
	tr.RotateLocalY(0.7)
	assertVec(t, up, tr.Up())
	assert.True(t, tr.IsValid())

	// Quarter turn left: forward becomes the old left.
	tr = NewTransform(mgl64.Vec3{})
	tr.RotateLocalY(math.Pi / 2)
	assertVec(t, mgl64.Vec3{-1, 0, 0}, tr.Forward())
}

func TestLookRotationOrthonormal(t *testing.T) {
	cases := []struct{ dir, up mgl64.Vec3 }{
		{mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}},
		{mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, 5}},
		{mgl64.Vec3{-4, 0.1, 0}, mgl64.Vec3{3, 3, -1}},
	}
	for _, c := range cases {
		q, ok := LookRotation(c.dir, c.up)
		require.True(t, ok)
		tr := NewTransform(mgl64.Vec3{}).WithRotation(q)
		assertVec(t, c.up.Normalize(), tr.Up())
		assert.InDelta(t, 0, tr.Forward().Dot(tr.Up()), tol)
		assert.InDelta(t, 0, tr.Right().Dot(tr.Up()), tol)
		assert.InDelta(t, 1, tr.Forward().Len(), tol)
		// forward keeps the sign of dir projected on the tangent plane
		assert.Greater(t, tr.Forward().Dot(c.dir), 0.0)
	}
}

func TestLookRotationDegenerate(t *testing.T) {
	_, ok := LookRotation(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 2, 0})
	assert.False(t, ok)
	_, ok = LookRotation(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{})
	assert.False(t, ok)

	tr := NewTransform(mgl64.Vec3{})
	before := tr.Rotation
	assert.False(t, tr.LookTo(mgl64.Vec3{}, AxisY))
	assert.Equal(t, before, tr.Rotation)
}

func TestMulComposesChild(t *testing.T) {
	parent := NewTransform(mgl64.Vec3{10, 0, 0}).WithRotation(mgl64.QuatRotate(math.Pi/2, AxisY))
	child := NewTransform(mgl64.Vec3{0, 0, -2})
	world := parent.Mul(child)
	// parent forward is -X after a +90° yaw, so a child 2 units ahead sits at x=8.
	assertVec(t, mgl64.Vec3{8, 0, 0}, world.Position)
	assertVec(t, parent.Forward(), world.Forward())
}

func TestSafeNormalize(t *testing.T) {
	assertVec(t, AxisY, SafeNormalize(mgl64.Vec3{}, AxisY))
	assertVec(t, AxisX, SafeNormalize(mgl64.Vec3{3, 0, 0}, AxisY))
	assertVec(t, AxisZ, SafeNormalize(mgl64.Vec3{math.NaN(), 0, 0}, AxisZ))
}
