package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testFrustum is a 90 degree camera at the origin looking down -Z.
func testFrustum() Frustum {
	view := make([]float32, 16)
	proj := make([]float32, 16)
	vp := make([]float32, 16)
	LookAt(view, 0, 0, 0, 0, 0, -1, 0, 1, 0)
	Perspective(proj, math.Pi/2, 1, 1, 100)
	Mul4(vp, proj, view)
	return ExtractFrustumFromMatrix(vp)
}

func TestExtractFrustumFromMatrix_Planes(t *testing.T) {
	f := testFrustum()

	for i, p := range f.Planes {
		n := p.Normal
		assert.InDelta(t, 1, math.Sqrt(float64(n[0]*n[0]+n[1]*n[1]+n[2]*n[2])), 1e-5, "plane %d not normalized", i)
	}

	near := f.Planes[FrustumNear]
	assert.InDelta(t, 0, near.SignedDistance([3]float32{0, 0, -1}), 1e-4)
	assert.Greater(t, near.SignedDistance([3]float32{0, 0, -2}), float32(0))
	assert.Less(t, near.SignedDistance([3]float32{0, 0, -0.5}), float32(0))

	far := f.Planes[FrustumFar]
	assert.InDelta(t, 0, far.SignedDistance([3]float32{0, 0, -100}), 1e-2)
	assert.Greater(t, far.SignedDistance([3]float32{0, 0, -50}), float32(0))
}

func TestFrustum_ClassifyAABB(t *testing.T) {
	f := testFrustum()

	tests := []struct {
		name string
		box  AABB
		want Containment
	}{
		{name: "in front", box: NewAABBFromCenter([3]float32{0, 0, -10}, [3]float32{1, 1, 1}), want: Inside},
		{name: "behind", box: NewAABBFromCenter([3]float32{0, 0, 10}, [3]float32{1, 1, 1}), want: Outside},
		{name: "beyond far", box: NewAABBFromCenter([3]float32{0, 0, -200}, [3]float32{1, 1, 1}), want: Outside},
		{name: "left of view", box: NewAABBFromCenter([3]float32{-30, 0, -10}, [3]float32{1, 1, 1}), want: Outside},
		{name: "crosses left plane", box: NewAABBFromCenter([3]float32{-10, 0, -10}, [3]float32{1, 1, 1}), want: Intersecting},
		{name: "crosses near plane", box: NewAABBFromCenter([3]float32{0, 0, -1}, [3]float32{0.5, 0.5, 0.5}), want: Intersecting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ClassifyAABB(tt.box), tt.want.String())
			assert.Equal(t, tt.want != Outside, f.IntersectsAABB(tt.box))
		})
	}
}

func TestFrustum_IntersectsSphere(t *testing.T) {
	f := testFrustum()

	assert.True(t, f.IntersectsSphere([3]float32{0, 0, -10}, 1))
	assert.True(t, f.IntersectsSphere([3]float32{0, 0, 0.5}, 2))
	assert.False(t, f.IntersectsSphere([3]float32{0, 0, 10}, 1))
}

func TestContainment_String(t *testing.T) {
	assert.Equal(t, "outside", Outside.String())
	assert.Equal(t, "intersecting", Intersecting.String())
	assert.Equal(t, "inside", Inside.String())
	assert.Equal(t, "unknown", Containment(9).String())
}
