package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAABB_CenterAndExtents(t *testing.T) {
	b := NewAABBFromCenter([3]float32{1, 2, 3}, [3]float32{0.5, 1, 2})

	assert.Equal(t, [3]float32{0.5, 1, 1}, b.Min)
	assert.Equal(t, [3]float32{1.5, 3, 5}, b.Max)
	assert.Equal(t, [3]float32{1, 2, 3}, b.Center())
	assert.Equal(t, [3]float32{0.5, 1, 2}, b.Extents())
}

func TestAABB_Union(t *testing.T) {
	a := AABB{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 1}}
	b := AABB{Min: [3]float32{-1, 0.5, 2}, Max: [3]float32{0.5, 3, 4}}

	u := a.Union(b)
	assert.Equal(t, [3]float32{-1, 0, 0}, u.Min)
	assert.Equal(t, [3]float32{1, 3, 4}, u.Max)
	assert.Equal(t, u, b.Union(a))
}

func TestAABB_Distances(t *testing.T) {
	b := AABB{Min: [3]float32{1, -1, -1}, Max: [3]float32{3, 1, 1}}

	tests := []struct {
		name     string
		p        [3]float32
		nearest  float32
		farthest float32
	}{
		{name: "origin", p: [3]float32{0, 0, 0}, nearest: 1, farthest: 9 + 1 + 1},
		{name: "inside", p: [3]float32{2, 0, 0}, nearest: 0, farthest: 1 + 1 + 1},
		{name: "diagonal", p: [3]float32{4, 2, 0}, nearest: 1 + 1, farthest: 9 + 9 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.nearest, b.NearestDistanceSq(tt.p), 1e-6)
			assert.InDelta(t, tt.farthest, b.FarthestDistanceSq(tt.p), 1e-6)
		})
	}
}

func TestBoundsOf(t *testing.T) {
	assert.Equal(t, AABB{}, BoundsOf(nil))

	boxes := []AABB{
		NewAABBFromCenter([3]float32{0, 0, 0}, [3]float32{1, 1, 1}),
		NewAABBFromCenter([3]float32{10, -5, 2}, [3]float32{1, 1, 1}),
	}
	got := BoundsOf(boxes)
	assert.Equal(t, [3]float32{-1, -6, -1}, got.Min)
	assert.Equal(t, [3]float32{11, 1, 3}, got.Max)
}
