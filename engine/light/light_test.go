package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/stretchr/testify/assert"
)

func TestNewLight_Defaults(t *testing.T) {
	sun := NewLight(LightTypeDirectional)
	assert.Equal(t, [3]float32{0, -1, 0}, sun.Direction())
	assert.True(t, sun.Enabled())
	assert.True(t, sun.CastsShadows())
	_, ok := sun.Bounds()
	assert.False(t, ok)

	bulb := NewLight(LightTypePoint)
	assert.False(t, bulb.CastsShadows())
	assert.Equal(t, "point", bulb.Type().String())
}

func TestLight_SetDirectionNormalizes(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(0, 0, -4))
	assert.Equal(t, [3]float32{0, 0, -1}, l.Direction())

	l.SetDirection(3, 0, 4)
	d := l.Direction()
	assert.InDelta(t, 0.6, d[0], 1e-6)
	assert.InDelta(t, 0.8, d[2], 1e-6)
}

func TestLight_PointBounds(t *testing.T) {
	l := NewLight(LightTypePoint, WithPosition(1, 2, 3), WithRange(5))

	b, ok := l.Bounds()
	assert.True(t, ok)
	assert.Equal(t, common.AABB{Min: [3]float32{-4, -3, -2}, Max: [3]float32{6, 7, 8}}, b)
}

func TestLight_SpotBounds(t *testing.T) {
	l := NewLight(LightTypeSpot, WithPosition(0, 10, 0), WithDirection(0, -1, 0), WithRange(10), WithOuterCone(45))

	b, ok := l.Bounds()
	assert.True(t, ok)
	// Apex at y=10, reaches the floor straight down; rim radius 10*sin(45).
	assert.InDelta(t, 10, b.Max[1], 1e-5)
	assert.InDelta(t, 0, b.Min[1], 1e-5)
	assert.InDelta(t, 7.0711, b.Max[0], 1e-3)
	assert.InDelta(t, -7.0711, b.Min[2], 1e-3)

	// Every point of the lit cone must be inside the box.
	for _, p := range [][3]float32{{0, 0, 0}, {7, 3, 0}, {0, 2.93, -7.07}, {4, 1, 4}} {
		assert.True(t, contains(b, p), "%v", p)
	}

	l.SetOuterCone(120)
	b, _ = l.Bounds()
	assert.Equal(t, common.NewAABBFromCenter([3]float32{0, 10, 0}, [3]float32{10, 10, 10}), b)
}

func TestLight_Setters(t *testing.T) {
	l := NewLight(LightTypeSpot)
	l.SetPosition(1, 1, 1)
	l.SetRange(3)
	l.SetEnabled(false)
	l.SetCastsShadows(true)

	assert.Equal(t, [3]float32{1, 1, 1}, l.Position())
	assert.Equal(t, float32(3), l.Range())
	assert.False(t, l.Enabled())
	assert.True(t, l.CastsShadows())
	assert.InDelta(t, 0.8192, l.OuterCone(), 1e-4)
}

func contains(b common.AABB, p [3]float32) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < b.Min[axis]-1e-4 || p[axis] > b.Max[axis]+1e-4 {
			return false
		}
	}
	return true
}
