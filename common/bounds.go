package common

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// NewAABBFromCenter builds a box from a center point and half extents.
//
// Parameters:
//   - center: box center in world space
//   - halfExtents: half size along each axis (must be non-negative)
//
// Returns:
//   - AABB: the resulting box
func NewAABBFromCenter(center, halfExtents [3]float32) AABB {
	return AABB{
		Min: [3]float32{center[0] - halfExtents[0], center[1] - halfExtents[1], center[2] - halfExtents[2]},
		Max: [3]float32{center[0] + halfExtents[0], center[1] + halfExtents[1], center[2] + halfExtents[2]},
	}
}

// Center returns the midpoint of the box.
func (b AABB) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// Extents returns the half size of the box along each axis.
func (b AABB) Extents() [3]float32 {
	return [3]float32{
		(b.Max[0] - b.Min[0]) * 0.5,
		(b.Max[1] - b.Min[1]) * 0.5,
		(b.Max[2] - b.Min[2]) * 0.5,
	}
}

// Union returns the smallest box enclosing both b and o.
//
// Parameters:
//   - o: the other box
//
// Returns:
//   - AABB: the enclosing box
func (b AABB) Union(o AABB) AABB {
	out := b
	for i := 0; i < 3; i++ {
		out.Min[i] = min(out.Min[i], o.Min[i])
		out.Max[i] = max(out.Max[i], o.Max[i])
	}
	return out
}

// NearestDistanceSq returns the squared distance from p to the closest point of
// the box. Points inside the box return 0.
//
// Parameters:
//   - p: the query point
//
// Returns:
//   - float32: squared distance to the nearest point on or in the box
func (b AABB) NearestDistanceSq(p [3]float32) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		v := p[i]
		if v < b.Min[i] {
			v = b.Min[i] - v
		} else if v > b.Max[i] {
			v = v - b.Max[i]
		} else {
			continue
		}
		d += v * v
	}
	return d
}

// FarthestDistanceSq returns the squared distance from p to the farthest corner
// of the box.
//
// Parameters:
//   - p: the query point
//
// Returns:
//   - float32: squared distance to the farthest corner
func (b AABB) FarthestDistanceSq(p [3]float32) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		v := max(p[i]-b.Min[i], b.Max[i]-p[i])
		d += v * v
	}
	return d
}

// BoundsOf returns the box enclosing every box in the slice. An empty slice
// yields the zero AABB.
//
// Parameters:
//   - boxes: the boxes to enclose
//
// Returns:
//   - AABB: the enclosing box
func BoundsOf(boxes []AABB) AABB {
	if len(boxes) == 0 {
		return AABB{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out
}
