package common

import (
	"math"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the signed distance from the plane to a point.
// Positive values lie on the side the normal points toward.
//
// Parameters:
//   - p: the world-space point
//
// Returns:
//   - float32: the signed distance
func (pl Plane) SignedDistance(p [3]float32) float32 {
	return pl.Normal[0]*p[0] + pl.Normal[1]*p[1] + pl.Normal[2]*p[2] + pl.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// Containment classifies a bounding volume against a frustum.
type Containment int

const (
	// Outside means the volume lies entirely in the negative half-space of at least one plane.
	Outside Containment = iota
	// Intersecting means the volume straddles at least one plane.
	Intersecting
	// Inside means the volume lies entirely inside all six planes.
	Inside
)

// String returns a readable name for the containment class.
func (c Containment) String() string {
	switch c {
	case Outside:
		return "outside"
	case Intersecting:
		return "intersecting"
	case Inside:
		return "inside"
	default:
		return "unknown"
	}
}

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined View * Projection matrix.
// Uses the Gribb/Hartmann method for plane extraction. The near plane assumes
// WebGPU clip space, where z ranges over [0, w].
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row
	// So M[i][j] = viewProj[j*4 + i]

	// Left plane: row3 + row0
	f.Planes[FrustumLeft].Normal[0] = viewProj[3] + viewProj[0]
	f.Planes[FrustumLeft].Normal[1] = viewProj[7] + viewProj[4]
	f.Planes[FrustumLeft].Normal[2] = viewProj[11] + viewProj[8]
	f.Planes[FrustumLeft].Distance = viewProj[15] + viewProj[12]

	// Right plane: row3 - row0
	f.Planes[FrustumRight].Normal[0] = viewProj[3] - viewProj[0]
	f.Planes[FrustumRight].Normal[1] = viewProj[7] - viewProj[4]
	f.Planes[FrustumRight].Normal[2] = viewProj[11] - viewProj[8]
	f.Planes[FrustumRight].Distance = viewProj[15] - viewProj[12]

	// Bottom plane: row3 + row1
	f.Planes[FrustumBottom].Normal[0] = viewProj[3] + viewProj[1]
	f.Planes[FrustumBottom].Normal[1] = viewProj[7] + viewProj[5]
	f.Planes[FrustumBottom].Normal[2] = viewProj[11] + viewProj[9]
	f.Planes[FrustumBottom].Distance = viewProj[15] + viewProj[13]

	// Top plane: row3 - row1
	f.Planes[FrustumTop].Normal[0] = viewProj[3] - viewProj[1]
	f.Planes[FrustumTop].Normal[1] = viewProj[7] - viewProj[5]
	f.Planes[FrustumTop].Normal[2] = viewProj[11] - viewProj[9]
	f.Planes[FrustumTop].Distance = viewProj[15] - viewProj[13]

	// Near plane: row2 alone (z >= 0 in WebGPU clip space)
	f.Planes[FrustumNear].Normal[0] = viewProj[2]
	f.Planes[FrustumNear].Normal[1] = viewProj[6]
	f.Planes[FrustumNear].Normal[2] = viewProj[10]
	f.Planes[FrustumNear].Distance = viewProj[14]

	// Far plane: row3 - row2
	f.Planes[FrustumFar].Normal[0] = viewProj[3] - viewProj[2]
	f.Planes[FrustumFar].Normal[1] = viewProj[7] - viewProj[6]
	f.Planes[FrustumFar].Normal[2] = viewProj[11] - viewProj[10]
	f.Planes[FrustumFar].Distance = viewProj[15] - viewProj[14]

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// ClassifyAABB tests an axis-aligned box against all six planes.
// For each plane the positive vertex (the corner furthest along the normal)
// decides rejection and the negative vertex decides full containment.
//
// Parameters:
//   - box: the world-space bounding box
//
// Returns:
//   - Containment: Outside, Intersecting or Inside
func (f *Frustum) ClassifyAABB(box AABB) Containment {
	result := Inside
	for i := range f.Planes {
		p := &f.Planes[i]
		var pos, neg [3]float32
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] >= 0 {
				pos[axis], neg[axis] = box.Max[axis], box.Min[axis]
			} else {
				pos[axis], neg[axis] = box.Min[axis], box.Max[axis]
			}
		}
		if p.SignedDistance(pos) < 0 {
			return Outside
		}
		if p.SignedDistance(neg) < 0 {
			result = Intersecting
		}
	}
	return result
}

// IntersectsAABB reports whether any part of the box may be inside the frustum.
// The test is conservative: boxes near frustum corners can pass while being outside.
//
// Parameters:
//   - box: the world-space bounding box
//
// Returns:
//   - bool: false only when the box is provably outside
func (f *Frustum) IntersectsAABB(box AABB) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		px := box.Max[0]
		if p.Normal[0] < 0 {
			px = box.Min[0]
		}
		py := box.Max[1]
		if p.Normal[1] < 0 {
			py = box.Min[1]
		}
		pz := box.Max[2]
		if p.Normal[2] < 0 {
			pz = box.Min[2]
		}
		if p.Normal[0]*px+p.Normal[1]*py+p.Normal[2]*pz+p.Distance < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether a bounding sphere may be inside the frustum.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false only when the sphere is entirely behind one plane
func (f *Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}
