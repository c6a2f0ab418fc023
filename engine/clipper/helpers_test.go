package clipper

import (
	"math"

	"github.com/Carmen-Shannon/oxy-cull/common"
)

// cameraFrustum returns the frustum of a 90 degree camera at eye looking at
// target, with near 0.1 and far 100.
func cameraFrustum(eye, target [3]float32) common.Frustum {
	return common.ExtractFrustumFromMatrix(viewProjection(eye, target))
}

func viewProjection(eye, target [3]float32) []float32 {
	view := make([]float32, 16)
	proj := make([]float32, 16)
	vp := make([]float32, 16)
	common.LookAt(view, eye[0], eye[1], eye[2], target[0], target[1], target[2], 0, 1, 0)
	common.Perspective(proj, math.Pi/2, 1, 0.1, 100)
	common.Mul4(vp, proj, view)
	return vp
}

func box(x, y, z, half float32) common.AABB {
	return common.NewAABBFromCenter([3]float32{x, y, z}, [3]float32{half, half, half})
}
