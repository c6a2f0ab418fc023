package light

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/camera"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
)

var (
	// ErrInvalidCascadeRange is returned when the camera depth range cannot be split.
	ErrInvalidCascadeRange = errors.New("invalid cascade range")

	// ErrInvalidDirection is returned for a zero-length light direction.
	ErrInvalidDirection = errors.New("invalid light direction")
)

// Cascade is one slice of a directional light's shadow volume. Its frustum is
// split Index of a Light-view culling pass.
type Cascade struct {
	Index int

	// Near and Far bound the camera view distances the cascade covers.
	Near float32
	Far  float32

	// ViewProjection is the cascade's orthographic light view-projection (column-major).
	ViewProjection [16]float32

	// Frustum is extracted from ViewProjection.
	Frustum common.Frustum
}

// CascadeSplitDistances places count+1 split distances between near and far
// using the practical split scheme: a lambda blend of logarithmic and uniform
// placement. The first value is near and the last is far.
//
// Parameters:
//   - near: camera near plane distance (must be > 0)
//   - far: camera far plane distance (must be > near)
//   - count: number of cascades, 1..culling.MaxSplits
//   - lambda: 0 for uniform placement, 1 for logarithmic; clamped to [0, 1]
//
// Returns:
//   - []float32: count+1 ascending split distances
//   - error: non-nil if count or the range is invalid
func CascadeSplitDistances(near, far float32, count int, lambda float32) ([]float32, error) {
	if count < 1 || count > culling.MaxSplits {
		return nil, fmt.Errorf("light: cascade count %d: %w", count, culling.ErrInvalidSplitCount)
	}
	if near <= 0 || far <= near {
		return nil, fmt.Errorf("light: near %v far %v: %w", near, far, ErrInvalidCascadeRange)
	}
	lambda = min(max(lambda, 0), 1)

	splits := make([]float32, count+1)
	ratio := float64(far / near)
	for i := range splits {
		p := float64(i) / float64(count)
		logSplit := float32(float64(near) * math.Pow(ratio, p))
		uniSplit := near + (far-near)*float32(p)
		splits[i] = lambda*logSplit + (1-lambda)*uniSplit
	}
	splits[0], splits[count] = near, far
	return splits, nil
}

// CascadeFrustums computes one orthographic light frustum per cascade of the
// camera view. Each cascade encloses the bounding sphere of its view slice,
// snapped to the ShadowMapResolution texel grid, and is extended
// DefaultCasterDistance toward the light.
//
// Parameters:
//   - cam: the camera whose view is split
//   - lightDir: direction the light travels (from light toward scene)
//   - count: number of cascades, 1..culling.MaxSplits
//   - lambda: split placement blend, see CascadeSplitDistances
//
// Returns:
//   - []Cascade: count cascades ordered near to far
//   - error: non-nil if count, the camera range, or the direction is invalid
func CascadeFrustums(cam camera.Camera, lightDir [3]float32, count int, lambda float32) ([]Cascade, error) {
	splits, err := CascadeSplitDistances(cam.Near(), cam.Far(), count, lambda)
	if err != nil {
		return nil, err
	}
	dir := normalize3(lightDir[0], lightDir[1], lightDir[2])
	if dir == [3]float32{} {
		return nil, fmt.Errorf("light: %w", ErrInvalidDirection)
	}

	// Choose a stable up vector that isn't parallel to the light direction.
	upX, upY, upZ := float32(0), float32(1), float32(0)
	if absF32(dir[1]) > 0.99 {
		upX, upY, upZ = 1, 0, 0
	}
	var view [16]float32
	common.LookAt(view[:], 0, 0, 0, dir[0], dir[1], dir[2], upX, upY, upZ)

	cascades := make([]Cascade, count)
	for i := range cascades {
		center, radius := boundingSphere(cam.SliceCorners(splits[i], splits[i+1]))
		// Quantized so the texel size stays fixed while the camera rotates.
		radius = float32(math.Ceil(float64(radius)*16) / 16)

		texel := 2 * radius / ShadowMapResolution
		lc := common.TransformPoint(view[:], center[0], center[1], center[2])
		lc[0] = float32(math.Floor(float64(lc[0]/texel))) * texel
		lc[1] = float32(math.Floor(float64(lc[1]/texel))) * texel
		extent := radius + texel

		var proj [16]float32
		common.Ortho(proj[:],
			lc[0]-extent, lc[0]+extent,
			lc[1]-extent, lc[1]+extent,
			-lc[2]-radius-DefaultCasterDistance, -lc[2]+radius,
		)

		c := &cascades[i]
		c.Index = i
		c.Near, c.Far = splits[i], splits[i+1]
		common.Mul4(c.ViewProjection[:], proj[:], view[:])
		c.Frustum = common.ExtractFrustumFromMatrix(c.ViewProjection[:])
	}
	return cascades, nil
}

// SplitFrustums returns the frustum of every cascade in order, ready to back a
// Light-view frustum clipper.
//
// Parameters:
//   - cascades: the cascades returned by CascadeFrustums
//
// Returns:
//   - []common.Frustum: one frustum per cascade
func SplitFrustums(cascades []Cascade) []common.Frustum {
	out := make([]common.Frustum, len(cascades))
	for i := range cascades {
		out[i] = cascades[i].Frustum
	}
	return out
}

// boundingSphere returns the centroid of the points and the distance to the
// farthest of them.
func boundingSphere(points [8][3]float32) ([3]float32, float32) {
	var center [3]float32
	for _, p := range points {
		for axis := range center {
			center[axis] += p[axis] / float32(len(points))
		}
	}
	var radiusSq float32
	for _, p := range points {
		dx, dy, dz := p[0]-center[0], p[1]-center[1], p[2]-center[2]
		radiusSq = max(radiusSq, dx*dx+dy*dy+dz*dz)
	}
	return center, float32(math.Sqrt(float64(radiusSq)))
}

// absF32 returns the absolute value of a float32.
func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
