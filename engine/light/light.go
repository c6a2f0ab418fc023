package light

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-cull/common"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Its shadow volume is
	// split into cascades along the camera view.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position,
	// bounded by a range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction,
	// bounded by a range and an outer cone angle.
	LightTypeSpot
)

// String returns a readable name for the light type.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	lightType    LightType
	position     [3]float32
	direction    [3]float32
	lightRange   float32
	outerCone    float32 // stored as cos(angle in radians)
	enabled      bool
	castsShadows bool
}

// Light defines the interface for a light source as seen by the culling passes.
//
// A shadow-casting directional light drives a Light-view pass with one split per
// cascade. Point and spot lights expose their world-space influence bounds so a
// camera pass can drop lights whose volume is off screen.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional lights.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Direction returns the normalized direction of the light.
	// For directional lights this is the light direction. For spot lights this
	// is the cone axis. Meaningless for point lights.
	//
	// Returns:
	//   - [3]float32: normalized direction as (x, y, z)
	Direction() [3]float32

	// Range returns the maximum influence distance for point and spot lights.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// Enabled returns whether this light takes part in culling passes.
	Enabled() bool

	// CastsShadows returns whether this light needs a shadow culling pass.
	CastsShadows() bool

	// Bounds returns the world-space box enclosing the light's influence volume.
	// Directional lights have unbounded influence and report false.
	//
	// Returns:
	//   - common.AABB: the influence bounds
	//   - bool: false for directional lights
	Bounds() (common.AABB, bool)

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// SetRange sets the maximum influence distance.
	//
	// Parameters:
	//   - lightRange: the range value
	SetRange(lightRange float32)

	// SetOuterCone sets the outer cone half-angle for spot lights.
	//
	// Parameters:
	//   - outerDeg: outer cone half-angle in degrees
	SetOuterCone(outerDeg float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetCastsShadows sets whether the light needs a shadow culling pass.
	//
	// Parameters:
	//   - castsShadows: true to enable shadow casting
	SetCastsShadows(castsShadows bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create (directional, point, or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:           &sync.Mutex{},
		lightType:    lightType,
		direction:    [3]float32{0, -1, 0},
		lightRange:   10.0,
		outerCone:    0.8192, // cos(35°)
		enabled:      true,
		castsShadows: lightType == LightTypeDirectional,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Direction() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Range() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lightRange
}

func (l *lightImpl) OuterCone() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) CastsShadows() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.castsShadows
}

func (l *lightImpl) Bounds() (common.AABB, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.lightRange
	switch l.lightType {
	case LightTypePoint:
		return common.NewAABBFromCenter(l.position, [3]float32{r, r, r}), true
	case LightTypeSpot:
		return spotBounds(l.position, l.direction, r, l.outerCone), true
	default:
		return common.AABB{}, false
	}
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = normalize3(x, y, z)
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lightRange = lightRange
}

func (l *lightImpl) SetOuterCone(outerDeg float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.castsShadows = castsShadows
}

// spotBounds returns the box around a cone with apex p, unit axis dir, range r
// and half-angle whose cosine is cosOuter, capped by the range sphere. Wide
// cones (over 90 degrees) fall back to the full sphere.
func spotBounds(p, dir [3]float32, r, cosOuter float32) common.AABB {
	if cosOuter <= 0 {
		return common.NewAABBFromCenter(p, [3]float32{r, r, r})
	}
	sinOuter := float32(math.Sqrt(float64(max(0, 1-cosOuter*cosOuter))))
	box := common.AABB{Min: p, Max: p}

	// The cone's rim circle has center p+dir*h and radius rb.
	h := r * cosOuter
	rb := r * sinOuter
	for axis := 0; axis < 3; axis++ {
		c := p[axis] + dir[axis]*h
		e := rb * float32(math.Sqrt(float64(max(0, 1-dir[axis]*dir[axis]))))
		lo, hi := c-e, c+e
		// The spherical cap reaches the full range along an axis inside the cone.
		tip := p[axis] + dir[axis]*r
		lo, hi = min(lo, tip), max(hi, tip)
		if dir[axis] >= cosOuter {
			hi = p[axis] + r
		}
		if -dir[axis] >= cosOuter {
			lo = p[axis] - r
		}
		box.Min[axis] = min(box.Min[axis], lo)
		box.Max[axis] = max(box.Max[axis], hi)
	}
	return box
}
