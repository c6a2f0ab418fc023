package game_object

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine/light"
)

type gameObject struct {
	mu *sync.Mutex

	id      uint64
	enabled atomic.Bool

	position    [3]float32
	rotation    [3]float32 // Euler angles in radians, applied X then Y then Z
	scale       [3]float32
	localBounds common.AABB

	attachedLight light.Light
}

// GameObject defines the interface for a scene entity: a transform plus the
// local-space bounds of its mesh. The scene turns every enabled object into one
// culling instance per frame using WorldBounds.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object takes part in culling.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Position returns the object's world-space position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// Rotation returns the object's Euler rotation in radians.
	//
	// Returns:
	//   - rx, ry, rz: rotation angles
	Rotation() (rx, ry, rz float32)

	// Scale returns the object's scale factors.
	//
	// Returns:
	//   - sx, sy, sz: scale components
	Scale() (sx, sy, sz float32)

	// LocalBounds returns the object's bounds in its own space.
	//
	// Returns:
	//   - common.AABB: the local bounds
	LocalBounds() common.AABB

	// WorldBounds returns the axis-aligned box enclosing the transformed local bounds.
	//
	// Returns:
	//   - common.AABB: the world-space bounds
	WorldBounds() common.AABB

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object takes part in culling.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetPosition sets the object's world-space position.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// SetRotation sets the object's Euler rotation in radians.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation angles
	SetRotation(rx, ry, rz float32)

	// SetScale sets the object's scale factors.
	//
	// Parameters:
	//   - sx, sy, sz: new scale factors
	SetScale(sx, sy, sz float32)

	// SetLocalBounds sets the object's bounds in its own space.
	//
	// Parameters:
	//   - b: the local bounds
	SetLocalBounds(b common.AABB)

	// Light returns the Light attached to this object, or nil if none is set.
	//
	// Returns:
	//   - light.Light: the attached light or nil
	Light() light.Light

	// SetLight attaches a Light to this object. When the object is part of a
	// scene, the scene syncs the light's position from the object's position
	// each frame. Pass nil to detach.
	//
	// Parameters:
	//   - l: the Light to attach, or nil to detach
	SetLight(l light.Light)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled GameObject with unit scale and unit-cube
// local bounds, configured with the given options.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:          &sync.Mutex{},
		scale:       [3]float32{1, 1, 1},
		localBounds: common.NewAABBFromCenter([3]float32{}, [3]float32{0.5, 0.5, 0.5}),
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Position() (x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position[0], g.position[1], g.position[2]
}

func (g *gameObject) Rotation() (rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation[0], g.rotation[1], g.rotation[2]
}

func (g *gameObject) Scale() (sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale[0], g.scale[1], g.scale[2]
}

func (g *gameObject) LocalBounds() common.AABB {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.localBounds
}

func (g *gameObject) WorldBounds() common.AABB {
	g.mu.Lock()
	pos, rot, scale, local := g.position, g.rotation, g.scale, g.localBounds
	g.mu.Unlock()

	m := rotationMatrix(rot)
	c := local.Center()
	e := local.Extents()
	for i := 0; i < 3; i++ {
		c[i] *= scale[i]
		e[i] *= absF32(scale[i])
	}

	// Transformed center plus the extents projected through |R|.
	var center, extents [3]float32
	for row := 0; row < 3; row++ {
		center[row] = pos[row]
		for col := 0; col < 3; col++ {
			center[row] += m[row][col] * c[col]
			extents[row] += absF32(m[row][col]) * e[col]
		}
	}
	return common.NewAABBFromCenter(center, extents)
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) SetLocalBounds(b common.AABB) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.localBounds = b
}

func (g *gameObject) Light() light.Light {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attachedLight
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
}

// rotationMatrix builds Rz * Ry * Rx as a row-major 3x3 matrix.
func rotationMatrix(rot [3]float32) [3][3]float32 {
	sx, cx := math.Sincos(float64(rot[0]))
	sy, cy := math.Sincos(float64(rot[1]))
	sz, cz := math.Sincos(float64(rot[2]))

	return [3][3]float32{
		{float32(cz * cy), float32(cz*sy*sx - sz*cx), float32(cz*sy*cx + sz*sx)},
		{float32(sz * cy), float32(sz*sy*sx + cz*cx), float32(sz*sy*cx - cz*sx)},
		{float32(-sy), float32(cy * sx), float32(cy * cx)},
	}
}

// absF32 returns the absolute value of a float32.
func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
