package scene

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/Carmen-Shannon/oxy-cull/engine"
	"github.com/Carmen-Shannon/oxy-cull/engine/camera"
	"github.com/Carmen-Shannon/oxy-cull/engine/clipper"
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
	"github.com/Carmen-Shannon/oxy-cull/engine/game_object"
	"github.com/Carmen-Shannon/oxy-cull/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
)

// Scene defines the interface for a set of game objects culled together each
// frame. A scene packs its enabled objects into batches of
// culling.MaxBatchInstances and exposes three passes over them:
//
//   - Gather: rebuilds batches and world bounds from the objects.
//   - Camera: culls the camera batches against the camera frustum.
//   - Shadow: culls the shadow batches against the sun's cascade frustums.
//   - Lights: culls the attached lights' influence volumes against the camera.
//
// A scene configured with a GPU device adds an upload pass that writes the
// camera and shadow visibility to storage buffers after culling.
//
// The gather pass decides the batch count, so the camera and shadow passes
// resolve their size only after it completes. Frame results (VisibleObjects,
// ShadowCasters, the visibility uploads) are valid once the frame's final
// Completion resolves, until the next gather starts.
type Scene interface {
	// Name returns the scene's name. Pass labels are prefixed with it.
	Name() string

	// Active returns whether the scene's objects are culled. An inactive scene
	// gathers no batches.
	Active() bool

	// SetActive sets whether the scene's objects are culled.
	//
	// Parameters:
	//   - active: true to cull the scene's objects
	SetActive(active bool)

	// Camera returns the camera the scene is culled for.
	Camera() camera.Camera

	// SetCamera replaces the camera the scene is culled for.
	//
	// Parameters:
	//   - cam: the camera (must not be nil)
	SetCamera(cam camera.Camera)

	// Sun returns the directional light whose cascades drive the shadow pass, or nil.
	Sun() light.Light

	// SetSun sets the directional light whose cascades drive the shadow pass.
	// Pass nil to disable the shadow pass.
	//
	// Parameters:
	//   - l: the directional light, or nil
	SetSun(l light.Light)

	// Lights returns the lights attached to the scene's objects.
	//
	// Returns:
	//   - []light.Light: a copy of the attached lights
	Lights() []light.Light

	// CullingDisabled returns whether the camera pass keeps every instance visible.
	CullingDisabled() bool

	// SetCullingDisabled toggles camera frustum culling. When disabled the camera
	// pass still runs, but every batch is classified Visible.
	//
	// Parameters:
	//   - disabled: true to disable camera culling
	SetCullingDisabled(disabled bool)

	// Count returns the number of registered objects.
	Count() int

	// Add registers an object, assigning it an ID if it has none.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object's ID
	Add(obj game_object.GameObject) uint64

	// Get returns the object with the given ID, or nil.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove unregisters the object with the given ID.
	//
	// Parameters:
	//   - id: the object ID
	Remove(id uint64)

	// Clear unregisters every object.
	Clear()

	// GatherPass returns the pass that rebuilds batches and bounds.
	GatherPass() culling.Pass

	// CameraPass returns the camera frustum culling pass.
	CameraPass() culling.Pass

	// ShadowPass returns the cascade shadow culling pass.
	ShadowPass() culling.Pass

	// LightPass returns the pass that culls attached lights against the camera.
	LightPass() culling.Pass

	// UploadPass returns the pass that uploads camera and shadow visibility to
	// the GPU, or nil when the scene has no GPU configured.
	UploadPass() culling.Pass

	// Register adds the gather, camera, shadow and light passes to an engine at
	// baseKey through baseKey+3, and the upload pass at baseKey+4 when the
	// scene has a GPU configured.
	//
	// Parameters:
	//   - e: the engine to register with
	//   - baseKey: the order key of the gather pass
	Register(e engine.Engine, baseKey int)

	// VisibleObjects returns the objects the last camera pass left visible.
	//
	// Returns:
	//   - []game_object.GameObject: the visible objects in batch order
	VisibleObjects() []game_object.GameObject

	// ShadowCasters returns the objects the last shadow pass kept in a cascade.
	//
	// Parameters:
	//   - cascade: the cascade index
	//
	// Returns:
	//   - []game_object.GameObject: the casters in batch order
	ShadowCasters(cascade int) []game_object.GameObject

	// Cascades returns the cascades computed by the last shadow pass.
	//
	// Returns:
	//   - []light.Cascade: a copy of the cascades
	Cascades() []light.Cascade

	// CameraVisibility returns the camera batches in GPU upload layout.
	CameraVisibility() []byte

	// ShadowVisibility returns the shadow batches in GPU upload layout.
	ShadowVisibility() []byte

	// VisibleLights returns the enabled attached lights whose influence reaches
	// the camera frustum in the last frame. Directional lights are always included.
	//
	// Returns:
	//   - []light.Light: the visible lights
	VisibleLights() []light.Light

	// VisibilityBuffers returns the storage buffers written by the last upload
	// pass. Both are nil without a GPU configured.
	//
	// Returns:
	//   - *wgpu.Buffer: camera visibility
	//   - *wgpu.Buffer: shadow visibility
	VisibilityBuffers() (*wgpu.Buffer, *wgpu.Buffer)
}

// visibilityUploader writes a pass's batches to a GPU buffer.
type visibilityUploader interface {
	Upload(list culling.BatchList) (*wgpu.Buffer, error)
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	registry map[uint64]game_object.GameObject
	nextID   uint64

	cam camera.Camera
	sun light.Light

	lights       []light.Light
	lightObjects []game_object.GameObject // objects with attached lights

	cullingDisabled bool
	cascadeCount    int
	cascadeLambda   float32
	cascades        []light.Cascade

	// Frame state. Written by the gather pass and read by the passes that
	// depend on it, so it needs no lock while a frame is in flight.
	frameObjects   []game_object.GameObject
	bounds         clipper.BoundsTable
	cameraBatches  *culling.BatchBuffer
	shadowBatches  *culling.BatchBuffer
	shadowRejected []bool

	frameLights  []light.Light // enabled lights with a bounded influence
	globalLights []light.Light // enabled directional lights
	lightBounds  clipper.BoundsTable
	lightBatches *culling.BatchBuffer

	cameraUpload visibilityUploader
	shadowUpload visibilityUploader
	cameraBuffer *wgpu.Buffer
	shadowBuffer *wgpu.Buffer
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new active Scene culled for the given camera.
// NewScene panics if cam is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}

	s := &scene{
		mu:            &sync.RWMutex{},
		name:          name,
		active:        true,
		cam:           cam,
		registry:      make(map[uint64]game_object.GameObject),
		nextID:        1,
		cascadeCount:  light.DefaultCascadeCount,
		cascadeLambda: light.DefaultCascadeLambda,
		cameraBatches: culling.NewBatchBuffer(0),
		shadowBatches: culling.NewBatchBuffer(0),
		lightBatches:  culling.NewBatchBuffer(0),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		panic("scene: SetCamera requires a non-nil Camera")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Sun() light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sun
}

func (s *scene) SetSun(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sun = l
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]light.Light(nil), s.lights...)
}

func (s *scene) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(obj)
}

// addLocked registers obj. Caller must hold s.mu write lock.
func (s *scene) addLocked(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(atomic.AddUint64(&s.nextID, 1) - 1)
	}
	s.registry[obj.ID()] = obj

	// Objects with an attached light keep the light's position in sync.
	if l := obj.Light(); l != nil {
		s.lightObjects = append(s.lightObjects, obj)
		s.lights = append(s.lights, l)
	}
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.registry[id]
	if !exists {
		return
	}
	delete(s.registry, id)

	if l := obj.Light(); l != nil {
		for i, existing := range s.lights {
			if existing == l {
				s.lights = append(s.lights[:i], s.lights[i+1:]...)
				break
			}
		}
		for i, o := range s.lightObjects {
			if o == obj {
				s.lightObjects = append(s.lightObjects[:i], s.lightObjects[i+1:]...)
				break
			}
		}
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = make(map[uint64]game_object.GameObject)
	s.lights = nil
	s.lightObjects = nil
}

func (s *scene) GatherPass() culling.Pass {
	return gatherPass{s: s}
}

func (s *scene) CameraPass() culling.Pass {
	return cameraPass{s: s}
}

func (s *scene) ShadowPass() culling.Pass {
	return shadowPass{s: s}
}

func (s *scene) LightPass() culling.Pass {
	return lightPass{s: s}
}

func (s *scene) UploadPass() culling.Pass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cameraUpload == nil && s.shadowUpload == nil {
		return nil
	}
	return uploadPass{s: s}
}

func (s *scene) Register(e engine.Engine, baseKey int) {
	name := s.Name()
	e.AddPass(baseKey, name+"/gather", s.GatherPass())
	e.AddPass(baseKey+1, name+"/camera", s.CameraPass())
	e.AddPass(baseKey+2, name+"/shadow", s.ShadowPass())
	e.AddPass(baseKey+3, name+"/lights", s.LightPass())
	if upload := s.UploadPass(); upload != nil {
		e.AddPass(baseKey+4, name+"/upload", upload)
	}
}

func (s *scene) VisibleObjects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []game_object.GameObject
	for i := 0; i < s.cameraBatches.Len(); i++ {
		base := i * culling.MaxBatchInstances
		s.cameraBatches.Batch(i).ForEachVisible(func(instance int) {
			out = append(out, s.frameObjects[base+instance])
		})
	}
	return out
}

func (s *scene) ShadowCasters(cascade int) []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cascade < 0 || cascade >= len(s.cascades) {
		return nil
	}
	var out []game_object.GameObject
	for i := 0; i < s.shadowBatches.Len(); i++ {
		// A batch rejected whole keeps stale split masks.
		if s.shadowRejected[i] {
			continue
		}
		b := s.shadowBatches.Batch(i)
		base := i * culling.MaxBatchInstances
		for j := 0; j < b.InstanceCount; j++ {
			if b.SplitMasks[j]>>cascade&1 != 0 {
				out = append(out, s.frameObjects[base+j])
			}
		}
	}
	return out
}

func (s *scene) Cascades() []light.Cascade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]light.Cascade(nil), s.cascades...)
}

func (s *scene) CameraVisibility() []byte {
	return culling.MarshalVisibility(s.cameraBatches)
}

func (s *scene) ShadowVisibility() []byte {
	return culling.MarshalVisibility(s.shadowBatches)
}

func (s *scene) VisibleLights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]light.Light(nil), s.globalLights...)
	for i := 0; i < s.lightBatches.Len(); i++ {
		base := i * culling.MaxBatchInstances
		s.lightBatches.Batch(i).ForEachVisible(func(instance int) {
			out = append(out, s.frameLights[base+instance])
		})
	}
	return out
}

func (s *scene) VisibilityBuffers() (*wgpu.Buffer, *wgpu.Buffer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cameraBuffer, s.shadowBuffer
}

// uploadVisibility writes the camera and shadow batches through the
// configured uploaders.
func (s *scene) uploadVisibility() error {
	s.mu.RLock()
	cameraUpload, shadowUpload := s.cameraUpload, s.shadowUpload
	s.mu.RUnlock()

	var cameraBuf, shadowBuf *wgpu.Buffer
	var err error
	if cameraUpload != nil {
		if cameraBuf, err = cameraUpload.Upload(s.cameraBatches); err != nil {
			return err
		}
	}
	if shadowUpload != nil {
		if shadowBuf, err = shadowUpload.Upload(s.shadowBatches); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cameraBuffer, s.shadowBuffer = cameraBuf, shadowBuf
	s.mu.Unlock()
	return nil
}

// gatherCount snapshots the enabled objects, sizes the batch buffers and
// bounds table for them, and syncs attached light positions. It runs as the
// Count of the gather pass.
func (s *scene) gatherCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.lightObjects {
		obj.Light().SetPosition(obj.Position())
	}
	s.gatherLightsLocked()

	s.frameObjects = s.frameObjects[:0]
	if s.active {
		for _, obj := range s.registry {
			if obj.Enabled() {
				s.frameObjects = append(s.frameObjects, obj)
			}
		}
	}
	sort.Slice(s.frameObjects, func(i, j int) bool {
		return s.frameObjects[i].ID() < s.frameObjects[j].ID()
	})

	total := len(s.frameObjects)
	n := (total + culling.MaxBatchInstances - 1) / culling.MaxBatchInstances

	if cap(s.bounds) < n {
		grown := make(clipper.BoundsTable, n)
		copy(grown, s.bounds)
		s.bounds = grown
	}
	s.bounds = s.bounds[:n]
	s.shadowRejected = append(s.shadowRejected[:0], make([]bool, n)...)

	// Only the cascades in use start active, so unused split bits upload as zero.
	cascadeMask := uint8(uint16(1)<<min(max(s.cascadeCount, 1), culling.MaxSplits) - 1)

	s.cameraBatches.Reset()
	s.shadowBatches.Reset()
	for i := 0; i < n; i++ {
		count := min(total-i*culling.MaxBatchInstances, culling.MaxBatchInstances)
		s.cameraBatches.Append(culling.NewVisibilityBatch(i, count))

		shadow := culling.NewVisibilityBatch(i, count)
		for j := 0; j < count; j++ {
			shadow.SplitMasks[j] = cascadeMask
		}
		s.shadowBatches.Append(shadow)
	}
	return n, nil
}

// gatherLightsLocked packs the enabled attached lights into light batches with
// their influence bounds. Caller must hold s.mu write lock.
func (s *scene) gatherLightsLocked() {
	s.frameLights = s.frameLights[:0]
	s.globalLights = s.globalLights[:0]
	s.lightBounds = s.lightBounds[:0]
	s.lightBatches.Reset()
	if !s.active {
		return
	}

	var boxes []common.AABB
	for _, l := range s.lights {
		if !l.Enabled() {
			continue
		}
		box, ok := l.Bounds()
		if !ok {
			s.globalLights = append(s.globalLights, l)
			continue
		}
		s.frameLights = append(s.frameLights, l)
		boxes = append(boxes, box)
	}

	for i := 0; i*culling.MaxBatchInstances < len(boxes); i++ {
		start := i * culling.MaxBatchInstances
		end := min(start+culling.MaxBatchInstances, len(boxes))
		s.lightBounds = append(s.lightBounds, clipper.NewBatchBounds(boxes[start:end]))
		s.lightBatches.Append(culling.NewVisibilityBatch(i, end-start))
	}
}

// gatherBatch fills the world bounds of batch i.
func (s *scene) gatherBatch(i int) error {
	start := i * culling.MaxBatchInstances
	end := min(start+culling.MaxBatchInstances, len(s.frameObjects))

	instances := s.bounds[i].Instances[:0]
	for _, obj := range s.frameObjects[start:end] {
		instances = append(instances, obj.WorldBounds())
	}
	s.bounds[i] = clipper.NewBatchBounds(instances)
	return nil
}

type gatherPass struct {
	s *scene
}

func (p gatherPass) Schedule(d culling.Dispatcher, dependsOn *culling.Completion) (*culling.Completion, error) {
	var batches atomic.Int64
	return d.Schedule(dependsOn, culling.ParallelFor{
		Count: func() (int, error) {
			n, err := p.s.gatherCount()
			batches.Store(int64(n))
			return n, err
		},
		Body: p.s.gatherBatch,
		Finish: func(elapsed time.Duration) culling.PassStats {
			return culling.PassStats{Batches: int(batches.Load()), Duration: elapsed}
		},
	}), nil
}

type cameraPass struct {
	s *scene
}

func (p cameraPass) Schedule(d culling.Dispatcher, dependsOn *culling.Completion) (*culling.Completion, error) {
	s := p.s
	s.mu.RLock()
	cam, disabled := s.cam, s.cullingDisabled
	s.mu.RUnlock()

	ctx := culling.PassContext{ViewType: culling.ViewTypeCamera, SplitCount: 1, Batches: s.cameraBatches}
	if disabled {
		keepAll := clipper.NewPredicateClipper(
			func(*culling.VisibilityBatch) culling.Verdict { return culling.VerdictVisible },
			func(int, int, int) bool { return true },
		)
		return culling.Dispatch[clipper.PredicateTester](d, ctx, keepAll, dependsOn)
	}

	c := clipper.NewFrustumClipper(
		clipper.WithSplitFrustums(cam.Frustum()),
		clipper.WithFrustumBounds(&s.bounds),
	)
	return culling.Dispatch[clipper.FrustumTester](d, ctx, c, dependsOn)
}

type shadowPass struct {
	s *scene
}

func (p shadowPass) Schedule(d culling.Dispatcher, dependsOn *culling.Completion) (*culling.Completion, error) {
	s := p.s
	s.mu.Lock()
	cam, sun, count, lambda := s.cam, s.sun, s.cascadeCount, s.cascadeLambda
	if sun == nil || !sun.Enabled() || !sun.CastsShadows() {
		s.cascades = nil
		s.mu.Unlock()
		// Still ordered after its dependency so frame chaining holds.
		return d.Schedule(dependsOn, culling.ParallelFor{}), nil
	}
	cascades, err := light.CascadeFrustums(cam, sun.Direction(), count, lambda)
	if err != nil {
		s.cascades = nil
		s.mu.Unlock()
		return nil, err
	}
	s.cascades = cascades
	s.mu.Unlock()

	c := clipper.NewFrustumClipper(
		clipper.WithSplitFrustums(light.SplitFrustums(cascades)...),
		clipper.WithFrustumBounds(&s.bounds),
	)
	ctx := culling.PassContext{ViewType: culling.ViewTypeLight, SplitCount: count, Batches: s.shadowBatches}

	// Whole-batch rejections leave the split masks as seeded, so they are
	// recorded here for ShadowCasters. Each batch index is written by one worker.
	return culling.DispatchObserved[clipper.FrustumTester](d, ctx, c, dependsOn, func(batch int, r culling.BatchResult) {
		s.shadowRejected[batch] = r.Verdict == culling.VerdictInvisible
	})
}

type lightPass struct {
	s *scene
}

func (p lightPass) Schedule(d culling.Dispatcher, dependsOn *culling.Completion) (*culling.Completion, error) {
	s := p.s
	s.mu.RLock()
	frustum := s.cam.Frustum()
	s.mu.RUnlock()

	c := lightClipper{
		chunks: clipper.NewFrustumClipper(
			clipper.WithSplitFrustums(frustum),
			clipper.WithFrustumBounds(&s.lightBounds),
		),
		frustum: frustum,
		lights:  &s.frameLights,
	}
	ctx := culling.PassContext{ViewType: culling.ViewTypeCamera, SplitCount: 1, Batches: s.lightBatches}
	return culling.Dispatch[lightTester](d, ctx, c, dependsOn)
}

// lightClipper classifies light batches by the union of their influence boxes
// and tests point lights by their influence sphere.
type lightClipper struct {
	chunks  clipper.FrustumClipper
	frustum common.Frustum
	lights  *[]light.Light
}

var _ culling.Clipper[lightTester] = lightClipper{}

func (c lightClipper) Cull(b *culling.VisibilityBatch) culling.Verdict {
	return c.chunks.Cull(b)
}

func (c lightClipper) CreateTester(b *culling.VisibilityBatch) (lightTester, error) {
	start := b.ID * culling.MaxBatchInstances
	lights := *c.lights
	if start+b.InstanceCount > len(lights) {
		return lightTester{}, fmt.Errorf("scene: light batch %d: %w", b.ID, clipper.ErrMissingBounds)
	}
	return lightTester{frustum: c.frustum, lights: lights[start : start+b.InstanceCount]}, nil
}

type lightTester struct {
	frustum common.Frustum
	lights  []light.Light
}

func (t lightTester) Test(instance, _ int) bool {
	l := t.lights[instance]
	if l.Type() == light.LightTypePoint {
		return t.frustum.IntersectsSphere(l.Position(), l.Range())
	}
	box, ok := l.Bounds()
	return !ok || t.frustum.IntersectsAABB(box)
}

type uploadPass struct {
	s *scene
}

func (p uploadPass) Schedule(d culling.Dispatcher, dependsOn *culling.Completion) (*culling.Completion, error) {
	return d.Schedule(dependsOn, culling.ParallelFor{
		Count: func() (int, error) {
			return 0, p.s.uploadVisibility()
		},
	}), nil
}
