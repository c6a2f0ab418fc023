package scene

import (
	"github.com/Carmen-Shannon/oxy-cull/engine/culling"
	"github.com/Carmen-Shannon/oxy-cull/engine/game_object"
	"github.com/Carmen-Shannon/oxy-cull/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene's objects are culled.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			s.addLocked(obj)
		}
	}
}

// WithSun sets the directional light whose cascades drive the shadow pass.
//
// Parameters:
//   - l: the directional light
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSun(l light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.sun = l
	}
}

// WithCascades sets the number of shadow cascades and their split placement.
// Defaults to light.DefaultCascadeCount and light.DefaultCascadeLambda.
//
// Parameters:
//   - count: the number of cascades, 1..culling.MaxSplits
//   - lambda: 0 for uniform split placement, 1 for logarithmic
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCascades(count int, lambda float32) SceneBuilderOption {
	return func(s *scene) {
		s.cascadeCount = count
		s.cascadeLambda = lambda
	}
}

// WithCullingDisabled disables camera frustum culling for the scene. The camera
// pass still runs but keeps every instance visible.
// By default culling is enabled (disabled = false).
//
// Parameters:
//   - disabled: true to disable frustum culling, false to enable it (default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithGPU enables the upload pass. Camera and shadow visibility are written to
// storage buffers created on device after every frame's culling.
//
// Parameters:
//   - device: the device that owns the visibility buffers
//   - queue: the queue the uploads are written through
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGPU(device *wgpu.Device, queue *wgpu.Queue) SceneBuilderOption {
	return func(s *scene) {
		s.cameraUpload = culling.NewVisibilityUploader(s.name+" Camera", device, queue)
		s.shadowUpload = culling.NewVisibilityUploader(s.name+" Shadow", device, queue)
	}
}
