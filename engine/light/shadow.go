package light

// ShadowMapResolution is the width and height in texels of one cascade's shadow
// depth texture. Cascade projections are snapped to its texel grid so shadow
// edges do not shimmer as the camera moves.
const ShadowMapResolution = 2048

// DefaultCascadeCount is the number of cascades a directional light splits the
// camera view into.
const DefaultCascadeCount = 4

// DefaultCascadeLambda blends logarithmic (1) and uniform (0) cascade split
// placement.
const DefaultCascadeLambda float32 = 0.75

// DefaultCasterDistance is how far (in world units) each cascade's volume is
// extended toward the light, so objects outside the view slice that still cast
// shadows into it survive the light pass.
const DefaultCasterDistance float32 = 100.0
