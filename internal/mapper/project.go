package mapper

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/uvcast/uvcast/pkg/geometry"
)

// ProjectionMode selects how camera-space points map onto the image plane.
type ProjectionMode int

const (
	// Orthographic maps a fixed world-unit extent onto [0,1], ignoring
	// depth.
	Orthographic ProjectionMode = iota
	// Perspective divides by depth inside a fixed square frustum.
	Perspective
)

// String returns the mode name as used in configuration.
func (m ProjectionMode) String() string {
	switch m {
	case Orthographic:
		return "orthographic"
	case Perspective:
		return "perspective"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseProjectionMode parses a configuration mode name.
func ParseProjectionMode(s string) (ProjectionMode, error) {
	switch strings.ToLower(s) {
	case "orthographic", "ortho":
		return Orthographic, nil
	case "perspective":
		return Perspective, nil
	}
	return 0, fmt.Errorf("unknown projection mode %q", s)
}

// Projection defaults.
const (
	// DefaultOrthoExtent is the world-unit span an orthographic camera
	// maps onto the [0,1] UV range.
	DefaultOrthoExtent = 10.0
	// DefaultFOVDegrees is the perspective field of view, matching a
	// 50mm lens on a 36mm sensor.
	DefaultFOVDegrees = 39.6
)

// Projection holds the run-wide projection settings shared by every
// camera.
type Projection struct {
	Mode       ProjectionMode
	Extent     float64 // orthographic extent, world units
	FOVDegrees float64 // perspective field of view
}

// DefaultProjection returns the orthographic projection used when nothing
// is configured.
func DefaultProjection() Projection {
	return Projection{Mode: Orthographic, Extent: DefaultOrthoExtent, FOVDegrees: DefaultFOVDegrees}
}

// Projector maps world-space points into one camera's normalized image
// plane.
//
// The camera-to-world transform is T(location) * Rz * Ry * Rx over the
// camera's Euler angles, i.e. rotations applied about X, then Y, then Z.
// The projector holds the inverse. The camera looks down its local -Z
// axis, +X maps to U and +Y maps to V, identically for every camera so
// textures never come out mirrored relative to one another.
type Projector struct {
	view   mgl64.Mat4
	mode   ProjectionMode
	extent float64
	plane  float64 // perspective image-plane width at depth 1
}

// NewProjector builds the projector for one camera. Zero-valued Extent or
// FOVDegrees fall back to the package defaults.
func NewProjector(camera geometry.Camera, proj Projection) *Projector {
	rot := mgl64.HomogRotate3DZ(camera.Rotation.Z()).
		Mul4(mgl64.HomogRotate3DY(camera.Rotation.Y())).
		Mul4(mgl64.HomogRotate3DX(camera.Rotation.X()))
	world := mgl64.Translate3D(camera.Location.X(), camera.Location.Y(), camera.Location.Z()).Mul4(rot)

	p := &Projector{
		view:   world.Inv(),
		mode:   proj.Mode,
		extent: proj.Extent,
	}
	if p.extent == 0 {
		p.extent = DefaultOrthoExtent
	}
	fov := proj.FOVDegrees
	if fov == 0 {
		fov = DefaultFOVDegrees
	}
	p.plane = 2 * math.Tan(mgl64.DegToRad(fov)/2)
	return p
}

// Project maps a world-space point to a UV coordinate. Results are not
// clamped: points outside the camera's frame, or behind it under
// perspective, produce out-of-range values so the stretch stays visible
// downstream instead of silently collapsing.
func (p *Projector) Project(point mgl64.Vec3) geometry.UV {
	local := mgl64.TransformCoordinate(point, p.view)

	if p.mode == Perspective {
		d := -local.Z()
		return geometry.UV{
			U: 0.5 + (local.X()/d)/p.plane,
			V: 0.5 + (local.Y()/d)/p.plane,
		}
	}

	return geometry.UV{
		U: 0.5 + local.X()/p.extent,
		V: 0.5 + local.Y()/p.extent,
	}
}
