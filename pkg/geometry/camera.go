package geometry

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// SelectionMode picks which coordinate extremum a camera's selection band
// attaches to.
type SelectionMode int

// Selection modes.
const (
	SelectMaxCoord SelectionMode = iota // band below the maximum centroid coordinate
	SelectMinCoord                      // band above the minimum centroid coordinate
)

// String returns the configuration-file spelling of the mode.
func (m SelectionMode) String() string {
	switch m {
	case SelectMaxCoord:
		return "max_coord"
	case SelectMinCoord:
		return "min_coord"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseSelectionMode parses the configuration-file spelling of a mode.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch s {
	case "max_coord":
		return SelectMaxCoord, nil
	case "min_coord":
		return SelectMinCoord, nil
	default:
		return 0, fmt.Errorf("unknown selection mode %q", s)
	}
}

// Axis indexes a world coordinate axis.
type Axis int

// Coordinate axes.
const (
	AxisX Axis = 0
	AxisY Axis = 1
	AxisZ Axis = 2
)

// String returns the axis letter.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// SelectionRule describes which faces a camera may claim: faces whose
// centroid coordinate along Axis lies within Epsilon of the mesh extremum
// picked by Mode, optionally restricted to faces whose normal points along
// (+1) or against (-1) that axis. NormalDirection 0 ignores normals. The
// normal check is strict: a face whose normal component on the axis is
// exactly zero fails it.
type SelectionRule struct {
	Mode            SelectionMode
	Axis            Axis
	Epsilon         float64
	NormalDirection int
}

// Camera describes one configured viewpoint. Cameras are immutable inputs;
// their order in the configuration list is their claim priority.
type Camera struct {
	Name          string
	Location      mgl64.Vec3
	Rotation      mgl64.Vec3 // Euler angles in radians, applied X then Y then Z
	Selection     SelectionRule
	MaterialIndex int
	TexturePath   string
}
