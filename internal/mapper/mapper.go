// Package mapper implements the face-selection and camera-projection
// pipeline: it classifies which faces each camera claims, resolves
// contested faces to a single owner, projects owned faces into their
// camera's image plane and assembles per-camera UV layers plus a
// per-face material assignment.
//
// The package is pure: no I/O, no logging, no shared state between runs.
// Callers load the mesh and cameras, invoke Process and hand the Result
// to an exporter.
package mapper

import (
	"errors"
	"fmt"

	"github.com/uvcast/uvcast/pkg/geometry"
)

// Fatal pipeline errors.
var (
	ErrEmptyMesh = errors.New("mesh has no faces")
	ErrNoCameras = errors.New("no cameras configured")
)

// Unowned marks a face no camera claimed in the ownership map.
const Unowned = -1

// MaterialUnassigned marks a face that keeps no material binding.
const MaterialUnassigned = -1

// DiagnosticKind identifies a non-fatal condition observed during a run.
type DiagnosticKind int

const (
	// DiagNoFacesSelected reports a camera that owns zero faces after
	// conflict resolution.
	DiagNoFacesSelected DiagnosticKind = iota
	// DiagUnassignedFaces reports faces left without an owning camera.
	DiagUnassignedFaces
)

// String returns a stable identifier for logs and reports.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagNoFacesSelected:
		return "no_faces_selected"
	case DiagUnassignedFaces:
		return "unassigned_faces"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Diagnostic is a non-fatal warning collected alongside a result. Callers
// decide whether a partially mapped mesh is acceptable; the pipeline
// never fails on these.
type Diagnostic struct {
	Kind   DiagnosticKind
	Camera string // camera name, empty for mesh-wide conditions
	Count  int
}

func (d Diagnostic) String() string {
	if d.Camera != "" {
		return fmt.Sprintf("%s: camera %q", d.Kind, d.Camera)
	}
	return fmt.Sprintf("%s: %d faces", d.Kind, d.Count)
}

// MaterialSlot is one entry of the material table the exporter binds.
// When two cameras share a material index the later camera's binding
// wins the slot; faces keep their owning camera's index either way.
type MaterialSlot struct {
	Name        string
	TexturePath string
	UVLayer     int  // index into Result.Layers
	Bound       bool // false for holes in a sparse material index space
}

// Result is the annotated output of one pipeline run. Topology is shared
// with the input mesh; everything else is freshly allocated per run.
type Result struct {
	Mesh *geometry.Mesh

	// Layers holds one UV layer per camera, in configuration order, each
	// sized to the mesh's face-vertex slot count.
	Layers []geometry.UVLayer

	// FaceMaterials holds one material index per face, or
	// MaterialUnassigned for faces no camera owns.
	FaceMaterials []int

	// Ownership maps each face to its owning camera index, or Unowned.
	Ownership []int

	// Slots is the material table, sized to the highest bound index + 1.
	Slots []MaterialSlot

	Diagnostics []Diagnostic
}

// UnassignedCount returns the number of faces without an owner.
func (r *Result) UnassignedCount() int {
	n := 0
	for _, owner := range r.Ownership {
		if owner == Unowned {
			n++
		}
	}
	return n
}

// OwnedCount returns the number of faces the given camera owns.
func (r *Result) OwnedCount(camera int) int {
	n := 0
	for _, owner := range r.Ownership {
		if owner == camera {
			n++
		}
	}
	return n
}

// Process runs the full pipeline over one mesh: classification per camera,
// first-claim-wins conflict resolution in configuration order, projection
// of owned faces and assembly of UV layers and material assignments.
//
// Identical inputs produce identical results. The mesh is not modified.
func Process(mesh *geometry.Mesh, cameras []geometry.Camera, proj Projection) (*Result, error) {
	if mesh == nil || len(mesh.Faces) == 0 {
		return nil, ErrEmptyMesh
	}
	if len(cameras) == 0 {
		return nil, ErrNoCameras
	}

	candidates := make([][]int, len(cameras))
	for i, cam := range cameras {
		candidates[i] = Classify(mesh, cam)
	}

	owners, owned := Resolve(len(mesh.Faces), candidates)
	layers, materials := buildLayers(mesh, cameras, owned, proj)

	res := &Result{
		Mesh:          mesh,
		Layers:        layers,
		FaceMaterials: materials,
		Ownership:     owners,
		Slots:         buildSlots(cameras),
	}

	for i, cam := range cameras {
		if len(owned[i]) == 0 {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagNoFacesSelected, Camera: cam.Name})
		}
	}
	if n := res.UnassignedCount(); n > 0 {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: DiagUnassignedFaces, Count: n})
	}

	return res, nil
}
