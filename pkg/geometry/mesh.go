// Package geometry defines the mesh and camera types the mapping pipeline
// operates on.
package geometry

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh construction errors.
var (
	ErrNoVertices   = errors.New("mesh has no vertices")
	ErrFaceTooSmall = errors.New("face has fewer than 3 vertices")
	ErrVertexIndex  = errors.New("face vertex index out of range")
)

// Face is one polygon of a mesh: an ordered ring of vertex indices plus its
// precomputed unit normal and centroid. A degenerate face keeps a zero
// normal, which makes it fail every strict facing-direction check.
type Face struct {
	Indices  []int
	Normal   mgl64.Vec3
	Centroid mgl64.Vec3
}

// Mesh is an indexed polygon mesh. It is treated as immutable once built;
// the pipeline annotates it with separate UV layers and material indices
// instead of mutating it.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    []Face
}

// NewMesh builds a Mesh from vertex positions and per-face vertex index
// rings, precomputing each face's normal and centroid. Triangles and larger
// polygons are both accepted.
func NewMesh(vertices []mgl64.Vec3, faces [][]int) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, ErrNoVertices
	}

	m := &Mesh{
		Vertices: vertices,
		Faces:    make([]Face, len(faces)),
	}

	for i, ring := range faces {
		if len(ring) < 3 {
			return nil, fmt.Errorf("%w: face %d has %d", ErrFaceTooSmall, i, len(ring))
		}
		for _, vi := range ring {
			if vi < 0 || vi >= len(vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d",
					ErrVertexIndex, i, vi, len(vertices))
			}
		}

		indices := make([]int, len(ring))
		copy(indices, ring)

		m.Faces[i] = Face{
			Indices:  indices,
			Normal:   faceNormal(vertices, ring),
			Centroid: faceCentroid(vertices, ring),
		}
	}

	return m, nil
}

// NewMeshFromArrays builds a Mesh from raw position triples as file
// parsers produce them.
func NewMeshFromArrays(vertices [][3]float64, faces [][]int) (*Mesh, error) {
	vs := make([]mgl64.Vec3, len(vertices))
	for i, v := range vertices {
		vs[i] = mgl64.Vec3{v[0], v[1], v[2]}
	}
	return NewMesh(vs, faces)
}

// faceNormal computes the unit normal from the cross product of the face's
// first two edges. Returns the zero vector for degenerate faces.
func faceNormal(vertices []mgl64.Vec3, ring []int) mgl64.Vec3 {
	v0 := vertices[ring[0]]
	e1 := vertices[ring[1]].Sub(v0)
	e2 := vertices[ring[2]].Sub(v0)

	n := e1.Cross(e2)
	if n.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

// faceCentroid returns the arithmetic mean of the face's vertex positions.
func faceCentroid(vertices []mgl64.Vec3, ring []int) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, vi := range ring {
		sum = sum.Add(vertices[vi])
	}
	return sum.Mul(1.0 / float64(len(ring)))
}

// SlotCount returns the total number of face-vertex slots in the mesh. UV
// layers are sized to this count.
func (m *Mesh) SlotCount() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f.Indices)
	}
	return n
}

// SlotOffsets returns the first face-vertex slot of every face plus a
// trailing total, so face i occupies slots offsets[i] up to offsets[i+1].
func (m *Mesh) SlotOffsets() []int {
	offsets := make([]int, len(m.Faces)+1)
	for i, f := range m.Faces {
		offsets[i+1] = offsets[i] + len(f.Indices)
	}
	return offsets
}

// TriangleCount returns the number of triangles the mesh decomposes into
// under fan triangulation.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f.Indices) - 2
	}
	return n
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Size returns the box extent along each axis.
func (b Bounds) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() Bounds {
	if len(m.Vertices) == 0 {
		return Bounds{}
	}

	b := Bounds{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < b.Min[i] {
				b.Min[i] = v[i]
			}
			if v[i] > b.Max[i] {
				b.Max[i] = v[i]
			}
		}
	}
	return b
}

// UV is a texture coordinate pair. Values are intentionally not clamped to
// [0,1]: out-of-range coordinates mark vertices that project outside the
// camera frame.
type UV struct {
	U, V float64
}

// UVLayer holds one texture coordinate per face-vertex slot, covering the
// whole mesh. All layers produced for the same mesh have the same length;
// slots of faces a layer's camera does not own stay at the (0,0) default.
type UVLayer struct {
	Name string
	UVs  []UV
}
