package mapper

import (
	"github.com/uvcast/uvcast/pkg/geometry"
)

// buildLayers produces one UV layer per camera plus the final per-face
// material indices. Every layer spans the full face-vertex slot layout of
// the mesh; slots of faces a camera does not own keep the default (0,0).
func buildLayers(mesh *geometry.Mesh, cameras []geometry.Camera, owned [][]int, proj Projection) ([]geometry.UVLayer, []int) {
	offsets := mesh.SlotOffsets()
	slotCount := mesh.SlotCount()

	materials := make([]int, len(mesh.Faces))
	for i := range materials {
		materials[i] = MaterialUnassigned
	}

	layers := make([]geometry.UVLayer, len(cameras))
	for ci, cam := range cameras {
		uvs := make([]geometry.UV, slotCount)
		projector := NewProjector(cam, proj)

		for _, fi := range owned[ci] {
			face := &mesh.Faces[fi]
			base := offsets[fi]
			for k, vi := range face.Indices {
				uvs[base+k] = projector.Project(mesh.Vertices[vi])
			}
			materials[fi] = cam.MaterialIndex
		}

		layers[ci] = geometry.UVLayer{Name: "UVMap_" + cam.Name, UVs: uvs}
	}

	return layers, materials
}

// buildSlots assembles the material table from the configured cameras.
// The table is sized to the highest material index; indices no camera
// uses stay unbound holes. On a shared index the later camera's binding
// wins the slot.
func buildSlots(cameras []geometry.Camera) []MaterialSlot {
	highest := -1
	for _, cam := range cameras {
		if cam.MaterialIndex > highest {
			highest = cam.MaterialIndex
		}
	}

	slots := make([]MaterialSlot, highest+1)
	for ci, cam := range cameras {
		slots[cam.MaterialIndex] = MaterialSlot{
			Name:        "Material_" + cam.Name,
			TexturePath: cam.TexturePath,
			UVLayer:     ci,
			Bound:       true,
		}
	}

	return slots
}
