// Package export flattens a mapping result into the raw model the GLB
// writer consumes.
package export

import (
	"fmt"
	"os"

	"github.com/uvcast/uvcast/internal/mapper"
	"github.com/uvcast/uvcast/pkg/formats"
)

// BuildModel converts a pipeline result into a GLB model. Faces are
// fan-triangulated and every face corner becomes its own vertex so
// per-corner UVs survive the flattening. The material table carries one
// entry per slot, untextured placeholders for unbound holes, and one
// appended material when unassigned faces exist. Texture files are read
// once per distinct path.
func BuildModel(res *mapper.Result, name string) (*formats.GLBModel, error) {
	mesh := res.Mesh
	offsets := mesh.SlotOffsets()
	slotCount := mesh.SlotCount()

	model := &formats.GLBModel{
		Name:      name,
		Positions: make([][3]float32, slotCount),
	}

	for fi := range mesh.Faces {
		face := &mesh.Faces[fi]
		base := offsets[fi]
		for k, vi := range face.Indices {
			v := mesh.Vertices[vi]
			model.Positions[base+k] = [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
		}
	}

	model.UVSets = make([]formats.GLBUVSet, len(res.Layers))
	for li, layer := range res.Layers {
		uvs := make([][2]float32, slotCount)
		for si, uv := range layer.UVs {
			// glTF puts the texture origin at the top left; layers use
			// the bottom left.
			uvs[si] = [2]float32{float32(uv.U), float32(1 - uv.V)}
		}
		model.UVSets[li] = formats.GLBUVSet{Name: layer.Name, UVs: uvs}
	}

	textures := make(map[string]int)
	for i, slot := range res.Slots {
		mat := formats.GLBMaterial{Name: slot.Name, UVSet: slot.UVLayer, Texture: -1}
		if !slot.Bound {
			mat.Name = fmt.Sprintf("Material_%d", i)
			mat.UVSet = 0
		} else if slot.TexturePath != "" {
			ti, ok := textures[slot.TexturePath]
			if !ok {
				data, err := os.ReadFile(slot.TexturePath)
				if err != nil {
					return nil, fmt.Errorf("loading texture for %s: %w", mat.Name, err)
				}
				ti = len(model.Textures)
				model.Textures = append(model.Textures, data)
				textures[slot.TexturePath] = ti
			}
			mat.Texture = ti
		}
		model.Materials = append(model.Materials, mat)
	}

	unassigned := -1
	if res.UnassignedCount() > 0 {
		unassigned = len(model.Materials)
		model.Materials = append(model.Materials, formats.GLBMaterial{Name: "Material_unassigned", UVSet: 0, Texture: -1})
	}

	// One primitive per material in use.
	byMaterial := make(map[int][]uint32)
	for fi := range mesh.Faces {
		face := &mesh.Faces[fi]
		base := offsets[fi]
		mi := res.FaceMaterials[fi]
		if mi == mapper.MaterialUnassigned {
			mi = unassigned
		}
		for k := 1; k < len(face.Indices)-1; k++ {
			byMaterial[mi] = append(byMaterial[mi], uint32(base), uint32(base+k), uint32(base+k+1))
		}
	}
	for mi := 0; mi < len(model.Materials); mi++ {
		if indices, ok := byMaterial[mi]; ok {
			model.Primitives = append(model.Primitives, formats.GLBPrimitive{Material: mi, Indices: indices})
		}
	}

	return model, nil
}
