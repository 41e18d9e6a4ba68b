package formats

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/h2non/filetype"
)

// GLB format errors.
var (
	ErrInvalidGLBModel    = errors.New("invalid GLB model")
	ErrUnsupportedTexture = errors.New("unsupported texture format: expected PNG or JPEG")
)

// GLB container constants.
const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\x00"
)

// glTF component types, buffer targets and sampler modes.
const (
	gltfComponentFloat = 5126
	gltfComponentUint  = 5125

	gltfTargetArrayBuffer        = 34962
	gltfTargetElementArrayBuffer = 34963

	gltfFilterLinear             = 9729
	gltfFilterLinearMipmapLinear = 9987
	gltfWrapRepeat               = 10497
)

// GLBUVSet is one named texture coordinate channel covering every vertex.
type GLBUVSet struct {
	Name string
	UVs  [][2]float32
}

// GLBMaterial binds a texture and a UV channel. Texture indexes into
// GLBModel.Textures, or -1 for an untextured material. UVSet selects the
// TEXCOORD channel the texture samples and is ignored when untextured.
type GLBMaterial struct {
	Name    string
	UVSet   int
	Texture int
}

// GLBPrimitive is one draw batch: a flat triangle index list bound to a
// material. Material -1 leaves the primitive on the viewer's default
// material.
type GLBPrimitive struct {
	Material int
	Indices  []uint32
}

// GLBModel is the flattened geometry handed to WriteGLB. Positions and all
// UV sets must have the same length; Textures holds raw PNG or JPEG bytes.
type GLBModel struct {
	Name       string
	Positions  [][3]float32
	UVSets     []GLBUVSet
	Materials  []GLBMaterial
	Primitives []GLBPrimitive
	Textures   [][]byte
}

func (m *GLBModel) validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w: no vertices", ErrInvalidGLBModel)
	}
	if len(m.Primitives) == 0 {
		return fmt.Errorf("%w: no primitives", ErrInvalidGLBModel)
	}
	for i, set := range m.UVSets {
		if len(set.UVs) != len(m.Positions) {
			return fmt.Errorf("%w: UV set %d covers %d of %d vertices", ErrInvalidGLBModel, i, len(set.UVs), len(m.Positions))
		}
	}
	for i, mat := range m.Materials {
		if mat.Texture >= len(m.Textures) {
			return fmt.Errorf("%w: material %d references texture %d of %d", ErrInvalidGLBModel, i, mat.Texture, len(m.Textures))
		}
		if mat.Texture >= 0 && (mat.UVSet < 0 || mat.UVSet >= len(m.UVSets)) {
			return fmt.Errorf("%w: material %d references UV set %d of %d", ErrInvalidGLBModel, i, mat.UVSet, len(m.UVSets))
		}
	}
	for i, prim := range m.Primitives {
		if prim.Material >= len(m.Materials) {
			return fmt.Errorf("%w: primitive %d references material %d of %d", ErrInvalidGLBModel, i, prim.Material, len(m.Materials))
		}
		if len(prim.Indices) == 0 || len(prim.Indices)%3 != 0 {
			return fmt.Errorf("%w: primitive %d index count %d is not a triangle list", ErrInvalidGLBModel, i, len(prim.Indices))
		}
		for _, idx := range prim.Indices {
			if int(idx) >= len(m.Positions) {
				return fmt.Errorf("%w: primitive %d index %d out of range", ErrInvalidGLBModel, i, idx)
			}
		}
	}
	return nil
}

// glTF JSON document structures, trimmed to the subset the writer emits.
type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Materials   []gltfMaterial   `json:"materials,omitempty"`
	Textures    []gltfTexture    `json:"textures,omitempty"`
	Images      []gltfImage      `json:"images,omitempty"`
	Samplers    []gltfSampler    `json:"samplers,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Buffers     []gltfBuffer     `json:"buffers"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfNode struct {
	Name string `json:"name,omitempty"`
	Mesh int    `json:"mesh"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   *int           `json:"material,omitempty"`
}

type gltfMaterial struct {
	Name                 string   `json:"name,omitempty"`
	PBRMetallicRoughness *gltfPBR `json:"pbrMetallicRoughness,omitempty"`
	DoubleSided          bool     `json:"doubleSided,omitempty"`
}

type gltfPBR struct {
	BaseColorTexture *gltfTextureRef `json:"baseColorTexture,omitempty"`
	MetallicFactor   *float64        `json:"metallicFactor,omitempty"`
}

type gltfTextureRef struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

type gltfTexture struct {
	Sampler int `json:"sampler"`
	Source  int `json:"source"`
}

type gltfImage struct {
	BufferView int    `json:"bufferView"`
	MimeType   string `json:"mimeType"`
}

type gltfSampler struct {
	MagFilter int `json:"magFilter"`
	MinFilter int `json:"minFilter"`
	WrapS     int `json:"wrapS"`
	WrapT     int `json:"wrapT"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

// WriteGLB writes the model as a binary glTF 2.0 container: a 12-byte
// header, a space-padded JSON chunk and a zero-padded binary chunk.
func WriteGLB(w io.Writer, model *GLBModel) error {
	if err := model.validate(); err != nil {
		return err
	}

	doc := &gltfDocument{
		Asset:  gltfAsset{Version: "2.0", Generator: "uvcast"},
		Scene:  0,
		Scenes: []gltfScene{{Nodes: []int{0}}},
		Nodes:  []gltfNode{{Name: model.Name, Mesh: 0}},
	}

	bin := new(bytes.Buffer)

	// Vertex positions.
	positionView := addBufferView(doc, bin.Len(), 12*len(model.Positions), gltfTargetArrayBuffer)
	posMin, posMax := positionBounds(model.Positions)
	positionAccessor := len(doc.Accessors)
	doc.Accessors = append(doc.Accessors, gltfAccessor{
		BufferView:    positionView,
		ComponentType: gltfComponentFloat,
		Count:         len(model.Positions),
		Type:          "VEC3",
		Min:           posMin[:],
		Max:           posMax[:],
	})
	for _, p := range model.Positions {
		binary.Write(bin, binary.LittleEndian, p)
	}

	// Texture coordinate channels, one accessor per UV set.
	attributes := map[string]int{"POSITION": positionAccessor}
	for i, set := range model.UVSets {
		view := addBufferView(doc, bin.Len(), 8*len(set.UVs), gltfTargetArrayBuffer)
		attributes["TEXCOORD_"+strconv.Itoa(i)] = len(doc.Accessors)
		doc.Accessors = append(doc.Accessors, gltfAccessor{
			BufferView:    view,
			ComponentType: gltfComponentFloat,
			Count:         len(set.UVs),
			Type:          "VEC2",
		})
		for _, uv := range set.UVs {
			binary.Write(bin, binary.LittleEndian, uv)
		}
	}

	// One glTF primitive per draw batch. Attribute accessors are shared;
	// only the index accessor differs.
	mesh := gltfMesh{Name: model.Name}
	for _, prim := range model.Primitives {
		view := addBufferView(doc, bin.Len(), 4*len(prim.Indices), gltfTargetElementArrayBuffer)
		indexAccessor := len(doc.Accessors)
		doc.Accessors = append(doc.Accessors, gltfAccessor{
			BufferView:    view,
			ComponentType: gltfComponentUint,
			Count:         len(prim.Indices),
			Type:          "SCALAR",
		})
		binary.Write(bin, binary.LittleEndian, prim.Indices)

		p := gltfPrimitive{Attributes: attributes, Indices: indexAccessor}
		if prim.Material >= 0 {
			material := prim.Material
			p.Material = &material
		}
		mesh.Primitives = append(mesh.Primitives, p)
	}
	doc.Meshes = []gltfMesh{mesh}

	// Embedded texture images.
	for _, tex := range model.Textures {
		mime, err := textureMIME(tex)
		if err != nil {
			return err
		}
		padBuffer(bin, 0x00)
		view := addBufferView(doc, bin.Len(), len(tex), 0)
		doc.Images = append(doc.Images, gltfImage{BufferView: view, MimeType: mime})
		doc.Textures = append(doc.Textures, gltfTexture{Sampler: 0, Source: len(doc.Images) - 1})
		bin.Write(tex)
	}
	if len(model.Textures) > 0 {
		doc.Samplers = []gltfSampler{{
			MagFilter: gltfFilterLinear,
			MinFilter: gltfFilterLinearMipmapLinear,
			WrapS:     gltfWrapRepeat,
			WrapT:     gltfWrapRepeat,
		}}
	}

	// Materials.
	zero := 0.0
	for _, mat := range model.Materials {
		gm := gltfMaterial{Name: mat.Name, DoubleSided: true}
		if mat.Texture >= 0 {
			gm.PBRMetallicRoughness = &gltfPBR{
				BaseColorTexture: &gltfTextureRef{Index: mat.Texture, TexCoord: mat.UVSet},
				MetallicFactor:   &zero,
			}
		}
		doc.Materials = append(doc.Materials, gm)
	}

	padBuffer(bin, 0x00)
	doc.Buffers = []gltfBuffer{{ByteLength: bin.Len()}}

	jsonChunk, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding glTF document: %w", err)
	}
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}

	total := 12 + 8 + len(jsonChunk) + 8 + bin.Len()
	header := [3]uint32{glbMagic, glbVersion, uint32(total)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing GLB header: %w", err)
	}
	if err := writeGLBChunk(w, glbChunkJSON, jsonChunk); err != nil {
		return fmt.Errorf("writing JSON chunk: %w", err)
	}
	if err := writeGLBChunk(w, glbChunkBIN, bin.Bytes()); err != nil {
		return fmt.Errorf("writing binary chunk: %w", err)
	}

	return nil
}

// WriteGLBFile writes the model to a GLB file on disk.
func WriteGLBFile(path string, model *GLBModel) error {
	var buf bytes.Buffer
	if err := WriteGLB(&buf, model); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing GLB file: %w", err)
	}
	return nil
}

// addBufferView appends a buffer view and returns its index.
func addBufferView(doc *gltfDocument, offset, length, target int) int {
	doc.BufferViews = append(doc.BufferViews, gltfBufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: length,
		Target:     target,
	})
	return len(doc.BufferViews) - 1
}

// positionBounds computes the accessor min/max required for POSITION.
func positionBounds(positions [][3]float32) (min, max [3]float32) {
	min = positions[0]
	max = positions[0]
	for _, p := range positions {
		for c := 0; c < 3; c++ {
			if p[c] < min[c] {
				min[c] = p[c]
			}
			if p[c] > max[c] {
				max[c] = p[c]
			}
		}
	}
	return min, max
}

// textureMIME sniffs the encoded image type. GLB viewers are only required
// to decode PNG and JPEG, so everything else is rejected.
func textureMIME(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", ErrUnsupportedTexture
	}
	switch kind.MIME.Value {
	case "image/png", "image/jpeg":
		return kind.MIME.Value, nil
	}
	return "", fmt.Errorf("%w: got %s", ErrUnsupportedTexture, kind.MIME.Value)
}

// padBuffer appends pad bytes until the buffer is 4-byte aligned.
func padBuffer(buf *bytes.Buffer, pad byte) {
	for buf.Len()%4 != 0 {
		buf.WriteByte(pad)
	}
}

// writeGLBChunk writes one length-prefixed GLB chunk.
func writeGLBChunk(w io.Writer, chunkType uint32, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, chunkType); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
