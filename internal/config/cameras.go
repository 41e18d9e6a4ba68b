package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/uvcast/uvcast/pkg/geometry"
)

// Camera set file errors.
var (
	ErrInvalidCamera  = errors.New("invalid camera definition")
	ErrMissingTexture = errors.New("texture file not found")
)

// cameraFile is the documented camera set layout: a top-level "cameras"
// list. Bare top-level lists are accepted too, so legacy JSON exports
// (JSON being a YAML subset) load unchanged.
type cameraFile struct {
	Cameras []cameraRecord `yaml:"cameras"`
}

type cameraRecord struct {
	Name            string          `yaml:"name"`
	Location        []float64       `yaml:"location"`
	Rotation        []float64       `yaml:"rotation"` // Euler angles in radians
	SelectionParams selectionParams `yaml:"selection_params"`
	MaterialIndex   *int            `yaml:"material_index"`
	TexturePath     string          `yaml:"texture_path"`
}

// selectionParams uses pointers for the optional fields so an explicit
// zero in the file is distinguishable from an absent key.
type selectionParams struct {
	Type            string   `yaml:"type"`
	Coord           *int     `yaml:"coord"`
	Epsilon         *float64 `yaml:"epsilon"`
	NormalDirection *int     `yaml:"normal_direction"`
}

// LoadCameras reads a camera set file and validates every record.
// Cameras whose selection parameters omit epsilon get defaultEpsilon.
func LoadCameras(path string, defaultEpsilon float64) ([]geometry.Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading camera file: %w", err)
	}
	return ParseCameras(data, defaultEpsilon)
}

// ParseCameras parses a camera set from YAML (or JSON) bytes. The
// returned slice preserves file order, which is the claim priority
// during face resolution.
func ParseCameras(data []byte, defaultEpsilon float64) ([]geometry.Camera, error) {
	if defaultEpsilon < 0 {
		return nil, fmt.Errorf("%w: default epsilon %g is negative", ErrInvalidCamera, defaultEpsilon)
	}

	records, err := decodeCameraRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file defines no cameras", ErrInvalidCamera)
	}

	cameras := make([]geometry.Camera, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		cam, err := rec.toCamera(defaultEpsilon)
		if err != nil {
			return nil, fmt.Errorf("%w: camera %d %q: %v", ErrInvalidCamera, i, rec.Name, err)
		}
		if seen[cam.Name] {
			return nil, fmt.Errorf("%w: camera %d %q: duplicate name", ErrInvalidCamera, i, cam.Name)
		}
		seen[cam.Name] = true
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

// decodeCameraRecords accepts both the wrapped {cameras: [...]} layout
// and a bare top-level list.
func decodeCameraRecords(data []byte) ([]cameraRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing camera file: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var records []cameraRecord
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing camera list: %w", err)
		}
		return records, nil
	}

	var file cameraFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing camera file: %w", err)
	}
	return file.Cameras, nil
}

func (rec cameraRecord) toCamera(defaultEpsilon float64) (geometry.Camera, error) {
	var cam geometry.Camera

	if rec.Name == "" {
		return cam, errors.New("name is required")
	}
	if len(rec.Location) != 3 {
		return cam, fmt.Errorf("location needs 3 components, got %d", len(rec.Location))
	}
	if len(rec.Rotation) != 3 {
		return cam, fmt.Errorf("rotation needs 3 components, got %d", len(rec.Rotation))
	}

	mode, err := geometry.ParseSelectionMode(rec.SelectionParams.Type)
	if err != nil {
		return cam, err
	}
	if rec.SelectionParams.Coord == nil {
		return cam, errors.New("selection_params.coord is required")
	}
	coord := *rec.SelectionParams.Coord
	if coord < 0 || coord > 2 {
		return cam, fmt.Errorf("coord %d out of range [0,2]", coord)
	}

	epsilon := defaultEpsilon
	if rec.SelectionParams.Epsilon != nil {
		epsilon = *rec.SelectionParams.Epsilon
		if epsilon < 0 {
			return cam, fmt.Errorf("epsilon %g is negative", epsilon)
		}
	}

	normalDir := 0
	if rec.SelectionParams.NormalDirection != nil {
		normalDir = *rec.SelectionParams.NormalDirection
		if normalDir < -1 || normalDir > 1 {
			return cam, fmt.Errorf("normal_direction %d must be -1, 0 or 1", normalDir)
		}
	}

	if rec.MaterialIndex == nil {
		return cam, errors.New("material_index is required")
	}
	if *rec.MaterialIndex < 0 {
		return cam, fmt.Errorf("material_index %d is negative", *rec.MaterialIndex)
	}
	if rec.TexturePath == "" {
		return cam, errors.New("texture_path is required")
	}

	return geometry.Camera{
		Name:     rec.Name,
		Location: mgl64.Vec3{rec.Location[0], rec.Location[1], rec.Location[2]},
		Rotation: mgl64.Vec3{rec.Rotation[0], rec.Rotation[1], rec.Rotation[2]},
		Selection: geometry.SelectionRule{
			Mode:            mode,
			Axis:            geometry.Axis(coord),
			Epsilon:         epsilon,
			NormalDirection: normalDir,
		},
		MaterialIndex: *rec.MaterialIndex,
		TexturePath:   rec.TexturePath,
	}, nil
}

// CheckTextures verifies that every camera's texture file exists on
// disk. Missing textures fail the whole run before any mesh work
// starts rather than surfacing halfway through an export.
func CheckTextures(cameras []geometry.Camera) error {
	for _, cam := range cameras {
		if _, err := os.Stat(cam.TexturePath); err != nil {
			return fmt.Errorf("%w: camera %q: %s", ErrMissingTexture, cam.Name, cam.TexturePath)
		}
	}
	return nil
}
