package mapper

import (
	"github.com/uvcast/uvcast/pkg/geometry"
)

// Classify returns the faces the camera could claim before conflict
// resolution, in ascending face order.
//
// A face qualifies on position when its centroid coordinate on the rule's
// axis lies within epsilon of the mesh-wide extremum: max_coord keeps
// centroids >= extreme - epsilon, min_coord keeps centroids <=
// extreme + epsilon. Epsilon 0 keeps only exact-extremum centroids.
//
// A face qualifies on facing when NormalDirection is 0 (ignored) or its
// normal component on the axis has the same sign. The sign check is
// strict: an exactly zero component fails, so side faces and degenerate
// faces never pass a directed rule.
func Classify(mesh *geometry.Mesh, camera geometry.Camera) []int {
	if len(mesh.Faces) == 0 {
		return nil
	}

	rule := camera.Selection
	axis := int(rule.Axis)

	extreme := mesh.Faces[0].Centroid[axis]
	for _, f := range mesh.Faces[1:] {
		c := f.Centroid[axis]
		switch {
		case rule.Mode == geometry.SelectMaxCoord && c > extreme:
			extreme = c
		case rule.Mode == geometry.SelectMinCoord && c < extreme:
			extreme = c
		}
	}

	var candidates []int
	for i, f := range mesh.Faces {
		c := f.Centroid[axis]
		if rule.Mode == geometry.SelectMaxCoord {
			if c < extreme-rule.Epsilon {
				continue
			}
		} else {
			if c > extreme+rule.Epsilon {
				continue
			}
		}
		if rule.NormalDirection > 0 && f.Normal[axis] <= 0 {
			continue
		}
		if rule.NormalDirection < 0 && f.Normal[axis] >= 0 {
			continue
		}
		candidates = append(candidates, i)
	}

	return candidates
}
