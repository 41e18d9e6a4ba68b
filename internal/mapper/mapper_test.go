package mapper

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/uvcast/uvcast/pkg/geometry"
)

// stripMesh builds 10 unit quads stacked along Z with centroids z=0..9,
// all normals +Z. Faces 3..6 are shifted to x=10..11 so a max-X rule can
// select exactly the middle of the stack.
func stripMesh(t *testing.T) *geometry.Mesh {
	t.Helper()

	var vertices []mgl64.Vec3
	var faces [][]int
	for i := 0; i < 10; i++ {
		x := 0.0
		if i >= 3 && i <= 6 {
			x = 10.0
		}
		z := float64(i)
		base := len(vertices)
		vertices = append(vertices,
			mgl64.Vec3{x, 0, z},
			mgl64.Vec3{x + 1, 0, z},
			mgl64.Vec3{x + 1, 1, z},
			mgl64.Vec3{x, 1, z},
		)
		faces = append(faces, []int{base, base + 1, base + 2, base + 3})
	}

	m, err := geometry.NewMesh(vertices, faces)
	if err != nil {
		t.Fatalf("building strip mesh: %v", err)
	}
	return m
}

func findDiag(res *Result, kind DiagnosticKind, camera string) (Diagnostic, bool) {
	for _, d := range res.Diagnostics {
		if d.Kind == kind && d.Camera == camera {
			return d, true
		}
	}
	return Diagnostic{}, false
}

func TestProcess_TopCameraOwnsTopFace(t *testing.T) {
	// Unit cube, one directed top camera: exactly the +Z face is owned.
	mesh := cubeMesh(t)
	cams := []geometry.Camera{
		{
			Name:     "top",
			Location: mgl64.Vec3{0, 0, 10},
			Selection: geometry.SelectionRule{
				Mode:            geometry.SelectMaxCoord,
				Axis:            geometry.AxisZ,
				Epsilon:         1.5,
				NormalDirection: 1,
			},
			MaterialIndex: 2,
			TexturePath:   "top.png",
		},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for fi, owner := range res.Ownership {
		wantOwner := Unowned
		wantMaterial := MaterialUnassigned
		if fi == cubeFacePosZ {
			wantOwner = 0
			wantMaterial = 2
		}
		if owner != wantOwner {
			t.Errorf("face %d owner = %d, want %d", fi, owner, wantOwner)
		}
		if res.FaceMaterials[fi] != wantMaterial {
			t.Errorf("face %d material = %d, want %d", fi, res.FaceMaterials[fi], wantMaterial)
		}
	}

	if res.OwnedCount(0) != 1 {
		t.Errorf("OwnedCount(0) = %d, want 1", res.OwnedCount(0))
	}
	if d, ok := findDiag(res, DiagUnassignedFaces, ""); !ok || d.Count != 5 {
		t.Errorf("expected unassigned_faces diagnostic with count 5, got %v", res.Diagnostics)
	}
	if _, ok := findDiag(res, DiagNoFacesSelected, "top"); ok {
		t.Error("top camera owns a face, no_faces_selected diagnostic is wrong")
	}
}

func TestProcess_CatchAllDoesNotStealTopFace(t *testing.T) {
	// Top camera first, then a catch-all whose band spans the whole
	// cube: first-claim-wins keeps the +Z face with the top camera.
	mesh := cubeMesh(t)
	cams := []geometry.Camera{
		{
			Name:     "top",
			Location: mgl64.Vec3{0, 0, 10},
			Selection: geometry.SelectionRule{
				Mode:            geometry.SelectMaxCoord,
				Axis:            geometry.AxisZ,
				Epsilon:         1.5,
				NormalDirection: 1,
			},
			MaterialIndex: 0,
			TexturePath:   "top.png",
		},
		{
			Name:     "catchall",
			Location: mgl64.Vec3{0, 0, -10},
			Selection: geometry.SelectionRule{
				Mode:    geometry.SelectMaxCoord,
				Axis:    geometry.AxisZ,
				Epsilon: 100,
			},
			MaterialIndex: 1,
			TexturePath:   "rest.png",
		},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if res.Ownership[cubeFacePosZ] != 0 {
		t.Errorf("+Z face owner = %d, want camera 0", res.Ownership[cubeFacePosZ])
	}
	for fi, owner := range res.Ownership {
		if fi == cubeFacePosZ {
			continue
		}
		if owner != 1 {
			t.Errorf("face %d owner = %d, want catch-all camera 1", fi, owner)
		}
	}

	// Material consistency: every face carries its owner's index.
	for fi, owner := range res.Ownership {
		want := MaterialUnassigned
		if owner != Unowned {
			want = cams[owner].MaterialIndex
		}
		if res.FaceMaterials[fi] != want {
			t.Errorf("face %d material = %d, want %d", fi, res.FaceMaterials[fi], want)
		}
	}

	if res.UnassignedCount() != 0 {
		t.Errorf("UnassignedCount = %d, want 0", res.UnassignedCount())
	}
	if res.OwnedCount(1) != 5 {
		t.Errorf("OwnedCount(1) = %d, want 5", res.OwnedCount(1))
	}
}

func TestProcess_DisjointCamerasCoverEverything(t *testing.T) {
	// Three disjoint candidate sets jointly covering all 10 faces leave
	// nothing unassigned.
	mesh := stripMesh(t)
	cams := []geometry.Camera{
		{
			Name:          "high",
			Location:      mgl64.Vec3{0.5, 0.5, 20},
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMaxCoord, Axis: geometry.AxisZ, Epsilon: 2},
			MaterialIndex: 0,
			TexturePath:   "high.png",
		},
		{
			Name:          "low",
			Location:      mgl64.Vec3{0.5, 0.5, -20},
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMinCoord, Axis: geometry.AxisZ, Epsilon: 2},
			MaterialIndex: 1,
			TexturePath:   "low.png",
		},
		{
			Name:          "bump",
			Location:      mgl64.Vec3{20, 0.5, 4.5},
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMaxCoord, Axis: geometry.AxisX, Epsilon: 0.5},
			MaterialIndex: 2,
			TexturePath:   "bump.png",
		},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	wantOwners := []int{1, 1, 1, 2, 2, 2, 2, 0, 0, 0}
	if !equalInts(res.Ownership, wantOwners) {
		t.Errorf("ownership = %v, want %v", res.Ownership, wantOwners)
	}

	if res.UnassignedCount() != 0 {
		t.Errorf("UnassignedCount = %d, want 0", res.UnassignedCount())
	}
	for _, m := range res.FaceMaterials {
		if m == MaterialUnassigned {
			t.Fatalf("materials = %v, no face should stay unassigned", res.FaceMaterials)
		}
	}
	if _, ok := findDiag(res, DiagUnassignedFaces, ""); ok {
		t.Error("unexpected unassigned_faces diagnostic")
	}
}

func TestProcess_LayerShapeAndDefaults(t *testing.T) {
	mesh := cubeMesh(t)
	cams := []geometry.Camera{
		{
			Name:     "top",
			Location: mgl64.Vec3{0, 0, 10},
			Selection: geometry.SelectionRule{
				Mode:            geometry.SelectMaxCoord,
				Axis:            geometry.AxisZ,
				Epsilon:         1.5,
				NormalDirection: 1,
			},
			MaterialIndex: 0,
			TexturePath:   "top.png",
		},
	}

	res, err := Process(mesh, cams, Projection{Mode: Orthographic, Extent: 10})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(res.Layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(res.Layers))
	}
	layer := res.Layers[0]
	if layer.Name != "UVMap_top" {
		t.Errorf("layer name = %q, want UVMap_top", layer.Name)
	}
	if len(layer.UVs) != mesh.SlotCount() {
		t.Fatalf("layer length = %d, want slot count %d", len(layer.UVs), mesh.SlotCount())
	}

	// Owned face slots carry projected UVs; the cube's +Z corners at
	// (±1,±1) land at 0.5±0.1 under extent 10.
	offsets := mesh.SlotOffsets()
	base := offsets[cubeFacePosZ]
	want := []geometry.UV{{U: 0.4, V: 0.4}, {U: 0.6, V: 0.4}, {U: 0.6, V: 0.6}, {U: 0.4, V: 0.6}}
	for k, w := range want {
		got := layer.UVs[base+k]
		if !uvNear(got, w.U, w.V) {
			t.Errorf("slot %d = %+v, want %+v", base+k, got, w)
		}
	}

	// Every slot of a non-owned face keeps the default (0,0).
	for slot := 0; slot < len(layer.UVs); slot++ {
		if slot >= base && slot < base+4 {
			continue
		}
		if layer.UVs[slot] != (geometry.UV{}) {
			t.Errorf("non-owned slot %d = %+v, want (0,0)", slot, layer.UVs[slot])
		}
	}
}

func TestProcess_NoFacesSelectedDiagnostic(t *testing.T) {
	// min-Z band with a +normal requirement matches nothing on the cube.
	mesh := cubeMesh(t)
	cams := []geometry.Camera{
		{
			Name:     "impossible",
			Location: mgl64.Vec3{0, 0, -10},
			Selection: geometry.SelectionRule{
				Mode:            geometry.SelectMinCoord,
				Axis:            geometry.AxisZ,
				Epsilon:         0.5,
				NormalDirection: 1,
			},
			MaterialIndex: 0,
			TexturePath:   "none.png",
		},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if _, ok := findDiag(res, DiagNoFacesSelected, "impossible"); !ok {
		t.Errorf("expected no_faces_selected diagnostic, got %v", res.Diagnostics)
	}

	// The camera still contributes an all-default layer.
	if len(res.Layers) != 1 || len(res.Layers[0].UVs) != mesh.SlotCount() {
		t.Fatal("empty camera must still produce a full-length layer")
	}
	for i, uv := range res.Layers[0].UVs {
		if uv != (geometry.UV{}) {
			t.Errorf("slot %d = %+v, want default", i, uv)
		}
	}
}

func TestProcess_ContestedCameraLosesEverything(t *testing.T) {
	// Two identical top cameras: the second ends up owning nothing and
	// is reported, even though its candidate set was not empty.
	mesh := cubeMesh(t)
	rule := geometry.SelectionRule{
		Mode:            geometry.SelectMaxCoord,
		Axis:            geometry.AxisZ,
		Epsilon:         1.5,
		NormalDirection: 1,
	}
	cams := []geometry.Camera{
		{Name: "first", Selection: rule, MaterialIndex: 0, TexturePath: "a.png"},
		{Name: "second", Selection: rule, MaterialIndex: 1, TexturePath: "b.png"},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if res.Ownership[cubeFacePosZ] != 0 {
		t.Errorf("+Z owner = %d, want first camera", res.Ownership[cubeFacePosZ])
	}
	if _, ok := findDiag(res, DiagNoFacesSelected, "second"); !ok {
		t.Errorf("expected no_faces_selected for second camera, got %v", res.Diagnostics)
	}
}

func TestProcess_EmptyMesh(t *testing.T) {
	cams := []geometry.Camera{{Name: "top", TexturePath: "t.png"}}

	if _, err := Process(nil, cams, DefaultProjection()); err != ErrEmptyMesh {
		t.Errorf("nil mesh: err = %v, want ErrEmptyMesh", err)
	}

	mesh, err := geometry.NewMesh([]mgl64.Vec3{{0, 0, 0}}, nil)
	if err != nil {
		t.Fatalf("building mesh: %v", err)
	}
	if _, err := Process(mesh, cams, DefaultProjection()); err != ErrEmptyMesh {
		t.Errorf("faceless mesh: err = %v, want ErrEmptyMesh", err)
	}
}

func TestProcess_NoCameras(t *testing.T) {
	mesh := cubeMesh(t)
	if _, err := Process(mesh, nil, DefaultProjection()); err != ErrNoCameras {
		t.Errorf("err = %v, want ErrNoCameras", err)
	}
}

func TestProcess_MaterialSlots(t *testing.T) {
	// Sparse indices leave unbound holes in the slot table.
	mesh := cubeMesh(t)
	cams := []geometry.Camera{
		{
			Name:          "top",
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMaxCoord, Axis: geometry.AxisZ, Epsilon: 0.5, NormalDirection: 1},
			MaterialIndex: 0,
			TexturePath:   "top.png",
		},
		{
			Name:          "bottom",
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMinCoord, Axis: geometry.AxisZ, Epsilon: 0.5, NormalDirection: -1},
			MaterialIndex: 2,
			TexturePath:   "bottom.png",
		},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(res.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(res.Slots))
	}
	if !res.Slots[0].Bound || res.Slots[0].Name != "Material_top" || res.Slots[0].UVLayer != 0 {
		t.Errorf("slot 0 = %+v", res.Slots[0])
	}
	if res.Slots[1].Bound {
		t.Errorf("slot 1 should be an unbound hole, got %+v", res.Slots[1])
	}
	if !res.Slots[2].Bound || res.Slots[2].TexturePath != "bottom.png" || res.Slots[2].UVLayer != 1 {
		t.Errorf("slot 2 = %+v", res.Slots[2])
	}
}

func TestProcess_SharedMaterialIndex(t *testing.T) {
	// Two cameras on one index: the later binding wins the slot, faces
	// keep their owner's index either way.
	mesh := cubeMesh(t)
	cams := []geometry.Camera{
		{
			Name:          "top",
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMaxCoord, Axis: geometry.AxisZ, Epsilon: 0.5, NormalDirection: 1},
			MaterialIndex: 1,
			TexturePath:   "top.png",
		},
		{
			Name:          "bottom",
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMinCoord, Axis: geometry.AxisZ, Epsilon: 0.5, NormalDirection: -1},
			MaterialIndex: 1,
			TexturePath:   "bottom.png",
		},
	}

	res, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(res.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(res.Slots))
	}
	if res.Slots[1].Name != "Material_bottom" || res.Slots[1].UVLayer != 1 {
		t.Errorf("slot 1 = %+v, want the later camera's binding", res.Slots[1])
	}
	if res.FaceMaterials[cubeFacePosZ] != 1 || res.FaceMaterials[cubeFaceNegZ] != 1 {
		t.Errorf("materials = %v, both owned faces should carry index 1", res.FaceMaterials)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	mesh := stripMesh(t)
	cams := []geometry.Camera{
		{
			Name:          "high",
			Location:      mgl64.Vec3{0, 0, 30},
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMaxCoord, Axis: geometry.AxisZ, Epsilon: 4},
			MaterialIndex: 0,
			TexturePath:   "high.png",
		},
		{
			Name:          "low",
			Location:      mgl64.Vec3{0, 0, -30},
			Selection:     geometry.SelectionRule{Mode: geometry.SelectMinCoord, Axis: geometry.AxisZ, Epsilon: 4},
			MaterialIndex: 1,
			TexturePath:   "low.png",
		},
	}

	first, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	second, err := Process(mesh, cams, DefaultProjection())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !reflect.DeepEqual(first.Ownership, second.Ownership) {
		t.Error("ownership differs between identical runs")
	}
	if !reflect.DeepEqual(first.FaceMaterials, second.FaceMaterials) {
		t.Error("materials differ between identical runs")
	}
	if !reflect.DeepEqual(first.Layers, second.Layers) {
		t.Error("layers differ between identical runs")
	}
}
