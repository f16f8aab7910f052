package scene

import (
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func TestLoadGLTFInvalidPath(t *testing.T) {
	if _, err := LoadGLTF("/nonexistent/path.glb"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

// cubeDocument has a unit cube mesh used by a translated parent node, a
// translated and scaled child, and one node without a mesh.
func cubeDocument() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	})
	doc.Meshes = []*gltf.Mesh{{
		Name:       "cube",
		Primitives: []*gltf.Primitive{{Attributes: map[string]int{gltf.POSITION: pos}}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Mesh: gltf.Index(0), Translation: [3]float64{10, 0, 0}, Children: []int{1, 2}},
		{Mesh: gltf.Index(0), Translation: [3]float64{0, 5, 0}, Scale: [3]float64{2, 2, 2}},
		{Name: "empty"},
	}
	doc.Scenes = []*gltf.Scene{{Name: "root", Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)
	return doc
}

func TestLoadGLB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubes.glb")
	if err := gltf.SaveBinary(cubeDocument(), path); err != nil {
		t.Fatal(err)
	}

	s, err := LoadGLTF(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "cubes.glb" {
		t.Errorf("Name = %q", s.Name)
	}
	want := []Object{
		{Name: "parent", Bounds: box(9, -1, -1, 11, 1, 1)},
		{Name: "cube", Bounds: box(8, 3, -2, 12, 7, 2)},
	}
	if len(s.Objects) != len(want) {
		t.Fatalf("got %d objects, want %d", len(s.Objects), len(want))
	}
	for i := range want {
		if s.Objects[i] != want[i] {
			t.Errorf("object %d = %+v, want %+v", i, s.Objects[i], want[i])
		}
	}
}

func TestGLTFLayerByDepth(t *testing.T) {
	l := &GLTFLoader{Layer: 1, LayerByDepth: true}
	s, err := l.FromDocument(cubeDocument())
	if err != nil {
		t.Fatal(err)
	}
	if s.Objects[0].Layer != 1 || s.Objects[1].Layer != 2 {
		t.Errorf("layers = %d, %d, want 1, 2", s.Objects[0].Layer, s.Objects[1].Layer)
	}
}

func TestGLTFWithoutScenes(t *testing.T) {
	doc := cubeDocument()
	doc.Scenes = nil
	doc.Scene = nil
	s, err := NewGLTFLoader().FromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Objects) != 2 {
		t.Errorf("got %d objects from parentless roots, want 2", len(s.Objects))
	}
}

func TestGLTFRejectsCycles(t *testing.T) {
	doc := cubeDocument()
	doc.Nodes[1].Children = []int{0}
	if _, err := NewGLTFLoader().FromDocument(doc); err == nil {
		t.Error("expected an error for a node cycle")
	}
}
