package scene

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/culler/pkg/cull"
	"github.com/taigrr/culler/pkg/math3d"
)

// GLTFLoader builds a scene from the mesh nodes of a glTF or GLB file.
// Each node that references a mesh becomes one object whose bounds are the
// mesh bounds transformed to world space.
type GLTFLoader struct {
	// Layer is assigned to every object. With LayerByDepth set, the node
	// depth in the hierarchy is added to it.
	Layer        int8
	LayerByDepth bool
}

// NewGLTFLoader creates a loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{}
}

// LoadGLTF loads path with the default loader.
func LoadGLTF(path string) (*Scene, error) {
	return NewGLTFLoader().Load(path)
}

// Load opens a glTF or GLB file and collects its mesh nodes.
func (l *GLTFLoader) Load(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	s, err := l.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.Name = filepath.Base(path)
	return s, nil
}

// FromDocument collects the mesh nodes of an already decoded document.
func (l *GLTFLoader) FromDocument(doc *gltf.Document) (*Scene, error) {
	meshBounds := make([]cull.AABB, len(doc.Meshes))
	for i, m := range doc.Meshes {
		b, err := l.meshBounds(doc, m)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		meshBounds[i] = b
	}

	s := &Scene{}
	visited := make([]bool, len(doc.Nodes))
	var walk func(idx, depth int, parent math3d.Mat4) error
	walk = func(idx, depth int, parent math3d.Mat4) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", idx)
		}
		if visited[idx] {
			return fmt.Errorf("node %d is reachable twice", idx)
		}
		visited[idx] = true

		node := doc.Nodes[idx]
		world := parent.Mul(nodeMatrix(node))
		if node.Mesh != nil {
			if *node.Mesh >= len(meshBounds) {
				return fmt.Errorf("node %q: mesh index %d out of range", node.Name, *node.Mesh)
			}
			if local := meshBounds[*node.Mesh]; local.Valid() {
				s.Objects = append(s.Objects, Object{
					Name:   objectName(doc, node, idx),
					Bounds: local.Transform(world),
					Layer:  l.layer(depth),
				})
			}
		}
		for _, child := range node.Children {
			if err := walk(child, depth+1, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range rootNodes(doc) {
		if err := walk(root, 0, math3d.Identity()); err != nil {
			return nil, err
		}
	}
	if len(s.Objects) > cull.MaxObjects {
		return nil, fmt.Errorf("%d mesh nodes exceeds the limit of %d", len(s.Objects), cull.MaxObjects)
	}
	return s, nil
}

func (l *GLTFLoader) layer(depth int) int8 {
	if !l.LayerByDepth {
		return l.Layer
	}
	return int8(min(int(l.Layer)+depth, 127))
}

// rootNodes returns the nodes of the default scene, or of the first scene,
// or every parentless node when the file has no scenes.
func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		i := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			i = *doc.Scene
		}
		return doc.Scenes[i].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func objectName(doc *gltf.Document, node *gltf.Node, idx int) string {
	switch {
	case node.Name != "":
		return node.Name
	case doc.Meshes[*node.Mesh].Name != "":
		return doc.Meshes[*node.Mesh].Name
	default:
		return fmt.Sprintf("node%d", idx)
	}
}

// nodeMatrix returns the local transform of a node: its matrix when one is
// given, otherwise translation * rotation * scale.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	if mat := n.MatrixOrDefault(); mat != gltf.DefaultMatrix {
		var m math3d.Mat4
		for i, v := range mat {
			m[i] = float32(v)
		}
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	sc := n.ScaleOrDefault()
	return math3d.FromTRS(
		math3d.V3(float32(t[0]), float32(t[1]), float32(t[2])),
		math3d.V4(float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])),
		math3d.V3(float32(sc[0]), float32(sc[1]), float32(sc[2])),
	)
}

// meshBounds unions the POSITION bounds of every primitive. The accessor
// min and max are used when present; otherwise positions are read.
func (l *GLTFLoader) meshBounds(doc *gltf.Document, m *gltf.Mesh) (cull.AABB, error) {
	b := cull.EmptyAABB()
	for _, prim := range m.Primitives {
		idx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		if idx < 0 || idx >= len(doc.Accessors) {
			return cull.AABB{}, fmt.Errorf("position accessor %d out of range", idx)
		}
		acc := doc.Accessors[idx]
		if acc.Type != gltf.AccessorVec3 {
			return cull.AABB{}, fmt.Errorf("expected VEC3 positions, got %v", acc.Type)
		}
		if len(acc.Min) == 3 && len(acc.Max) == 3 {
			b = b.Union(cull.NewAABB(
				math3d.V3(float32(acc.Min[0]), float32(acc.Min[1]), float32(acc.Min[2])),
				math3d.V3(float32(acc.Max[0]), float32(acc.Max[1]), float32(acc.Max[2])),
			))
			continue
		}
		positions, err := modeler.ReadPosition(doc, acc, nil)
		if err != nil {
			return cull.AABB{}, fmt.Errorf("read positions: %w", err)
		}
		for _, p := range positions {
			b = b.Extend(math3d.V3(p[0], p[1], p[2]))
		}
	}
	return b, nil
}
