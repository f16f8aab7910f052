// Package scene holds the objects a culler works on: an array of named
// boxes with a layer and a hidden flag, filled from glTF files or a seeded
// generator, and packed into column form for the batched culler.
package scene

import (
	"fmt"

	"github.com/taigrr/culler/pkg/cull"
)

// Object is one cullable thing in the scene.
type Object struct {
	Name   string
	Bounds cull.AABB
	// Layer selects which LayerMask bit enables the object. Negative
	// layers are never drawn.
	Layer  int8
	Hidden bool
}

// Scene is an ordered object list. Cull results index into Objects.
type Scene struct {
	Name    string
	Objects []Object
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.Objects)
}

// Bounds returns the box enclosing every object.
func (s *Scene) Bounds() cull.AABB {
	b := cull.EmptyAABB()
	for i := range s.Objects {
		b = b.Union(s.Objects[i].Bounds)
	}
	return b
}

// Boxes returns the object bounds in order.
func (s *Scene) Boxes() []cull.AABB {
	out := make([]cull.AABB, len(s.Objects))
	for i := range s.Objects {
		out[i] = s.Objects[i].Bounds
	}
	return out
}

// Packed is a scene in the column layout the batched culler reads. Hidden
// and Layers run parallel to Boxes.
type Packed struct {
	Boxes  cull.Boxes
	Hidden []bool
	Layers []int8
}

// Pack writes the scene into p, reusing its storage. Scenes larger than
// cull.MaxObjects cannot be culled and are rejected.
func (s *Scene) Pack(p *Packed) error {
	if len(s.Objects) > cull.MaxObjects {
		return fmt.Errorf("pack %q: %d objects exceeds the limit of %d", s.Name, len(s.Objects), cull.MaxObjects)
	}
	p.Boxes.Reset()
	p.Hidden = p.Hidden[:0]
	p.Layers = p.Layers[:0]
	for i := range s.Objects {
		o := &s.Objects[i]
		p.Boxes.Append(o.Bounds)
		p.Hidden = append(p.Hidden, o.Hidden)
		p.Layers = append(p.Layers, o.Layer)
	}
	return nil
}

// Len returns the number of packed objects.
func (p *Packed) Len() int {
	return p.Boxes.Len()
}
