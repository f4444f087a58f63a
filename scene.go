package batchply

import (
	mst "github.com/flywave/go-mst"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ObjectKind int

const (
	// ObjectEmpty is a non-renderable placeholder used only for structure.
	ObjectEmpty ObjectKind = iota
	ObjectMesh
)

func (k ObjectKind) String() string {
	if k == ObjectMesh {
		return "mesh"
	}
	return "empty"
}

// Mesh is the geometry payload of a mesh object plus its material slots.
type Mesh struct {
	Node      *mst.MeshNode
	Materials []*Material
}

// Object is a handle to a node living in a Scene.
type Object struct {
	ID        uuid.UUID
	Name      string
	Kind      ObjectKind
	Transform Transform
	Parent    *Object
	Children  []*Object
	Mesh      *Mesh

	scene *Scene
}

// Alive reports whether the handle still refers to a live scene object.
func (o *Object) Alive() bool {
	return o != nil && o.scene != nil
}

// Scene holds every live object and the material namespace. It is not safe
// for concurrent use; a batch drives it from a single goroutine.
type Scene struct {
	// MaxObjects caps the number of live objects; zero means unlimited.
	MaxObjects int
	Materials  *MaterialRegistry

	objects map[uuid.UUID]*Object
	names   map[string]*Object
}

func NewScene() *Scene {
	return &Scene{
		Materials: NewMaterialRegistry(),
		objects:   make(map[uuid.UUID]*Object),
		names:     make(map[string]*Object),
	}
}

func (s *Scene) add(name string, kind ObjectKind) (*Object, error) {
	if s.MaxObjects > 0 && len(s.objects) >= s.MaxObjects {
		return nil, errors.Wrapf(ErrSceneFull, "create %q", name)
	}
	if _, ok := s.names[name]; ok {
		return nil, errors.Wrapf(ErrNameInUse, "create %q", name)
	}
	o := &Object{
		ID:        uuid.New(),
		Name:      name,
		Kind:      kind,
		Transform: IdentityTransform(),
		scene:     s,
	}
	s.objects[o.ID] = o
	s.names[name] = o
	return o, nil
}

// NewEmpty creates a placeholder node.
func (s *Scene) NewEmpty(name string) (*Object, error) {
	return s.add(name, ObjectEmpty)
}

// NewMesh creates a mesh object that takes ownership of node.
func (s *Scene) NewMesh(name string, node *mst.MeshNode) (*Object, error) {
	o, err := s.add(name, ObjectMesh)
	if err != nil {
		return nil, err
	}
	o.Mesh = &Mesh{Node: node}
	return o, nil
}

// SetParent links child under parent, detaching it from any previous parent.
// A nil parent detaches the child. The child's local transform is kept.
func (s *Scene) SetParent(child, parent *Object) error {
	if child == nil || child.scene != s {
		return ErrNotInScene
	}
	if parent != nil && parent.scene != s {
		return ErrNotInScene
	}
	for p := parent; p != nil; p = p.Parent {
		if p == child {
			return errors.Errorf("parenting %q under %q would create a cycle", child.Name, parent.Name)
		}
	}
	detach(child)
	child.Parent = parent
	if parent != nil {
		parent.Children = append(parent.Children, child)
	}
	return nil
}

func detach(o *Object) {
	p := o.Parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == o {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	o.Parent = nil
}

// Remove unlinks o from the scene and releases its material references.
// Children are orphaned, not removed. Removing a dead or nil handle is a no-op.
func (s *Scene) Remove(o *Object) {
	if o == nil || o.scene != s {
		return
	}
	detach(o)
	for _, c := range o.Children {
		c.Parent = nil
	}
	o.Children = nil
	if o.Mesh != nil {
		for _, m := range o.Mesh.Materials {
			if m != nil {
				m.release()
			}
		}
		o.Mesh.Materials = nil
	}
	delete(s.objects, o.ID)
	delete(s.names, o.Name)
	o.scene = nil
}

// Len returns the number of live objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

func (s *Scene) Lookup(name string) (*Object, bool) {
	o, ok := s.names[name]
	return o, ok
}

// Roots returns live objects without a parent.
func (s *Scene) Roots() []*Object {
	var roots []*Object
	for _, o := range s.objects {
		if o.Parent == nil {
			roots = append(roots, o)
		}
	}
	return roots
}

// Walk visits o and its descendants depth first, parents before children.
func Walk(o *Object, fn func(o *Object, depth int)) {
	var visit func(*Object, int)
	visit = func(n *Object, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	if o != nil {
		visit(o, 0)
	}
}
