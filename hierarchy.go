package batchply

import (
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/pkg/errors"
)

const (
	RootNodeName = "root"
	TopNodeName  = "Top_Node"
	// RootScale is the unit conversion carried by the exported root.
	RootScale = 0.001
)

// Hierarchy is the fixed root -> name node -> Top_Node chain an asset is
// exported under.
type Hierarchy struct {
	Root *Object
	Name *Object
	Top  *Object
}

// Nodes returns the created nodes, root first.
func (h *Hierarchy) Nodes() []*Object {
	if h == nil {
		return nil
	}
	var nodes []*Object
	for _, n := range []*Object{h.Root, h.Name, h.Top} {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// BuildHierarchy creates the three empties for baseName. On failure every node
// it already created is removed before the error is returned.
func BuildHierarchy(s *Scene, baseName string) (h *Hierarchy, err error) {
	h = &Hierarchy{}
	defer func() {
		if err != nil {
			for _, n := range h.Nodes() {
				s.Remove(n)
			}
			h = nil
		}
	}()

	if h.Root, err = s.NewEmpty(RootNodeName); err != nil {
		return h, errors.Wrap(err, "root node")
	}
	h.Root.Transform.Scale = dvec3.T{RootScale, RootScale, RootScale}

	if h.Name, err = s.NewEmpty(baseName); err != nil {
		return h, errors.Wrap(err, "name node")
	}
	if err = s.SetParent(h.Name, h.Root); err != nil {
		return h, err
	}

	if h.Top, err = s.NewEmpty(TopNodeName); err != nil {
		return h, errors.Wrap(err, "top node")
	}
	if err = s.SetParent(h.Top, h.Name); err != nil {
		return h, err
	}
	return h, nil
}

// Attach parents mesh directly under Top_Node.
func (h *Hierarchy) Attach(s *Scene, mesh *Object) error {
	if h == nil || h.Top == nil {
		return errors.New("hierarchy has no top node")
	}
	if mesh == nil || mesh.Kind != ObjectMesh {
		return ErrNotMesh
	}
	return s.SetParent(mesh, h.Top)
}
