package batchply

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec3"
	"github.com/pkg/errors"
)

// Normalize places a freshly imported mesh on the shared frame. rotation is in
// degrees. The steps are order dependent:
//
//  1. set scale and rotation on the transform
//  2. bake rotation and scale into the vertices
//  3. move the origin to the center of the geometry's bounding box
//  4. set location to (0, 0, baseHeight)
//  5. bake location, rotation and scale
//
// Re-centering in step 3 moves the pivot, so the final offset needs the
// second bake to land in the vertex data. Afterwards the transform is
// identity. A non-positive scale is applied as given. Vertices that leave the
// float32 range along the way fail with ErrNonFinite.
func Normalize(o *Object, scale float64, rotation dvec3.T, baseHeight float64) error {
	if o == nil || o.Mesh == nil || o.Mesh.Node == nil {
		return ErrNotMesh
	}
	if err := checkGeometry(o.Mesh.Node.Vertices); err != nil {
		return err
	}

	o.Transform.Scale = dvec3.T{scale, scale, scale}
	o.Transform.Rotation = degreesToRadians(rotation)

	bake(o, false, true, true)
	if err := checkGeometry(o.Mesh.Node.Vertices); err != nil {
		return errors.Wrap(err, "bake rotation and scale")
	}

	if err := recenterOrigin(o); err != nil {
		return err
	}
	if err := checkGeometry(o.Mesh.Node.Vertices); err != nil {
		return errors.Wrap(err, "recenter origin")
	}

	o.Transform.Location = dvec3.T{0, 0, baseHeight}

	bake(o, true, true, true)
	if err := checkGeometry(o.Mesh.Node.Vertices); err != nil {
		return errors.Wrap(err, "bake location")
	}
	return nil
}

func checkGeometry(vs []vec3.T) error {
	if len(vs) == 0 {
		return ErrEmptyGeometry
	}
	for i, v := range vs {
		for _, c := range v {
			f := float64(c)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return errors.Wrapf(ErrNonFinite, "vertex %d", i)
			}
		}
	}
	return nil
}

// bake folds the selected transform channels into the vertex data and resets
// them to identity. Unselected channels stay on the transform.
func bake(o *Object, location, rotation, scale bool) {
	applied := IdentityTransform()
	if location {
		applied.Location = o.Transform.Location
		o.Transform.Location = dvec3.T{}
	}
	if rotation {
		applied.Rotation = o.Transform.Rotation
		o.Transform.Rotation = dvec3.T{}
	}
	if scale {
		applied.Scale = o.Transform.Scale
		o.Transform.Scale = dvec3.T{1, 1, 1}
	}
	if applied.IsIdentity(0) {
		return
	}

	node := o.Mesh.Node
	m := applied.Matrix()
	for i := range node.Vertices {
		v := toDvec3(node.Vertices[i])
		v = m.MulVec3(&v)
		node.Vertices[i] = toVec3(v)
	}

	if len(node.Normals) == 0 {
		return
	}
	lin := applied.Linear()
	for i := range node.Normals {
		n := toDvec3(node.Normals[i])
		n = lin.MulVec3(&n)
		if l := n.Length(); l > 0 {
			n = dvec3.T{n[0] / l, n[1] / l, n[2] / l}
		}
		node.Normals[i] = toVec3(n)
	}
}

// recenterOrigin moves the object's pivot to the bounding box center of its
// vertices without moving the geometry in world space.
func recenterOrigin(o *Object) error {
	box, err := meshBounds(o.Mesh.Node.Vertices)
	if err != nil {
		return err
	}
	c := boxCenter(&box)
	for i := range o.Mesh.Node.Vertices {
		v := toDvec3(o.Mesh.Node.Vertices[i])
		o.Mesh.Node.Vertices[i] = toVec3(dvec3.T{v[0] - c[0], v[1] - c[1], v[2] - c[2]})
	}
	lin := o.Transform.Linear()
	offset := lin.MulVec3(&c)
	o.Transform.Location = dvec3.T{
		o.Transform.Location[0] + offset[0],
		o.Transform.Location[1] + offset[1],
		o.Transform.Location[2] + offset[2],
	}
	return nil
}

func meshBounds(vs []vec3.T) (dvec3.Box, error) {
	if len(vs) == 0 {
		return dvec3.Box{}, ErrEmptyGeometry
	}
	bbx := dvec3.MinBox
	for i := range vs {
		v := toDvec3(vs[i])
		bbx.Extend(&v)
	}
	return bbx, nil
}

// MeshBounds returns the local bounding box of a mesh object's vertices.
func MeshBounds(o *Object) (dvec3.Box, error) {
	if o == nil || o.Mesh == nil || o.Mesh.Node == nil {
		return dvec3.Box{}, ErrNotMesh
	}
	return meshBounds(o.Mesh.Node.Vertices)
}

func boxCenter(b *dvec3.Box) dvec3.T {
	return dvec3.T{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

func toDvec3(v vec3.T) dvec3.T {
	return dvec3.T{float64(v[0]), float64(v[1]), float64(v[2])}
}

func toVec3(v dvec3.T) vec3.T {
	return vec3.T{float32(v[0]), float32(v[1]), float32(v[2])}
}
