package batchply

import (
	"sort"

	dvec4 "github.com/flywave/go3d/float64/vec4"
	"github.com/pkg/errors"
)

// SharedMaterialName identifies the material every exported asset is bound to.
const SharedMaterialName = "Metal_Alum_Cast"

// Material is a principled surface definition. BaseColor is linear RGBA.
type Material struct {
	Name      string
	BaseColor dvec4.T
	Metallic  float64
	Roughness float64
	IOR       float64
	Specular  float64

	users int
}

// Users is the number of mesh slots currently referencing the material.
func (m *Material) Users() int {
	return m.users
}

func (m *Material) acquire() {
	m.users++
}

func (m *Material) release() {
	if m.users > 0 {
		m.users--
	}
}

// MaterialRegistry is the material namespace keyed by name. Definitions are
// not released when their user count drops to zero; PurgeUnused does that.
type MaterialRegistry struct {
	materials map[string]*Material
	created   int
}

func NewMaterialRegistry() *MaterialRegistry {
	return &MaterialRegistry{materials: make(map[string]*Material)}
}

func (r *MaterialRegistry) Get(name string) (*Material, bool) {
	m, ok := r.materials[name]
	return m, ok
}

// GetOrCreate returns the definition named name, calling init only when the
// name is not registered yet. An existing definition is never modified.
func (r *MaterialRegistry) GetOrCreate(name string, init func(m *Material)) *Material {
	if m, ok := r.materials[name]; ok {
		return m
	}
	m := &Material{Name: name, BaseColor: dvec4.T{0.8, 0.8, 0.8, 1}, Roughness: 0.5, IOR: 1.45, Specular: 0.5}
	if init != nil {
		init(m)
	}
	r.materials[name] = m
	r.created++
	return m
}

// PurgeUnused deletes every definition without users and returns their names sorted.
func (r *MaterialRegistry) PurgeUnused() []string {
	var purged []string
	for name, m := range r.materials {
		if m.users == 0 {
			delete(r.materials, name)
			purged = append(purged, name)
		}
	}
	sort.Strings(purged)
	return purged
}

func (r *MaterialRegistry) Len() int {
	return len(r.materials)
}

// Created counts definitions constructed over the registry's lifetime.
func (r *MaterialRegistry) Created() int {
	return r.created
}

// SharedMaterial looks up or creates the cast aluminium definition.
func SharedMaterial(r *MaterialRegistry) *Material {
	return r.GetOrCreate(SharedMaterialName, func(m *Material) {
		m.BaseColor = dvec4.T{0.588, 0.588, 0.588, 1.0} // #969696FF
		m.Metallic = 0.0
		m.Roughness = 0.5
		m.IOR = 1.0
		m.Specular = 0.5
	})
}

// BindMaterial puts m in slot 0 of the mesh, appending the slot if the mesh
// has none. It never adds a second slot.
func BindMaterial(o *Object, m *Material) error {
	if o == nil || o.Mesh == nil {
		return ErrNotMesh
	}
	if m == nil {
		return errors.New("nil material")
	}
	slots := o.Mesh.Materials
	if len(slots) == 0 {
		o.Mesh.Materials = append(slots, m)
		m.acquire()
		return nil
	}
	if slots[0] == m {
		return nil
	}
	if slots[0] != nil {
		slots[0].release()
	}
	slots[0] = m
	m.acquire()
	return nil
}
