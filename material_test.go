package batchply

import (
	"testing"

	dvec4 "github.com/flywave/go3d/float64/vec4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedMaterialParameters(t *testing.T) {
	r := NewMaterialRegistry()
	m := SharedMaterial(r)

	assert.Equal(t, SharedMaterialName, m.Name)
	assert.Equal(t, dvec4.T{0.588, 0.588, 0.588, 1.0}, m.BaseColor)
	assert.Equal(t, 0.0, m.Metallic)
	assert.Equal(t, 0.5, m.Roughness)
	assert.Equal(t, 1.0, m.IOR)
	assert.Equal(t, 0.5, m.Specular)
}

func TestSharedMaterialIsCreatedOnce(t *testing.T) {
	r := NewMaterialRegistry()
	first := SharedMaterial(r)
	for i := 0; i < 10; i++ {
		assert.Same(t, first, SharedMaterial(r))
	}
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.Created())
}

func TestSharedMaterialDoesNotRedefineExisting(t *testing.T) {
	r := NewMaterialRegistry()
	existing := r.GetOrCreate(SharedMaterialName, func(m *Material) {
		m.Roughness = 0.9
	})

	m := SharedMaterial(r)
	assert.Same(t, existing, m)
	assert.Equal(t, 0.9, m.Roughness)
}

func TestBindMaterialAppendsFirstSlot(t *testing.T) {
	s, o := newBoxMesh(t)
	m := SharedMaterial(s.Materials)

	require.NoError(t, BindMaterial(o, m))
	require.Len(t, o.Mesh.Materials, 1)
	assert.Same(t, m, o.Mesh.Materials[0])
	assert.Equal(t, 1, m.Users())

	// rebinding the same material neither duplicates the slot nor the user
	require.NoError(t, BindMaterial(o, m))
	assert.Len(t, o.Mesh.Materials, 1)
	assert.Equal(t, 1, m.Users())
}

func TestBindMaterialOverwritesSlotZero(t *testing.T) {
	s, o := newBoxMesh(t)
	old := s.Materials.GetOrCreate("Imported", nil)
	second := s.Materials.GetOrCreate("Second", nil)
	require.NoError(t, BindMaterial(o, old))
	o.Mesh.Materials = append(o.Mesh.Materials, second)

	m := SharedMaterial(s.Materials)
	require.NoError(t, BindMaterial(o, m))

	require.Len(t, o.Mesh.Materials, 2)
	assert.Same(t, m, o.Mesh.Materials[0])
	assert.Equal(t, 0, old.Users())
	assert.Equal(t, 1, m.Users())
}

func TestBindMaterialRejectsEmpty(t *testing.T) {
	s := NewScene()
	e, err := s.NewEmpty("e")
	require.NoError(t, err)
	assert.ErrorIs(t, BindMaterial(e, SharedMaterial(s.Materials)), ErrNotMesh)
}

func TestRemovingMeshReleasesMaterial(t *testing.T) {
	s, o := newBoxMesh(t)
	m := SharedMaterial(s.Materials)
	require.NoError(t, BindMaterial(o, m))

	s.Remove(o)
	assert.Equal(t, 0, m.Users())
	// definitions outlive their users until the sweep
	assert.Equal(t, 1, s.Materials.Len())
}

func TestPurgeUnused(t *testing.T) {
	s, o := newBoxMesh(t)
	used := SharedMaterial(s.Materials)
	require.NoError(t, BindMaterial(o, used))
	s.Materials.GetOrCreate("b_unused", nil)
	s.Materials.GetOrCreate("a_unused", nil)

	assert.Equal(t, []string{"a_unused", "b_unused"}, s.Materials.PurgeUnused())
	assert.Equal(t, 1, s.Materials.Len())
	_, ok := s.Materials.Get(SharedMaterialName)
	assert.True(t, ok)

	s.Remove(o)
	assert.Equal(t, []string{SharedMaterialName}, s.Materials.PurgeUnused())
	assert.Equal(t, 0, s.Materials.Len())
}
