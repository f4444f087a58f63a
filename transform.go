package batchply

import (
	"math"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	dvec4 "github.com/flywave/go3d/float64/vec4"
)

// Transform is an object's local placement. Rotation holds XYZ Euler angles
// in radians, applied X first, then Y, then Z.
type Transform struct {
	Location dvec3.T
	Rotation dvec3.T
	Scale    dvec3.T
}

func IdentityTransform() Transform {
	return Transform{Scale: dvec3.T{1, 1, 1}}
}

// Matrix composes T * Rz * Ry * Rx * S.
func (t *Transform) Matrix() dmat.T {
	m := t.Linear()
	m[3] = dvec4.T{t.Location[0], t.Location[1], t.Location[2], 1}
	return m
}

// Linear is Matrix without the translation column.
func (t *Transform) Linear() dmat.T {
	var rx, ry, rz, rzy, m dmat.T
	rx.AssignXRotation(t.Rotation[0])
	ry.AssignYRotation(t.Rotation[1])
	rz.AssignZRotation(t.Rotation[2])
	rzy.AssignMul(&rz, &ry)
	m.AssignMul(&rzy, &rx)
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m[c][r] *= t.Scale[c]
		}
	}
	return m
}

// IsIdentity reports whether the transform is identity within eps.
func (t *Transform) IsIdentity(eps float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(t.Location[i]) > eps || math.Abs(t.Rotation[i]) > eps || math.Abs(t.Scale[i]-1) > eps {
			return false
		}
	}
	return true
}

// RowMajor flattens the matrix the way COLLADA <matrix> elements expect.
func RowMajor(m *dmat.T) [16]float64 {
	var out [16]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m[c][r]
		}
	}
	return out
}

func degreesToRadians(deg dvec3.T) dvec3.T {
	return dvec3.T{deg[0] * math.Pi / 180, deg[1] * math.Pi / 180, deg[2] * math.Pi / 180}
}
