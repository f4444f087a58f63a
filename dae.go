package batchply

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	dae "github.com/flywave/go-collada"
	"github.com/flywave/go3d/vec3"
	"github.com/pkg/errors"
)

const (
	colladaNamespace = "http://www.collada.org/2005/11/COLLADASchema"
	colladaVersion   = "1.4.1"
	authoringTool    = "go-batchply"
)

// DaeExporter writes a root selection as a COLLADA 1.4.1 document. Only the
// root and its descendants are written; the rest of the scene is ignored.
type DaeExporter struct {
	// Verify re-reads each written document and checks its node tree.
	Verify bool
	Now    func() time.Time
}

func NewDaeExporter() *DaeExporter {
	return &DaeExporter{Verify: true, Now: time.Now}
}

func (e *DaeExporter) Extension() string {
	return DAE
}

// Export writes the document to path. A partially written or unverifiable
// file is removed before the error is returned.
func (e *DaeExporter) Export(root *Object, path string) error {
	if !root.Alive() {
		return ErrNotInScene
	}
	err := errors.Wrap(e.Document(root).Export(path), "write dae")
	if err == nil && e.Verify {
		err = VerifyCollada(path, root.Name)
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Write encodes the document for root to w.
func (e *DaeExporter) Write(w io.Writer, root *Object) error {
	return errors.Wrap(e.Document(root).ExportToWriter(w), "encode dae")
}

// Document builds the COLLADA tree for root. Ids are unique across the
// document; the root node always keeps its own name as id.
func (e *DaeExporter) Document(root *Object) *dae.Collada {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	stamp := now().UTC().Format(time.RFC3339)

	ids := idSet{}
	nodeIDs := make(map[*Object]string)
	Walk(root, func(o *Object, _ int) {
		nodeIDs[o] = ids.take(o.Name)
	})

	var (
		effects    []*dae.Effect
		materials  []*dae.Material
		geometries []*dae.Geometry
	)
	geometryIDs := make(map[*Object]string)
	materialIDs := make(map[*Material]string)
	Walk(root, func(o *Object, _ int) {
		if o.Mesh == nil {
			return
		}
		for _, m := range o.Mesh.Materials {
			if m == nil {
				continue
			}
			if _, ok := materialIDs[m]; ok {
				continue
			}
			mid := ids.take(m.Name + "-material")
			eid := ids.take(m.Name + "-effect")
			materialIDs[m] = mid
			effects = append(effects, effectOf(m, eid))
			materials = append(materials, &dae.Material{
				HasId:          dae.HasId{Id: dae.Id(mid)},
				HasName:        dae.HasName{Name: m.Name},
				InstanceEffect: dae.InstanceEffect{HasUrl: dae.HasUrl{Url: dae.Uri("#" + eid)}},
			})
		}
		gid := ids.take(o.Name + "-mesh")
		geometryIDs[o] = gid
		var symbol string
		if len(o.Mesh.Materials) > 0 && o.Mesh.Materials[0] != nil {
			symbol = materialIDs[o.Mesh.Materials[0]]
		}
		geometries = append(geometries, geometryOf(o, gid, symbol))
	})

	doc := &dae.Collada{
		Xmlns:   dae.Uri(colladaNamespace),
		Version: dae.Version(colladaVersion),
		HasAsset: dae.HasAsset{Asset: &dae.Asset{
			Contributor: []*dae.Contributor{{AuthoringTool: authoringTool}},
			Created:     stamp,
			Modified:    stamp,
			Unit:        &dae.Unit{HasName: dae.HasName{Name: "meter"}, Meter: 1},
			UpAxis:      dae.Zup,
		}},
		LibraryVisualScenes: []*dae.LibraryVisualScenes{{
			VisualScene: []*dae.VisualScene{{
				HasId:    dae.HasId{Id: "Scene"},
				HasName:  dae.HasName{Name: "Scene"},
				HasNodes: dae.HasNodes{Node: []*dae.Node{nodeOf(root, nodeIDs, geometryIDs)}},
			}},
		}},
		Scene: &dae.Scene{InstanceVisualScene: &dae.InstanceVisualScene{HasUrl: dae.HasUrl{Url: "#Scene"}}},
	}
	if len(effects) > 0 {
		doc.LibraryEffects = []*dae.LibraryEffects{{Effect: effects}}
		doc.LibraryMaterials = []*dae.LibraryMaterials{{Material: materials}}
	}
	if len(geometries) > 0 {
		doc.LibraryGeometries = []*dae.LibraryGeometries{{Geometry: geometries}}
	}
	return doc
}

func colorOf(sid string, rgba []float64) *dae.FxCommonColorOrTextureType {
	return &dae.FxCommonColorOrTextureType{Color: &dae.Color{
		HasSid: dae.HasSid{Sid: sid},
		Float3: dae.Float3{Floats: floats(joinFloats(rgba, 64))},
	}}
}

// effectOf writes the principled parameters that have a common-profile
// equivalent as Phong terms and keeps the rest in an extra technique.
func effectOf(m *Material, id string) *dae.Effect {
	c := m.BaseColor
	s := m.Specular
	extra := fmt.Sprintf("<metallic>%s</metallic><roughness>%s</roughness><specular>%s</specular>",
		formatFloat(m.Metallic, 64), formatFloat(m.Roughness, 64), formatFloat(m.Specular, 64))
	return &dae.Effect{
		HasId: dae.HasId{Id: dae.Id(id)},
		ProfileCommon: &dae.ProfileCommon{HasTechniqueFx: dae.HasTechniqueFx{TechniqueFx: &dae.TechniqueFx{
			HasSid: dae.HasSid{Sid: "common"},
			Phone: &dae.Phong{
				Emission: colorOf("emission", []float64{0, 0, 0, 1}),
				Diffuse:  colorOf("diffuse", c[:]),
				Specular: colorOf("specular", []float64{s, s, s, 1}),
				IndexOfRefraction: &dae.FxCommonFloatOrParamType{
					Float: &dae.Float{HasSid: dae.HasSid{Sid: "ior"}, Value: m.IOR},
				},
			},
		}}},
		HasExtra: dae.HasExtra{Extra: []*dae.Extra{{
			HasTechnique: dae.HasTechnique{TechniqueCore: []*dae.TechniqueCore{{Profile: authoringTool, XML: extra}}},
		}}},
	}
}

func geometryOf(o *Object, id, material string) *dae.Geometry {
	node := o.Mesh.Node
	mesh := &dae.Mesh{}
	mesh.Source = append(mesh.Source, vec3Source(id+"-positions", node.Vertices))
	mesh.Vertices = dae.Vertices{
		HasId: dae.HasId{Id: dae.Id(id + "-vertices")},
		Input: []*dae.InputUnshared{{Semantic: "POSITION", Source: dae.Uri("#" + id + "-positions")}},
	}
	if len(node.Normals) == len(node.Vertices) && len(node.Normals) > 0 {
		mesh.Source = append(mesh.Source, vec3Source(id+"-normals", node.Normals))
		mesh.Vertices.Input = append(mesh.Vertices.Input, &dae.InputUnshared{Semantic: "NORMAL", Source: dae.Uri("#" + id + "-normals")})
	}

	for _, fg := range node.FaceGroup {
		if len(fg.Faces) == 0 {
			continue
		}
		var sb strings.Builder
		for i, f := range fg.Faces {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatUint(uint64(f.Vertex[0]), 10))
			sb.WriteByte(' ')
			sb.WriteString(strconv.FormatUint(uint64(f.Vertex[1]), 10))
			sb.WriteByte(' ')
			sb.WriteString(strconv.FormatUint(uint64(f.Vertex[2]), 10))
		}
		mesh.Triangles = append(mesh.Triangles, &dae.Triangles{
			HasCount:       dae.HasCount{Count: len(fg.Faces)},
			HasMaterial:    dae.HasMaterial{Material: material},
			HasSharedInput: dae.HasSharedInput{Input: []*dae.InputShared{{Semantic: "VERTEX", Source: dae.Uri("#" + id + "-vertices")}}},
			HasP:           dae.HasP{P: &dae.P{Ints: dae.Ints{Values: dae.Values{V: sb.String()}}}},
		})
	}
	return &dae.Geometry{
		HasId:   dae.HasId{Id: dae.Id(id)},
		HasName: dae.HasName{Name: o.Name},
		Mesh:    mesh,
	}
}

func vec3Source(id string, vs []vec3.T) *dae.Source {
	var sb strings.Builder
	for i, v := range vs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatFloat(float64(v[0]), 32))
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(float64(v[1]), 32))
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(float64(v[2]), 32))
	}
	return &dae.Source{
		HasId: dae.HasId{Id: dae.Id(id)},
		FloatArray: &dae.FloatArray{
			HasId:    dae.HasId{Id: dae.Id(id + "-array")},
			HasCount: dae.HasCount{Count: len(vs) * 3},
			Floats:   floats(sb.String()),
		},
		HasTechniqueCommon: dae.HasTechniqueCommon{TechniqueCommon: dae.TechniqueCommon{Accessor: dae.Accessor{
			Source: "#" + id + "-array",
			Count:  len(vs),
			Stride: 3,
			Params: []dae.Param{{Name: "X", Type: "float"}, {Name: "Y", Type: "float"}, {Name: "Z", Type: "float"}},
		}}},
	}
}

func nodeOf(o *Object, nodeIDs, geometryIDs map[*Object]string) *dae.Node {
	m := o.Transform.Matrix()
	rm := RowMajor(&m)
	n := &dae.Node{
		HasId:   dae.HasId{Id: dae.Id(nodeIDs[o])},
		HasName: dae.HasName{Name: o.Name},
		HasType: dae.HasType{Type: "NODE"},
		Matrix: []*dae.Matrix{{
			HasSid:   dae.HasSid{Sid: "transform"},
			Float4x4: dae.Float4x4{Floats: floats(joinFloats(rm[:], 64))},
		}},
	}
	if gid, ok := geometryIDs[o]; ok {
		n.InstanceGeometry = append(n.InstanceGeometry, &dae.InstanceGeometry{
			HasName: dae.HasName{Name: o.Name},
			HasUrl:  dae.HasUrl{Url: dae.Uri("#" + gid)},
		})
	}
	for _, c := range o.Children {
		n.Node = append(n.Node, nodeOf(c, nodeIDs, geometryIDs))
	}
	return n
}

func floats(v string) dae.Floats {
	return dae.Floats{Values: dae.Values{V: v}}
}

// idSet hands out document ids. A name that sanitizes to a taken id gets the
// first free numeric suffix.
type idSet map[string]bool

func (s idSet) take(name string) string {
	id := colladaID(name)
	if !s[id] {
		s[id] = true
		return id
	}
	for n := 2; ; n++ {
		cand := id + "_" + strconv.Itoa(n)
		if !s[cand] {
			s[cand] = true
			return cand
		}
	}
}

// colladaID maps an object name onto the xs:ID alphabet.
func colladaID(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case (r >= '0' && r <= '9') || r == '-' || r == '.':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

func formatFloat(v float64, bits int) string {
	return strconv.FormatFloat(v, 'g', -1, bits)
}

func joinFloats(vs []float64, bits int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v, bits)
	}
	return strings.Join(parts, " ")
}

// VerifyCollada parses a written document and checks that its visual scene has
// exactly one top-level node, the export root, and that no node id repeats.
func VerifyCollada(path string, rootName string) error {
	collada, err := dae.LoadDocument(path)
	if err != nil {
		return errors.Wrap(err, "parse dae")
	}

	want := colladaID(rootName)
	roots := 0
	seen := make(map[dae.Id]bool)
	var dup error
	var visit func(nd *dae.Node)
	visit = func(nd *dae.Node) {
		if seen[nd.Id] && dup == nil {
			dup = errors.Errorf("duplicate node id %q", string(nd.Id))
		}
		seen[nd.Id] = true
		for _, c := range nd.Node {
			visit(c)
		}
	}
	for _, sce := range collada.LibraryVisualScenes {
		for _, vs := range sce.VisualScene {
			for _, nd := range vs.Node {
				if string(nd.Id) != want {
					return errors.Errorf("unexpected top-level node %q", string(nd.Id))
				}
				roots++
				visit(nd)
			}
		}
	}
	if roots != 1 {
		return errors.Wrapf(ErrMissingRootTag, "%q found %d times", rootName, roots)
	}
	return dup
}

var _ Exporter = (*DaeExporter)(nil)
