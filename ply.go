package batchply

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	mst "github.com/flywave/go-mst"
	"github.com/flywave/go3d/vec3"
	"github.com/pkg/errors"
)

type plyFormat int

const (
	plyASCII plyFormat = iota
	plyBinaryLE
	plyBinaryBE
)

type plyType int

const (
	plyInvalid plyType = iota
	plyInt8
	plyUint8
	plyInt16
	plyUint16
	plyInt32
	plyUint32
	plyFloat32
	plyFloat64
)

var plyTypeNames = map[string]plyType{
	"char": plyInt8, "int8": plyInt8,
	"uchar": plyUint8, "uint8": plyUint8,
	"short": plyInt16, "int16": plyInt16,
	"ushort": plyUint16, "uint16": plyUint16,
	"int": plyInt32, "int32": plyInt32,
	"uint": plyUint32, "uint32": plyUint32,
	"float": plyFloat32, "float32": plyFloat32,
	"double": plyFloat64, "float64": plyFloat64,
}

func (t plyType) size() int {
	switch t {
	case plyInt8, plyUint8:
		return 1
	case plyInt16, plyUint16:
		return 2
	case plyInt32, plyUint32, plyFloat32:
		return 4
	case plyFloat64:
		return 8
	}
	return 0
}

type plyProperty struct {
	name      string
	typ       plyType
	list      bool
	countType plyType
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   plyFormat
	elements []*plyElement
}

// PlyImporter reads ASCII and binary PLY files. Vertex positions and normals
// are kept; polygon faces are fan triangulated. Files without a face element
// import as point clouds.
type PlyImporter struct {
	// MaxElementCount rejects headers declaring more entries than this.
	MaxElementCount int
}

func NewPlyImporter() *PlyImporter {
	return &PlyImporter{MaxElementCount: 1 << 28}
}

func (p *PlyImporter) Extension() string {
	return PLY
}

func (p *PlyImporter) Import(path string) (*mst.MeshNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ply")
	}
	defer f.Close()

	node, err := p.Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return node, nil
}

// Read decodes a PLY stream.
func (p *PlyImporter) Read(r io.Reader) (*mst.MeshNode, error) {
	br := bufio.NewReader(r)
	hdr, err := p.readHeader(br)
	if err != nil {
		return nil, err
	}

	var vr plyValueReader
	switch hdr.format {
	case plyASCII:
		sc := bufio.NewScanner(br)
		sc.Split(bufio.ScanWords)
		vr = &plyASCIIReader{sc: sc}
	case plyBinaryLE:
		vr = &plyBinaryReader{r: br, order: binary.LittleEndian}
	case plyBinaryBE:
		vr = &plyBinaryReader{r: br, order: binary.BigEndian}
	}

	node := &mst.MeshNode{}
	var faces []*mst.Face
	for _, el := range hdr.elements {
		switch el.name {
		case "vertex":
			if err := readPlyVertices(vr, el, node); err != nil {
				return nil, err
			}
		case "face":
			if faces, err = readPlyFaces(vr, el); err != nil {
				return nil, err
			}
		default:
			if err := skipPlyElement(vr, el); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range faces {
		for _, idx := range f.Vertex {
			if int(idx) >= len(node.Vertices) {
				return nil, errors.Errorf("face references vertex %d of %d", idx, len(node.Vertices))
			}
		}
	}
	if len(faces) > 0 {
		node.FaceGroup = append(node.FaceGroup, &mst.MeshTriangle{Batchid: 0, Faces: faces})
	}
	return node, nil
}

func (p *PlyImporter) readHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, errors.New("not a ply file: missing magic")
	}

	hdr := &plyHeader{}
	var cur *plyElement
	formatSeen := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.New("unexpected end of header")
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 3 {
				return nil, errors.Errorf("malformed format line %q", strings.TrimSpace(line))
			}
			switch fields[1] {
			case "ascii":
				hdr.format = plyASCII
			case "binary_little_endian":
				hdr.format = plyBinaryLE
			case "binary_big_endian":
				hdr.format = plyBinaryBE
			default:
				return nil, errors.Errorf("unsupported ply format %q", fields[1])
			}
			formatSeen = true
		case "comment", "obj_info":
		case "element":
			if len(fields) != 3 {
				return nil, errors.Errorf("malformed element line %q", strings.TrimSpace(line))
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 || n > p.MaxElementCount {
				return nil, errors.Errorf("invalid element count %q", fields[2])
			}
			cur = &plyElement{name: fields[1], count: n}
			hdr.elements = append(hdr.elements, cur)
		case "property":
			if cur == nil {
				return nil, errors.New("property declared before any element")
			}
			prop, err := parsePlyProperty(fields)
			if err != nil {
				return nil, err
			}
			cur.props = append(cur.props, prop)
		case "end_header":
			if !formatSeen {
				return nil, errors.New("missing format line")
			}
			return hdr, nil
		default:
			return nil, errors.Errorf("unknown header keyword %q", fields[0])
		}
	}
}

func parsePlyProperty(fields []string) (plyProperty, error) {
	if len(fields) == 5 && fields[1] == "list" {
		ct, ok1 := plyTypeNames[fields[2]]
		it, ok2 := plyTypeNames[fields[3]]
		if !ok1 || !ok2 || ct == plyFloat32 || ct == plyFloat64 {
			return plyProperty{}, errors.Errorf("invalid list property %q", strings.Join(fields, " "))
		}
		return plyProperty{name: fields[4], typ: it, list: true, countType: ct}, nil
	}
	if len(fields) == 3 {
		t, ok := plyTypeNames[fields[1]]
		if !ok {
			return plyProperty{}, errors.Errorf("unknown property type %q", fields[1])
		}
		return plyProperty{name: fields[2], typ: t}, nil
	}
	return plyProperty{}, errors.Errorf("malformed property %q", strings.Join(fields, " "))
}

func readPlyVertices(vr plyValueReader, el *plyElement, node *mst.MeshNode) error {
	pos := [3]int{-1, -1, -1}
	nrm := [3]int{-1, -1, -1}
	for i, prop := range el.props {
		if prop.list {
			continue
		}
		switch prop.name {
		case "x":
			pos[0] = i
		case "y":
			pos[1] = i
		case "z":
			pos[2] = i
		case "nx":
			nrm[0] = i
		case "ny":
			nrm[1] = i
		case "nz":
			nrm[2] = i
		}
	}
	if pos[0] < 0 || pos[1] < 0 || pos[2] < 0 {
		return errors.New("vertex element lacks x, y or z")
	}
	hasNormals := nrm[0] >= 0 && nrm[1] >= 0 && nrm[2] >= 0

	values := make([]float64, len(el.props))
	node.Vertices = make([]vec3.T, 0, capHint(el.count))
	if hasNormals {
		node.Normals = make([]vec3.T, 0, capHint(el.count))
	}
	for n := 0; n < el.count; n++ {
		for i, prop := range el.props {
			if prop.list {
				if _, err := readPlyList(vr, prop); err != nil {
					return errors.Wrapf(err, "vertex %d", n)
				}
				continue
			}
			v, err := vr.read(prop.typ)
			if err != nil {
				return errors.Wrapf(err, "vertex %d", n)
			}
			values[i] = v
		}
		node.Vertices = append(node.Vertices, vec3.T{float32(values[pos[0]]), float32(values[pos[1]]), float32(values[pos[2]])})
		if hasNormals {
			node.Normals = append(node.Normals, vec3.T{float32(values[nrm[0]]), float32(values[nrm[1]]), float32(values[nrm[2]])})
		}
	}
	return nil
}

func readPlyFaces(vr plyValueReader, el *plyElement) ([]*mst.Face, error) {
	faces := make([]*mst.Face, 0, capHint(el.count))
	for n := 0; n < el.count; n++ {
		for _, prop := range el.props {
			if !prop.list {
				if _, err := vr.read(prop.typ); err != nil {
					return nil, errors.Wrapf(err, "face %d", n)
				}
				continue
			}
			idx, err := readPlyList(vr, prop)
			if err != nil {
				return nil, errors.Wrapf(err, "face %d", n)
			}
			if prop.name != "vertex_indices" && prop.name != "vertex_index" {
				continue
			}
			if len(idx) < 3 {
				continue
			}
			for i := 1; i+1 < len(idx); i++ {
				faces = append(faces, &mst.Face{Vertex: [3]uint32{idx[0], idx[i], idx[i+1]}})
			}
		}
	}
	return faces, nil
}

func readPlyList(vr plyValueReader, prop plyProperty) ([]uint32, error) {
	c, err := vr.read(prop.countType)
	if err != nil {
		return nil, err
	}
	if c < 0 || c > math.MaxUint16 {
		return nil, errors.Errorf("invalid list length %v", c)
	}
	out := make([]uint32, int(c))
	for i := range out {
		v, err := vr.read(prop.typ)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > math.MaxUint32 {
			out[i] = math.MaxUint32
			continue
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func skipPlyElement(vr plyValueReader, el *plyElement) error {
	for n := 0; n < el.count; n++ {
		for _, prop := range el.props {
			var err error
			if prop.list {
				_, err = readPlyList(vr, prop)
			} else {
				_, err = vr.read(prop.typ)
			}
			if err != nil {
				return errors.Wrapf(err, "%s %d", el.name, n)
			}
		}
	}
	return nil
}

func capHint(n int) int {
	if n > 1<<20 {
		return 1 << 20
	}
	return n
}

type plyValueReader interface {
	read(t plyType) (float64, error)
}

type plyASCIIReader struct {
	sc *bufio.Scanner
}

func (r *plyASCIIReader) read(t plyType) (float64, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	tok := r.sc.Text()
	if t == plyFloat32 || t == plyFloat64 {
		return strconv.ParseFloat(tok, 64)
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

type plyBinaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (r *plyBinaryReader) read(t plyType) (float64, error) {
	b := r.buf[:t.size()]
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	switch t {
	case plyInt8:
		return float64(int8(b[0])), nil
	case plyUint8:
		return float64(b[0]), nil
	case plyInt16:
		return float64(int16(r.order.Uint16(b))), nil
	case plyUint16:
		return float64(r.order.Uint16(b)), nil
	case plyInt32:
		return float64(int32(r.order.Uint32(b))), nil
	case plyUint32:
		return float64(r.order.Uint32(b)), nil
	case plyFloat32:
		return float64(math.Float32frombits(r.order.Uint32(b))), nil
	case plyFloat64:
		return math.Float64frombits(r.order.Uint64(b)), nil
	}
	return 0, errors.Errorf("invalid property type %d", t)
}

var _ Importer = (*PlyImporter)(nil)
