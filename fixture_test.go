package batchply

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	mst "github.com/flywave/go-mst"
	"github.com/flywave/go3d/vec3"
)

// boxVertices spans [0,4] x [0,2] x [0,1].
var boxVertices = []vec3.T{
	{0, 0, 0}, {4, 0, 0}, {4, 2, 0}, {0, 2, 0},
	{0, 0, 1}, {4, 0, 1}, {4, 2, 1}, {0, 2, 1},
}

var boxQuads = [][]uint32{
	{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
	{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
}

func asciiPly(vs []vec3.T, faces [][]uint32) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "ply\nformat ascii 1.0\ncomment generated\nelement vertex %d\n", len(vs))
	b.WriteString("property float x\nproperty float y\nproperty float z\n")
	if faces != nil {
		fmt.Fprintf(&b, "element face %d\nproperty list uchar int vertex_indices\n", len(faces))
	}
	b.WriteString("end_header\n")
	for _, v := range vs {
		fmt.Fprintf(&b, "%g %g %g\n", v[0], v[1], v[2])
	}
	for _, f := range faces {
		fmt.Fprintf(&b, "%d", len(f))
		for _, i := range f {
			fmt.Fprintf(&b, " %d", i)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func binaryPly(order binary.ByteOrder, vs []vec3.T, faces [][]uint32) []byte {
	var b bytes.Buffer
	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}
	fmt.Fprintf(&b, "ply\nformat %s 1.0\nelement vertex %d\n", format, len(vs))
	b.WriteString("property float x\nproperty float y\nproperty float z\nproperty uchar red\n")
	fmt.Fprintf(&b, "element face %d\nproperty list uchar uint vertex_indices\nend_header\n", len(faces))
	for _, v := range vs {
		binary.Write(&b, order, v[0])
		binary.Write(&b, order, v[1])
		binary.Write(&b, order, v[2])
		b.WriteByte(200)
	}
	for _, f := range faces {
		b.WriteByte(byte(len(f)))
		for _, i := range f {
			binary.Write(&b, order, i)
		}
	}
	return b.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeBoxPly(t *testing.T, dir, name string) string {
	t.Helper()
	return writeFile(t, dir, name, []byte(asciiPly(boxVertices, boxQuads)))
}

func boxNode() *mst.MeshNode {
	vs := make([]vec3.T, len(boxVertices))
	copy(vs, boxVertices)
	return &mst.MeshNode{Vertices: vs}
}
