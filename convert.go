package batchply

import (
	mst "github.com/flywave/go-mst"
)

const (
	PLY = "ply"
	DAE = "dae"
)

// Importer reads one source file into mesh geometry.
type Importer interface {
	Import(path string) (*mst.MeshNode, error)
	Extension() string
}

// Exporter writes root and all of its descendants to path.
type Exporter interface {
	Export(root *Object, path string) error
	Extension() string
}

func ImporterFactory(format string) Importer {
	switch format {
	case PLY:
		return NewPlyImporter()
	}
	return nil
}

func ExporterFactory(format string) Exporter {
	switch format {
	case DAE:
		return NewDaeExporter()
	}
	return nil
}
