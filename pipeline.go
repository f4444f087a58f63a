package batchply

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Asset is the transient state of one input file. It owns the mesh and the
// three hierarchy nodes until teardown.
type Asset struct {
	Source    string
	Name      string
	Mesh      *Object
	Hierarchy *Hierarchy
}

// Handles returns every live handle the asset still owns.
func (a *Asset) Handles() []*Object {
	var hs []*Object
	if a.Mesh.Alive() {
		hs = append(hs, a.Mesh)
	}
	for _, n := range a.Hierarchy.Nodes() {
		if n.Alive() {
			hs = append(hs, n)
		}
	}
	return hs
}

// BaseName strips the directory and the extension from path.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Pipeline converts one file at a time against a shared scene.
type Pipeline struct {
	Scene    *Scene
	Importer Importer
	Exporter Exporter
	Logger   *log.Logger

	// OnTeardown, if set, is called with the asset after its handles are released.
	OnTeardown func(a *Asset)
}

func NewPipeline(scene *Scene, importer Importer, exporter Exporter, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = discardLogger()
	}
	return &Pipeline{Scene: scene, Importer: importer, Exporter: exporter, Logger: logger}
}

// Process imports path, normalizes it, builds the export hierarchy, binds the
// shared material and writes {ExportDir}/{base}.{ext}. Whatever handles were
// created are released before Process returns, on success or failure.
// Errors are *AssetError.
func (p *Pipeline) Process(path string, cfg *BatchConfig) (out string, err error) {
	asset := &Asset{Source: path, Name: BaseName(path)}
	defer func() {
		p.teardown(asset)
		if err != nil {
			p.Logger.Error("asset failed", "asset", asset.Name, "kind", kindString(err), "err", err)
		} else {
			p.Logger.Info("exported", "asset", asset.Name, "path", out)
		}
	}()

	node, err := p.Importer.Import(path)
	if err != nil {
		return "", assetError(ImportError, asset.Name, err)
	}
	asset.Mesh, err = p.Scene.NewMesh(asset.Name+"_mesh", node)
	if err != nil {
		return "", assetError(ImportError, asset.Name, err)
	}
	p.Logger.Debug("imported", "asset", asset.Name, "vertices", len(node.Vertices))

	if err = Normalize(asset.Mesh, cfg.Scale, cfg.Rotation(), cfg.BaseHeight); err != nil {
		return "", assetError(TransformError, asset.Name, err)
	}

	if asset.Hierarchy, err = BuildHierarchy(p.Scene, asset.Name); err != nil {
		return "", assetError(HierarchyError, asset.Name, err)
	}
	if err = asset.Hierarchy.Attach(p.Scene, asset.Mesh); err != nil {
		return "", assetError(HierarchyError, asset.Name, err)
	}

	if err = BindMaterial(asset.Mesh, SharedMaterial(p.Scene.Materials)); err != nil {
		return "", assetError(MaterialError, asset.Name, err)
	}

	out = filepath.Join(cfg.ExportDir, asset.Name+"."+p.Exporter.Extension())
	if err = p.Exporter.Export(asset.Hierarchy.Root, out); err != nil {
		return "", assetError(ExportError, asset.Name, errors.Wrap(err, out))
	}
	return out, nil
}

func (p *Pipeline) teardown(a *Asset) {
	for _, h := range a.Handles() {
		p.Scene.Remove(h)
	}
	if p.OnTeardown != nil {
		p.OnTeardown(a)
	}
}

func kindString(err error) string {
	if k, ok := KindOf(err); ok {
		return k.String()
	}
	return "unknown"
}
