package batchply

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Failure records one file that could not be converted.
type Failure struct {
	Name   string
	Kind   ErrorKind
	Reason string
}

// Report summarizes a batch. Succeeded and Outputs are index aligned.
type Report struct {
	Succeeded []string
	Outputs   []string
	Failed    []Failure
	// Purged lists material definitions deleted by the end-of-run sweep.
	Purged []string
}

// Runner converts every matching file of an import folder in sequence.
type Runner struct {
	Config   BatchConfig
	Scene    *Scene
	Importer Importer
	Exporter Exporter
	Logger   *log.Logger
}

// NewRunner wires a runner with the PLY importer, the DAE exporter and a fresh scene.
func NewRunner(cfg BatchConfig, logger *log.Logger) *Runner {
	if logger == nil {
		logger = discardLogger()
	}
	return &Runner{
		Config:   cfg,
		Scene:    NewScene(),
		Importer: ImporterFactory(PLY),
		Exporter: ExporterFactory(DAE),
		Logger:   logger,
	}
}

// Inputs lists the files of the import folder whose extension matches the
// importer's, ignoring case. Subfolders are not searched.
func (r *Runner) Inputs() ([]string, error) {
	entries, err := os.ReadDir(r.Config.ImportDir)
	if err != nil {
		return nil, &ConfigError{Err: errors.Wrap(err, "list import folder")}
	}
	want := "." + r.Importer.Extension()
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), want) {
			files = append(files, filepath.Join(r.Config.ImportDir, e.Name()))
		}
	}
	return files, nil
}

// Run processes every input. Only a *ConfigError is returned as an error;
// per-file failures are recorded in the report and the loop continues.
func (r *Runner) Run() (*Report, error) {
	if r.Importer == nil || r.Exporter == nil {
		err := &ConfigError{Err: errors.Wrap(ErrUnknownFormat, "no importer or exporter")}
		r.Logger.Error("batch not started", "err", err)
		return nil, err
	}
	if err := r.Config.Validate(); err != nil {
		r.Logger.Error("batch not started", "err", err)
		return nil, err
	}
	files, err := r.Inputs()
	if err != nil {
		r.Logger.Error("batch not started", "err", err)
		return nil, err
	}

	pipe := NewPipeline(r.Scene, r.Importer, r.Exporter, r.Logger)
	report := &Report{}
	for _, file := range files {
		out, err := pipe.Process(file, &r.Config)
		if err != nil {
			f := Failure{Name: BaseName(file), Reason: err.Error()}
			var ae *AssetError
			if errors.As(err, &ae) {
				f.Kind = ae.Kind
				f.Reason = ae.Err.Error()
			}
			report.Failed = append(report.Failed, f)
			continue
		}
		report.Succeeded = append(report.Succeeded, BaseName(file))
		report.Outputs = append(report.Outputs, out)
	}

	report.Purged = r.Scene.Materials.PurgeUnused()
	for _, name := range report.Purged {
		r.Logger.Debug("purged unused material", "material", name)
	}
	r.Logger.Info("FINISHED", "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}
