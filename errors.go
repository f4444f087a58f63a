package batchply

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSceneFull      = errors.New("scene object capacity exhausted")
	ErrNameInUse      = errors.New("object name already in use")
	ErrNotInScene     = errors.New("object is not in the scene")
	ErrEmptyGeometry  = errors.New("mesh has no vertices")
	ErrNonFinite      = errors.New("mesh has non-finite vertex coordinates")
	ErrNotMesh        = errors.New("object is not a mesh")
	ErrUnknownFormat  = errors.New("unknown format")
	ErrMissingRootTag = errors.New("export root not found in document")
)

// ErrorKind classifies a per-asset failure by the pipeline stage that produced it.
type ErrorKind int

const (
	ImportError ErrorKind = iota
	TransformError
	HierarchyError
	MaterialError
	ExportError
)

func (k ErrorKind) String() string {
	switch k {
	case ImportError:
		return "ImportError"
	case TransformError:
		return "TransformError"
	case HierarchyError:
		return "HierarchyError"
	case MaterialError:
		return "MaterialError"
	case ExportError:
		return "ExportError"
	default:
		return "UnknownError"
	}
}

// AssetError is a failure contained to a single input file.
type AssetError struct {
	Kind  ErrorKind
	Asset string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Asset, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

func assetError(kind ErrorKind, asset string, err error) *AssetError {
	return &AssetError{Kind: kind, Asset: asset, Err: err}
}

// ConfigError aborts a batch before any file is processed.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ConfigError: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of a per-asset error.
func KindOf(err error) (ErrorKind, bool) {
	var ae *AssetError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}
