package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	batchply "github.com/flywave/go-batchply"
)

type App struct {
	Logger *log.Logger
}

type Command struct {
	Verbose bool        `help:"Enable verbose output." short:"v"`
	Run     *RunCommand `cmd:"run" help:"Convert every PLY file of a folder to COLLADA."`
}

type RunCommand struct {
	Config string  `help:"YAML or TOML configuration file. Replaces the flags below." short:"c" type:"existingfile"`
	Import string  `help:"Folder containing the PLY files." type:"path"`
	Export string  `help:"Folder receiving the DAE files." type:"path"`
	Scale  float64 `help:"Uniform scale factor." default:"1.0"`
	RX     float64 `help:"Rotation about X in degrees." name:"rx" default:"0"`
	RY     float64 `help:"Rotation about Y in degrees." name:"ry" default:"0"`
	RZ     float64 `help:"Rotation about Z in degrees." name:"rz" default:"0"`
	BaseZ  float64 `help:"Height the mesh center is placed at." name:"base-z" default:"0"`
}

func (r *RunCommand) config() (batchply.BatchConfig, error) {
	if r.Config != "" {
		return batchply.LoadConfig(r.Config)
	}
	return batchply.BatchConfig{
		ImportDir:  r.Import,
		ExportDir:  r.Export,
		Scale:      r.Scale,
		RotationX:  r.RX,
		RotationY:  r.RY,
		RotationZ:  r.RZ,
		BaseHeight: r.BaseZ,
	}, nil
}

func (r *RunCommand) Run(app *App) error {
	cfg, err := r.config()
	if err != nil {
		return err
	}
	// per-asset outcomes are logged by the pipeline as they happen
	_, err = batchply.NewRunner(cfg, app.Logger).Run()
	return err
}

func main() {
	command := new(Command)
	ctx := kong.Parse(
		command,
		kong.Name("batchply"),
		kong.Description("Batch convert PLY meshes to COLLADA scenes"),
	)
	err := ctx.Run(&App{
		Logger: batchply.NewLogger(os.Stderr, command.Verbose),
	})
	ctx.FatalIfErrorf(err)
}
