// uvcast is a CLI for projecting per-camera textures onto meshes: it
// selects faces per camera, computes UV layers and exports a textured
// GLB.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/uvcast/uvcast/internal/batch"
	"github.com/uvcast/uvcast/internal/config"
	"github.com/uvcast/uvcast/internal/export"
	"github.com/uvcast/uvcast/internal/logger"
	"github.com/uvcast/uvcast/internal/mapper"
	"github.com/uvcast/uvcast/pkg/formats"
	"github.com/uvcast/uvcast/pkg/geometry"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "map":
		cmdMap(args)
	case "batch":
		cmdBatch(args)
	case "info":
		cmdInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`uvcast - camera-projection UV mapping for meshes

Usage:
  uvcast <command> [options] <args>

Commands:
  map <input.ply> <cameras.yaml> <output.glb>    Map one mesh and export GLB
  batch <input_dir> <cameras.yaml> <output_dir>  Map every mesh in a directory
  info <input.ply>                               Show mesh statistics

Options (map and batch, before positional args):
  -config <file>      Config file (default: ./uvcast.yaml)
  -log <file>         Also log to a rotating file
  -debug              Debug logging
  -projection <mode>  orthographic or perspective
  -extent <units>     Orthographic view width
  -fov <degrees>      Perspective field of view

Batch options:
  -workers <n>        Parallel workers
  -report <file>      Write a YAML run report

Examples:
  uvcast map model.ply cameras.yaml model.glb
  uvcast batch -workers 8 -report run.yaml ./meshes cameras.yaml ./out
  uvcast info model.ply`)
}

// sharedFlags holds the options map and batch have in common.
type sharedFlags struct {
	configPath string
	logFile    string
	debug      bool
	projection string
	extent     float64
	fov        float64
}

func registerShared(fs *flag.FlagSet) *sharedFlags {
	sf := &sharedFlags{}
	fs.StringVar(&sf.configPath, "config", "", "config file path")
	fs.StringVar(&sf.logFile, "log", "", "log to this file as well as stderr")
	fs.BoolVar(&sf.debug, "debug", false, "enable debug logging")
	fs.StringVar(&sf.projection, "projection", "", "projection mode: orthographic or perspective")
	fs.Float64Var(&sf.extent, "extent", 0, "orthographic view width in world units")
	fs.Float64Var(&sf.fov, "fov", 0, "perspective field of view in degrees")
	return sf
}

// setup loads the config, applies flag overrides and initializes
// logging.
func (sf *sharedFlags) setup() (*config.Config, mapper.Projection, error) {
	cfg, err := config.Load(sf.configPath)
	if err != nil {
		return nil, mapper.Projection{}, err
	}

	if sf.debug {
		cfg.Logging.Level = "debug"
	}
	if sf.logFile != "" {
		cfg.Logging.LogFile = sf.logFile
	}
	if sf.projection != "" {
		cfg.Projection.Mode = sf.projection
	}
	if sf.extent > 0 {
		cfg.Projection.Extent = sf.extent
	}
	if sf.fov > 0 {
		cfg.Projection.FOVDegrees = sf.fov
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, mapper.Projection{}, err
	}

	mode, err := mapper.ParseProjectionMode(cfg.Projection.Mode)
	if err != nil {
		return nil, mapper.Projection{}, err
	}
	proj := mapper.Projection{
		Mode:       mode,
		Extent:     cfg.Projection.Extent,
		FOVDegrees: cfg.Projection.FOVDegrees,
	}
	if proj.Mode == mapper.Orthographic && proj.Extent <= 0 {
		return nil, mapper.Projection{}, fmt.Errorf("projection extent must be positive, got %g", proj.Extent)
	}
	if proj.Mode == mapper.Perspective && (proj.FOVDegrees <= 0 || proj.FOVDegrees >= 180) {
		return nil, mapper.Projection{}, fmt.Errorf("fov must be between 0 and 180 degrees, got %g", proj.FOVDegrees)
	}

	return cfg, proj, nil
}

func cmdMap(args []string) {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	sf := registerShared(fs)
	fs.Parse(args)

	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "Usage: uvcast map [options] <input.ply> <cameras.yaml> <output.glb>")
		os.Exit(1)
	}

	cfg, proj, err := sf.setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	inputPath, cameraPath, outputPath := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	cameras, err := config.LoadCameras(cameraPath, cfg.Selection.DefaultEpsilon)
	if err != nil {
		logger.Error("loading cameras", zap.Error(err))
		os.Exit(1)
	}
	if err := config.CheckTextures(cameras); err != nil {
		logger.Error("checking textures", zap.Error(err))
		os.Exit(1)
	}

	if err := runMap(inputPath, outputPath, cameras, proj); err != nil {
		logger.Error("mapping failed", zap.Error(err))
		os.Exit(1)
	}
}

// runMap runs the single-mesh pipeline: parse, map, export.
func runMap(inputPath, outputPath string, cameras []geometry.Camera, proj mapper.Projection) error {
	ply, err := formats.ParsePLYFile(inputPath)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", inputPath, err)
	}
	logger.Info("mesh loaded",
		zap.String("input", inputPath),
		zap.String("format", ply.Format.String()),
		zap.Int("vertices", ply.VertexCount()),
		zap.Int("faces", ply.FaceCount()))

	mesh, err := geometry.NewMeshFromArrays(ply.Vertices, ply.Faces)
	if err != nil {
		return fmt.Errorf("building mesh: %w", err)
	}

	result, err := mapper.Process(mesh, cameras, proj)
	if err != nil {
		return err
	}
	for _, d := range result.Diagnostics {
		logger.Warn("mapping diagnostic", zap.String("diagnostic", d.String()))
	}

	name := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	model, err := export.BuildModel(result, name)
	if err != nil {
		return fmt.Errorf("building export model: %w", err)
	}
	if err := formats.WriteGLBFile(outputPath, model); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	logger.Info("mesh mapped",
		zap.String("output", outputPath),
		zap.Int("faces", len(mesh.Faces)),
		zap.Int("unassigned", result.UnassignedCount()),
		zap.Int("cameras", len(cameras)))
	return nil
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	sf := registerShared(fs)
	workers := fs.Int("workers", 0, "parallel workers (default from config)")
	reportPath := fs.String("report", "", "write a YAML run report to this path")
	fs.Parse(args)

	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "Usage: uvcast batch [options] <input_dir> <cameras.yaml> <output_dir>")
		os.Exit(1)
	}

	cfg, proj, err := sf.setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	inputDir, cameraPath, outputDir := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	cameras, err := config.LoadCameras(cameraPath, cfg.Selection.DefaultEpsilon)
	if err != nil {
		logger.Error("loading cameras", zap.Error(err))
		os.Exit(1)
	}
	if err := config.CheckTextures(cameras); err != nil {
		logger.Error("checking textures", zap.Error(err))
		os.Exit(1)
	}

	runner := batch.NewRunner(cameras, proj)
	if cfg.Batch.Workers > 0 {
		runner.Workers = cfg.Batch.Workers
	}
	if *workers > 0 {
		runner.Workers = *workers
	}
	if cfg.Batch.Extension != "" {
		runner.Extension = cfg.Batch.Extension
	}

	report, err := runner.Run(inputDir, outputDir)
	if err != nil {
		logger.Error("batch run failed", zap.Error(err))
		os.Exit(1)
	}

	if *reportPath != "" {
		if err := report.SaveYAML(*reportPath); err != nil {
			logger.Error("saving report", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("report written", zap.String("path", *reportPath))
	}

	fmt.Printf("Processed %d files: %d succeeded, %d failed\n",
		len(report.Files), report.Succeeded(), report.Failed())
	for _, f := range report.Files {
		if f.Failed() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Input, f.Error)
		}
	}

	if report.Failed() > 0 {
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: uvcast info <input.ply>")
		os.Exit(1)
	}

	ply, err := formats.ParsePLYFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mesh, err := geometry.NewMeshFromArrays(ply.Vertices, ply.Faces)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bounds := mesh.Bounds()
	size := bounds.Size()

	fmt.Printf("Mesh:      %s\n", args[0])
	fmt.Printf("Format:    %s\n", ply.Format)
	fmt.Printf("Vertices:  %d\n", len(mesh.Vertices))
	fmt.Printf("Faces:     %d\n", len(mesh.Faces))
	fmt.Printf("Triangles: %d\n", mesh.TriangleCount())
	fmt.Printf("Bounds:    min (%.3f, %.3f, %.3f)  max (%.3f, %.3f, %.3f)\n",
		bounds.Min.X(), bounds.Min.Y(), bounds.Min.Z(),
		bounds.Max.X(), bounds.Max.Y(), bounds.Max.Z())
	fmt.Printf("Size:      %.3f x %.3f x %.3f\n", size.X(), size.Y(), size.Z())

	if len(ply.Comments) > 0 {
		fmt.Println("Comments:")
		for _, c := range ply.Comments {
			fmt.Printf("  %s\n", c)
		}
	}
}
