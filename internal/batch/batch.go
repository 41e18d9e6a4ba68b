// Package batch runs the mapping pipeline over directories of mesh files.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uvcast/uvcast/internal/export"
	"github.com/uvcast/uvcast/internal/logger"
	"github.com/uvcast/uvcast/internal/mapper"
	"github.com/uvcast/uvcast/pkg/formats"
	"github.com/uvcast/uvcast/pkg/geometry"
)

// Batch errors.
var (
	ErrNoWorkers = errors.New("worker count must be at least 1")
	ErrNoInputs  = errors.New("no mesh files found")
)

// Runner maps every mesh file in a directory using a bounded worker
// pool. A failing file never stops the run; its error lands in the
// Report instead.
type Runner struct {
	Cameras    []geometry.Camera
	Projection mapper.Projection
	Workers    int
	Extension  string // matched case-insensitively, ".ply" when empty
}

// NewRunner returns a Runner with default worker and extension settings.
func NewRunner(cameras []geometry.Camera, proj mapper.Projection) *Runner {
	return &Runner{
		Cameras:    cameras,
		Projection: proj,
		Workers:    4,
		Extension:  ".ply",
	}
}

// Run processes every mesh file in inputDir and writes one .glb per
// input into outputDir. Inputs are taken in name order and results keep
// that order regardless of worker interleaving.
func (r *Runner) Run(inputDir, outputDir string) (*Report, error) {
	workers := r.Workers
	if workers < 1 {
		return nil, ErrNoWorkers
	}
	ext := r.Extension
	if ext == "" {
		ext = ".ply"
	}

	files, err := findMeshFiles(inputDir, ext)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputs, inputDir)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	start := time.Now()
	logger.Info("batch run started",
		zap.String("input_dir", inputDir),
		zap.String("output_dir", outputDir),
		zap.Int("files", len(files)),
		zap.Int("workers", workers))

	// Each worker writes only the result indices it pulled from the
	// jobs channel, so the slice needs no locking.
	results := make([]FileResult, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.processOne(files[i], outputDir)
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := &Report{
		RunID:     uuid.New().String(),
		InputDir:  inputDir,
		OutputDir: outputDir,
		Workers:   workers,
		StartedAt: start,
		Elapsed:   time.Since(start).Round(time.Millisecond).String(),
		Files:     results,
	}

	logger.Info("batch run finished",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.String("elapsed", report.Elapsed))

	return report, nil
}

// findMeshFiles lists mesh files directly under dir, sorted by name.
func findMeshFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// processOne runs the full pipeline for a single mesh file. Panics are
// contained so one bad file cannot take down the whole batch.
func (r *Runner) processOne(inputPath, outputDir string) (res FileResult) {
	start := time.Now()
	res.Input = inputPath
	defer func() {
		if p := recover(); p != nil {
			res.Error = fmt.Sprintf("panic: %v", p)
			logger.Error("mesh processing panicked",
				zap.String("input", inputPath),
				zap.Any("panic", p))
		}
		res.Elapsed = time.Since(start).Round(time.Millisecond).String()
	}()

	ply, err := formats.ParsePLYFile(inputPath)
	if err != nil {
		res.Error = fmt.Sprintf("parsing mesh: %v", err)
		return res
	}

	mesh, err := geometry.NewMeshFromArrays(ply.Vertices, ply.Faces)
	if err != nil {
		res.Error = fmt.Sprintf("building mesh: %v", err)
		return res
	}

	result, err := mapper.Process(mesh, r.Cameras, r.Projection)
	if err != nil {
		res.Error = fmt.Sprintf("mapping: %v", err)
		return res
	}

	res.Faces = len(mesh.Faces)
	res.Unassigned = result.UnassignedCount()
	res.Owned = res.Faces - res.Unassigned
	for _, d := range result.Diagnostics {
		res.Warnings = append(res.Warnings, d.String())
		logger.Warn("mapping diagnostic",
			zap.String("input", inputPath),
			zap.String("diagnostic", d.String()))
	}

	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	model, err := export.BuildModel(result, name)
	if err != nil {
		res.Error = fmt.Sprintf("building export model: %v", err)
		return res
	}

	outPath := filepath.Join(outputDir, name+".glb")
	if err := formats.WriteGLBFile(outPath, model); err != nil {
		res.Error = fmt.Sprintf("writing %s: %v", outPath, err)
		return res
	}

	res.Output = outPath
	logger.Debug("mesh mapped",
		zap.String("input", inputPath),
		zap.String("output", outPath),
		zap.Int("faces", res.Faces),
		zap.Int("unassigned", res.Unassigned))
	return res
}
