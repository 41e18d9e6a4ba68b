package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileResult records the outcome of one input mesh.
type FileResult struct {
	Input      string   `yaml:"input"`
	Output     string   `yaml:"output,omitempty"`
	Faces      int      `yaml:"faces"`
	Owned      int      `yaml:"owned"`
	Unassigned int      `yaml:"unassigned"`
	Warnings   []string `yaml:"warnings,omitempty"`
	Error      string   `yaml:"error,omitempty"`
	Elapsed    string   `yaml:"elapsed"`
}

// Failed reports whether the file ended in an error.
func (fr FileResult) Failed() bool {
	return fr.Error != ""
}

// Report aggregates one batch run for logs, exit codes and the optional
// YAML report file.
type Report struct {
	RunID     string       `yaml:"run_id"`
	InputDir  string       `yaml:"input_dir"`
	OutputDir string       `yaml:"output_dir"`
	Workers   int          `yaml:"workers"`
	StartedAt time.Time    `yaml:"started_at"`
	Elapsed   string       `yaml:"elapsed"`
	Files     []FileResult `yaml:"files"`
}

// Succeeded returns the number of files that produced an output.
func (r *Report) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if !f.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that ended in an error.
func (r *Report) Failed() int {
	return len(r.Files) - r.Succeeded()
}

// SaveYAML writes the report to the given path, creating parent
// directories as needed.
func (r *Report) SaveYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
