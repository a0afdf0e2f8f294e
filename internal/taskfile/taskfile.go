// Package taskfile loads task batches from YAML files for the run and top
// commands. A task file names the work to submit and, for simulation, how
// long each task runs and whether it fails.
package taskfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Spec describes one task to submit.
type Spec struct {
	// ID is the task identifier. Empty IDs get generated ones at submit.
	ID string `yaml:"id"`
	// Priority orders dispatch; higher runs first. Defaults to 0.
	Priority int `yaml:"priority"`
	// Payload is the opaque work description handed to the pool.
	Payload string `yaml:"payload"`
	// DurationMs is how long the simulated execution takes. Defaults to
	// DefaultDurationMs.
	DurationMs int `yaml:"duration_ms"`
	// Fail marks the task as one the agent will report as failed.
	Fail bool `yaml:"fail"`
}

// File is the top-level task file structure.
type File struct {
	Tasks []Spec `yaml:"tasks"`
}

// DefaultDurationMs is the simulated execution time for tasks that do not
// set one.
const DefaultDurationMs = 500

// Duration returns the simulated execution time for the task.
func (s Spec) Duration() time.Duration {
	ms := s.DurationMs
	if ms <= 0 {
		ms = DefaultDurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Load reads and parses a task file.
func Load(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return Parse(data)
}

// Parse parses task file contents.
func Parse(data []byte) ([]Spec, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("task file has no tasks")
	}

	seen := make(map[string]struct{}, len(f.Tasks))
	for i, t := range f.Tasks {
		if t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("task %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return f.Tasks, nil
}
