package models

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// ErrOutputUnavailable means the output directory cannot be listed.
var ErrOutputUnavailable = errors.New("output directory unavailable")

// State is whether a model's artifact is present.
type State string

const (
	StateCompleted State = "completed"
	StateNotRun    State = "not_run"
)

// ModelStatus is a catalog entry with its current state.
type ModelStatus struct {
	Descriptor
	Status State `json:"status"`
}

// Artifact is a file in the output directory exposed to clients.
type Artifact struct {
	Name string `json:"name"`
	File string `json:"file"`
	Path string `json:"path"`
	Type string `json:"type,omitempty"`
}

// ArtifactURLPrefix is where the output directory is served.
const ArtifactURLPrefix = "/output/"

// Status reports every catalog model as completed when its output file
// exists in dir right now, else not_run. Nothing is cached between calls.
func (c *Catalog) Status(dir string) ([]ModelStatus, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	out := make([]ModelStatus, len(c.models))
	for i, d := range c.models {
		out[i] = ModelStatus{Descriptor: d, Status: StateNotRun}
		if files[d.OutputFile] {
			out[i].Status = StateCompleted
		}
	}
	return out, nil
}

// Predictions lists the files in dir whose name contains "pred" or
// "comparison", tagged with the display name of the model they belong to.
func (c *Catalog) Predictions(dir string) ([]Artifact, error) {
	names, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, name := range names {
		if !strings.Contains(name, "pred") && !strings.Contains(name, "comparison") {
			continue
		}
		a := newArtifact(name)
		a.Type = c.Classify(name).DisplayName
		out = append(out, a)
	}
	return out, nil
}

// Visualizations lists the .png files in dir.
func Visualizations(dir string) ([]Artifact, error) {
	names, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, name := range names {
		if strings.HasSuffix(name, ".png") {
			out = append(out, newArtifact(name))
		}
	}
	return out, nil
}

// DisplayName turns "cpu_usage_histogram.png" into "CPU USAGE HISTOGRAM".
func DisplayName(fileName string) string {
	name := strings.Replace(fileName, ".png", "", 1)
	return strings.ToUpper(strings.ReplaceAll(name, "_", " "))
}

func newArtifact(name string) Artifact {
	return Artifact{
		Name: DisplayName(name),
		File: name,
		Path: path.Join(ArtifactURLPrefix, name),
	}
}

// readDir returns the names of the regular entries of dir, sorted.
func readDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func listFiles(dir string) (map[string]bool, error) {
	names, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}
