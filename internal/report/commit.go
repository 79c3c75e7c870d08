package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/j-veylop/sbu-reporter/internal/logger"
)

// Artifact is one output file of a run.
type Artifact struct {
	Name string
	// Render writes the artifact to path, which already exists and is empty.
	Render func(path string) error
}

// StreamArtifact builds an artifact from a writer function.
func StreamArtifact(name string, write func(w io.Writer) error) Artifact {
	return Artifact{
		Name: name,
		Render: func(path string) error {
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			bw := bufio.NewWriter(f)
			if err := write(bw); err != nil {
				_ = f.Close()
				return err
			}
			if err := bw.Flush(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}

// Commit renders every artifact into a temporary file in dir and moves them
// into place only once all of them succeeded. If a move fails, the files
// already moved are removed again. It returns the final paths.
func Commit(dir string, artifacts []Artifact) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	temps := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, p := range temps {
			_ = os.Remove(p)
		}
	}

	for _, a := range artifacts {
		f, err := os.CreateTemp(dir, "."+a.Name+".*.tmp")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create temp file for %s: %w", a.Name, err)
		}
		temps = append(temps, f.Name())
		if err := f.Close(); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create temp file for %s: %w", a.Name, err)
		}

		if err := a.Render(f.Name()); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to render %s: %w", a.Name, err)
		}
	}

	paths := make([]string, 0, len(artifacts))
	for i, a := range artifacts {
		final := filepath.Join(dir, a.Name)
		if err := os.Chmod(temps[i], 0o644); err != nil {
			logger.Warn("Failed to set report permissions", "file", final, "error", err)
		}
		if err := os.Rename(temps[i], final); err != nil {
			cleanup()
			// A report missing some of its files must not look finished.
			for _, p := range paths {
				_ = os.Remove(p)
			}
			return nil, errors.Join(fmt.Errorf("failed to move %s into place", a.Name), err)
		}
		paths = append(paths, final)
	}
	return paths, nil
}
