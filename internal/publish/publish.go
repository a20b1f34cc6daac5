// Package publish mirrors generated artifact directories into external
// destination directories with force-copy semantics: colliding files are
// overwritten, unrelated destination files are left in place.
package publish

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Target is one (local output directory → external destination) pair.
type Target struct {
	Name   string // short label for logs, e.g. "docs"
	Source string
	Dest   string
}

// Publish force-copies every target in order. The copy step is the single
// non-concurrent final phase of a run; a failure aborts immediately.
func Publish(targets []Target) error {
	for _, t := range targets {
		slog.Info("Publishing", slog.String("target", t.Name), slog.String("source", t.Source), slog.String("dest", t.Dest))
		inspectDestination(t.Dest)
		if err := CopyDir(t.Source, t.Dest); err != nil {
			return fmt.Errorf("failed to publish %s: %w", t.Name, err)
		}
	}
	return nil
}

// CopyDir recursively copies src into dest, creating directories as needed
// and overwriting files that already exist. File modes are preserved.
func CopyDir(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source is not a directory: %s", src)
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
