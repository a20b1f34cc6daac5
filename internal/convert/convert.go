// Package convert shells out to the external notebook converter. The
// converter is an opaque collaborator: nbpublish never parses or executes
// notebook cells itself, it only drives the subprocess argument contract.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"git.home.luguber.info/inful/nbpublish/internal/notebook"
)

// Target selects the converter output form.
type Target string

const (
	TargetScript   Target = "script"
	TargetMarkdown Target = "markdown"
)

// ErrConverterNotFound is returned when the converter binary is not on PATH.
var ErrConverterNotFound = errors.New("notebook converter binary not found")

// Options configures a Converter.
type Options struct {
	Bin         string        // converter binary, e.g. "jupyter-nbconvert"
	Kernel      string        // execution kernel name
	CellTimeout time.Duration // per-cell execution timeout enforced by the converter
	Template    string        // template name, markdown target only
}

// Converter invokes the external conversion tool.
type Converter struct {
	opts Options
}

// New builds a Converter and verifies the binary is resolvable. The
// orchestrator imposes no supervisory timeout of its own; the per-cell
// timeout is the converter's to enforce.
func New(opts Options) (*Converter, error) {
	if _, err := exec.LookPath(opts.Bin); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConverterNotFound, opts.Bin, err)
	}
	return &Converter{opts: opts}, nil
}

// Run converts one notebook into the given target form, writing the result
// into outputDir. Non-zero exit is a hard failure; there is no retry.
func (c *Converter) Run(ctx context.Context, nb notebook.Notebook, target Target, outputDir string) error {
	args := []string{
		"--to", string(target),
		fmt.Sprintf("--ExecutePreprocessor.kernel_name=%s", c.opts.Kernel),
		fmt.Sprintf("--ExecutePreprocessor.timeout=%d", int(c.opts.CellTimeout.Seconds())),
		"--output-dir=" + outputDir,
	}
	if target == TargetMarkdown {
		if c.opts.Template != "" {
			args = append(args, "--template", c.opts.Template)
		}
		// Markdown form carries executed outputs and figures.
		args = append(args, "--execute")
	}
	args = append(args, nb.Path)

	cmd := exec.CommandContext(ctx, c.opts.Bin, args...)
	cmd.Stdout = slogWriter{level: slog.LevelDebug, notebook: nb.FileName()}
	cmd.Stderr = slogWriter{level: slog.LevelDebug, notebook: nb.FileName()}

	slog.Info("Converting notebook",
		slog.String("notebook", nb.FileName()),
		slog.String("target", string(target)),
		slog.String("output_dir", outputDir))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("conversion to %s failed for %s: %w", target, nb.FileName(), err)
	}
	slog.Debug("Conversion finished",
		slog.String("notebook", nb.FileName()),
		slog.String("target", string(target)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
