// Package build orchestrates the notebook publishing pipeline: discover
// notebooks, convert each one to script and markdown form through the
// external converter, generate the examples index, and mirror the results
// into the destination repositories.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/nbpublish/internal/config"
	"git.home.luguber.info/inful/nbpublish/internal/convert"
	"git.home.luguber.info/inful/nbpublish/internal/events"
	"git.home.luguber.info/inful/nbpublish/internal/metrics"
	"git.home.luguber.info/inful/nbpublish/internal/notebook"
	"git.home.luguber.info/inful/nbpublish/internal/publish"
	"git.home.luguber.info/inful/nbpublish/internal/state"
)

// FileConverter is the subset of the converter the publisher needs. Tests
// substitute a fake; production wiring passes *convert.Converter.
type FileConverter interface {
	Run(ctx context.Context, nb notebook.Notebook, target convert.Target, outputDir string) error
}

// Options tunes a single run without touching the loaded config.
type Options struct {
	SkipPublish bool
	DryRun      bool
}

// Publisher runs the pipeline. Zero-value collaborators (nil recorder,
// store, events) are valid and become no-ops.
type Publisher struct {
	cfg       *config.Config
	converter FileConverter
	recorder  *metrics.Recorder
	store     *state.Store
	events    *events.Publisher
}

// NewPublisher wires a Publisher.
func NewPublisher(cfg *config.Config, converter FileConverter, recorder *metrics.Recorder, store *state.Store, ev *events.Publisher) *Publisher {
	return &Publisher{cfg: cfg, converter: converter, recorder: recorder, store: store, events: ev}
}

// Run executes one full pipeline pass. The returned report is non-nil even
// on failure so callers can log partial results; err carries the first
// failure (conversion, index, or publish).
func (p *Publisher) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{BuildID: uuid.NewString(), Started: time.Now()}

	slog.Info("Starting notebook publish run",
		slog.String("build_id", report.BuildID),
		slog.String("source", p.cfg.SourceDir),
		slog.Bool("overwrite", p.cfg.OverwriteEnabled()),
		slog.Int("jobs", p.cfg.Jobs))

	if err := p.ensureOutputDirs(); err != nil {
		return report, err
	}

	notebooks, err := notebook.Discover(p.cfg.SourceDir)
	if err != nil {
		return report, err
	}
	if len(notebooks) == 0 {
		slog.Warn("No notebooks found", slog.String("dir", p.cfg.SourceDir))
	}

	if opts.DryRun {
		for _, nb := range notebooks {
			slog.Info("Would convert",
				slog.String("notebook", nb.FileName()),
				slog.String("script", nb.ScriptName()),
				slog.String("markdown", nb.MarkdownName()))
		}
		report.Finished = time.Now()
		return report, nil
	}

	results := runPooled(ctx, notebooks, p.cfg.Jobs, func(nb notebook.Notebook) (FileResult, error) {
		res := p.processNotebook(ctx, nb)
		return res, res.Err
	})
	for i, r := range results {
		fr := r.Value
		// Notebooks the pool never dispatched (cancellation) carry only an
		// error; give them a proper failed result.
		if r.Err != nil && fr.Status == "" {
			fr = FileResult{Notebook: notebooks[i].FileName(), Status: StatusFailed, Err: r.Err}
		}
		report.Files = append(report.Files, fr)
	}

	report.Finished = time.Now()
	p.finishRun(ctx, report)

	if err := report.FirstError(); err != nil {
		return report, err
	}

	if p.cfg.IndexEnabled() {
		if err := p.writeIndex(report); err != nil {
			return report, err
		}
	}

	if !opts.SkipPublish {
		if err := p.Publish(); err != nil {
			return report, err
		}
	}

	converted, skipped, failed := report.Counts()
	slog.Info("Publish run completed",
		slog.String("build_id", report.BuildID),
		slog.Int("converted", converted),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
		slog.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

// ensureOutputDirs creates the local output directories. Idempotent:
// re-running against existing directories is a no-op.
func (p *Publisher) ensureOutputDirs() error {
	for _, dir := range []string{p.cfg.ScriptDir, p.cfg.MarkdownDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// processNotebook converts one notebook to both forms. Each notebook only
// writes artifacts derived from its own name, so concurrent calls for
// distinct notebooks never collide.
func (p *Publisher) processNotebook(ctx context.Context, nb notebook.Notebook) FileResult {
	start := time.Now()

	if !p.cfg.OverwriteEnabled() {
		mdPath := filepath.Join(p.cfg.MarkdownDir, nb.MarkdownName())
		if _, err := os.Stat(mdPath); err == nil {
			slog.Info("Skipping notebook, markdown output exists",
				slog.String("notebook", nb.FileName()),
				slog.String("markdown", mdPath))
			p.recorder.CountNotebook(string(StatusSkipped))
			return FileResult{Notebook: nb.FileName(), Status: StatusSkipped}
		}
	}

	for _, step := range []struct {
		target convert.Target
		outDir string
	}{
		{convert.TargetScript, p.cfg.ScriptDir},
		{convert.TargetMarkdown, p.cfg.MarkdownDir},
	} {
		p.recorder.ConversionStarted()
		stepStart := time.Now()
		err := p.converter.Run(ctx, nb, step.target, step.outDir)
		p.recorder.ObserveConversion(string(step.target), time.Since(stepStart))
		p.recorder.ConversionFinished()
		if err != nil {
			p.recorder.CountNotebook(string(StatusFailed))
			return FileResult{
				Notebook: nb.FileName(),
				Status:   StatusFailed,
				Duration: time.Since(start),
				Err:      err,
			}
		}
	}

	p.recorder.CountNotebook(string(StatusConverted))
	return FileResult{Notebook: nb.FileName(), Status: StatusConverted, Duration: time.Since(start)}
}

// Publish mirrors the markdown output and the code snippets into the
// sibling repositories. Exposed separately for the standalone publish
// command.
func (p *Publisher) Publish() error {
	return publish.Publish([]publish.Target{
		{Name: "docs", Source: p.cfg.MarkdownDir, Dest: p.cfg.DocsDest},
		{Name: "snippets", Source: p.cfg.SnippetsDir, Dest: p.cfg.WebsiteDest},
	})
}

// finishRun records the report in the state store, emits metrics and the
// build event. These are observability sinks: their failures are logged,
// never escalated into a run failure.
func (p *Publisher) finishRun(ctx context.Context, report *Report) {
	p.recorder.ObserveBuild(report.Outcome(), report.Finished.Sub(report.Started))

	converted, skipped, failed := report.Counts()
	fileRecords := make([]state.FileRecord, 0, len(report.Files))
	for _, f := range report.Files {
		rec := state.FileRecord{
			BuildID:  report.BuildID,
			Notebook: f.Notebook,
			Status:   string(f.Status),
			Duration: f.Duration,
		}
		if f.Err != nil {
			rec.Error = f.Err.Error()
		}
		fileRecords = append(fileRecords, rec)
	}
	err := p.store.RecordBuild(ctx, state.BuildRecord{
		ID:        report.BuildID,
		Started:   report.Started,
		Finished:  report.Finished,
		Outcome:   report.Outcome(),
		Converted: converted,
		Skipped:   skipped,
		Failed:    failed,
	}, fileRecords)
	if err != nil {
		slog.Warn("Failed to record build history", slog.Any("error", err))
	}

	if err := p.events.PublishBuild(events.BuildEvent{
		BuildID:   report.BuildID,
		Outcome:   report.Outcome(),
		Converted: converted,
		Skipped:   skipped,
		Failed:    failed,
		Started:   report.Started,
		Finished:  report.Finished,
	}); err != nil {
		slog.Warn("Failed to publish build event", slog.Any("error", err))
	}
}
