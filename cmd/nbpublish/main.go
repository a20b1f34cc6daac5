package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nbpublish/internal/build"
	"git.home.luguber.info/inful/nbpublish/internal/config"
	"git.home.luguber.info/inful/nbpublish/internal/convert"
	"git.home.luguber.info/inful/nbpublish/internal/daemon"
	"git.home.luguber.info/inful/nbpublish/internal/events"
	"git.home.luguber.info/inful/nbpublish/internal/metrics"
	"git.home.luguber.info/inful/nbpublish/internal/notebook"
	"git.home.luguber.info/inful/nbpublish/internal/state"
)

const defaultConfigPath = "nbpublish.yaml"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"nbpublish.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Source      string `short:"s" help:"Notebook source directory (overrides config)"`
		Overwrite   *bool  `negatable:"" help:"Reconvert notebooks whose markdown output already exists (overrides config, default true)"`
		Jobs        int    `short:"j" help:"Concurrent conversions (overrides config)"`
		SkipPublish bool   `help:"Convert only, do not copy to destination repositories"`
		DryRun      bool   `help:"List what would be converted without running the converter"`
	} `cmd:"" help:"Convert all notebooks and publish the results"`

	Discover struct{} `cmd:"" help:"List notebooks that would be converted"`

	Publish struct{} `cmd:"" help:"Copy existing local output to the destination repositories"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a default configuration file"`

	History struct {
		Limit int  `short:"n" default:"10" help:"Number of builds to show"`
		Files bool `help:"Show per-notebook results for each build"`
	} `cmd:"" help:"Show recent build history"`

	Daemon struct{} `cmd:"" help:"Watch the notebook directory and rebuild on change"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nbpublish: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr, CLI.Verbose))

	switch ctx.Command() {
	case "build":
		if err := runBuild(cfg); err != nil {
			slog.Error("Build failed", slog.Any("error", err))
			os.Exit(1)
		}
	case "discover":
		if err := runDiscover(cfg); err != nil {
			slog.Error("Discover failed", slog.Any("error", err))
			os.Exit(1)
		}
	case "publish":
		if err := runPublish(cfg); err != nil {
			slog.Error("Publish failed", slog.Any("error", err))
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("Configuration written", slog.String("path", CLI.Config))
	case "history":
		if err := runHistory(cfg); err != nil {
			slog.Error("History failed", slog.Any("error", err))
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// loadConfig treats the default config path as optional; an explicitly
// given path must exist.
func loadConfig() (*config.Config, error) {
	return config.Load(CLI.Config, CLI.Config == defaultConfigPath)
}

// applyBuildFlags layers build command flags over the loaded config. A flag
// left unset keeps the config value, so `overwrite: false` in the file is
// honored unless --overwrite/--no-overwrite is passed explicitly.
func applyBuildFlags(cfg *config.Config) {
	if CLI.Build.Source != "" {
		cfg.SourceDir = CLI.Build.Source
	}
	if CLI.Build.Jobs > 0 {
		cfg.Jobs = CLI.Build.Jobs
	}
	if CLI.Build.Overwrite != nil {
		overwrite := *CLI.Build.Overwrite
		cfg.Overwrite = &overwrite
	}
}

func runBuild(cfg *config.Config) error {
	applyBuildFlags(cfg)

	// A dry run only lists derived artifact names; it needs neither the
	// converter binary nor the observability sinks.
	if CLI.Build.DryRun {
		publisher := build.NewPublisher(cfg, nil, nil, nil, nil)
		_, err := publisher.Run(context.Background(), build.Options{DryRun: true})
		return err
	}

	converter, err := convert.New(convert.Options{
		Bin:         cfg.ConverterBin,
		Kernel:      cfg.Kernel,
		CellTimeout: cfg.CellTimeoutDuration(),
		Template:    cfg.Template,
	})
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(nil)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ev, err := connectEvents(cfg)
	if err != nil {
		return err
	}
	defer ev.Close()

	publisher := build.NewPublisher(cfg, converter, recorder, store, ev)
	_, err = publisher.Run(context.Background(), build.Options{
		SkipPublish: CLI.Build.SkipPublish,
	})
	return err
}

func runDiscover(cfg *config.Config) error {
	notebooks, err := notebook.Discover(cfg.SourceDir)
	if err != nil {
		return err
	}
	for _, nb := range notebooks {
		fmt.Printf("%s -> %s, %s\n", nb.FileName(), nb.ScriptName(), nb.MarkdownName())
	}
	fmt.Printf("%d notebook(s)\n", len(notebooks))
	return nil
}

func runPublish(cfg *config.Config) error {
	publisher := build.NewPublisher(cfg, nil, nil, nil, nil)
	return publisher.Publish()
}

func runHistory(cfg *config.Config) error {
	if cfg.State.Disabled {
		return fmt.Errorf("build history is disabled in configuration")
	}
	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	builds, err := store.RecentBuilds(ctx, CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		fmt.Println("no builds recorded")
		return nil
	}

	for _, b := range builds {
		fmt.Printf("%s  %s  %-7s  converted=%d skipped=%d failed=%d  (%s)\n",
			b.Started.Format(time.RFC3339), b.ID[:8], b.Outcome,
			b.Converted, b.Skipped, b.Failed,
			b.Finished.Sub(b.Started).Round(time.Second))
		if !CLI.History.Files {
			continue
		}
		files, err := store.BuildFiles(ctx, b.ID)
		if err != nil {
			return err
		}
		for _, f := range files {
			line := fmt.Sprintf("    %-40s %s", f.Notebook, f.Status)
			if f.Error != "" {
				line += "  " + f.Error
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runDaemon(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	converter, err := convert.New(convert.Options{
		Bin:         cfg.ConverterBin,
		Kernel:      cfg.Kernel,
		CellTimeout: cfg.CellTimeoutDuration(),
		Template:    cfg.Template,
	})
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(nil)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ev, err := connectEvents(cfg)
	if err != nil {
		return err
	}
	defer ev.Close()

	publisher := build.NewPublisher(cfg, converter, recorder, store, ev)
	return daemon.New(cfg, publisher, recorder).Run(ctx)
}

func openStore(cfg *config.Config) (*state.Store, error) {
	if cfg.State.Disabled {
		return nil, nil
	}
	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

func connectEvents(cfg *config.Config) (*events.Publisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	return events.Connect(cfg.Events.NATSURL, cfg.Events.Subject)
}
