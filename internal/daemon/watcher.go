package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/nbpublish/internal/notebook"
)

// sourceWatcher monitors the notebook source directory and fires the
// trigger function after a debounce window, so a burst of editor writes
// collapses into one rebuild.
type sourceWatcher struct {
	sourceDir string
	debounce  time.Duration
	trigger   func(reason string)
	watcher   *fsnotify.Watcher
}

func newSourceWatcher(sourceDir string, debounce time.Duration, trigger func(reason string)) (*sourceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	if err := w.Add(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	return &sourceWatcher{sourceDir: abs, debounce: debounce, trigger: trigger, watcher: w}, nil
}

// run processes events until ctx is cancelled. Only notebook files count;
// editor temp files and unrelated artifacts are ignored.
func (sw *sourceWatcher) run(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		sw.watcher.Close()
	}()

	slog.Info("Watching notebook directory", slog.String("dir", sw.sourceDir), slog.Duration("debounce", sw.debounce))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.relevant(event) {
				continue
			}
			slog.Debug("Notebook change detected", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			name := filepath.Base(event.Name)
			timer = time.AfterFunc(sw.debounce, func() {
				sw.trigger("notebook change: " + name)
			})
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", slog.Any("error", err))
		}
	}
}

func (sw *sourceWatcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !strings.HasSuffix(name, notebook.Extension) {
		return false
	}
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename)
}
