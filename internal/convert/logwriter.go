package convert

import (
	"context"
	"log/slog"
	"strings"
)

// slogWriter forwards converter process output to slog line by line so it
// lands in the structured log instead of raw stdout.
type slogWriter struct {
	level    slog.Level
	notebook string
}

func (w slogWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		slog.Default().Log(context.Background(), w.level, "converter: "+line, slog.String("notebook", w.notebook))
	}
	return len(p), nil
}
