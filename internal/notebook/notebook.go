package notebook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the notebook file extension the pipeline selects on.
const Extension = ".ipynb"

// Notebook represents one discovered notebook and its derived artifacts.
type Notebook struct {
	Name      string // file name without extension
	Path      string // absolute path to the notebook file
	ScriptExt string // extension for the converted script form, e.g. ".jl"
}

// FileName returns the notebook file name including extension.
func (n Notebook) FileName() string { return n.Name + Extension }

// ScriptName returns the derived script artifact name.
func (n Notebook) ScriptName() string { return n.Name + n.ScriptExt }

// MarkdownName returns the derived markdown artifact name.
func (n Notebook) MarkdownName() string { return n.Name + ".md" }

// kernelMeta is the slice of notebook JSON we actually look at. Notebook
// content is otherwise opaque input.
type kernelMeta struct {
	Metadata struct {
		LanguageInfo struct {
			FileExtension string `json:"file_extension"`
		} `json:"language_info"`
	} `json:"metadata"`
}

// Discover lists sourceDir (non-recursive) and returns entries carrying the
// notebook extension. Hidden files are skipped. No ordering is guaranteed
// beyond what the directory listing provides; callers must not depend on it.
func Discover(sourceDir string) ([]Notebook, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", sourceDir, err)
	}

	var notebooks []Notebook
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(name, Extension) {
			continue
		}

		path, err := filepath.Abs(filepath.Join(sourceDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path for %s: %w", name, err)
		}

		nb := Notebook{
			Name:      strings.TrimSuffix(name, Extension),
			Path:      path,
			ScriptExt: scriptExtension(path),
		}
		notebooks = append(notebooks, nb)
		slog.Debug("Discovered notebook", slog.String("file", name), slog.String("script_ext", nb.ScriptExt))
	}

	slog.Info("Notebook discovery completed", slog.String("dir", sourceDir), slog.Int("count", len(notebooks)))
	return notebooks, nil
}

// scriptExtension reads the notebook's language_info.file_extension so the
// script artifact name matches the kernel language. Falls back to ".jl"
// when the metadata is absent or unreadable.
func scriptExtension(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("Could not read notebook metadata", slog.String("path", path), slog.Any("error", err))
		return ".jl"
	}
	var meta kernelMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Debug("Could not parse notebook metadata", slog.String("path", path), slog.Any("error", err))
		return ".jl"
	}
	ext := meta.Metadata.LanguageInfo.FileExtension
	if ext == "" {
		return ".jl"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
