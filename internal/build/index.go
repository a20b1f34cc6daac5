package build

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// writeIndex renders markdown_dir/index.md linking every notebook whose
// markdown artifact exists. Titles come from the first level-1 heading of
// the rendered page, falling back to a title-cased file name.
func (p *Publisher) writeIndex(report *Report) error {
	type entry struct {
		name  string // markdown file name
		title string
	}

	var entries []entry
	for _, f := range report.Files {
		if f.Status == StatusFailed {
			continue
		}
		mdName := strings.TrimSuffix(f.Notebook, filepath.Ext(f.Notebook)) + ".md"
		mdPath := filepath.Join(p.cfg.MarkdownDir, mdName)
		data, err := os.ReadFile(mdPath)
		if err != nil {
			// Skipped notebooks may predate index generation; tolerate.
			slog.Debug("Index: markdown artifact missing", slog.String("path", mdPath))
			continue
		}
		title := extractTitle(data)
		if title == "" {
			title = fallbackTitle(strings.TrimSuffix(mdName, ".md"))
		}
		entries = append(entries, entry{name: mdName, title: title})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.cfg.Index.Title)
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s](%s)\n", e.title, e.name)
	}

	indexPath := filepath.Join(p.cfg.MarkdownDir, "index.md")
	if err := os.WriteFile(indexPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	slog.Info("Wrote examples index", slog.String("path", indexPath), slog.Int("entries", len(entries)))
	return nil
}

// extractTitle returns the text of the first level-1 ATX heading, or "".
func extractTitle(source []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		for c := heading.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		title = strings.TrimSpace(sb.String())
		return ast.WalkStop, nil
	})
	return title
}

// fallbackTitle turns a file name like "particle-in-lattice" into
// "Particle In Lattice".
func fallbackTitle(name string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.English).String(cleaned)
}
