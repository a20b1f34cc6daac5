package publish

import (
	"log/slog"

	git "github.com/go-git/go-git/v5"
)

// inspectDestination logs the git state of the destination when it sits
// inside a work tree (the destinations are sibling documentation/website
// repositories). Informational only: a dirty tree or a plain directory
// never blocks the copy.
func inspectDestination(dest string) {
	repo, err := git.PlainOpenWithOptions(dest, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("Destination is not a git work tree", slog.String("dest", dest))
		return
	}

	head, err := repo.Head()
	if err != nil {
		slog.Debug("Could not resolve destination HEAD", slog.String("dest", dest), slog.Any("error", err))
		return
	}

	dirty := false
	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			dirty = !status.IsClean()
		}
	}

	slog.Info("Destination repository",
		slog.String("dest", dest),
		slog.String("branch", head.Name().Short()),
		slog.Bool("dirty", dirty))
}
