// Package history answers questions about the registry repository's past:
// what the index looked like at a reference, and which recent commits by a
// submitter touched it. Queries go through the Client interface so the rate
// limiter can be tested against canned history.
package history

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const gitTimeout = 30 * time.Second

// ErrNotExist reports that the requested file does not exist at the given
// reference. Callers treat a missing baseline index as an empty index.
var ErrNotExist = errors.New("file does not exist at reference")

// Commit identifies one commit that touched the index document.
type Commit struct {
	Hash   string
	Author string
	When   time.Time
}

// Client provides the version-control queries the gate needs.
type Client interface {
	// ShowFileAt returns the contents of path as of ref. A path absent
	// at ref yields ErrNotExist.
	ShowFileAt(ctx context.Context, ref, path string) ([]byte, error)

	// LogSince lists commits authored by author since the given time
	// that touched path, newest first.
	LogSince(ctx context.Context, author, path string, since time.Time) ([]Commit, error)

	// Diff returns the textual diff of path introduced by the commit.
	Diff(ctx context.Context, hash, path string) (string, error)
}

// GitClient runs git against a repository working directory.
type GitClient struct {
	dir string
}

// NewGitClient creates a client for the repository at dir.
func NewGitClient(dir string) *GitClient {
	return &GitClient{dir: dir}
}

func (g *GitClient) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// ShowFileAt implements Client via git show ref:path.
func (g *GitClient) ShowFileAt(ctx context.Context, ref, path string) ([]byte, error) {
	out, err := g.run(ctx, "show", ref+":"+path)
	if err != nil {
		if missingAtRef(out) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return []byte(out), nil
}

// missingAtRef recognizes the git show messages for a path absent at the
// requested reference, as opposed to genuine command failures.
func missingAtRef(out string) bool {
	return strings.Contains(out, "does not exist") ||
		strings.Contains(out, "exists on disk, but not in")
}

// LogSince implements Client via git log. Author matching uses git's own
// --author semantics (substring match against "Name <email>").
func (g *GitClient) LogSince(ctx context.Context, author, path string, since time.Time) ([]Commit, error) {
	out, err := g.run(ctx, "log",
		"--author="+author,
		"--since="+since.Format(time.RFC3339),
		"--format=%H%x09%an%x09%at",
		"--", path)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected git log line: %q", line)
		}
		epoch, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected commit timestamp in %q: %w", line, err)
		}
		commits = append(commits, Commit{
			Hash:   parts[0],
			Author: parts[1],
			When:   time.Unix(epoch, 0),
		})
	}
	return commits, nil
}

// Diff implements Client via git show, restricted to path, with the commit
// message header suppressed.
func (g *GitClient) Diff(ctx context.Context, hash, path string) (string, error) {
	return g.run(ctx, "show", hash, "--format=", "--", path)
}
