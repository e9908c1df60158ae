package history

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// newPackageLine matches an added diff line that opens a new top-level key
// in the index document. This is a heuristic: it approximates "this commit
// introduced a package" from diff text and may over- or under-count (a
// commit adding several packages still counts once; deeply indented version
// keys do not match).
var newPackageLine = regexp.MustCompile(`^\+\s{0,2}"[^"]+"\s*:\s*\{`)

// LimiterConfig tunes the new-package submission limiter.
type LimiterConfig struct {
	// IndexPath is the index document path inside the repository.
	IndexPath string
	// TrustedUsers are glob patterns for identities that bypass the
	// limiter entirely (e.g. "release-bot", "svc-*").
	TrustedUsers []string
	// Limit is the number of counted submissions at which auto-merge is
	// denied.
	Limit int
	// Window is how far back history is consulted.
	Window time.Duration
}

// DefaultLimiterConfig allows one new package per trailing week.
func DefaultLimiterConfig(indexPath string) LimiterConfig {
	return LimiterConfig{
		IndexPath: indexPath,
		Limit:     1,
		Window:    7 * 24 * time.Hour,
	}
}

// Limiter gates auto-merge for new package submissions. It is advisory:
// its answer never fails validation, it only withholds the auto-merge
// recommendation.
type Limiter struct {
	client Client
	cfg    LimiterConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter over the given history client.
func NewLimiter(client Client, cfg LimiterConfig, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{client: client, cfg: cfg, logger: logger, now: time.Now}
}

// Allow reports whether a new-package submission by submitter may be
// auto-merged. Trusted identities always pass. Any failure to query
// history degrades to allow with a warning: rate limiting is a heuristic
// guard, not a validation authority.
func (l *Limiter) Allow(ctx context.Context, submitter string) bool {
	if l.trusted(submitter) {
		l.logger.Info("trusted identity, skipping rate limit", "submitter", submitter)
		return true
	}

	since := l.now().Add(-l.cfg.Window)
	commits, err := l.client.LogSince(ctx, submitter, l.cfg.IndexPath, since)
	if err != nil {
		l.logger.Warn("rate limit history query failed, allowing auto-merge", "submitter", submitter, "error", err)
		return true
	}

	count := 0
	for _, c := range commits {
		diff, err := l.client.Diff(ctx, c.Hash, l.cfg.IndexPath)
		if err != nil {
			l.logger.Warn("rate limit diff query failed, allowing auto-merge", "commit", c.Hash, "error", err)
			return true
		}
		if addsTopLevelKey(diff) {
			count++
		}
	}

	if count >= l.cfg.Limit {
		l.logger.Info("rate limit reached, denying auto-merge",
			"submitter", submitter, "recent_submissions", count, "limit", l.cfg.Limit)
		return false
	}
	return true
}

func (l *Limiter) trusted(submitter string) bool {
	for _, pattern := range l.cfg.TrustedUsers {
		if ok, err := doublestar.Match(pattern, submitter); err == nil && ok {
			return true
		}
	}
	return false
}

// addsTopLevelKey reports whether the diff contains at least one added line
// introducing a top-level index key. A matching commit counts as exactly
// one submission no matter how many keys it added.
func addsTopLevelKey(diff string) bool {
	for _, line := range strings.Split(diff, "\n") {
		if newPackageLine.MatchString(line) {
			return true
		}
	}
	return false
}
