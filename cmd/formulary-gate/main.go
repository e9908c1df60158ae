// Package main provides the formulary-gate binary: a one-shot gate that
// validates a proposed registry index against the last-accepted baseline
// and recommends whether the change may be auto-merged.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formulary/gate/artifact"
	"github.com/formulary/gate/config"
	"github.com/formulary/gate/gate"
	"github.com/formulary/gate/history"
	"github.com/formulary/gate/registry"
)

const (
	appName = "formulary-gate"
	Version = "0.1.0"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		indexPath    string
		baselinePath string
		baselineRef  string
		configPath   string
		repoPath     string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   appName + " <submitter>",
		Short: "Validate a proposed registry index change",
		Long: `Formulary-gate compares a proposed registry index against the last
accepted baseline and validates the change: naming rules, ownership,
append-only publication, artifact structure, and dependency resolution.

After a clean pass it recommends whether the change may auto-merge,
rate limiting new package submissions per identity. The submitter
argument is the identity proposing the change.

The baseline is read from --baseline if given, otherwise fetched from
git at --baseline-ref. A baseline that does not exist yet is treated
as an empty index.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(runOptions{
				submitter:    args[0],
				indexPath:    indexPath,
				baselinePath: baselinePath,
				baselineRef:  baselineRef,
				configPath:   configPath,
				repoPath:     repoPath,
				logLevel:     logLevel,
			})
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "index.json", "Proposed registry index document")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Baseline index document (default: fetch from git)")
	cmd.Flags().StringVar(&baselineRef, "baseline-ref", "origin/main", "Git reference to fetch the baseline from")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Gate config document (JSON)")
	cmd.Flags().StringVar(&repoPath, "repo", ".", "Registry repository path")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

type runOptions struct {
	submitter    string
	indexPath    string
	baselinePath string
	baselineRef  string
	configPath   string
	repoPath     string
	logLevel     string
}

func run(opts runOptions) error {
	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	proposal, err := registry.LoadIndex(opts.indexPath)
	if err != nil {
		return fmt.Errorf("load proposal: %w", err)
	}

	ctx := context.Background()
	git := history.NewGitClient(opts.repoPath)

	baseline, err := loadBaseline(ctx, git, opts)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}

	limiter := history.NewLimiter(git, history.LimiterConfig{
		IndexPath:    opts.indexPath,
		TrustedUsers: cfg.TrustedUsers,
		Limit:        cfg.RateLimit.NewPackagesPerWeek,
		Window:       cfg.Window(),
	}, logger)

	g := gate.New(artifact.NewDefault(), limiter, logger, os.Stdout)
	res := g.Validate(ctx, proposal, baseline, opts.submitter)

	if !res.Report.OK() {
		fmt.Println("\nValidation failed:")
		for _, msg := range res.Report.Messages() {
			fmt.Printf("  - %s\n", msg)
		}
		return fmt.Errorf("validation failed with %d error(s)", len(res.Report.Errors))
	}

	fmt.Println("\nAll validation checks passed!")
	if err := gate.WriteOutputsFromEnv(res.Decision); err != nil {
		logger.Warn("failed to write structured outputs", "error", err)
	}
	return nil
}

// loadBaseline resolves the baseline index: an explicit file when given,
// otherwise the index document at the baseline git reference. A baseline
// that does not exist yet (first-ever run) is the empty index.
func loadBaseline(ctx context.Context, git history.Client, opts runOptions) (registry.Index, error) {
	if opts.baselinePath != "" {
		baseline, err := registry.LoadIndex(opts.baselinePath)
		if errors.Is(err, os.ErrNotExist) {
			return registry.Index{}, nil
		}
		return baseline, err
	}

	data, err := git.ShowFileAt(ctx, opts.baselineRef, opts.indexPath)
	if errors.Is(err, history.ErrNotExist) {
		return registry.Index{}, nil
	}
	if err != nil {
		return nil, err
	}
	return registry.ParseIndex(data)
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
