// Package gate orchestrates validation of a proposed registry index
// against the last-accepted baseline: naming and version grammar,
// ownership, append-only publication, artifact structure, dependency
// resolution, and finally the auto-merge recommendation.
package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/formulary/gate/registry"
)

// Inspector validates one package artifact against its registry entry.
type Inspector interface {
	Inspect(path, wantName, wantVersion string) error
}

// Limiter decides whether a new-package submission may auto-merge.
type Limiter interface {
	Allow(ctx context.Context, submitter string) bool
}

// Decision is the advisory outcome of a clean validation pass.
type Decision struct {
	// IsNewSubmission is true when any proposal package is absent from
	// the baseline.
	IsNewSubmission bool
	// CanAutoMerge is true when the change may merge without human
	// review.
	CanAutoMerge bool
}

// Result is the outcome of one gate run.
type Result struct {
	// RunID correlates log records and the report for this run.
	RunID string
	// Report holds every validation finding, in package order.
	Report registry.Report
	// Decision is only meaningful when the report is clean.
	Decision Decision
}

// Gate validates proposals. Construct with New.
type Gate struct {
	inspector Inspector
	limiter   Limiter
	logger    *slog.Logger
	progress  io.Writer
}

// New creates a gate. progress receives the human-readable per-package
// lines; pass io.Discard to silence them.
func New(inspector Inspector, limiter Limiter, logger *slog.Logger, progress io.Writer) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Gate{inspector: inspector, limiter: limiter, logger: logger, progress: progress}
}

// Validate runs the full validation pass of proposal against baseline for
// the given submitter. Findings are aggregated across all packages and
// versions; nothing inside the pass aborts it. The merge decision is
// computed only after a clean pass.
func (g *Gate) Validate(ctx context.Context, proposal, baseline registry.Index, submitter string) *Result {
	res := &Result{RunID: uuid.New().String()}
	logger := g.logger.With("run_id", res.RunID, "submitter", submitter)

	hasNewPackage := false
	for _, name := range proposal.Names() {
		pkg := proposal[name]

		if err := registry.ValidatePackageName(name); err != nil {
			res.Report.Add(registry.KindNameFormat, name, "", "%s", err)
			continue
		}

		_, existing := baseline[name]
		if !existing {
			hasNewPackage = true
			fmt.Fprintf(g.progress, "✓ New package: %s\n", name)
			logger.Info("validating new package", "package", name)
			g.checkNewPackage(&res.Report, name, pkg, submitter)
		} else {
			fmt.Fprintf(g.progress, "✓ Updating package: %s\n", name)
			logger.Info("validating package update", "package", name)
			g.checkExistingOwnership(&res.Report, name, baseline[name], submitter)
		}

		g.checkVersions(&res.Report, proposal, baseline, name, pkg, logger)
	}

	if !res.Report.OK() {
		return res
	}

	res.Decision.IsNewSubmission = hasNewPackage
	res.Decision.CanAutoMerge = true
	if hasNewPackage {
		res.Decision.CanAutoMerge = g.limiter.Allow(ctx, submitter)
	}
	logger.Info("validation passed",
		"is_new_submission", res.Decision.IsNewSubmission,
		"can_auto_merge", res.Decision.CanAutoMerge)
	return res
}

const maxDescriptionLen = 200

// checkNewPackage enforces the metadata and ownership a first publication
// must declare.
func (g *Gate) checkNewPackage(report *registry.Report, name string, pkg registry.PackageEntry, submitter string) {
	if !pkg.HasOwners() || len(pkg.Owners) == 0 {
		report.Add(registry.KindMetadata, name, "", "package %q missing 'owners' field", name)
	} else if submitter != "" && !slices.Contains(pkg.Owners, submitter) {
		report.Add(registry.KindOwnership, name, "", "submitter %q not in owners list for new package %q", submitter, name)
	}

	if !pkg.HasDescription() || pkg.Description == "" {
		report.Add(registry.KindMetadata, name, "", "package %q missing 'description' field", name)
	} else if utf8.RuneCountInString(pkg.Description) > maxDescriptionLen {
		report.Add(registry.KindMetadata, name, "", "package %q description too long (max %d chars)", name, maxDescriptionLen)
	}
}

// checkExistingOwnership gates updates on current (baseline) ownership.
// A baseline entry with no owners at all is a legacy package and skips the
// check. The owners list itself is not diffed: any current owner may
// change it.
func (g *Gate) checkExistingOwnership(report *registry.Report, name string, base registry.PackageEntry, submitter string) {
	if len(base.Owners) == 0 || submitter == "" {
		return
	}
	if !slices.Contains(base.Owners, submitter) {
		report.Add(registry.KindOwnership, name, "", "submitter %q not authorized to update package %q (owners: %v)", submitter, name, base.Owners)
	}
}

func (g *Gate) checkVersions(report *registry.Report, proposal, baseline registry.Index, name string, pkg registry.PackageEntry, logger *slog.Logger) {
	for _, version := range pkg.VersionKeys() {
		entry := pkg.Versions[version]

		if err := registry.ValidateVersion(version); err != nil {
			report.Add(registry.KindVersionFormat, name, version, "%s", err)
			continue
		}

		state := registry.ClassifyVersion(baseline, name, version, entry)
		logger.Debug("classified version", "package", name, "version", version, "state", state.String())

		switch state {
		case registry.VersionUnchanged:
			fmt.Fprintf(g.progress, "  → Skipping %s@%s (unchanged)\n", name, version)
			continue
		case registry.VersionModified:
			base := baseline[name].Versions[version]
			logger.Info("version payload mismatch",
				"package", name, "version", version,
				"baseline", base.String(), "proposal", entry.String())
			report.Add(registry.KindImmutability, name, version, "cannot modify existing version %q for package %q", version, name)
			continue
		case registry.VersionNew:
		}

		g.checkNewVersion(report, proposal, name, version, entry)
	}
}

// checkNewVersion validates a version being published for the first time:
// structural fields, the artifact itself, and dependency resolution.
func (g *Gate) checkNewVersion(report *registry.Report, proposal registry.Index, name, version string, entry registry.VersionEntry) {
	if !entry.HasPath() {
		report.Add(registry.KindMissingField, name, version, "package %q version %q missing 'path' field", name, version)
	}
	if !entry.HasDependencies() {
		report.Add(registry.KindMissingField, name, version, "package %q version %q missing 'dependencies' field", name, version)
	}

	if entry.HasPath() {
		if err := g.inspector.Inspect(entry.Path, name, version); err != nil {
			report.Add(registry.KindArtifact, name, version, "%s", err)
		}
	}

	// Dependencies resolve against the full proposal index, so depending
	// on an untouched baseline package is fine: the proposal always
	// carries the complete index.
	for _, dep := range entry.Dependencies {
		depName := registry.DependencyName(dep)
		if _, ok := proposal[depName]; !ok {
			report.Add(registry.KindDependency, name, version, "dependency %q not found in registry for %s@%s", depName, name, version)
		}
	}
}
