package registry

import (
	"sort"
	"strings"
)

// VersionState classifies one proposal version against the baseline index.
type VersionState int

const (
	// VersionUnchanged means the version exists in the baseline with a
	// structurally identical payload. It needs no further validation.
	VersionUnchanged VersionState = iota

	// VersionModified means the version exists in the baseline but its
	// payload differs. Published versions are immutable, so this is
	// always a violation.
	VersionModified

	// VersionNew means the version is absent from the baseline and goes
	// through full validation.
	VersionNew
)

func (s VersionState) String() string {
	switch s {
	case VersionUnchanged:
		return "unchanged"
	case VersionModified:
		return "modified"
	case VersionNew:
		return "new"
	}
	return "unknown"
}

// ClassifyVersion compares one proposal version entry against the baseline.
func ClassifyVersion(baseline Index, pkg, version string, entry VersionEntry) VersionState {
	basePkg, ok := baseline[pkg]
	if !ok {
		return VersionNew
	}
	baseEntry, ok := basePkg.Versions[version]
	if !ok {
		return VersionNew
	}
	if entry.Equal(baseEntry) {
		return VersionUnchanged
	}
	return VersionModified
}

// Names returns the index's package names in sorted order, so a full
// validation pass visits packages deterministically.
func (ix Index) Names() []string {
	names := make([]string, 0, len(ix))
	for name := range ix {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VersionKeys returns the entry's version strings in sorted order.
func (e PackageEntry) VersionKeys() []string {
	keys := make([]string, 0, len(e.Versions))
	for v := range e.Versions {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	return keys
}

// DependencyName extracts the bare package name from a dependency
// specifier by stripping any version qualifier ("@", ">=", "<=", "==").
func DependencyName(spec string) string {
	name := spec
	for _, sep := range []string{"@", ">=", "<=", "=="} {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
		}
	}
	return strings.TrimSpace(name)
}
