// Package registry models the formulary registry index: the mapping from
// package name to declared metadata and versions. Two instances exist per
// gate run: the baseline (last accepted state) and the proposal (candidate).
// Both are loaded once and treated as immutable values for the whole run.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// Index maps package name to its entry.
type Index map[string]PackageEntry

// PackageEntry holds the declared metadata for one package. Field presence
// is tracked separately from field value: a missing "owners" key and an
// empty owners list are different validation failures.
type PackageEntry struct {
	Owners      []string
	Description string
	Versions    map[string]VersionEntry

	hasOwners      bool
	hasDescription bool
}

// HasOwners reports whether the document declared an "owners" key.
func (e PackageEntry) HasOwners() bool { return e.hasOwners }

// HasDescription reports whether the document declared a "description" key.
func (e PackageEntry) HasDescription() bool { return e.hasDescription }

// UnmarshalJSON decodes a package entry, rejecting unknown keys and
// recording which optional keys were present.
func (e *PackageEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, val := range raw {
		switch key {
		case "owners":
			if err := json.Unmarshal(val, &e.Owners); err != nil {
				return fmt.Errorf("owners: %w", err)
			}
			e.hasOwners = true
		case "description":
			if err := json.Unmarshal(val, &e.Description); err != nil {
				return fmt.Errorf("description: %w", err)
			}
			e.hasDescription = true
		case "versions":
			if err := json.Unmarshal(val, &e.Versions); err != nil {
				return fmt.Errorf("versions: %w", err)
			}
		default:
			return fmt.Errorf("unknown key %q in package entry", key)
		}
	}
	return nil
}

// VersionEntry holds the declared payload for one published version.
type VersionEntry struct {
	Path         string
	Dependencies []string

	hasPath         bool
	hasDependencies bool
}

// HasPath reports whether the document declared a "path" key.
func (e VersionEntry) HasPath() bool { return e.hasPath }

// HasDependencies reports whether the document declared a "dependencies" key.
func (e VersionEntry) HasDependencies() bool { return e.hasDependencies }

// UnmarshalJSON decodes a version entry, rejecting unknown keys and
// recording which keys were present.
func (e *VersionEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, val := range raw {
		switch key {
		case "path":
			if err := json.Unmarshal(val, &e.Path); err != nil {
				return fmt.Errorf("path: %w", err)
			}
			e.hasPath = true
		case "dependencies":
			if err := json.Unmarshal(val, &e.Dependencies); err != nil {
				return fmt.Errorf("dependencies: %w", err)
			}
			e.hasDependencies = true
		default:
			return fmt.Errorf("unknown key %q in version entry", key)
		}
	}
	return nil
}

// Equal reports structural equality with another version entry: same key
// presence, same path, and the same dependencies in the same order. Any
// difference at all makes an already-published version a modification.
func (e VersionEntry) Equal(other VersionEntry) bool {
	if e.hasPath != other.hasPath || e.hasDependencies != other.hasDependencies {
		return false
	}
	if e.Path != other.Path {
		return false
	}
	if len(e.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i, dep := range e.Dependencies {
		if dep != other.Dependencies[i] {
			return false
		}
	}
	return true
}

// String renders the entry in document form, for mismatch diagnostics.
func (e VersionEntry) String() string {
	deps, _ := json.Marshal(e.Dependencies)
	return fmt.Sprintf(`{"path": %q, "dependencies": %s}`, e.Path, deps)
}

// ParseIndex decodes a registry index document.
func ParseIndex(data []byte) (Index, error) {
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("parse index document: %w", err)
	}
	if ix == nil {
		ix = Index{}
	}
	return ix, nil
}

// LoadIndex reads and decodes a registry index document from disk.
func LoadIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index document: %w", err)
	}
	return ParseIndex(data)
}
