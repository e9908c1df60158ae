package registry

import "fmt"

// Kind tags a validation error with the check that produced it.
type Kind string

const (
	// KindNameFormat is a package name failing the naming grammar.
	KindNameFormat Kind = "name-format"
	// KindVersionFormat is a version string that is not a semantic version.
	KindVersionFormat Kind = "version-format"
	// KindOwnership is a submitter not authorized for the package.
	KindOwnership Kind = "ownership"
	// KindMetadata is a missing or oversized description, or missing owners.
	KindMetadata Kind = "metadata"
	// KindMissingField is a version entry lacking a required structural key.
	KindMissingField Kind = "missing-field"
	// KindImmutability is a published version whose payload changed.
	KindImmutability Kind = "immutability"
	// KindArtifact is any failure from the artifact inspector.
	KindArtifact Kind = "artifact"
	// KindDependency is a dependency name absent from the proposal index.
	KindDependency Kind = "dependency"
)

// Error is a single validation finding tied to a package and, where it
// applies, a version.
type Error struct {
	Kind    Kind
	Package string
	Version string
	Message string
}

func (e Error) Error() string { return e.Message }

// Report is the ordered collection of validation findings for one gate
// run. Findings accumulate across all packages; an empty report is a pass.
type Report struct {
	Errors []Error
}

// Add records a finding.
func (r *Report) Add(kind Kind, pkg, version, format string, args ...any) {
	r.Errors = append(r.Errors, Error{
		Kind:    kind,
		Package: pkg,
		Version: version,
		Message: fmt.Sprintf(format, args...),
	})
}

// OK reports whether the run produced no findings.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Messages returns the finding messages in the order they were recorded.
func (r *Report) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// ByKind returns the findings tagged with the given kind, in order.
func (r *Report) ByKind(kind Kind) []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
