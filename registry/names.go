package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

var (
	// namePattern is the package name grammar: lowercase, letter first,
	// then lowercase letters, digits, and hyphens.
	namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	// cellPattern and rowColPattern match spreadsheet cell addressing
	// (A1 and R1C1 styles). Names shaped like cell references are banned
	// so a package can never shadow a cell address in formulas.
	cellPattern   = regexp.MustCompile(`^[A-Z]+\d+$`)
	rowColPattern = regexp.MustCompile(`^R\d+C\d+$`)
)

// ValidatePackageName checks a proposed package name against the registry
// naming rules. It returns nil for a valid name, or a rule-specific error.
func ValidatePackageName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid package name %q: must be lowercase, start with a letter, and contain only lowercase letters, numbers, and hyphens", name)
	}

	upper := strings.ToUpper(name)
	if cellPattern.MatchString(upper) || rowColPattern.MatchString(upper) {
		return fmt.Errorf("package name %q uses A1 or R1C1 syntax (not allowed)", name)
	}

	if len(name) >= 255 {
		return fmt.Errorf("package name %q must be shorter than 255 characters", name)
	}

	if unicode.IsDigit(rune(name[0])) {
		return fmt.Errorf("package name %q cannot start with a number", name)
	}

	return nil
}

// ValidateVersion checks that a version string parses as a semantic
// version. The parser is lenient about partial versions ("1.0" is accepted
// as 1.0.0) and allows pre-release and build-metadata suffixes.
func ValidateVersion(version string) error {
	if _, err := semver.NewVersion(version); err != nil {
		return fmt.Errorf("invalid version %q: must be a valid semantic version (e.g., \"1.0.0\")", version)
	}
	return nil
}
