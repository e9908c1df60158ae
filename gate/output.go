package gate

import (
	"fmt"
	"os"
)

// OutputEnv names the environment variable holding the structured output
// file path (the GitHub Actions convention).
const OutputEnv = "GITHUB_OUTPUT"

// WriteOutputs appends the decision flags to the structured output file at
// path as key=value lines.
func WriteOutputs(path string, d Decision) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "can_auto_merge=%t\nis_new_package=%t\n", d.CanAutoMerge, d.IsNewSubmission); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// WriteOutputsFromEnv writes the decision flags when the output channel is
// configured, and silently does nothing otherwise.
func WriteOutputsFromEnv(d Decision) error {
	path := os.Getenv(OutputEnv)
	if path == "" {
		return nil
	}
	return WriteOutputs(path, d)
}
