package firewall

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff from the installed script to the generated one. The
// result is empty when they are identical.
func Diff(installed, generated string) (string, error) {
	if installed == generated {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(installed),
		B:        difflib.SplitLines(generated),
		FromFile: "Installed",
		ToFile:   "Generated",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
