package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/fairspot/schema"
)

// Color variables for console output.
var (
	FailColor         = color.New(color.FgRed, color.Bold) // FailColor represents a parity violation.
	WarningColor      = color.New(color.FgYellow)          // WarningColor represents a disparity close to its threshold.
	PassColor         = color.New(color.FgGreen)           // PassColor represents a disparity within its threshold.
	InsufficientColor = color.New(color.FgCyan)            // InsufficientColor represents too few groups to compare.
)

// GetPlainLabel returns the plain text label for a verdict status. This is
// the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(status schema.VerdictStatus) string {
	switch status {
	case schema.VerdictFail:
		return "Fail"
	case schema.VerdictWarning:
		return "Warning"
	case schema.VerdictPass:
		return "Pass"
	default:
		return "Insufficient"
	}
}

// GetColorLabel returns a colored verdict label for console output (table).
func GetColorLabel(status schema.VerdictStatus) string {
	text := GetPlainLabel(status)

	switch status {
	case schema.VerdictFail:
		return FailColor.Sprint(text)
	case schema.VerdictWarning:
		return WarningColor.Sprint(text)
	case schema.VerdictPass:
		return PassColor.Sprint(text)
	default:
		return InsufficientColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetRunDBFilePath returns the path to the SQLite DB file for run storage.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".fairspot_runs.db"
	}
	return filepath.Join(homeDir, ".fairspot_runs.db")
}

// SplitList splits a comma-separated flag value, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// FormatValue renders a possibly undefined metric value with the given precision.
func FormatValue(v *float64, precision int) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.*f", precision, *v)
}
