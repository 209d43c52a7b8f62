// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/fairspot/internal/contract"
	"golang.org/x/term"
)

const (
	defaultTermWidth = 80 // Conservative default for narrow terminals and CI
	minBarWidth      = 10
	maxBarWidth      = 60
)

// LogAuditHeader prints a concise, 2-line header before an audit.
// It goes to stderr so that JSON and CSV on stdout stay parseable.
func LogAuditHeader(cfg *contract.Config) {
	name := filepath.Base(cfg.DatasetPath)
	if name == "" || name == "." {
		name = "stdin"
	}

	mode := "per attribute"
	if cfg.Engine.Intersectional {
		mode = "intersectional"
	}
	_, _ = fmt.Fprintf(os.Stderr, "🔎 Dataset: %s (Attributes: %s, %s)\n", name, strings.Join(cfg.Engine.Attributes, ", "), mode)

	metrics := make([]string, len(cfg.Engine.Metrics))
	for i, m := range cfg.Engine.Metrics {
		metrics[i] = string(m)
	}
	_, _ = fmt.Fprintf(os.Stderr, "📐 Metrics: %s\n", strings.Join(metrics, ", "))
}

// getTermWidth returns the width override, the detected terminal width, or a default.
func getTermWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTermWidth
	}
	return width
}

// getBarWidth calculates the bar length available for a chart line whose
// label and value take labelWidth columns.
func getBarWidth(cfg *contract.Config, labelWidth int) int {
	// Reserve space for padding, separators, and the trailing value
	available := getTermWidth(cfg) - labelWidth - 16
	return max(minBarWidth, min(available, maxBarWidth))
}
