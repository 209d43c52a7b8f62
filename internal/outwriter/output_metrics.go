package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"
)

// getDisplayNameForScope returns the display name with emoji for a metric scope.
func getDisplayNameForScope(scope schema.MetricScope) string {
	switch scope {
	case schema.GroupScope:
		return "👥 PER-GROUP"
	case schema.PairScope:
		return "⚖️  PAIRWISE"
	default:
		return strings.ToUpper(string(scope))
	}
}

// PrintCatalog displays the formal definitions of every metric.
// This is a static display that does not require a dataset.
func PrintCatalog(cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, schema.Catalog)
		}, "Wrote JSON")
	case schema.YAMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeYAML(w, schema.Catalog)
		}, "Wrote YAML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, writeCatalogCSV, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only available for audit results")
	default:
		return writeWithFile(cfg.OutputFile, writeCatalogText, "Wrote text")
	}
}

func requiresList(def schema.MetricDefinition) []string {
	fields := make([]string, len(def.Requires))
	for i, f := range def.Requires {
		fields[i] = string(f)
	}
	return fields
}

func writeCatalogCSV(w io.Writer) error {
	header := []string{"name", "scope", "requires", "formula", "range", "undefined_when"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, def := range schema.Catalog {
			rec := []string{
				string(def.Name),
				string(def.Scope),
				strings.Join(requiresList(def), "|"),
				def.Formula,
				def.Range,
				def.Undefined,
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

func writeCatalogText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "⚖️  Fairspot Metric Catalog\n==========================\n\n"); err != nil {
		return err
	}

	for _, scope := range []schema.MetricScope{schema.GroupScope, schema.PairScope} {
		if _, err := fmt.Fprintf(w, "%s\n", getDisplayNameForScope(scope)); err != nil {
			return err
		}
		for _, def := range schema.Catalog {
			if def.Scope != scope {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s: %s\n", def.Name, def.Description); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "     Formula: %s  Range: %s\n", def.Formula, def.Range); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "     Requires: %s  Undefined when: %s\n", strings.Join(requiresList(def), ", "), def.Undefined); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "🔗 Pairwise metrics compare each group A against a reference group B (--reference or --pairs).\n")
	return err
}
