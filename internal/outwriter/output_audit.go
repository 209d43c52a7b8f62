package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/parquet"
	"github.com/huangsam/fairspot/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintAuditResult outputs the audit result, dispatching based on the output format configured.
func PrintAuditResult(result *schema.AuditResult, cfg *contract.Config, duration time.Duration) error {
	fmtValue, csvValue := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON")
	case schema.YAMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeYAML(w, result)
		}, "Wrote YAML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeResultsCSV(w, result.Results, csvValue)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if err := parquet.WriteMetricResultsParquet(parquet.FromResults(0, result.Results), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeAuditText(w, result, cfg, fmtValue, duration)
		}, "Wrote table")
	}
}

// writeResultsCSV writes one row per metric result, in engine order.
func writeResultsCSV(w io.Writer, results []schema.MetricResult, csvValue func(*float64) string) error {
	header := []string{"metric", "attribute", "stratum", "group", "reference", "value", "sample_size", "reference_sample_size"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			refSize := ""
			if r.IsPairwise() {
				refSize = strconv.Itoa(r.ReferenceSampleSize)
			}
			rec := []string{
				string(r.Metric),
				r.Attribute,
				r.Stratum,
				r.Group,
				r.Reference,
				csvValue(r.Value),
				strconv.Itoa(r.SampleSize),
				refSize,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAuditText renders the results table, the verdict table, and optionally a bar chart.
func writeAuditText(w io.Writer, result *schema.AuditResult, cfg *contract.Config, fmtValue func(*float64) string, duration time.Duration) error {
	if err := writeResultsTable(w, result.Results, fmtValue); err != nil {
		return err
	}
	if len(result.Verdicts) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := writeVerdictTable(w, result.Verdicts, cfg); err != nil {
			return err
		}
	}
	if cfg.Chart {
		if err := writeBarChart(w, result.Verdicts, cfg); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Audited %d records (%d results) in %v with %d workers. Run backend: %s\n",
		result.RecordCount, len(result.Results), duration, cfg.Workers, cfg.RunBackend); err != nil {
		return err
	}
	if result.RunID != "" {
		if _, err := fmt.Fprintf(w, "Run ID: %s\n", result.RunID); err != nil {
			return err
		}
	}
	return nil
}

func writeResultsTable(w io.Writer, results []schema.MetricResult, fmtValue func(*float64) string) error {
	var hasStratum, hasPairs bool
	for _, r := range results {
		hasStratum = hasStratum || r.Stratum != ""
		hasPairs = hasPairs || r.IsPairwise()
	}

	headers := []string{"Metric", "Attribute"}
	if hasStratum {
		headers = append(headers, "Stratum")
	}
	headers = append(headers, "Group")
	if hasPairs {
		headers = append(headers, "Reference")
	}
	headers = append(headers, "Value", "N")
	if hasPairs {
		headers = append(headers, "Ref N")
	}

	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{string(r.Metric), r.Attribute}
		if hasStratum {
			row = append(row, r.Stratum)
		}
		row = append(row, r.Group)
		if hasPairs {
			row = append(row, r.Reference)
		}
		row = append(row, fmtValue(r.Value), strconv.Itoa(r.SampleSize))
		if hasPairs {
			refSize := ""
			if r.IsPairwise() {
				refSize = strconv.Itoa(r.ReferenceSampleSize)
			}
			row = append(row, refSize)
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeVerdictTable(w io.Writer, verdicts []schema.Verdict, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Attribute", "Stratum", "Max", "Min", "Disparity", "Threshold", "Verdict"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(verdicts))
	for _, v := range verdicts {
		label := contract.GetPlainLabel(v.Status)
		if cfg.UseColors {
			label = contract.GetColorLabel(v.Status)
		}
		disparity := "-"
		if v.Status != schema.VerdictInsufficient {
			disparity = fmt.Sprintf("%.*f", cfg.Precision, v.Disparity)
		}
		data = append(data, []string{
			string(v.Metric),
			v.Attribute,
			v.Stratum,
			v.MaxGroup,
			v.MinGroup,
			disparity,
			fmt.Sprintf("%.*f", cfg.Precision, v.Threshold),
			label,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeBarChart draws the per-group values behind each verdict. Verdicts whose
// values are all zero are skipped.
func writeBarChart(w io.Writer, verdicts []schema.Verdict, cfg *contract.Config) error {
	for _, v := range verdicts {
		if allZero(v.Rates) {
			continue
		}

		labelWidth := 0
		for _, r := range v.Rates {
			labelWidth = max(labelWidth, len(r.Group))
		}
		barWidth := getBarWidth(cfg, labelWidth)

		title := fmt.Sprintf("%s by %s", v.Metric, v.Attribute)
		if v.Stratum != "" {
			title += fmt.Sprintf(" (%s)", v.Stratum)
		}
		if _, err := fmt.Fprintf(w, "\n📊 %s\n", title); err != nil {
			return err
		}
		for _, r := range v.Rates {
			n := int(r.Value*float64(barWidth) + 0.5)
			n = max(0, min(n, barWidth))
			bar := strings.Repeat("█", n) + strings.Repeat(" ", barWidth-n)
			if _, err := fmt.Fprintf(w, "  %-*s │%s│ %.*f\n", labelWidth, r.Group, bar, cfg.Precision, r.Value); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func allZero(rates []schema.GroupRate) bool {
	for _, r := range rates {
		if r.Value != 0 {
			return false
		}
	}
	return true
}
