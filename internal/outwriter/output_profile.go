package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintProfile displays a dataset profile using the configured output format.
func PrintProfile(profile *schema.DatasetProfile, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, profile)
		}, "Wrote JSON")
	case schema.YAMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeYAML(w, profile)
		}, "Wrote YAML")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfileCSV(w, profile)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only available for audit results")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfileText(w, profile)
		}, "Wrote profile")
	}
}

func writeProfileCSV(w io.Writer, profile *schema.DatasetProfile) error {
	return writeCSVWithHeader(w, []string{"column", "missing", "distinct"}, func(cw *csv.Writer) error {
		for _, c := range profile.Columns {
			if err := cw.Write([]string{c.Name, strconv.Itoa(c.Missing), strconv.Itoa(c.Distinct)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeProfileText(w io.Writer, profile *schema.DatasetProfile) error {
	if _, err := fmt.Fprintf(w, "📄 %s: %d rows, %d columns\n", profile.Source, profile.Rows, len(profile.Columns)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Column", "Missing", "Distinct"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data := make([][]string, 0, len(profile.Columns))
	for _, c := range profile.Columns {
		data = append(data, []string{c.Name, strconv.Itoa(c.Missing), strconv.Itoa(c.Distinct)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if profile.Target == "" {
		return nil
	}

	if _, err := fmt.Fprintf(w, "\n🎯 Value counts of %s\n", profile.Target); err != nil {
		return err
	}
	total := 0
	for _, vc := range profile.TargetCounts {
		total += vc.Count
	}
	counts := tablewriter.NewWriter(w)
	counts.Header([]string{"Value", "Count", "Share"})
	counts.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data = data[:0]
	for _, vc := range profile.TargetCounts {
		share := float64(vc.Count) / float64(total) * 100
		data = append(data, []string{vc.Value, strconv.Itoa(vc.Count), fmt.Sprintf("%.1f%%", share)})
	}
	if err := counts.Bulk(data); err != nil {
		return err
	}
	return counts.Render()
}
