package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/ingest"
	"github.com/huangsam/fairspot/internal/outwriter"
	"github.com/huangsam/fairspot/schema"
)

// ExecuteExplore profiles the configured dataset and prints it.
func ExecuteExplore(ctx context.Context, cfg *contract.Config) error {
	profile, err := GetProfile(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.PrintProfile(profile, cfg)
}

// GetProfile loads the configured dataset and profiles it without printing.
func GetProfile(_ context.Context, cfg *contract.Config) (*schema.DatasetProfile, error) {
	if cfg.DatasetPath == "" {
		return nil, fmt.Errorf("no dataset given. Example: fairspot explore loans.csv --target approved")
	}
	table, err := ingest.Load(cfg.DatasetPath, ingest.Options{Delimiter: cfg.Delimiter, DropNA: cfg.DropNA})
	if err != nil {
		return nil, err
	}
	if cfg.Target != "" && table.ColumnIndex(cfg.Target) < 0 {
		return nil, fmt.Errorf("target column %q not found; available columns: %s", cfg.Target, strings.Join(table.Columns, ", "))
	}
	profile := ProfileTable(table, cfg.Target)
	return &profile, nil
}

// ProfileTable reports the row count, per-column missing and distinct counts,
// and the value counts of the target column. Null target values are only
// reflected in the missing count.
func ProfileTable(table schema.Table, target string) schema.DatasetProfile {
	profile := schema.DatasetProfile{
		Source:  table.Source,
		Rows:    len(table.Rows),
		Columns: make([]schema.ColumnProfile, len(table.Columns)),
	}

	targetIdx := -1
	if target != "" {
		targetIdx = table.ColumnIndex(target)
	}

	for i, name := range table.Columns {
		col := schema.ColumnProfile{Name: name}
		counts := make(map[string]int)
		for _, row := range table.Rows {
			if i >= len(row) || row[i] == nil {
				col.Missing++
				continue
			}
			counts[*row[i]]++
		}
		col.Distinct = len(counts)
		profile.Columns[i] = col

		if i == targetIdx {
			profile.Target = target
			profile.TargetCounts = sortedCounts(counts)
		}
	}
	return profile
}

// sortedCounts orders value counts by count descending, then by value.
func sortedCounts(counts map[string]int) []schema.ValueCount {
	out := make([]schema.ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, schema.ValueCount{Value: v, Count: c})
	}
	slices.SortFunc(out, func(a, b schema.ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	return out
}
