package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/fairspot/schema"
)

func readCSV(r io.Reader, delimiter rune) (schema.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return schema.Table{}, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return schema.Table{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	table := schema.Table{Columns: make([]string, len(headers))}
	for i, h := range headers {
		// Clean header names: trim whitespace and remove all quotes
		table.Columns[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}
	if err := checkColumns(table.Columns); err != nil {
		return schema.Table{}, err
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return schema.Table{}, fmt.Errorf("CSV read error: %w", err)
		}
		row := make([]*string, len(record))
		for i, raw := range record {
			row[i] = cell(raw)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// checkColumns rejects blank and duplicate column names.
func checkColumns(columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c == "" {
			return fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}
