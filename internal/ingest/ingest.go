// Package ingest loads tabular datasets from disk and maps their columns onto audit records.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/fairspot/schema"
)

// Options control how a dataset is parsed.
type Options struct {
	Delimiter rune // CSV field delimiter; 0 means ',' (or '\t' for .tsv)
	DropNA    bool // Drop every row that contains a null cell
}

// nullTokens are cell values read as null.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"null": {},
	"None": {},
}

// Load reads the dataset at path, choosing the parser from the file extension.
func Load(path string, opts Options) (schema.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return schema.Table{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = file.Close() }()

	table, err := Read(file, Format(path), opts)
	if err != nil {
		return schema.Table{}, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	table.Source = path
	slog.Debug("dataset loaded", "path", path, "rows", len(table.Rows), "columns", len(table.Columns))
	return table, nil
}

// Format returns the dataset format implied by a file name.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".jsonl", ".ndjson":
		return "jsonl"
	case ".tsv":
		return "tsv"
	default:
		return "csv"
	}
}

// Read parses a dataset of the given format ("csv", "tsv", "json" or "jsonl").
func Read(r io.Reader, format string, opts Options) (schema.Table, error) {
	var (
		table schema.Table
		err   error
	)
	switch format {
	case "csv":
		table, err = readCSV(r, delimiterOr(opts.Delimiter, ','))
	case "tsv":
		table, err = readCSV(r, delimiterOr(opts.Delimiter, '\t'))
	case "json":
		table, err = readJSON(r)
	case "jsonl":
		table, err = readJSONLines(r)
	default:
		return schema.Table{}, fmt.Errorf("unsupported dataset format %q", format)
	}
	if err != nil {
		return schema.Table{}, err
	}
	if opts.DropNA {
		table = DropNA(table)
	}
	return table, nil
}

// DropNA returns a copy of the table without rows that contain a null cell.
func DropNA(table schema.Table) schema.Table {
	out := schema.Table{Source: table.Source, Columns: table.Columns}
	for _, row := range table.Rows {
		complete := true
		for _, cell := range row {
			if cell == nil {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// cell converts a raw string into a table cell, mapping null tokens to nil.
func cell(raw string) *string {
	v := strings.TrimSpace(raw)
	if _, isNull := nullTokens[v]; isNull {
		return nil
	}
	return &v
}

func delimiterOr(d, fallback rune) rune {
	if d == 0 {
		return fallback
	}
	return d
}
