package ingest

import (
	"fmt"
	"strings"

	"github.com/huangsam/fairspot/schema"
	"github.com/spf13/cast"
)

// Mapping names the table columns that feed each record field.
type Mapping struct {
	Truth      string
	Prediction string
	Score      string
	Attributes []string // Protected attributes and any control column

	// Favorable, when set, rewrites truth and prediction into "1" for this
	// value and "0" for every other value.
	Favorable string
}

// ToRecords maps table rows onto records. Null attribute cells become nil
// attribute values. An attribute cell the source never supplied, such as a
// key missing from a JSON object, is left off the record.
func ToRecords(table schema.Table, m Mapping) ([]schema.Record, error) {
	truthIdx, err := lookupColumn(table, m.Truth)
	if err != nil {
		return nil, err
	}
	predIdx, err := lookupColumn(table, m.Prediction)
	if err != nil {
		return nil, err
	}
	scoreIdx, err := lookupColumn(table, m.Score)
	if err != nil {
		return nil, err
	}
	attrIdx := make([]int, len(m.Attributes))
	for i, attr := range m.Attributes {
		if attrIdx[i], err = lookupColumn(table, attr); err != nil {
			return nil, err
		}
	}

	records := make([]schema.Record, len(table.Rows))
	for n, row := range table.Rows {
		rec := schema.Record{Attributes: make(map[string]*string, len(m.Attributes))}
		for i, attr := range m.Attributes {
			if table.IsAbsent(n, attrIdx[i]) {
				continue
			}
			rec.Attributes[attr] = at(row, attrIdx[i])
		}
		rec.Truth = m.outcome(at(row, truthIdx))
		rec.Prediction = m.outcome(at(row, predIdx))
		if raw := at(row, scoreIdx); raw != nil {
			score, err := cast.ToFloat64E(*raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: score %q in column %q is not numeric", n+1, *raw, m.Score)
			}
			rec.Score = &score
		}
		records[n] = rec
	}
	return records, nil
}

func (m Mapping) outcome(v *string) *string {
	if v == nil || m.Favorable == "" {
		return v
	}
	if strings.TrimSpace(*v) == strings.TrimSpace(m.Favorable) {
		return schema.StrPtr("1")
	}
	return schema.StrPtr("0")
}

// lookupColumn returns -1 for an unmapped (empty) column name.
func lookupColumn(table schema.Table, name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	idx := table.ColumnIndex(name)
	if idx < 0 {
		return -1, fmt.Errorf("column %q not found; available columns: %s", name, strings.Join(table.Columns, ", "))
	}
	return idx, nil
}

// at returns the cell at idx, tolerating short rows and unmapped columns.
func at(row []*string, idx int) *string {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}
