package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/fairspot/schema"
	"github.com/spf13/cast"
)

// readJSON parses an array of flat objects.
func readJSON(r io.Reader) (schema.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return schema.Table{}, fmt.Errorf("JSON decode error: %w", err)
	}
	return objectsToTable(objects)
}

// readJSONLines parses one flat object per line. Blank lines are skipped.
func readJSONLines(r io.Reader) (schema.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var objects []map[string]any
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return schema.Table{}, fmt.Errorf("JSON decode error on line %d: %w", line, err)
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return schema.Table{}, fmt.Errorf("failed to scan JSON lines: %w", err)
	}
	return objectsToTable(objects)
}

// objectsToTable flattens objects into a table. Columns appear in the order
// they are first seen; keys new to an object are added sorted. Keys an
// object lacks are null cells flagged in Table.Absent.
func objectsToTable(objects []map[string]any) (schema.Table, error) {
	if len(objects) == 0 {
		return schema.Table{}, fmt.Errorf("dataset is empty")
	}

	var table schema.Table
	index := make(map[string]int)
	for _, obj := range objects {
		var fresh []string
		for k := range obj {
			if _, ok := index[k]; !ok {
				fresh = append(fresh, k)
			}
		}
		slices.Sort(fresh)
		for _, k := range fresh {
			index[k] = len(table.Columns)
			table.Columns = append(table.Columns, k)
		}
	}

	table.Absent = make([][]bool, len(objects))
	for i, obj := range objects {
		row := make([]*string, len(table.Columns))
		absent := make([]bool, len(table.Columns))
		for c := range absent {
			absent[c] = true
		}
		for k, v := range obj {
			c, err := jsonCell(v)
			if err != nil {
				return schema.Table{}, fmt.Errorf("record %d, column %q: %w", i+1, k, err)
			}
			row[index[k]] = c
			absent[index[k]] = false
		}
		table.Rows = append(table.Rows, row)
		table.Absent[i] = absent
	}
	return table, nil
}

// jsonCell coerces a decoded JSON value into a cell. A list collapses to its
// first element, or to null when empty.
func jsonCell(v any) (*string, error) {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, nil
		}
		v = list[0]
	}
	if v == nil {
		return nil, nil
	}
	if _, nested := v.(map[string]any); nested {
		return nil, fmt.Errorf("nested objects are not supported")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, err
	}
	return cell(s), nil
}
