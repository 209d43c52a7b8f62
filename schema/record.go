package schema

// Record is one subject of an audit. Attribute values and outcomes are
// categorical strings; a nil pointer means the value is null.
type Record struct {
	Attributes map[string]*string `json:"attributes"`
	Truth      *string            `json:"truth,omitempty"`
	Prediction *string            `json:"prediction,omitempty"`
	Score      *float64           `json:"score,omitempty"`
}

// Field returns the outcome stored under the given field.
func (r Record) Field(f OutcomeField) *string {
	switch f {
	case TruthField:
		return r.Truth
	case PredictionField:
		return r.Prediction
	default:
		return nil
	}
}

// Group is the set of records sharing one protected attribute value.
type Group struct {
	Attribute string
	Value     string
	Records   []Record
}

// Size returns the number of records in the group.
func (g Group) Size() int {
	return len(g.Records)
}

// Partition is a total, disjoint split of a record set by one attribute.
type Partition struct {
	Attribute string
	Groups    []Group
}

// Lookup returns the group with the given value.
func (p Partition) Lookup(value string) (Group, bool) {
	for _, g := range p.Groups {
		if g.Value == value {
			return g, true
		}
	}
	return Group{}, false
}

// Values returns the group values in partition order.
func (p Partition) Values() []string {
	values := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		values[i] = g.Value
	}
	return values
}

// Total returns the number of records across all groups.
func (p Partition) Total() int {
	total := 0
	for _, g := range p.Groups {
		total += g.Size()
	}
	return total
}

// Table is a uniform tabular dataset as produced by ingestion.
type Table struct {
	Source  string
	Columns []string
	Rows    [][]*string

	// Absent marks cells whose key was missing from a JSON object, as
	// opposed to an explicit null. It is nil for delimited formats.
	Absent [][]bool
}

// IsAbsent reports whether the cell at row and col was missing from its source.
func (t Table) IsAbsent(row, col int) bool {
	if row < 0 || row >= len(t.Absent) || col < 0 || col >= len(t.Absent[row]) {
		return false
	}
	return t.Absent[row][col]
}

// ColumnIndex returns the position of a column, or -1 if it does not exist.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// StrPtr returns a pointer to s. Useful for building records in code.
func StrPtr(s string) *string {
	return &s
}
