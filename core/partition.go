package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/fairspot/schema"
)

// Selector maps a record to its group value.
type Selector interface {
	// Label names the attribute (or attribute combination) being selected.
	Label() string

	// Select returns the group value for r. Null values map to
	// schema.UnknownGroup; absent attributes follow the selector's policy.
	Select(r schema.Record) (string, error)
}

// AttributeSelector groups by a single attribute.
type AttributeSelector struct {
	Name   string
	Policy schema.MissingPolicy
}

// Label implements Selector.
func (s AttributeSelector) Label() string {
	return s.Name
}

// Select implements Selector.
func (s AttributeSelector) Select(r schema.Record) (string, error) {
	value, present := r.Attributes[s.Name]
	if !present {
		if s.Policy == schema.MissingAsUnknown {
			return schema.UnknownGroup, nil
		}
		return "", &schema.InputShapeError{Field: s.Name, Missing: 1, Total: 1}
	}
	if value == nil || strings.TrimSpace(*value) == "" {
		return schema.UnknownGroup, nil
	}
	return *value, nil
}

// IntersectionSelector groups by the combination of several attributes.
// A record is unknown if any of its attributes is null. Values containing
// schema.IntersectionSeparator are rejected so that distinct combinations
// never share a group value.
type IntersectionSelector struct {
	Names  []string
	Policy schema.MissingPolicy
}

// Label implements Selector.
func (s IntersectionSelector) Label() string {
	return strings.Join(s.Names, "&")
}

// Select implements Selector.
func (s IntersectionSelector) Select(r schema.Record) (string, error) {
	parts := make([]string, 0, len(s.Names))
	for _, name := range s.Names {
		v, err := AttributeSelector{Name: name, Policy: s.Policy}.Select(r)
		if err != nil {
			return "", err
		}
		if v == schema.UnknownGroup {
			return schema.UnknownGroup, nil
		}
		if strings.Contains(v, schema.IntersectionSeparator) {
			return "", &schema.InputShapeError{
				Field:  name,
				Reason: fmt.Sprintf("value %q contains the intersection separator %q", v, schema.IntersectionSeparator),
			}
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, schema.IntersectionSeparator), nil
}

// PartitionRecords splits records into disjoint groups using sel.
//
// Group order: declared values first (in declared order, kept even when
// empty), then the remaining observed values sorted ascending, then the
// unknown group. Records inside a group keep their input order.
func PartitionRecords(records []schema.Record, sel Selector, declared []string) (schema.Partition, error) {
	label := sel.Label()
	buckets := make(map[string][]schema.Record)
	var observed []string

	for _, r := range records {
		value, err := sel.Select(r)
		if err != nil {
			return schema.Partition{}, annotateShape(err, records, sel)
		}
		if _, ok := buckets[value]; !ok {
			observed = append(observed, value)
		}
		buckets[value] = append(buckets[value], r)
	}

	order := make([]string, 0, len(declared)+len(observed))
	placed := make(map[string]struct{}, len(declared)+len(observed))
	for _, v := range declared {
		if _, dup := placed[v]; dup {
			continue
		}
		placed[v] = struct{}{}
		order = append(order, v)
	}

	var rest []string
	hasUnknown := false
	for _, v := range observed {
		if _, ok := placed[v]; ok {
			continue
		}
		if v == schema.UnknownGroup {
			hasUnknown = true
			continue
		}
		rest = append(rest, v)
	}
	slices.Sort(rest)
	order = append(order, rest...)
	if hasUnknown {
		order = append(order, schema.UnknownGroup)
	}

	groups := make([]schema.Group, len(order))
	for i, v := range order {
		groups[i] = schema.Group{Attribute: label, Value: v, Records: buckets[v]}
	}
	return schema.Partition{Attribute: label, Groups: groups}, nil
}

// annotateShape rewrites a per-record shape error into a per-call one with
// the count of affected records.
func annotateShape(err error, records []schema.Record, sel Selector) error {
	shape, ok := err.(*schema.InputShapeError)
	if !ok || shape.Reason != "" {
		return err
	}
	missing := 0
	for _, r := range records {
		if _, e := sel.Select(r); e != nil {
			missing++
		}
	}
	return &schema.InputShapeError{Field: shape.Field, Missing: missing, Total: len(records)}
}
