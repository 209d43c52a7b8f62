package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/huangsam/fairspot/schema"
)

// metricPlan is the validated form of an EngineConfig.
type metricPlan struct {
	metrics  []schema.MetricDefinition
	cls      outcomeClassifier
	policy   schema.MissingPolicy
	pairwise schema.MetricName // first pairwise metric requested, if any
}

// attributePlan is one partition plus the pairs its pairwise metrics compare.
type attributePlan struct {
	partition schema.Partition
	pairs     []schema.GroupPair
	strata    []stratum
}

type stratum struct {
	value     string
	partition schema.Partition
}

// ComputeMetrics evaluates the requested catalog over records.
//
// It is a pure function: identical inputs yield identical results in the
// same order. Configuration and input-shape problems abort the whole call
// and no partial results are returned. Zero denominators are not errors;
// they produce results with a nil Value.
func ComputeMetrics(records []schema.Record, cfg schema.EngineConfig) ([]schema.MetricResult, error) {
	plan, err := planMetrics(records, cfg)
	if err != nil {
		return nil, err
	}

	attrPlans := make([]attributePlan, 0, len(cfg.Attributes))
	for _, sel := range selectorsFor(cfg, plan.policy) {
		ap, err := planAttribute(records, sel, cfg, plan)
		if err != nil {
			return nil, err
		}
		attrPlans = append(attrPlans, ap)
	}

	var results []schema.MetricResult
	for _, ap := range attrPlans {
		results = append(results, evaluate(ap.partition, ap.pairs, plan, "")...)
		for _, st := range ap.strata {
			results = append(results, evaluate(st.partition, ap.pairs, plan, st.value)...)
		}
	}
	return results, nil
}

// planMetrics validates the metric list, pairing and record shape, and
// resolves the positive class.
func planMetrics(records []schema.Record, cfg schema.EngineConfig) (metricPlan, error) {
	var plan metricPlan

	if len(cfg.Attributes) == 0 {
		return plan, &schema.ConfigurationError{Field: "attributes", Reason: "at least one protected attribute is required"}
	}
	if len(cfg.Metrics) == 0 {
		return plan, &schema.ConfigurationError{Field: "metrics", Reason: "no metrics requested"}
	}

	plan.policy = cfg.MissingAttribute
	if plan.policy == "" {
		plan.policy = schema.MissingError
	}
	if _, ok := schema.ValidMissingPolicies[plan.policy]; !ok {
		return plan, &schema.ConfigurationError{Field: "missing_attribute", Reason: fmt.Sprintf("unknown policy %q; must be error or unknown", cfg.MissingAttribute)}
	}

	if err := validateOverrideKeys(cfg); err != nil {
		return plan, err
	}

	seen := make(map[schema.MetricName]struct{}, len(cfg.Metrics))
	var needed []schema.OutcomeField
	for _, name := range cfg.Metrics {
		def, ok := schema.LookupMetric(name)
		if !ok {
			return plan, &schema.ConfigurationError{Metric: name, Reason: "unknown metric"}
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		plan.metrics = append(plan.metrics, def)
		if def.Scope == schema.PairScope && plan.pairwise == "" {
			plan.pairwise = name
		}
		for _, f := range def.Requires {
			if !containsField(needed, f) {
				needed = append(needed, f)
			}
		}
	}

	if plan.pairwise != "" {
		for _, attr := range pairingTargets(cfg) {
			if err := validatePairing(pairingFor(cfg, attr), plan.pairwise, attr); err != nil {
				return plan, err
			}
		}
	}

	for _, def := range plan.metrics {
		for _, f := range def.Requires {
			if missing := countMissing(records, f); missing > 0 {
				return plan, &schema.InputShapeError{Metric: def.Name, Field: string(f), Missing: missing, Total: len(records)}
			}
		}
	}

	cls, err := resolvePositiveClass(records, cfg.PositiveClass, needed, plan.metrics[0].Name)
	if err != nil {
		return plan, err
	}
	plan.cls = cls
	return plan, nil
}

// planAttribute partitions records for one selector and resolves its pairs
// and optional control strata.
func planAttribute(records []schema.Record, sel Selector, cfg schema.EngineConfig, plan metricPlan) (attributePlan, error) {
	var ap attributePlan

	part, err := PartitionRecords(records, sel, cfg.DeclaredGroups[sel.Label()])
	if err != nil {
		return ap, err
	}
	ap.partition = part

	if plan.pairwise != "" {
		ap.pairs, err = resolvePairs(part, pairingFor(cfg, sel.Label()), plan.pairwise)
		if err != nil {
			return ap, err
		}
	}

	if cfg.Control != "" {
		ap.strata, err = stratify(part, AttributeSelector{Name: cfg.Control, Policy: plan.policy}, cfg.DeclaredGroups[cfg.Control])
		if err != nil {
			return ap, err
		}
	}
	return ap, nil
}

// evaluate computes every planned metric over one partition.
func evaluate(part schema.Partition, pairs []schema.GroupPair, plan metricPlan, stratumValue string) []schema.MetricResult {
	stats := make(map[string]groupStats, len(part.Groups))
	for _, g := range part.Groups {
		stats[g.Value] = countGroup(g, plan.cls)
	}

	var results []schema.MetricResult
	for _, def := range plan.metrics {
		switch def.Scope {
		case schema.GroupScope:
			for _, g := range part.Groups {
				value, n := stats[g.Value].rateOf(def.Name)
				results = append(results, schema.MetricResult{
					Metric:     def.Name,
					Attribute:  part.Attribute,
					Stratum:    stratumValue,
					Group:      g.Value,
					Value:      value,
					SampleSize: n,
				})
			}
		case schema.PairScope:
			for _, p := range pairs {
				a, na := stats[p.A].rateOf(def.Name)
				b, nb := stats[p.B].rateOf(def.Name)
				results = append(results, schema.MetricResult{
					Metric:              def.Name,
					Attribute:           part.Attribute,
					Stratum:             stratumValue,
					Group:               p.A,
					Reference:           p.B,
					Value:               compare(def.Name, a, b),
					SampleSize:          na,
					ReferenceSampleSize: nb,
				})
			}
		}
	}
	return results
}

// selectorsFor returns one selector per attribute, or a single intersection.
func selectorsFor(cfg schema.EngineConfig, policy schema.MissingPolicy) []Selector {
	if cfg.Intersectional && len(cfg.Attributes) > 1 {
		return []Selector{IntersectionSelector{Names: cfg.Attributes, Policy: policy}}
	}
	selectors := make([]Selector, len(cfg.Attributes))
	for i, attr := range cfg.Attributes {
		selectors[i] = AttributeSelector{Name: attr, Policy: policy}
	}
	return selectors
}

// pairingTargets lists the partition labels that pairing applies to.
func pairingTargets(cfg schema.EngineConfig) []string {
	if cfg.Intersectional && len(cfg.Attributes) > 1 {
		return []string{IntersectionSelector{Names: cfg.Attributes}.Label()}
	}
	return cfg.Attributes
}

// pairingFor returns the per-attribute pairing override, or the default.
func pairingFor(cfg schema.EngineConfig, attribute string) schema.Pairing {
	if p, ok := cfg.Pairings[attribute]; ok {
		return p
	}
	return cfg.Pairing
}

// ScopeOverrides returns a copy of eng whose per-attribute pairings and
// declared groups keep only the keys its partitions use. It lets a shared
// base config serve requests that name a subset of its attributes.
func ScopeOverrides(eng schema.EngineConfig) schema.EngineConfig {
	targets := pairingTargets(eng)
	if eng.Pairings != nil {
		pairings := make(map[string]schema.Pairing, len(targets))
		for _, key := range targets {
			if p, ok := eng.Pairings[key]; ok {
				pairings[key] = p
			}
		}
		eng.Pairings = pairings
	}
	if eng.DeclaredGroups != nil {
		declared := make(map[string][]string, len(targets)+1)
		for key, groups := range eng.DeclaredGroups {
			if slices.Contains(targets, key) || (eng.Control != "" && key == eng.Control) {
				declared[key] = groups
			}
		}
		eng.DeclaredGroups = declared
	}
	return eng
}

// validateOverrideKeys rejects per-attribute pairings and declared groups
// keyed by a name that no partition uses.
func validateOverrideKeys(cfg schema.EngineConfig) error {
	targets := pairingTargets(cfg)
	for _, key := range slices.Sorted(maps.Keys(cfg.Pairings)) {
		if !slices.Contains(targets, key) {
			return &schema.ConfigurationError{Field: "pairings", Reason: fmt.Sprintf("attribute %q is not a configured partition; available: %v", key, targets)}
		}
	}
	partitions := targets
	if cfg.Control != "" {
		partitions = append(slices.Clone(targets), cfg.Control)
	}
	for _, key := range slices.Sorted(maps.Keys(cfg.DeclaredGroups)) {
		if !slices.Contains(partitions, key) {
			return &schema.ConfigurationError{Field: "declared_groups", Reason: fmt.Sprintf("attribute %q is not a configured partition; available: %v", key, partitions)}
		}
	}
	return nil
}

func validatePairing(p schema.Pairing, metric schema.MetricName, attribute string) error {
	switch p.Kind {
	case schema.PairingNone:
		return &schema.ConfigurationError{Metric: metric, Field: "pairing", Reason: fmt.Sprintf("no reference group or explicit pairs configured for attribute %q", attribute)}
	case schema.PairingReference:
		if p.Reference == "" {
			return &schema.ConfigurationError{Metric: metric, Field: "reference", Reason: fmt.Sprintf("reference pairing for attribute %q has an empty reference group", attribute)}
		}
	case schema.PairingExplicit:
		if len(p.Pairs) == 0 {
			return &schema.ConfigurationError{Metric: metric, Field: "pairs", Reason: fmt.Sprintf("explicit pairing for attribute %q lists no pairs", attribute)}
		}
	default:
		return &schema.ConfigurationError{Metric: metric, Field: "pairing", Reason: fmt.Sprintf("unknown pairing kind %q", p.Kind)}
	}
	return nil
}

// resolvePairs expands a pairing against a partition. Every referenced group
// must exist in the partition, either observed or declared.
func resolvePairs(part schema.Partition, p schema.Pairing, metric schema.MetricName) ([]schema.GroupPair, error) {
	missing := func(field, group string) error {
		return &schema.ConfigurationError{
			Metric: metric,
			Field:  field,
			Reason: fmt.Sprintf("group %q not found for attribute %q; available groups: %v", group, part.Attribute, part.Values()),
		}
	}

	switch p.Kind {
	case schema.PairingReference:
		if _, ok := part.Lookup(p.Reference); !ok {
			return nil, missing("reference", p.Reference)
		}
		pairs := make([]schema.GroupPair, 0, len(part.Groups))
		for _, g := range part.Groups {
			if g.Value == p.Reference {
				continue
			}
			pairs = append(pairs, schema.GroupPair{A: g.Value, B: p.Reference})
		}
		return pairs, nil
	case schema.PairingExplicit:
		for _, pair := range p.Pairs {
			if _, ok := part.Lookup(pair.A); !ok {
				return nil, missing("pairs", pair.A)
			}
			if _, ok := part.Lookup(pair.B); !ok {
				return nil, missing("pairs", pair.B)
			}
		}
		return p.Pairs, nil
	default:
		return nil, validatePairing(p, metric, part.Attribute)
	}
}

// stratify splits a partition by a control attribute. Every stratum keeps the
// full group list of the partition, so groups without records in a stratum
// appear as empty groups.
func stratify(part schema.Partition, control Selector, declared []string) ([]stratum, error) {
	var all []schema.Record
	for _, g := range part.Groups {
		all = append(all, g.Records...)
	}
	strataPart, err := PartitionRecords(all, control, declared)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]map[string][]schema.Record, len(strataPart.Groups))
	for _, g := range part.Groups {
		for _, r := range g.Records {
			value, err := control.Select(r)
			if err != nil {
				return nil, err
			}
			if buckets[value] == nil {
				buckets[value] = make(map[string][]schema.Record)
			}
			buckets[value][g.Value] = append(buckets[value][g.Value], r)
		}
	}

	strata := make([]stratum, len(strataPart.Groups))
	for i, sg := range strataPart.Groups {
		groups := make([]schema.Group, len(part.Groups))
		for j, g := range part.Groups {
			groups[j] = schema.Group{Attribute: part.Attribute, Value: g.Value, Records: buckets[sg.Value][g.Value]}
		}
		strata[i] = stratum{value: sg.Value, partition: schema.Partition{Attribute: part.Attribute, Groups: groups}}
	}
	return strata, nil
}

func countMissing(records []schema.Record, f schema.OutcomeField) int {
	missing := 0
	for _, r := range records {
		if r.Field(f) == nil {
			missing++
		}
	}
	return missing
}

func containsField(fields []schema.OutcomeField, f schema.OutcomeField) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
