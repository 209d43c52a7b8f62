package schema

// GroupPair is an ordered comparison of group A against group B.
type GroupPair struct {
	A string `json:"a" mapstructure:"a"`
	B string `json:"b" mapstructure:"b"`
}

// Pairing selects which group pairs pairwise metrics compare. The zero value
// has kind PairingNone and is rejected when a pairwise metric is requested.
type Pairing struct {
	Kind      PairingKind `json:"kind"`
	Reference string      `json:"reference,omitempty"`
	Pairs     []GroupPair `json:"pairs,omitempty"`
}

// ReferencePairing compares every other group against ref.
func ReferencePairing(ref string) Pairing {
	return Pairing{Kind: PairingReference, Reference: ref}
}

// ExplicitPairs compares exactly the listed pairs, in order.
func ExplicitPairs(pairs ...GroupPair) Pairing {
	return Pairing{Kind: PairingExplicit, Pairs: pairs}
}

// EngineConfig is the full input configuration of one engine call.
type EngineConfig struct {
	// Attributes lists the protected attributes to partition by.
	Attributes []string `json:"attributes"`

	// Intersectional partitions by the combination of all attributes instead
	// of by each attribute separately.
	Intersectional bool `json:"intersectional,omitempty"`

	// DeclaredGroups lists expected group values per attribute. Declared
	// groups are reported even when they have no records.
	DeclaredGroups map[string][]string `json:"declared_groups,omitempty"`

	Metrics []MetricName `json:"metrics"`
	Pairing Pairing      `json:"pairing"`

	// Pairings overrides Pairing for individual attributes. Intersectional
	// partitions are keyed by their combined label, e.g. "race&sex".
	Pairings map[string]Pairing `json:"pairings,omitempty"`

	// PositiveClass designates the positive outcome. Empty means infer from
	// a binary outcome space.
	PositiveClass string `json:"positive_class,omitempty"`

	MissingAttribute MissingPolicy `json:"missing_attribute,omitempty"`

	// Control enables conditional parity within each value of this column.
	Control string `json:"control,omitempty"`
}
