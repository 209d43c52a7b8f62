package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for run tracking.
	DatabaseBackend string

	// MetricName identifies one entry of the metric catalog.
	MetricName string

	// MetricScope tells whether a metric applies to one group or to a pair.
	MetricScope string

	// OutcomeField names a per-record field a metric needs.
	OutcomeField string

	// PairingKind is the discriminator of the Pairing variant.
	PairingKind string

	// MissingPolicy controls what happens when a protected attribute is absent.
	MissingPolicy string

	// VerdictStatus classifies a parity verdict.
	VerdictStatus string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	YAMLOut    OutputMode = "yaml"
	ParquetOut OutputMode = "parquet"
)

// All run store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Metric catalog.
const (
	SelectionRate               MetricName = "selection_rate"
	BaseRate                    MetricName = "base_rate"
	TruePositiveRate            MetricName = "true_positive_rate"
	FalsePositiveRate           MetricName = "false_positive_rate"
	DisparateImpact             MetricName = "disparate_impact"
	StatisticalParityDifference MetricName = "statistical_parity_difference"
	EqualOpportunityDifference  MetricName = "equal_opportunity_difference"
	FalsePositiveRateDifference MetricName = "false_positive_rate_difference"
)

// Metric scopes.
const (
	GroupScope MetricScope = "group"
	PairScope  MetricScope = "pair"
)

// Outcome fields.
const (
	TruthField      OutcomeField = "truth"
	PredictionField OutcomeField = "prediction"
)

// Pairing kinds.
const (
	PairingNone      PairingKind = ""
	PairingReference PairingKind = "reference"
	PairingExplicit  PairingKind = "pairs"
)

// Missing attribute policies.
const (
	MissingError     MissingPolicy = "error" // default
	MissingAsUnknown MissingPolicy = "unknown"
)

// Verdict statuses.
const (
	VerdictPass         VerdictStatus = "pass"
	VerdictWarning      VerdictStatus = "warning"
	VerdictFail         VerdictStatus = "fail"
	VerdictInsufficient VerdictStatus = "insufficient"
)

// UnknownGroup holds records whose protected attribute is null.
const UnknownGroup = "(unknown)"

// IntersectionSeparator joins attribute values of an intersectional group.
const IntersectionSeparator = "|"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	YAMLOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid run store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidMissingPolicies lists all valid missing attribute policies.
var ValidMissingPolicies = map[MissingPolicy]struct{}{
	MissingError:     {},
	MissingAsUnknown: {},
}
