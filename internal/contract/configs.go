package contract

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/fairspot/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 3
	MaxPrecision     = 6
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
	DefaultSchedule  = "@every 1h"
	DefaultListen    = ":8080"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// configValidate checks the struct-level rules of the final Config.
var configValidate = validator.New()

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ThresholdsRawInput holds policy check thresholds from the YAML config file.
type ThresholdsRawInput struct {
	SPD  *float64 `mapstructure:"spd"`
	DI   *float64 `mapstructure:"di"`
	EOD  *float64 `mapstructure:"eod"`
	FPRD *float64 `mapstructure:"fprd"`
}

// Config holds the runtime configuration for an audit.
// This struct remains the "final, validated" config.
type Config struct {
	DatasetPath string
	Delimiter   rune
	DropNA      bool

	TruthColumn      string
	PredictionColumn string
	ScoreColumn      string
	Favorable        string

	// Engine is passed to core.ComputeMetrics as-is
	Engine schema.EngineConfig

	VerdictMetric    schema.MetricName
	VerdictThreshold float64 `validate:"gt=0,lte=1"`

	// CheckThresholds is a mapping of [MetricName] = gate threshold
	CheckThresholds map[schema.MetricName]float64

	Target string // Column whose values are counted by explore

	Workers    int `validate:"gte=1"`
	Precision  int `validate:"gte=1,lte=6"`
	Output     schema.OutputMode
	OutputFile string
	Width      int `validate:"gte=0"` // Terminal width override (0 = auto-detect)
	Chart      bool
	Textfile   string // Prometheus textfile path

	Schedule string
	Listen   string

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DatasetPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Truth            string `mapstructure:"truth"`
	Prediction       string `mapstructure:"prediction"`
	Score            string `mapstructure:"score"`
	Favorable        string `mapstructure:"favorable"`
	Attributes       string `mapstructure:"attributes"`
	Intersectional   bool   `mapstructure:"intersectional"`
	Control          string `mapstructure:"control"`
	Metrics          string `mapstructure:"metrics"`
	Reference        string `mapstructure:"reference"`
	Pairs            string `mapstructure:"pairs"`
	PositiveClass    string `mapstructure:"positive-class"`
	MissingAttribute string `mapstructure:"missing-attribute"`
	Delimiter        string `mapstructure:"delimiter"`
	DropNA           bool   `mapstructure:"drop-na"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	RunBackend       string `mapstructure:"run-backend"`
	RunDBConnect     string `mapstructure:"run-db-connect"`
	LogLevel         string `mapstructure:"log-level"`
	LogFormat        string `mapstructure:"log-format"`
	Color            string `mapstructure:"color"`

	// --- Fields from auditCmd.Flags() ---
	VerdictMetric    string  `mapstructure:"verdict-metric"`
	VerdictThreshold float64 `mapstructure:"verdict-threshold"`
	Chart            bool    `mapstructure:"chart"`
	Textfile         string  `mapstructure:"textfile"`

	// --- Fields from exploreCmd.Flags() ---
	Target string `mapstructure:"target"`

	// --- Fields from monitorCmd.Flags() and serveCmd.Flags() ---
	Schedule string `mapstructure:"schedule"`
	Listen   string `mapstructure:"listen"`

	// --- Fields from checkCmd.Flags() ---
	ThresholdsStr string `mapstructure:"thresholds-override"`

	// --- Sections only available from the config file ---
	Thresholds     ThresholdsRawInput  `mapstructure:"thresholds"`
	References     map[string]string   `mapstructure:"references"`
	DeclaredGroups map[string][]string `mapstructure:"declared-groups"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Engine.Attributes = append([]string(nil), c.Engine.Attributes...)
	clone.Engine.Metrics = append([]schema.MetricName(nil), c.Engine.Metrics...)
	clone.Engine.Pairing.Pairs = append([]schema.GroupPair(nil), c.Engine.Pairing.Pairs...)
	if c.Engine.Pairings != nil {
		clone.Engine.Pairings = maps.Clone(c.Engine.Pairings)
	}
	if c.Engine.DeclaredGroups != nil {
		clone.Engine.DeclaredGroups = make(map[string][]string, len(c.Engine.DeclaredGroups))
		for attr, groups := range c.Engine.DeclaredGroups {
			clone.Engine.DeclaredGroups[attr] = append([]string(nil), groups...)
		}
	}
	if c.CheckThresholds != nil {
		clone.CheckThresholds = maps.Clone(c.CheckThresholds)
	}
	return &clone
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processEngineConfig(cfg, input); err != nil {
		return err
	}
	if err := processVerdict(cfg, input); err != nil {
		return err
	}
	if err := processCheckThresholds(cfg, input); err != nil {
		return err
	}
	if err := resolveDatasetPath(cfg, input); err != nil {
		return err
	}
	if err := configValidate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("run-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("run-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all fields that need no cross-checks.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Chart = input.Chart
	cfg.Textfile = input.Textfile
	cfg.DropNA = input.DropNA
	cfg.Target = input.Target
	cfg.TruthColumn = strings.TrimSpace(input.Truth)
	cfg.PredictionColumn = strings.TrimSpace(input.Prediction)
	cfg.ScoreColumn = strings.TrimSpace(input.Score)
	cfg.Favorable = input.Favorable

	cfg.Schedule = input.Schedule
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	cfg.Listen = input.Listen
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	colors, err := ParseBoolString(defaultString(input.Color, "yes"))
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(defaultString(input.Output, string(schema.TextOut))))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, yaml, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	delim, err := parseDelimiter(input.Delimiter)
	if err != nil {
		return err
	}
	cfg.Delimiter = delim

	cfg.LogLevel = strings.ToLower(defaultString(input.LogLevel, DefaultLogLevel))
	cfg.LogFormat = strings.ToLower(defaultString(input.LogFormat, DefaultLogFormat))

	return validateBackendConfigs(cfg, input)
}

// validateBackendConfigs validates the run store backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(defaultString(input.RunBackend, string(schema.SQLiteBackend))))
	if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	return ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect)
}

// processEngineConfig builds the engine configuration from column and metric flags.
func processEngineConfig(cfg *Config, input *ConfigRawInput) error {
	eng := schema.EngineConfig{
		Attributes:     SplitList(input.Attributes),
		Intersectional: input.Intersectional,
		PositiveClass:  strings.TrimSpace(input.PositiveClass),
		Control:        strings.TrimSpace(input.Control),
	}

	eng.MissingAttribute = schema.MissingPolicy(strings.ToLower(defaultString(input.MissingAttribute, string(schema.MissingError))))
	if _, ok := schema.ValidMissingPolicies[eng.MissingAttribute]; !ok {
		return fmt.Errorf("invalid missing-attribute policy '%s'. must be error, unknown", input.MissingAttribute)
	}

	reference := strings.TrimSpace(input.Reference)
	switch {
	case reference != "" && input.Pairs != "":
		return fmt.Errorf("--reference and --pairs are mutually exclusive")
	case reference != "":
		eng.Pairing = schema.ReferencePairing(reference)
	case input.Pairs != "":
		pairs, err := ParsePairs(input.Pairs)
		if err != nil {
			return fmt.Errorf("invalid --pairs format: %w", err)
		}
		eng.Pairing = schema.ExplicitPairs(pairs...)
	}

	if len(input.References) > 0 {
		eng.Pairings = make(map[string]schema.Pairing, len(input.References))
		for attr, ref := range input.References {
			eng.Pairings[partitionKey(attr, eng)] = schema.ReferencePairing(ref)
		}
	}
	if len(input.DeclaredGroups) > 0 {
		eng.DeclaredGroups = make(map[string][]string, len(input.DeclaredGroups))
		for attr, groups := range input.DeclaredGroups {
			eng.DeclaredGroups[partitionKey(attr, eng)] = append([]string(nil), groups...)
		}
	}

	if input.Metrics != "" {
		metrics, err := ParseMetrics(input.Metrics)
		if err != nil {
			return err
		}
		eng.Metrics = metrics
	} else {
		pairwise := eng.Pairing.Kind != schema.PairingNone || len(eng.Pairings) > 0
		eng.Metrics = DefaultMetrics(cfg.TruthColumn != "", cfg.PredictionColumn != "", pairwise)
	}

	cfg.Engine = eng
	return nil
}

// ResolveVerdictMetric validates a requested verdict metric. An empty name
// means selection_rate, or base_rate when no prediction column is mapped.
func ResolveVerdictMetric(name string, hasPrediction bool) (schema.MetricName, error) {
	metric := schema.MetricName(strings.ToLower(strings.TrimSpace(name)))
	if metric == "" {
		if hasPrediction {
			return schema.SelectionRate, nil
		}
		return schema.BaseRate, nil
	}
	def, ok := schema.LookupMetric(metric)
	if !ok || def.Scope != schema.GroupScope {
		return "", fmt.Errorf("invalid verdict metric '%s'. must be a per-group metric", name)
	}
	return metric, nil
}

// partitionKey maps a config map key back to the column it names. Viper
// lowercases map keys, so "Sex" in a config file arrives as "sex". Keys
// matching no attribute are returned as-is for the engine to reject.
func partitionKey(key string, eng schema.EngineConfig) string {
	candidates := append(slices.Clone(eng.Attributes), strings.Join(eng.Attributes, "&"))
	if eng.Control != "" {
		candidates = append(candidates, eng.Control)
	}
	for _, c := range candidates {
		if c == key {
			return c
		}
	}
	for _, c := range candidates {
		if strings.EqualFold(c, key) {
			return c
		}
	}
	return key
}

// processVerdict resolves the per-group metric and threshold used for parity verdicts.
func processVerdict(cfg *Config, input *ConfigRawInput) error {
	metric, err := ResolveVerdictMetric(input.VerdictMetric, cfg.PredictionColumn != "")
	if err != nil {
		return err
	}
	cfg.VerdictMetric = metric

	cfg.VerdictThreshold = input.VerdictThreshold
	if cfg.VerdictThreshold == 0 {
		cfg.VerdictThreshold = schema.DefaultParityThreshold
	}
	return nil
}

// processCheckThresholds converts the raw threshold input into the final cfg.CheckThresholds map.
// Command-line --thresholds-override flag takes precedence over config file settings.
func processCheckThresholds(cfg *Config, input *ConfigRawInput) error {
	thresholds := schema.DefaultCheckThresholds()

	if input.Thresholds.SPD != nil {
		thresholds[schema.StatisticalParityDifference] = *input.Thresholds.SPD
	}
	if input.Thresholds.DI != nil {
		thresholds[schema.DisparateImpact] = *input.Thresholds.DI
	}
	if input.Thresholds.EOD != nil {
		thresholds[schema.EqualOpportunityDifference] = *input.Thresholds.EOD
	}
	if input.Thresholds.FPRD != nil {
		thresholds[schema.FalsePositiveRateDifference] = *input.Thresholds.FPRD
	}

	if input.ThresholdsStr != "" {
		parsed, err := ParseCheckThresholds(input.ThresholdsStr)
		if err != nil {
			return fmt.Errorf("invalid --thresholds-override format: %w", err)
		}
		maps.Copy(thresholds, parsed)
	}

	for metric, threshold := range thresholds {
		if metric == schema.DisparateImpact {
			if threshold <= 0 || threshold > 1 {
				return fmt.Errorf("threshold for %s must be in (0, 1] (received %.2f)", metric, threshold)
			}
			continue
		}
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("threshold for %s must be between 0.0 and 1.0 (received %.2f)", metric, threshold)
		}
	}

	cfg.CheckThresholds = thresholds
	return nil
}

// resolveDatasetPath checks that the positional dataset exists and makes it absolute.
func resolveDatasetPath(cfg *Config, input *ConfigRawInput) error {
	if input.DatasetPathStr == "" {
		return nil
	}
	absPath, err := ResolveDatasetPath(input.DatasetPathStr)
	if err != nil {
		return err
	}
	cfg.DatasetPath = absPath
	return nil
}

// ResolveDatasetPath returns the absolute path of a readable dataset file.
func ResolveDatasetPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve dataset path %q: %w", path, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("dataset %q is not readable: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("dataset %q is a directory", path)
	}
	return absPath, nil
}

// DefaultMetrics returns every catalog metric whose required fields are available.
// Pairwise metrics are only included when a pairing is configured.
func DefaultMetrics(hasTruth, hasPrediction, pairwise bool) []schema.MetricName {
	var metrics []schema.MetricName
	for _, def := range schema.Catalog {
		if def.Scope == schema.PairScope && !pairwise {
			continue
		}
		ok := true
		for _, f := range def.Requires {
			if (f == schema.TruthField && !hasTruth) || (f == schema.PredictionField && !hasPrediction) {
				ok = false
			}
		}
		if ok {
			metrics = append(metrics, def.Name)
		}
	}
	return metrics
}

// ParseMetrics parses a comma-separated list of catalog metric names.
func ParseMetrics(s string) ([]schema.MetricName, error) {
	var metrics []schema.MetricName
	for _, name := range SplitList(s) {
		metric := schema.MetricName(strings.ToLower(name))
		if _, ok := schema.LookupMetric(metric); !ok {
			return nil, fmt.Errorf("invalid metric '%s'. run 'fairspot metrics' to list the catalog", name)
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}

// ParseCheckThresholds parses a string like "spd:0.1,di:0.8,eod:0.1,fprd:0.1"
// into a map of MetricName to float64.
func ParseCheckThresholds(s string) (map[schema.MetricName]float64, error) {
	thresholds := make(map[schema.MetricName]float64)

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		keyValue := strings.Split(part, ":")
		if len(keyValue) != 2 {
			return nil, fmt.Errorf("invalid threshold format '%s', expected 'metric:value'", part)
		}

		key := strings.ToLower(strings.TrimSpace(keyValue[0]))
		valueStr := strings.TrimSpace(keyValue[1])

		metric, ok := schema.CheckAliases[key]
		if !ok {
			return nil, fmt.Errorf("invalid metric '%s', must be spd, di, eod, or fprd", key)
		}

		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold value '%s' for metric %s: %w", valueStr, key, err)
		}

		thresholds[metric] = value
	}

	return thresholds, nil
}

// ParsePairs parses a string like "X:Y,Z:Y" into ordered group pairs.
func ParsePairs(s string) ([]schema.GroupPair, error) {
	var pairs []schema.GroupPair
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		a, b, found := strings.Cut(part, ":")
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if !found || a == "" || b == "" {
			return nil, fmt.Errorf("invalid pair '%s', expected 'group:reference'", part)
		}
		pairs = append(pairs, schema.GroupPair{A: a, B: b})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no pairs in %q", s)
	}
	return pairs, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character (received %q)", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}
