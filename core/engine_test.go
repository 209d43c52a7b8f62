package core

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/huangsam/fairspot/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record builds a record from outcome values and attribute key/value pairs.
// An empty truth or prediction means the field is absent.
func record(truth, pred string, kv ...string) schema.Record {
	r := schema.Record{Attributes: make(map[string]*string, len(kv)/2)}
	if truth != "" {
		r.Truth = schema.StrPtr(truth)
	}
	if pred != "" {
		r.Prediction = schema.StrPtr(pred)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Attributes[kv[i]] = schema.StrPtr(kv[i+1])
	}
	return r
}

// workedExample has group X with predictions {1,1,0,0} and group Y with
// {1,0,0,0,0,0}.
func workedExample() []schema.Record {
	var records []schema.Record
	for _, p := range []string{"1", "1", "0", "0"} {
		records = append(records, record("", p, "race", "X"))
	}
	for _, p := range []string{"1", "0", "0", "0", "0", "0"} {
		records = append(records, record("", p, "race", "Y"))
	}
	return records
}

func find(t *testing.T, results []schema.MetricResult, metric schema.MetricName, group string) schema.MetricResult {
	t.Helper()
	for _, r := range results {
		if r.Metric == metric && r.Group == group && r.Stratum == "" {
			return r
		}
	}
	t.Fatalf("no %s result for group %q", metric, group)
	return schema.MetricResult{}
}

func TestComputeMetrics_WorkedExample(t *testing.T) {
	cfg := schema.EngineConfig{
		Attributes: []string{"race"},
		Metrics:    []schema.MetricName{schema.SelectionRate, schema.DisparateImpact, schema.StatisticalParityDifference},
		Pairing:    schema.ReferencePairing("Y"),
	}

	results, err := ComputeMetrics(workedExample(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, schema.SelectionRate, results[0].Metric)
	assert.Equal(t, "X", results[0].Group)
	assert.InDelta(t, 0.5, results[0].Float(), 1e-12)
	assert.Equal(t, 4, results[0].SampleSize)

	assert.Equal(t, "Y", results[1].Group)
	assert.InDelta(t, 1.0/6.0, results[1].Float(), 1e-12)
	assert.Equal(t, 6, results[1].SampleSize)

	di := results[2]
	assert.Equal(t, schema.DisparateImpact, di.Metric)
	assert.Equal(t, "X", di.Group)
	assert.Equal(t, "Y", di.Reference)
	assert.InDelta(t, 3.0, di.Float(), 1e-9)
	assert.Equal(t, 4, di.SampleSize)
	assert.Equal(t, 6, di.ReferenceSampleSize)

	spd := results[3]
	assert.Equal(t, schema.StatisticalParityDifference, spd.Metric)
	assert.InDelta(t, 1.0/3.0, spd.Float(), 1e-9)
}

func TestComputeMetrics_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   schema.EngineConfig
		field string
	}{
		{
			name:  "no attributes",
			cfg:   schema.EngineConfig{Metrics: []schema.MetricName{schema.SelectionRate}},
			field: "attributes",
		},
		{
			name:  "no metrics",
			cfg:   schema.EngineConfig{Attributes: []string{"race"}},
			field: "metrics",
		},
		{
			name: "unknown metric",
			cfg: schema.EngineConfig{
				Attributes: []string{"race"},
				Metrics:    []schema.MetricName{"accuracy"},
			},
		},
		{
			name: "pairwise without pairing",
			cfg: schema.EngineConfig{
				Attributes: []string{"race"},
				Metrics:    []schema.MetricName{schema.DisparateImpact},
			},
			field: "pairing",
		},
		{
			name: "reference not observed",
			cfg: schema.EngineConfig{
				Attributes: []string{"race"},
				Metrics:    []schema.MetricName{schema.StatisticalParityDifference},
				Pairing:    schema.ReferencePairing("Z"),
			},
			field: "reference",
		},
		{
			name: "explicit pair with unknown group",
			cfg: schema.EngineConfig{
				Attributes: []string{"race"},
				Metrics:    []schema.MetricName{schema.StatisticalParityDifference},
				Pairing:    schema.ExplicitPairs(schema.GroupPair{A: "X", B: "W"}),
			},
			field: "pairs",
		},
		{
			name: "declared groups for unconfigured attribute",
			cfg: schema.EngineConfig{
				Attributes:     []string{"race"},
				Metrics:        []schema.MetricName{schema.SelectionRate},
				DeclaredGroups: map[string][]string{"Race": {"Z"}},
			},
			field: "declared_groups",
		},
		{
			name: "pairing for unconfigured attribute",
			cfg: schema.EngineConfig{
				Attributes: []string{"race"},
				Metrics:    []schema.MetricName{schema.StatisticalParityDifference},
				Pairing:    schema.ReferencePairing("Y"),
				Pairings:   map[string]schema.Pairing{"gender": schema.ReferencePairing("F")},
			},
			field: "pairings",
		},
		{
			name: "bad missing policy",
			cfg: schema.EngineConfig{
				Attributes:       []string{"race"},
				Metrics:          []schema.MetricName{schema.SelectionRate},
				MissingAttribute: "drop",
			},
			field: "missing_attribute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := ComputeMetrics(workedExample(), tt.cfg)
			assert.Nil(t, results)
			var cfgErr *schema.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestComputeMetrics_DeclaredEmptyGroup(t *testing.T) {
	cfg := schema.EngineConfig{
		Attributes:     []string{"race"},
		DeclaredGroups: map[string][]string{"race": {"Z"}},
		Metrics:        []schema.MetricName{schema.SelectionRate, schema.DisparateImpact},
		Pairing:        schema.ReferencePairing("Z"),
	}

	results, err := ComputeMetrics(workedExample(), cfg)
	require.NoError(t, err)

	// Declared groups come first.
	assert.Equal(t, "Z", results[0].Group)
	assert.False(t, results[0].Defined())
	assert.Equal(t, 0, results[0].SampleSize)

	for _, r := range results {
		if r.Metric == schema.DisparateImpact {
			assert.Equal(t, "Z", r.Reference)
			assert.False(t, r.Defined(), "ratio against an empty reference must be undefined")
			assert.Equal(t, 0, r.ReferenceSampleSize)
		}
	}
}

func TestComputeMetrics_DisparateImpactZeroReference(t *testing.T) {
	records := []schema.Record{
		record("", "1", "sex", "F"),
		record("", "0", "sex", "F"),
		record("", "0", "sex", "M"),
		record("", "0", "sex", "M"),
	}
	cfg := schema.EngineConfig{
		Attributes: []string{"sex"},
		Metrics:    []schema.MetricName{schema.DisparateImpact, schema.StatisticalParityDifference},
		Pairing:    schema.ReferencePairing("M"),
	}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Defined())
	assert.True(t, results[1].Defined())
	assert.InDelta(t, 0.5, results[1].Float(), 1e-12)
}

func TestComputeMetrics_PositiveClass(t *testing.T) {
	t.Run("multiclass without designation", func(t *testing.T) {
		records := []schema.Record{
			record("", "low", "g", "a"),
			record("", "mid", "g", "a"),
			record("", "high", "g", "b"),
		}
		cfg := schema.EngineConfig{Attributes: []string{"g"}, Metrics: []schema.MetricName{schema.SelectionRate}}
		_, err := ComputeMetrics(records, cfg)
		var cfgErr *schema.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "positive_class", cfgErr.Field)
	})

	t.Run("multiclass with designation", func(t *testing.T) {
		records := []schema.Record{
			record("", "low", "g", "a"),
			record("", "high", "g", "a"),
			record("", "mid", "g", "b"),
		}
		cfg := schema.EngineConfig{
			Attributes:    []string{"g"},
			Metrics:       []schema.MetricName{schema.SelectionRate},
			PositiveClass: "high",
		}
		results, err := ComputeMetrics(records, cfg)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, find(t, results, schema.SelectionRate, "a").Float(), 1e-12)
		assert.InDelta(t, 0.0, find(t, results, schema.SelectionRate, "b").Float(), 1e-12)
	})

	t.Run("canonical pair is case insensitive", func(t *testing.T) {
		records := []schema.Record{
			record("", "Yes", "g", "a"),
			record("", "no", "g", "a"),
			record("", "YES", "g", "b"),
		}
		cfg := schema.EngineConfig{Attributes: []string{"g"}, Metrics: []schema.MetricName{schema.SelectionRate}}
		results, err := ComputeMetrics(records, cfg)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, find(t, results, schema.SelectionRate, "a").Float(), 1e-12)
		assert.InDelta(t, 1.0, find(t, results, schema.SelectionRate, "b").Float(), 1e-12)
	})

	t.Run("binary but not canonical", func(t *testing.T) {
		records := []schema.Record{
			record("", "approve", "g", "a"),
			record("", "deny", "g", "b"),
		}
		cfg := schema.EngineConfig{Attributes: []string{"g"}, Metrics: []schema.MetricName{schema.SelectionRate}}
		_, err := ComputeMetrics(records, cfg)
		var cfgErr *schema.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
	})

	t.Run("single observed negative value", func(t *testing.T) {
		records := []schema.Record{record("", "0", "g", "a"), record("", "0", "g", "a")}
		cfg := schema.EngineConfig{Attributes: []string{"g"}, Metrics: []schema.MetricName{schema.SelectionRate}}
		results, err := ComputeMetrics(records, cfg)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, results[0].Float(), 1e-12)
	})
}

func TestComputeMetrics_MissingOutcomeField(t *testing.T) {
	records := workedExample()
	records[2].Prediction = nil
	records[7].Prediction = nil

	cfg := schema.EngineConfig{Attributes: []string{"race"}, Metrics: []schema.MetricName{schema.SelectionRate}}
	results, err := ComputeMetrics(records, cfg)
	assert.Nil(t, results)

	var shapeErr *schema.InputShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, schema.SelectionRate, shapeErr.Metric)
	assert.Equal(t, "prediction", shapeErr.Field)
	assert.Equal(t, 2, shapeErr.Missing)
	assert.Equal(t, 10, shapeErr.Total)

	// Truth is not required for selection rate, so its absence is fine.
	cfg.Metrics = []schema.MetricName{schema.BaseRate}
	_, err = ComputeMetrics(workedExample(), cfg)
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "truth", shapeErr.Field)
}

func TestComputeMetrics_MissingAttribute(t *testing.T) {
	records := workedExample()
	records = append(records, schema.Record{Attributes: map[string]*string{}, Prediction: schema.StrPtr("1")})
	cfg := schema.EngineConfig{Attributes: []string{"race"}, Metrics: []schema.MetricName{schema.SelectionRate}}

	_, err := ComputeMetrics(records, cfg)
	var shapeErr *schema.InputShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "race", shapeErr.Field)
	assert.Equal(t, 1, shapeErr.Missing)
	assert.Equal(t, 11, shapeErr.Total)

	cfg.MissingAttribute = schema.MissingAsUnknown
	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, schema.UnknownGroup, results[2].Group)
	assert.Equal(t, 1, results[2].SampleSize)
}

func TestComputeMetrics_NullAttributeGoesToUnknown(t *testing.T) {
	records := []schema.Record{
		record("", "1", "sex", "M"),
		{Attributes: map[string]*string{"sex": nil}, Prediction: schema.StrPtr("0")},
		record("", "0", "sex", ""),
		record("", "1", "sex", "F"),
	}
	cfg := schema.EngineConfig{Attributes: []string{"sex"}, Metrics: []schema.MetricName{schema.SelectionRate}}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"F", "M", schema.UnknownGroup}, []string{results[0].Group, results[1].Group, results[2].Group})
	assert.Equal(t, 2, results[2].SampleSize)
}

func TestComputeMetrics_ErrorRates(t *testing.T) {
	// Group a: TP, FN, FP, TN. Group b: only negatives in truth.
	records := []schema.Record{
		record("1", "1", "g", "a"),
		record("1", "0", "g", "a"),
		record("0", "1", "g", "a"),
		record("0", "0", "g", "a"),
		record("0", "1", "g", "b"),
		record("0", "0", "g", "b"),
	}
	cfg := schema.EngineConfig{
		Attributes: []string{"g"},
		Metrics: []schema.MetricName{
			schema.BaseRate, schema.TruePositiveRate, schema.FalsePositiveRate,
			schema.EqualOpportunityDifference, schema.FalsePositiveRateDifference, schema.StatisticalParityDifference,
		},
		Pairing: schema.ReferencePairing("a"),
	}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, find(t, results, schema.BaseRate, "a").Float(), 1e-12)
	assert.InDelta(t, 0.0, find(t, results, schema.BaseRate, "b").Float(), 1e-12)

	tprA := find(t, results, schema.TruePositiveRate, "a")
	assert.InDelta(t, 0.5, tprA.Float(), 1e-12)
	assert.Equal(t, 2, tprA.SampleSize)

	tprB := find(t, results, schema.TruePositiveRate, "b")
	assert.False(t, tprB.Defined())
	assert.Equal(t, 0, tprB.SampleSize)

	assert.InDelta(t, 0.5, find(t, results, schema.FalsePositiveRate, "a").Float(), 1e-12)
	assert.InDelta(t, 0.5, find(t, results, schema.FalsePositiveRate, "b").Float(), 1e-12)

	// An undefined TPR makes the opportunity gap undefined but leaves
	// selection-rate metrics alone.
	assert.False(t, find(t, results, schema.EqualOpportunityDifference, "b").Defined())
	assert.InDelta(t, 0.0, find(t, results, schema.FalsePositiveRateDifference, "b").Float(), 1e-12)
	assert.InDelta(t, 0.0, find(t, results, schema.StatisticalParityDifference, "b").Float(), 1e-12)
}

func TestComputeMetrics_ExplicitPairsKeepOrder(t *testing.T) {
	records := append(workedExample(), record("", "1", "race", "Z"))
	cfg := schema.EngineConfig{
		Attributes: []string{"race"},
		Metrics:    []schema.MetricName{schema.StatisticalParityDifference},
		Pairing: schema.ExplicitPairs(
			schema.GroupPair{A: "Z", B: "X"},
			schema.GroupPair{A: "X", B: "Y"},
		),
	}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Z", results[0].Group)
	assert.Equal(t, "X", results[0].Reference)
	assert.InDelta(t, 0.5, results[0].Float(), 1e-12)
	assert.Equal(t, "X", results[1].Group)
	assert.Equal(t, "Y", results[1].Reference)
}

func TestComputeMetrics_ResultOrder(t *testing.T) {
	var records []schema.Record
	for _, race := range []string{"B", "A"} {
		for _, sex := range []string{"M", "F"} {
			records = append(records, record("", "1", "race", race, "sex", sex))
		}
	}
	cfg := schema.EngineConfig{
		Attributes: []string{"sex", "race"},
		Metrics:    []schema.MetricName{schema.StatisticalParityDifference, schema.SelectionRate},
		Pairings: map[string]schema.Pairing{
			"sex":  schema.ReferencePairing("M"),
			"race": schema.ReferencePairing("A"),
		},
	}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)

	type key struct {
		metric    schema.MetricName
		attribute string
		group     string
	}
	var got []key
	for _, r := range results {
		got = append(got, key{r.Metric, r.Attribute, r.Group})
	}
	assert.Equal(t, []key{
		{schema.StatisticalParityDifference, "sex", "F"},
		{schema.SelectionRate, "sex", "F"},
		{schema.SelectionRate, "sex", "M"},
		{schema.StatisticalParityDifference, "race", "B"},
		{schema.SelectionRate, "race", "A"},
		{schema.SelectionRate, "race", "B"},
	}, got)
}

func TestComputeMetrics_Intersectional(t *testing.T) {
	records := []schema.Record{
		record("", "1", "race", "A", "sex", "F"),
		record("", "0", "race", "A", "sex", "M"),
		record("", "1", "race", "B", "sex", "F"),
		{Attributes: map[string]*string{"race": schema.StrPtr("B"), "sex": nil}, Prediction: schema.StrPtr("0")},
	}
	cfg := schema.EngineConfig{
		Attributes:     []string{"race", "sex"},
		Intersectional: true,
		Metrics:        []schema.MetricName{schema.SelectionRate},
	}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, "race&sex", r.Attribute)
	}
	assert.Equal(t, "A|F", results[0].Group)
	assert.Equal(t, "A|M", results[1].Group)
	assert.Equal(t, "B|F", results[2].Group)
	assert.Equal(t, schema.UnknownGroup, results[3].Group)
}

func TestComputeMetrics_IntersectionSeparatorInValue(t *testing.T) {
	records := []schema.Record{
		record("", "1", "a", "x|y", "b", "z"),
		record("", "0", "a", "x", "b", "y|z"),
	}

	_, err := PartitionRecords(records, IntersectionSelector{Names: []string{"a", "b"}}, nil)
	var shapeErr *schema.InputShapeError
	require.True(t, errors.As(err, &shapeErr), "expected InputShapeError, got %v", err)
	assert.Equal(t, "a", shapeErr.Field)
	assert.Contains(t, shapeErr.Error(), "x|y")

	results, err := ComputeMetrics(records, schema.EngineConfig{
		Attributes:     []string{"a", "b"},
		Intersectional: true,
		Metrics:        []schema.MetricName{schema.SelectionRate},
	})
	assert.Nil(t, results)
	require.True(t, errors.As(err, &shapeErr), "expected InputShapeError, got %v", err)

	// A single attribute may still carry the separator.
	part, err := PartitionRecords(records, AttributeSelector{Name: "a"}, nil)
	require.NoError(t, err)
	assert.Len(t, part.Groups, 2)
}

func TestComputeMetrics_ConditionalParity(t *testing.T) {
	records := []schema.Record{
		record("", "1", "sex", "F", "dept", "eng"),
		record("", "0", "sex", "M", "dept", "eng"),
		record("", "1", "sex", "M", "dept", "eng"),
		record("", "1", "sex", "M", "dept", "ops"),
	}
	cfg := schema.EngineConfig{
		Attributes: []string{"sex"},
		Metrics:    []schema.MetricName{schema.SelectionRate},
		Control:    "dept",
	}

	results, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	require.Len(t, results, 6)

	// Overall results come first, then one block per stratum.
	assert.Equal(t, []string{"", "", "eng", "eng", "ops", "ops"}, []string{
		results[0].Stratum, results[1].Stratum, results[2].Stratum,
		results[3].Stratum, results[4].Stratum, results[5].Stratum,
	})

	engM := results[3]
	assert.Equal(t, "M", engM.Group)
	assert.InDelta(t, 0.5, engM.Float(), 1e-12)

	opsF := results[4]
	assert.Equal(t, "F", opsF.Group)
	assert.False(t, opsF.Defined())
	assert.Equal(t, 0, opsF.SampleSize)
}

func TestComputeMetrics_Idempotent(t *testing.T) {
	records := workedExample()
	records = append(records, record("", "1", "race", "W"), record("", "0", "race", "W"))
	cfg := schema.EngineConfig{
		Attributes: []string{"race"},
		Metrics:    []schema.MetricName{schema.SelectionRate, schema.DisparateImpact, schema.StatisticalParityDifference},
		Pairing:    schema.ReferencePairing("Y"),
	}

	first, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	second, err := ComputeMetrics(records, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	shuffled := append([]schema.Record(nil), records...)
	rng := rand.New(rand.NewPCG(7, 11))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	third, err := ComputeMetrics(shuffled, cfg)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestPartitionRecords_CoversEveryRecordOnce(t *testing.T) {
	records := workedExample()
	records = append(records, schema.Record{Attributes: map[string]*string{"race": nil}})

	part, err := PartitionRecords(records, AttributeSelector{Name: "race"}, []string{"Y", "Y", "Q"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "Q", "X", schema.UnknownGroup}, part.Values())
	assert.Equal(t, len(records), part.Total())

	g, ok := part.Lookup("Q")
	require.True(t, ok)
	assert.Equal(t, 0, g.Size())
}
