package outwriter

import (
	"fmt"
	"os"

	"github.com/huangsam/fairspot/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// NewAuditRegistry exposes an audit result as Prometheus gauges.
// Undefined metric values are left out.
func NewAuditRegistry(result *schema.AuditResult) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	value := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fairspot",
		Name:      "metric_value",
		Help:      "Fairness metric value per group or group pair.",
	}, []string{"metric", "attribute", "stratum", "group", "reference"})
	sampleSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fairspot",
		Name:      "group_sample_size",
		Help:      "Number of records in a group.",
	}, []string{"metric", "attribute", "stratum", "group"})
	disparity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fairspot",
		Name:      "verdict_disparity",
		Help:      "Max minus min of the verdict metric across groups.",
	}, []string{"metric", "attribute", "stratum"})
	fair := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fairspot",
		Name:      "verdict_fair",
		Help:      "1 if the disparity is within the threshold.",
	}, []string{"metric", "attribute", "stratum", "status"})
	records := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fairspot",
		Name:      "audit_records",
		Help:      "Number of records in the last audit.",
	})
	finished := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fairspot",
		Name:      "audit_last_run_timestamp_seconds",
		Help:      "Unix time at which the last audit started.",
	})

	for _, c := range []prometheus.Collector{value, sampleSize, disparity, fair, records, finished} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	for _, r := range result.Results {
		if r.Defined() {
			value.WithLabelValues(string(r.Metric), r.Attribute, r.Stratum, r.Group, r.Reference).Set(*r.Value)
		}
		if !r.IsPairwise() {
			sampleSize.WithLabelValues(string(r.Metric), r.Attribute, r.Stratum, r.Group).Set(float64(r.SampleSize))
		}
	}
	for _, v := range result.Verdicts {
		disparity.WithLabelValues(string(v.Metric), v.Attribute, v.Stratum).Set(v.Disparity)
		ok := 0.0
		if v.Fair {
			ok = 1
		}
		fair.WithLabelValues(string(v.Metric), v.Attribute, v.Stratum, string(v.Status)).Set(ok)
	}
	records.Set(float64(result.RecordCount))
	if !result.StartedAt.IsZero() {
		finished.Set(float64(result.StartedAt.Unix()))
	}
	return reg, nil
}

// WriteTextfile writes the audit gauges in the node_exporter textfile format.
func WriteTextfile(path string, result *schema.AuditResult) error {
	reg, err := NewAuditRegistry(result)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write textfile %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote metrics textfile to %s\n", path)
	return nil
}
