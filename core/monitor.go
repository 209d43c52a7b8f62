package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/outwriter"
	"github.com/huangsam/fairspot/schema"
	"github.com/robfig/cron/v3"
)

// VerdictTransition is a change of verdict status between two audits.
type VerdictTransition struct {
	Key  string
	From schema.VerdictStatus
	To   schema.VerdictStatus
}

// Monitor re-audits a dataset on a cron schedule and logs verdict changes.
type Monitor struct {
	cfg  *contract.Config
	mgr  contract.StoreManager
	cron *cron.Cron

	mu   sync.Mutex
	last map[string]schema.VerdictStatus
	runs int
}

// NewMonitor creates a monitor for the configured dataset and schedule.
func NewMonitor(cfg *contract.Config, mgr contract.StoreManager) *Monitor {
	return &Monitor{
		cfg:  cfg,
		mgr:  mgr,
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// ExecuteMonitor audits once immediately and then on every tick of the
// schedule until ctx is cancelled.
func ExecuteMonitor(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	return NewMonitor(cfg, mgr).Run(ctx)
}

// Run blocks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if _, err := m.cron.AddFunc(m.cfg.Schedule, func() { m.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", m.cfg.Schedule, err)
	}

	slog.Info("monitor started", "dataset", m.cfg.DatasetPath, "schedule", m.cfg.Schedule)
	m.tick(ctx)
	m.cron.Start()

	<-ctx.Done()
	stopped := m.cron.Stop()
	<-stopped.Done()
	slog.Info("monitor stopped", "runs", m.Runs())
	return nil
}

// Runs returns the number of completed audits.
func (m *Monitor) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// tick performs one audit. Failures are logged and the schedule keeps going.
func (m *Monitor) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, duration, err := GetAuditResults(WithSuppressHeader(ctx), m.cfg, m.mgr)
	if err != nil {
		slog.Error("scheduled audit failed", "dataset", m.cfg.DatasetPath, "error", err)
		return
	}
	m.observe(result.Verdicts)
	slog.Info("scheduled audit finished",
		"dataset", result.Dataset,
		"run_uuid", result.RunID,
		"records", result.RecordCount,
		"fair", fairOverall(result.Verdicts),
		"duration", duration)

	if m.cfg.Textfile != "" {
		if err := outwriter.WriteTextfile(m.cfg.Textfile, result); err != nil {
			slog.Warn("textfile export failed", "path", m.cfg.Textfile, "error", err)
		}
	}
}

// observe records the latest verdicts and logs every transition.
func (m *Monitor) observe(verdicts []schema.Verdict) []VerdictTransition {
	next := verdictStatuses(verdicts)

	m.mu.Lock()
	transitions := detectTransitions(m.last, next)
	m.last = next
	m.runs++
	m.mu.Unlock()

	for _, t := range transitions {
		level := slog.LevelInfo
		if t.To == schema.VerdictFail {
			level = slog.LevelWarn
		}
		slog.Log(context.Background(), level, "verdict changed", "verdict", t.Key, "from", t.From, "to", t.To)
	}
	return transitions
}

func transitionKey(v schema.Verdict) string {
	key := string(v.Metric) + "/" + v.Attribute
	if v.Stratum != "" {
		key += "@" + v.Stratum
	}
	return key
}

func verdictStatuses(verdicts []schema.Verdict) map[string]schema.VerdictStatus {
	statuses := make(map[string]schema.VerdictStatus, len(verdicts))
	for _, v := range verdicts {
		statuses[transitionKey(v)] = v.Status
	}
	return statuses
}

// detectTransitions lists the keys whose status differs between two audits,
// sorted by key. Nothing is reported on the first audit.
func detectTransitions(prev, next map[string]schema.VerdictStatus) []VerdictTransition {
	if prev == nil {
		return nil
	}
	var transitions []VerdictTransition
	for key, to := range next {
		if from, ok := prev[key]; ok && from != to {
			transitions = append(transitions, VerdictTransition{Key: key, From: from, To: to})
		}
	}
	slices.SortFunc(transitions, func(a, b VerdictTransition) int {
		return strings.Compare(a.Key, b.Key)
	})
	return transitions
}
