// Package diagnostics builds a point-in-time, JSON-serializable snapshot
// of engine state for export. Per spec.md §6, this is optional tooling
// around the core: nothing here is written to disk automatically, and no
// snapshot is retained once taken.
package diagnostics

import (
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Snapshot is a read-only export of everything the façade can see at one
// instant: positions, alert history, execution history, daily stats, the
// active risk parameters and whether automation is enabled.
type Snapshot struct {
	TakenAt           time.Time                  `json:"taken_at"`
	Positions         []domain.Position          `json:"positions"`
	Alerts            []domain.RiskAlert         `json:"alerts"`
	ExecutionHistory  []domain.ExecutionRecord   `json:"execution_history"`
	DailyStats        domain.DailyExecutionStats `json:"daily_stats"`
	RiskParameters    domain.RiskParameters      `json:"risk_parameters"`
	AutomationEnabled bool                       `json:"automation_enabled"`
}

// Source is the subset of the engine façade a diagnostics export reads.
type Source interface {
	ListPositions() []domain.Position
	GetAlerts(positionID *uuid.UUID) []domain.RiskAlert
	ExecutionHistory() []domain.ExecutionRecord
	DailyStats() domain.DailyExecutionStats
	RiskParameters() domain.RiskParameters
}

// Build assembles a Snapshot by reading every exposed store of src once.
func Build(src Source, automationEnabled bool) Snapshot {
	return Snapshot{
		TakenAt:           time.Now().UTC(),
		Positions:         src.ListPositions(),
		Alerts:            src.GetAlerts(nil),
		ExecutionHistory:  src.ExecutionHistory(),
		DailyStats:        src.DailyStats(),
		RiskParameters:    src.RiskParameters(),
		AutomationEnabled: automationEnabled,
	}
}

// DigestJob logs a condensed daily summary of engine state. It is a
// scheduler.Job, registered against a calendar schedule (e.g. once a day)
// rather than the ticker-driven sweep loops the core components use,
// since "once a day" is a calendar concept and not an interval one.
type DigestJob struct {
	src               Source
	automationEnabled func() bool
	log               zerolog.Logger
}

// NewDigestJob constructs a DigestJob reading from src. automationEnabled
// is a thunk rather than a bool so the job always reports the engine's
// current state, not the state at registration time.
func NewDigestJob(src Source, automationEnabled func() bool, log zerolog.Logger) *DigestJob {
	return &DigestJob{
		src:               src,
		automationEnabled: automationEnabled,
		log:               log.With().Str("component", "diagnostics.digest").Logger(),
	}
}

func (j *DigestJob) Name() string { return "diagnostic-digest" }

// Run takes a snapshot and logs its headline counters. It never fails;
// the error return exists to satisfy scheduler.Job.
func (j *DigestJob) Run() error {
	snapshot := Build(j.src, j.automationEnabled())
	j.log.Info().
		Int("positions", len(snapshot.Positions)).
		Int("alerts", len(snapshot.Alerts)).
		Int("trades_today", snapshot.DailyStats.TradesToday).
		Str("value_today_usd", snapshot.DailyStats.ValueTodayUSD.String()).
		Bool("automation_enabled", snapshot.AutomationEnabled).
		Msg("daily diagnostic digest")
	return nil
}
