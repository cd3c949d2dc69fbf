// Package engine assembles the position registry, health calculators,
// liquidation monitor, escalating alert manager, price-impact simulator
// and automated position manager into the single programmatic façade
// described in spec.md §6. It owns construction and the start/stop
// lifecycle of the three long-lived sweep loops plus the cron-scheduled
// diagnostic digest job; callers never reach into the component packages
// directly.
package engine

import (
	"context"
	"time"

	"github.com/aegis-labs/aegis/internal/alerts"
	"github.com/aegis-labs/aegis/internal/automation"
	"github.com/aegis-labs/aegis/internal/config"
	"github.com/aegis-labs/aegis/internal/diagnostics"
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/health"
	"github.com/aegis-labs/aegis/internal/impact"
	"github.com/aegis-labs/aegis/internal/monitor"
	"github.com/aegis-labs/aegis/internal/registry"
	"github.com/aegis-labs/aegis/internal/scheduler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Engine is the constructed handle returned by New. It is safe for
// concurrent use by any number of callers once Start has returned.
type Engine struct {
	cfg *config.Config
	log zerolog.Logger

	registry   *registry.Registry
	monitor    *monitor.Monitor
	alerts     *alerts.Manager
	impact     *impact.Simulator
	automation *automation.Controller
	scheduler  *scheduler.Scheduler
}

// noHistoricalData reports no price history, so the price-impact
// simulator's volatility-spike factor simply never fires rather than
// failing, when the caller has no HistoricalDataProvider to offer.
type noHistoricalData struct{}

func (noHistoricalData) GetHistoricalPrices(ctx context.Context, token domain.TokenAddress, days int) ([]decimal.Decimal, error) {
	return nil, nil
}

// Dependencies bundles the external collaborators the core consumes.
// PriceFeed and TradeExecutor are required; LiquidityProviders and
// HistoricalData may be nil/empty, in which case the price-impact
// simulator reports zero depth and zero volatility respectively rather
// than failing construction.
type Dependencies struct {
	PriceFeed          domain.PriceFeed
	TradeExecutor      domain.TradeExecutor
	LiquidityProviders map[string]domain.LiquidityProvider
	HistoricalData     domain.HistoricalDataProvider

	// Transports registers additional NotificationTransport
	// implementations beyond the built-in console/webhook pair, keyed by
	// the ChannelKind they serve. A caller-supplied transport for a kind
	// that already has a built-in replaces it.
	Transports map[domain.ChannelKind]domain.NotificationTransport
}

// New constructs an Engine wired to deps and cfg. It does not start any
// background task; call Start for that.
func New(deps Dependencies, cfg *config.Config, log zerolog.Logger) *Engine {
	reg := registry.New()

	transports := map[domain.ChannelKind]domain.NotificationTransport{
		domain.ChannelConsole: alerts.NewConsoleTransport(log),
		domain.ChannelWebhook: alerts.NewWebhookTransport(),
	}
	for kind, transport := range deps.Transports {
		transports[kind] = transport
	}

	alertManager := alerts.New(cfg.AlertConfiguration, transports, log)

	liquidityProviders := deps.LiquidityProviders
	if liquidityProviders == nil {
		liquidityProviders = map[string]domain.LiquidityProvider{}
	}
	historicalData := deps.HistoricalData
	if historicalData == nil {
		historicalData = noHistoricalData{}
	}
	simulator := impact.New(deps.PriceFeed, liquidityProviders, historicalData)

	liquidationMonitor := monitor.New(reg, deps.PriceFeed, alertManager, log)
	liquidationMonitor.UpdateRiskParameters(cfg.RiskParameters)

	automationController := automation.New(cfg.Automation, liquidationMonitor, simulator, alertManager, deps.TradeExecutor, log)

	e := &Engine{
		cfg:        cfg,
		log:        log.With().Str("component", "engine").Logger(),
		registry:   reg,
		monitor:    liquidationMonitor,
		alerts:     alertManager,
		impact:     simulator,
		automation: automationController,
		scheduler:  scheduler.New(log),
	}

	if err := e.scheduler.AddJob("0 0 0 * * *", diagnostics.NewDigestJob(e, e.AutomationEnabled, log)); err != nil {
		e.log.Error().Err(err).Msg("failed to register diagnostic digest job")
	}

	return e
}

// Start spawns the liquidation monitor's sweep, the automated position
// manager's evaluation loop, and the alert manager's notification and
// escalation workers. It returns immediately; every task runs on its own
// goroutine until Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.alerts.Start()
	if e.cfg.EnableAutomatedActions {
		e.automation.Start()
	}
	e.scheduler.Start()
	go e.runMonitorLoop(ctx)
	e.log.Info().Msg("engine started")
}

// Stop signals every background task to exit and waits for the alert
// manager and automation controller to drain. The monitor sweep loop
// exits when ctx (passed to Start) is cancelled.
func (e *Engine) Stop() {
	e.scheduler.Stop()
	e.automation.Stop()
	e.alerts.Stop()
	e.log.Info().Msg("engine stopped")
}

func (e *Engine) runMonitorLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.MonitoringInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.monitor.MonitorPositions(ctx)
		}
	}
}

// AddPosition registers a new position, triggering an immediate health
// check and alert (if warranted) before returning.
func (e *Engine) AddPosition(ctx context.Context, position domain.Position) (uuid.UUID, error) {
	return e.monitor.AddPosition(ctx, position)
}

// UpdatePosition replaces an existing position and re-checks its health.
func (e *Engine) UpdatePosition(ctx context.Context, position domain.Position) error {
	return e.monitor.UpdatePosition(ctx, position)
}

// RemovePosition deregisters a position.
func (e *Engine) RemovePosition(id uuid.UUID) error {
	return e.monitor.RemovePosition(id)
}

// GetPosition returns a clone of the registered position.
func (e *Engine) GetPosition(id uuid.UUID) (domain.Position, error) {
	return e.monitor.GetPosition(id)
}

// ListPositions returns a clone of every registered position.
func (e *Engine) ListPositions() []domain.Position {
	return e.monitor.ListPositions()
}

// GetPositionHealth recomputes the health factor for one position using
// freshly-fetched prices.
func (e *Engine) GetPositionHealth(ctx context.Context, id uuid.UUID) (domain.HealthFactor, error) {
	return e.monitor.CalculateHealth(ctx, id)
}

// SimulateTradeImpact runs the pre-trade price-impact simulation for
// reducing amount of token against positionID.
func (e *Engine) SimulateTradeImpact(ctx context.Context, positionID uuid.UUID, tradeType domain.TradeType, token domain.TokenAddress, amount decimal.Decimal) (domain.TradeSimulation, error) {
	return e.impact.SimulateTrade(ctx, positionID, tradeType, token, amount)
}

// GetAlerts returns alert history, optionally filtered to one position.
func (e *Engine) GetAlerts(positionID *uuid.UUID) []domain.RiskAlert {
	return e.alerts.GetAlerts(positionID)
}

// AcknowledgeAlert marks an alert acknowledged and halts its escalation.
func (e *Engine) AcknowledgeAlert(alertID uuid.UUID) error {
	return e.alerts.AcknowledgeAlert(alertID)
}

// ExecutionHistory returns every automated intervention recorded so far.
func (e *Engine) ExecutionHistory() []domain.ExecutionRecord {
	return e.automation.ExecutionHistory()
}

// DailyStats returns today's automated-execution volume.
func (e *Engine) DailyStats() domain.DailyExecutionStats {
	return e.automation.DailyStats()
}

// RiskParameters returns the classification thresholds currently in use.
func (e *Engine) RiskParameters() domain.RiskParameters {
	return e.monitor.RiskParameters()
}

// UpdateRiskParameters replaces the classification thresholds.
func (e *Engine) UpdateRiskParameters(params domain.RiskParameters) {
	e.monitor.UpdateRiskParameters(params)
}

// AutomationEnabled reports whether the automated position manager's
// evaluation loop is running.
func (e *Engine) AutomationEnabled() bool {
	return e.cfg.EnableAutomatedActions
}

// GetStatistics reports the deployment-level counters from spec.md §6:
// total positions, active (unacknowledged/escalating) alerts, and the
// number of protocols a health calculator is registered for.
func (e *Engine) GetStatistics() domain.Statistics {
	return domain.Statistics{
		TotalPositions:     e.monitor.PositionCount(),
		ActiveAlerts:       e.alerts.ActiveAlertCount(),
		SupportedProtocols: health.SupportedProtocols(),
	}
}
