// Package monitor implements the liquidation monitor (component C): it
// keeps position health up to date, raises alerts for at-risk positions,
// and exposes the periodic sweep the engine's background loop drives.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/health"
	"github.com/aegis-labs/aegis/internal/registry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// healthCalculationSLO is the requirement from spec.md §4.A: a single
// health calculation should complete in under 100ms.
const healthCalculationSLO = 100 * time.Millisecond

// AlertSink receives every alert the monitor raises. The escalating
// alert manager implements this.
type AlertSink interface {
	SendAlert(ctx context.Context, alert domain.RiskAlert) error
}

// Monitor owns the position registry and drives per-position health
// calculation and risk classification.
type Monitor struct {
	registry   *registry.Registry
	priceFeed  domain.PriceFeed
	alertSink  AlertSink
	calculators map[string]health.Calculator
	log        zerolog.Logger

	mu     sync.RWMutex
	params domain.RiskParameters
}

// New constructs a Monitor backed by reg, sourcing prices from feed and
// forwarding alerts to sink.
func New(reg *registry.Registry, feed domain.PriceFeed, sink AlertSink, log zerolog.Logger) *Monitor {
	calculators := make(map[string]health.Calculator)
	for _, protocol := range health.SupportedProtocols() {
		calc, err := health.NewCalculator(protocol)
		if err == nil {
			calculators[protocol] = calc
		}
	}

	return &Monitor{
		registry:    reg,
		priceFeed:   feed,
		alertSink:   sink,
		calculators: calculators,
		log:         log.With().Str("component", "monitor").Logger(),
		params:      domain.DefaultRiskParameters(),
	}
}

// AddPosition registers a new position and immediately checks its
// health, raising an alert synchronously if it is already at risk.
func (m *Monitor) AddPosition(ctx context.Context, position domain.Position) (uuid.UUID, error) {
	if err := m.registry.Add(position); err != nil {
		return uuid.Nil, err
	}
	m.log.Info().Str("position_id", position.ID.String()).Str("protocol", position.Protocol).Msg("position added")

	if err := m.checkPositionHealth(ctx, position.ID); err != nil {
		m.log.Warn().Err(err).Str("position_id", position.ID.String()).Msg("failed to check health for newly added position")
	}
	return position.ID, nil
}

// UpdatePosition replaces a registered position and re-checks its health.
func (m *Monitor) UpdatePosition(ctx context.Context, position domain.Position) error {
	if err := m.registry.Update(position); err != nil {
		return err
	}
	m.log.Info().Str("position_id", position.ID.String()).Str("protocol", position.Protocol).Msg("position updated")

	if err := m.checkPositionHealth(ctx, position.ID); err != nil {
		m.log.Warn().Err(err).Str("position_id", position.ID.String()).Msg("failed to check health for updated position")
	}
	return nil
}

// RemovePosition deregisters a position.
func (m *Monitor) RemovePosition(id uuid.UUID) error {
	if err := m.registry.Remove(id); err != nil {
		return err
	}
	m.log.Info().Str("position_id", id.String()).Msg("position removed")
	return nil
}

// GetPosition returns a clone of the registered position.
func (m *Monitor) GetPosition(id uuid.UUID) (domain.Position, error) {
	return m.registry.Get(id)
}

// ListPositions returns a clone of every registered position.
func (m *Monitor) ListPositions() []domain.Position {
	return m.registry.ListSnapshot()
}

// PositionCount returns the number of registered positions.
func (m *Monitor) PositionCount() int {
	return m.registry.Count()
}

// UpdateRiskParameters replaces the classification thresholds used by
// every subsequent calculation.
func (m *Monitor) UpdateRiskParameters(params domain.RiskParameters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = params
}

// RiskParameters returns the classification thresholds currently in use.
func (m *Monitor) RiskParameters() domain.RiskParameters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

// CalculateHealth recomputes the health factor for one position,
// fetching fresh prices for every token the position references. It
// logs a warning if the calculation exceeds the 100ms SLO.
func (m *Monitor) CalculateHealth(ctx context.Context, id uuid.UUID) (domain.HealthFactor, error) {
	start := time.Now()

	position, err := m.registry.Get(id)
	if err != nil {
		return domain.HealthFactor{}, &domain.CalculationFailedError{Message: fmt.Sprintf("position %s not found", id)}
	}

	calculator, ok := m.calculators[position.Protocol]
	if !ok {
		return domain.HealthFactor{}, &domain.UnsupportedProtocolError{Protocol: position.Protocol}
	}

	prices, err := m.priceFeed.GetPrices(ctx, position.RequiredTokens())
	if err != nil {
		return domain.HealthFactor{}, &domain.CalculationFailedError{Message: fmt.Sprintf("failed to fetch prices: %v", err)}
	}

	healthFactor, err := calculator.Calculate(position, prices)
	if err != nil {
		return domain.HealthFactor{}, err
	}

	elapsed := time.Since(start)
	if elapsed > healthCalculationSLO {
		m.log.Warn().
			Str("position_id", id.String()).
			Dur("elapsed", elapsed).
			Msg("health calculation exceeded 100ms requirement")
	}

	return healthFactor, nil
}

// MonitorPositions sweeps every registered position, classifies its
// risk, and dispatches an alert for every at-risk or failed position.
// The returned slice mirrors what was forwarded to the alert sink.
func (m *Monitor) MonitorPositions(ctx context.Context) []domain.RiskAlert {
	params := m.RiskParameters()
	positions := m.registry.ListSnapshot()
	alerts := make([]domain.RiskAlert, 0, len(positions))

	for _, position := range positions {
		healthFactor, err := m.CalculateHealth(ctx, position.ID)
		if err != nil {
			m.log.Error().Err(err).Str("position_id", position.ID.String()).Msg("failed to calculate health")
			alerts = append(alerts, domain.RiskAlert{
				ID:           uuid.New(),
				PositionID:   position.ID,
				Kind:         domain.AlertKindLiquidationRisk,
				Level:        domain.RiskLevelCritical,
				HealthFactor: domain.HealthFactor{Value: decimal.Zero, LiquidationThreshold: decimal.Zero},
				Message:      fmt.Sprintf("health calculation failed: %v", err),
				CreatedAt:    now(),
			})
			continue
		}

		if healthFactor.IsAtRisk(params) {
			level := healthFactor.RiskLevelFor(params)
			alerts = append(alerts, liquidationAlert(position.ID, healthFactor, level))
		}
	}

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].PositionID.String() < alerts[j].PositionID.String() })

	for _, alert := range alerts {
		if err := m.alertSink.SendAlert(ctx, alert); err != nil {
			m.log.Error().Err(err).Str("alert_id", alert.ID.String()).Msg("failed to send alert")
		}
	}

	return alerts
}

func (m *Monitor) checkPositionHealth(ctx context.Context, id uuid.UUID) error {
	healthFactor, err := m.CalculateHealth(ctx, id)
	if err != nil {
		return err
	}

	params := m.RiskParameters()
	if healthFactor.IsAtRisk(params) {
		level := healthFactor.RiskLevelFor(params)
		alert := liquidationAlert(id, healthFactor, level)
		if err := m.alertSink.SendAlert(ctx, alert); err != nil {
			m.log.Error().Err(err).Str("position_id", id.String()).Msg("failed to send immediate alert")
		}
	}
	return nil
}

func liquidationAlert(positionID uuid.UUID, healthFactor domain.HealthFactor, level domain.RiskLevel) domain.RiskAlert {
	var message string
	switch level {
	case domain.RiskLevelEmergency:
		message = fmt.Sprintf("EMERGENCY: position %s is at immediate liquidation risk. Health factor: %s", positionID, healthFactor.Value.StringFixed(4))
	case domain.RiskLevelCritical:
		message = fmt.Sprintf("CRITICAL: position %s approaching liquidation. Health factor: %s", positionID, healthFactor.Value.StringFixed(4))
	case domain.RiskLevelWarning:
		message = fmt.Sprintf("WARNING: position %s health declining. Health factor: %s", positionID, healthFactor.Value.StringFixed(4))
	default:
		message = fmt.Sprintf("position %s is healthy. Health factor: %s", positionID, healthFactor.Value.StringFixed(4))
	}

	return domain.RiskAlert{
		ID:           uuid.New(),
		PositionID:   positionID,
		Kind:         domain.AlertKindLiquidationRisk,
		Level:        level,
		HealthFactor: healthFactor,
		Message:      message,
		CreatedAt:    now(),
	}
}

func now() time.Time { return time.Now().UTC() }
