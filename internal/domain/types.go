// Package domain holds the entities and capability interfaces shared by
// every Aegis subsystem: the position registry, the health calculators,
// the liquidation monitor, the alert manager, the price-impact simulator
// and the automated position manager.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenAddress identifies an on-chain asset within a Position.
type TokenAddress string

// PositionToken is one leg (collateral or debt) of a Position.
type PositionToken struct {
	TokenAddress   TokenAddress    `json:"token_address"`
	Amount         decimal.Decimal `json:"amount"`
	PricePerToken  decimal.Decimal `json:"price_per_token"`
	ValueUSD       decimal.Decimal `json:"value_usd"`
}

// Position is a single user's collateralized borrow on one lending
// protocol. The registry (package registry) is the sole owner of live
// Position values; every other component observes clones.
type Position struct {
	ID              uuid.UUID                        `json:"id"`
	Protocol        string                            `json:"protocol"`
	CollateralTokens map[TokenAddress]PositionToken   `json:"collateral_tokens"`
	DebtTokens       map[TokenAddress]PositionToken   `json:"debt_tokens"`
	CreatedAt        time.Time                        `json:"created_at"`
	UpdatedAt        time.Time                        `json:"updated_at"`
}

// Clone returns a deep copy so callers can never mutate registry state
// through an observed reference.
func (p Position) Clone() Position {
	out := p
	out.CollateralTokens = make(map[TokenAddress]PositionToken, len(p.CollateralTokens))
	for k, v := range p.CollateralTokens {
		out.CollateralTokens[k] = v
	}
	out.DebtTokens = make(map[TokenAddress]PositionToken, len(p.DebtTokens))
	for k, v := range p.DebtTokens {
		out.DebtTokens[k] = v
	}
	return out
}

// RequiredTokens returns every token address referenced by either leg of
// the position, suitable for a single batched price-feed call.
func (p Position) RequiredTokens() []TokenAddress {
	tokens := make([]TokenAddress, 0, len(p.CollateralTokens)+len(p.DebtTokens))
	for addr := range p.CollateralTokens {
		tokens = append(tokens, addr)
	}
	for addr := range p.DebtTokens {
		tokens = append(tokens, addr)
	}
	return tokens
}

// PriceData is a single quote for a token from a price-feed provider.
type PriceData struct {
	TokenAddress TokenAddress    `json:"token_address"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Timestamp    time.Time       `json:"timestamp"`
	Source       string          `json:"source"`
	Confidence   decimal.Decimal `json:"confidence"`
}

// MaxHealthFactor is the representable stand-in for +∞ used when a
// position carries zero debt.
var MaxHealthFactor = decimal.New(1, 18)

// HealthFactor is the result of a health calculation for one position at
// one point in time. It is derived, never persisted.
type HealthFactor struct {
	Value               decimal.Decimal `json:"value"`
	LiquidationThreshold decimal.Decimal `json:"liquidation_threshold"`
	CollateralValueUSD  decimal.Decimal `json:"collateral_value_usd"`
	DebtValueUSD        decimal.Decimal `json:"debt_value_usd"`
	CalculatedAt        time.Time       `json:"calculated_at"`
}

// RiskLevel classifies how close a position is to liquidation.
type RiskLevel string

const (
	RiskLevelSafe      RiskLevel = "safe"
	RiskLevelWarning   RiskLevel = "warning"
	RiskLevelCritical  RiskLevel = "critical"
	RiskLevelEmergency RiskLevel = "emergency"
)

// RiskParameters are the process-wide thresholds governing classification
// and automated-action eligibility. Held behind a readers-writer lock;
// writes are rare, reads happen on every sweep.
type RiskParameters struct {
	SafeThreshold              decimal.Decimal `json:"safe_threshold"`
	WarningThreshold           decimal.Decimal `json:"warning_threshold"`
	CriticalThreshold          decimal.Decimal `json:"critical_threshold"`
	EmergencyThreshold         decimal.Decimal `json:"emergency_threshold"`
	MaxPositionSizeUSD         decimal.Decimal `json:"max_position_size_usd"`
	MaxProtocolExposurePercent decimal.Decimal `json:"max_protocol_exposure_percent"`
}

// DefaultRiskParameters returns the spec's default thresholds:
// 1.50 / 1.30 / 1.10 / 1.05.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		SafeThreshold:              decimal.NewFromFloat(1.50),
		WarningThreshold:           decimal.NewFromFloat(1.30),
		CriticalThreshold:          decimal.NewFromFloat(1.10),
		EmergencyThreshold:         decimal.NewFromFloat(1.05),
		MaxPositionSizeUSD:         decimal.NewFromInt(1_000_000),
		MaxProtocolExposurePercent: decimal.NewFromInt(25),
	}
}

// IsAtRisk reports whether h warrants intervention consideration:
// value <= critical threshold.
func (h HealthFactor) IsAtRisk(params RiskParameters) bool {
	return h.Value.LessThanOrEqual(params.CriticalThreshold)
}

// RiskLevelFor classifies h against params. Boundaries are inclusive at
// each step: a value exactly equal to a threshold takes the more severe
// class.
func (h HealthFactor) RiskLevelFor(params RiskParameters) RiskLevel {
	switch {
	case h.Value.LessThanOrEqual(params.EmergencyThreshold):
		return RiskLevelEmergency
	case h.Value.LessThanOrEqual(params.CriticalThreshold):
		return RiskLevelCritical
	case h.Value.LessThanOrEqual(params.WarningThreshold):
		return RiskLevelWarning
	default:
		return RiskLevelSafe
	}
}

// AlertKind enumerates the reasons Aegis raises a RiskAlert.
type AlertKind string

const (
	AlertKindLiquidationRisk          AlertKind = "liquidation_risk"
	AlertKindPositionSizeExceeded     AlertKind = "position_size_exceeded"
	AlertKindProtocolExposureExceeded AlertKind = "protocol_exposure_exceeded"
	AlertKindPriceImpactHigh          AlertKind = "price_impact_high"
	AlertKindContractVulnerability    AlertKind = "contract_vulnerability"
	AlertKindMEVExposure              AlertKind = "mev_exposure"
)

// RiskAlert is a single risk event, fed to the escalating alert manager.
type RiskAlert struct {
	ID           uuid.UUID    `json:"id"`
	PositionID   uuid.UUID    `json:"position_id"`
	Kind         AlertKind    `json:"kind"`
	Level        RiskLevel    `json:"level"`
	HealthFactor HealthFactor `json:"health_factor"`
	Message      string       `json:"message"`
	CreatedAt    time.Time    `json:"created_at"`
	Acknowledged bool         `json:"acknowledged"`
}

// Statistics is the façade's get-statistics snapshot: enough to answer
// "how big is this deployment and how hot is it" without walking every
// internal store.
type Statistics struct {
	TotalPositions      int      `json:"total_positions"`
	ActiveAlerts        int      `json:"active_alerts"`
	SupportedProtocols  []string `json:"supported_protocols"`
}
