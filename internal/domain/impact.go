package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepthLevel is one price/quantity rung of a liquidity ladder.
type DepthLevel struct {
	Price               decimal.Decimal `json:"price"`
	Quantity            decimal.Decimal `json:"quantity"`
	CumulativeVolumeUSD decimal.Decimal `json:"cumulative_volume_usd"`
}

// LiquidityDepth is the merged depth ladder aggregated across every
// registered LiquidityProvider for one token.
type LiquidityDepth struct {
	TotalUSD decimal.Decimal `json:"total_usd"`
	Levels   []DepthLevel    `json:"levels"`
}

// TradeType tags why a simulated trade is being evaluated.
type TradeType string

const (
	TradeTypeLiquidation      TradeType = "liquidation"
	TradeTypePositionReduction TradeType = "position_reduction"
	TradeTypeEmergency        TradeType = "emergency"
	TradeTypeRebalancing      TradeType = "rebalancing"
)

// RiskFactorType tags the kind of risk a simulation surfaced.
type RiskFactorType string

const (
	RiskFactorHighPriceImpact RiskFactorType = "high_price_impact"
	RiskFactorLowLiquidity    RiskFactorType = "low_liquidity"
	RiskFactorVolatilitySpike RiskFactorType = "volatility_spike"
)

// RiskSeverity grades a RiskFactor.
type RiskSeverity string

const (
	SeverityLow      RiskSeverity = "low"
	SeverityMedium   RiskSeverity = "medium"
	SeverityHigh     RiskSeverity = "high"
	SeverityCritical RiskSeverity = "critical"
)

// RiskFactor is one reason a simulated trade may be risky.
type RiskFactor struct {
	Type        RiskFactorType  `json:"type"`
	Severity    RiskSeverity    `json:"severity"`
	Description string          `json:"description"`
	ImpactScore decimal.Decimal `json:"impact_score"`
}

// RecommendedAction is the simulator's pure-function verdict on how (or
// whether) to proceed with a trade.
type RecommendedAction string

const (
	RecommendExecuteImmediately    RecommendedAction = "execute_immediately"
	RecommendExecuteWithCaution    RecommendedAction = "execute_with_caution"
	RecommendSplitIntoSmallerTrades RecommendedAction = "split_into_smaller_trades"
	RecommendWaitForBetterConditions RecommendedAction = "wait_for_better_conditions"
	RecommendAbort                 RecommendedAction = "abort"
)

// PriceImpactSimulation is the raw output of walking the merged depth
// ladder for a requested trade size.
type PriceImpactSimulation struct {
	TokenAddress           TokenAddress    `json:"token_address"`
	TradeSizeUSD           decimal.Decimal `json:"trade_size_usd"`
	CurrentPrice           decimal.Decimal `json:"current_price"`
	ExecutionPrice         decimal.Decimal `json:"execution_price"`
	PriceImpactPercent     decimal.Decimal `json:"price_impact_percent"`
	LiquidityDepth         LiquidityDepth  `json:"liquidity_depth"`
	SimulatedAt            time.Time       `json:"simulated_at"`
}

// TradeOutcome is the simulator's estimate of what executing the trade
// would actually achieve.
type TradeOutcome struct {
	EstimatedProceedsUSD  decimal.Decimal `json:"estimated_proceeds_usd"`
	TotalPriceImpact      decimal.Decimal `json:"total_price_impact"`
	ExecutionTimeEstimate time.Duration   `json:"execution_time_estimate"`
	SuccessProbability    decimal.Decimal `json:"success_probability"`
}

// TradeSimulation is the full pre-trade assessment handed to the
// automation controller and exposed via the façade.
type TradeSimulation struct {
	PositionID       uuid.UUID         `json:"position_id"`
	TradeType        TradeType         `json:"trade_type"`
	TokenAddress     TokenAddress      `json:"token_address"`
	Amount           decimal.Decimal   `json:"amount"`
	ExpectedOutcome  TradeOutcome      `json:"expected_outcome"`
	RiskFactors      []RiskFactor      `json:"risk_factors"`
	Recommendation   RecommendedAction `json:"recommended_action"`
}
