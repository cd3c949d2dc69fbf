package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InterventionConditionKind tags the variant held by an InterventionCondition.
type InterventionConditionKind string

const (
	ConditionHealthFactorBelow InterventionConditionKind = "health_factor_below"
	ConditionHealthFactorAbove InterventionConditionKind = "health_factor_above"
	ConditionPriceImpactAbove  InterventionConditionKind = "price_impact_above"
	ConditionVolatilityAbove   InterventionConditionKind = "volatility_above"
	ConditionLiquidityBelow    InterventionConditionKind = "liquidity_below"
	ConditionTimeWindow        InterventionConditionKind = "time_window"
	ConditionProtocolSpecific  InterventionConditionKind = "protocol_specific"
)

// InterventionCondition is a tagged-variant predicate evaluated against a
// position and its current health factor. Only the field matching Kind is
// meaningful.
type InterventionCondition struct {
	Kind InterventionConditionKind `json:"kind" yaml:"kind"`

	// Threshold is used by HealthFactorBelow/Above, PriceImpactAbove,
	// VolatilityAbove and LiquidityBelow.
	Threshold decimal.Decimal `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// TimeWindow fields, used by ConditionTimeWindow.
	StartHourUTC int `json:"start_hour_utc,omitempty" yaml:"start_hour_utc,omitempty"`
	EndHourUTC   int `json:"end_hour_utc,omitempty" yaml:"end_hour_utc,omitempty"`

	// ProtocolSpecific fields, used by ConditionProtocolSpecific.
	Protocol      string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	ConditionType string `json:"condition_type,omitempty" yaml:"condition_type,omitempty"`
}

// AutomatedActionKind tags the variant held by an AutomatedAction.
type AutomatedActionKind string

const (
	ActionReducePosition AutomatedActionKind = "reduce_position"
	ActionAddCollateral  AutomatedActionKind = "add_collateral"
	ActionRepayDebt      AutomatedActionKind = "repay_debt"
	ActionEmergencyExit  AutomatedActionKind = "emergency_exit"
	ActionSendAlert      AutomatedActionKind = "send_alert"
	ActionPauseTrading   AutomatedActionKind = "pause_trading"
)

// AutomatedAction is a tagged-variant action executed by the highest
// priority matching InterventionRule.
type AutomatedAction struct {
	Kind AutomatedActionKind `json:"kind" yaml:"kind"`

	// ReducePosition / RepayDebt.
	Percentage    decimal.Decimal `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	MaxPriceImpact decimal.Decimal `json:"max_price_impact,omitempty" yaml:"max_price_impact,omitempty"`

	// AddCollateral.
	TargetHealthFactor decimal.Decimal `json:"target_health_factor,omitempty" yaml:"target_health_factor,omitempty"`
	MaxAmountUSD       decimal.Decimal `json:"max_amount_usd,omitempty" yaml:"max_amount_usd,omitempty"`

	// EmergencyExit.
	AcceptHighSlippage bool `json:"accept_high_slippage,omitempty" yaml:"accept_high_slippage,omitempty"`

	// SendAlert.
	AlertLevel              RiskLevel `json:"alert_level,omitempty" yaml:"alert_level,omitempty"`
	RequireAcknowledgment   bool      `json:"require_acknowledgment,omitempty" yaml:"require_acknowledgment,omitempty"`

	// PauseTrading.
	PauseDuration time.Duration `json:"pause_duration,omitempty" yaml:"pause_duration,omitempty"`
}

// InterventionRule couples a set of AND'd conditions to an ordered list
// of actions, gated by priority and an enabled flag.
type InterventionRule struct {
	ID         string                   `json:"id" yaml:"id"`
	Name       string                   `json:"name" yaml:"name"`
	Conditions []InterventionCondition  `json:"conditions" yaml:"conditions"`
	Actions    []AutomatedAction        `json:"actions" yaml:"actions"`
	Priority   int                      `json:"priority" yaml:"priority"` // 1-10, higher first
	Enabled    bool                     `json:"enabled" yaml:"enabled"`
}

// ExecutionStatus is the lifecycle state of an ExecutionRecord.
type ExecutionStatus string

const (
	ExecutionPending          ExecutionStatus = "pending"
	ExecutionAwaitingApproval ExecutionStatus = "awaiting_approval"
	ExecutionApproved         ExecutionStatus = "approved"
	ExecutionExecuting        ExecutionStatus = "executing"
	ExecutionCompleted        ExecutionStatus = "completed"
	ExecutionFailed           ExecutionStatus = "failed"
	ExecutionCancelled        ExecutionStatus = "cancelled"
)

// ExecutionResult is the outcome reported by the external TradeExecutor.
type ExecutionResult struct {
	Success           bool            `json:"success"`
	TransactionRef    string          `json:"transaction_ref,omitempty"`
	AmountExecuted    decimal.Decimal `json:"amount_executed,omitempty"`
	ActualPriceImpact decimal.Decimal `json:"actual_price_impact,omitempty"`
	GasUsed           uint64          `json:"gas_used,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// ExecutionRecord is the audit trail entry for one AutomatedAction applied
// to one position.
type ExecutionRecord struct {
	ID              uuid.UUID        `json:"id"`
	PositionID      uuid.UUID        `json:"position_id"`
	Action          AutomatedAction  `json:"action"`
	TriggeringRule  string           `json:"triggering_rule"`
	Status          ExecutionStatus  `json:"status"`
	Simulation      *TradeSimulation `json:"simulation,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	Result          *ExecutionResult `json:"result,omitempty"`
}

// DailyExecutionStats tracks the automation controller's daily trade
// volume, reset when the UTC calendar day changes.
type DailyExecutionStats struct {
	TradesToday     int             `json:"trades_today"`
	ValueTodayUSD   decimal.Decimal `json:"value_today_usd"`
	LastResetDate   time.Time       `json:"last_reset_date"`
}

// SafetyThresholds bound when and how aggressively the automation
// controller intervenes.
type SafetyThresholds struct {
	AutoReduceThreshold        decimal.Decimal `json:"auto_reduce_threshold"`
	EmergencyExitThreshold     decimal.Decimal `json:"emergency_exit_threshold"`
	MaxPriceImpactPercent      decimal.Decimal `json:"max_price_impact_percent"`
	MaxPositionReductionPercent decimal.Decimal `json:"max_position_reduction_percent"`
	CooldownPeriod             time.Duration   `json:"cooldown_period"`
}

// ExecutionLimits bound total automated trading volume.
type ExecutionLimits struct {
	MaxTradesPerDay        int             `json:"max_trades_per_day"`
	MaxValuePerTradeUSD    decimal.Decimal `json:"max_value_per_trade_usd"`
	MaxTotalValuePerDayUSD decimal.Decimal `json:"max_total_value_per_day_usd"`
}

// ApprovalRequirements gates trades above a USD value behind an external
// approval workflow.
type ApprovalRequirements struct {
	RequireHumanApprovalAboveUSD decimal.Decimal `json:"require_human_approval_above_usd"`
	AutoApproveEmergencyExits    bool            `json:"auto_approve_emergency_exits"`
}

// AutomationConfig is the full tunable surface for the automated position
// manager (component F).
type AutomationConfig struct {
	Enabled              bool                 `json:"enabled" yaml:"enabled"`
	SafetyThresholds     SafetyThresholds     `json:"safety_thresholds" yaml:"safety_thresholds"`
	InterventionRules    []InterventionRule   `json:"intervention_rules" yaml:"intervention_rules"`
	ExecutionLimits      ExecutionLimits      `json:"execution_limits" yaml:"execution_limits"`
	ApprovalRequirements ApprovalRequirements `json:"approval_requirements" yaml:"approval_requirements"`
}

// DefaultAutomationConfig mirrors the defaults called out in spec.md §4.F:
// auto-reduce at 1.30, emergency-exit at 1.10, 5-minute cooldown, 25% max
// per-action reduction, $100k/trade, $1M/day, emergency exits auto-approved.
func DefaultAutomationConfig() AutomationConfig {
	return AutomationConfig{
		Enabled: true,
		SafetyThresholds: SafetyThresholds{
			AutoReduceThreshold:         decimal.NewFromFloat(1.30),
			EmergencyExitThreshold:      decimal.NewFromFloat(1.10),
			MaxPriceImpactPercent:       decimal.NewFromInt(5),
			MaxPositionReductionPercent: decimal.NewFromInt(25),
			CooldownPeriod:              5 * time.Minute,
		},
		InterventionRules: []InterventionRule{
			{
				ID:   "critical_health_reduction",
				Name: "Critical Health Factor Position Reduction",
				Conditions: []InterventionCondition{
					{Kind: ConditionHealthFactorBelow, Threshold: decimal.NewFromFloat(1.25)},
				},
				Actions: []AutomatedAction{
					{Kind: ActionSendAlert, AlertLevel: RiskLevelCritical, RequireAcknowledgment: true},
					{Kind: ActionReducePosition, Percentage: decimal.NewFromInt(20), MaxPriceImpact: decimal.NewFromInt(3)},
				},
				Priority: 8,
				Enabled:  true,
			},
			{
				ID:   "emergency_exit",
				Name: "Emergency Position Exit",
				Conditions: []InterventionCondition{
					{Kind: ConditionHealthFactorBelow, Threshold: decimal.NewFromFloat(1.10)},
				},
				Actions: []AutomatedAction{
					{Kind: ActionSendAlert, AlertLevel: RiskLevelEmergency, RequireAcknowledgment: false},
					{Kind: ActionEmergencyExit, AcceptHighSlippage: true},
				},
				Priority: 10,
				Enabled:  true,
			},
		},
		ExecutionLimits: ExecutionLimits{
			MaxTradesPerDay:        50,
			MaxValuePerTradeUSD:    decimal.NewFromInt(100_000),
			MaxTotalValuePerDayUSD: decimal.NewFromInt(1_000_000),
		},
		ApprovalRequirements: ApprovalRequirements{
			RequireHumanApprovalAboveUSD: decimal.NewFromInt(50_000),
			AutoApproveEmergencyExits:    true,
		},
	}
}
