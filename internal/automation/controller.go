// Package automation implements the automated position manager
// (component F): it evaluates intervention rules against each
// monitored position on a timer and executes the highest-priority
// matching rule's actions, subject to cooldowns, execution limits, and
// approval gating.
package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// evaluationInterval mirrors the reference controller's 30-second sweep.
const evaluationInterval = 30 * time.Second

// PositionSource is the subset of the liquidation monitor the
// controller depends on.
type PositionSource interface {
	ListPositions() []domain.Position
	CalculateHealth(ctx context.Context, id uuid.UUID) (domain.HealthFactor, error)
}

// TradeSimulator is the subset of the price-impact simulator the
// controller depends on.
type TradeSimulator interface {
	SimulateTrade(ctx context.Context, positionID uuid.UUID, tradeType domain.TradeType, token domain.TokenAddress, amount decimal.Decimal) (domain.TradeSimulation, error)
}

// AlertSink receives the alerts raised by SendAlert actions.
type AlertSink interface {
	SendAlert(ctx context.Context, alert domain.RiskAlert) error
}

// Controller is the automated position manager.
type Controller struct {
	mu     sync.RWMutex
	config domain.AutomationConfig

	positions  PositionSource
	simulator  TradeSimulator
	alertSink  AlertSink
	executor   domain.TradeExecutor

	historyMu sync.Mutex
	history   []domain.ExecutionRecord

	cooldownMu sync.Mutex
	cooldowns  map[uuid.UUID]time.Time

	statsMu sync.Mutex
	stats   domain.DailyExecutionStats

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool

	log zerolog.Logger
}

// New constructs a Controller using config's intervention rules and
// safety thresholds.
func New(config domain.AutomationConfig, positions PositionSource, simulator TradeSimulator, alertSink AlertSink, executor domain.TradeExecutor, log zerolog.Logger) *Controller {
	return &Controller{
		config:    config,
		positions: positions,
		simulator: simulator,
		alertSink: alertSink,
		executor:  executor,
		cooldowns: make(map[uuid.UUID]time.Time),
		stats:     domain.DailyExecutionStats{LastResetDate: time.Now().UTC()},
		stop:      make(chan struct{}),
		log:       log.With().Str("component", "automation").Logger(),
	}
}

// Start launches the periodic evaluation loop.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop()
}

// Stop signals the evaluation loop to exit and waits for it.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()

	close(c.stop)
	c.wg.Wait()
}

func (c *Controller) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(evaluationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.EvaluateAllPositions(context.Background())
		}
	}
}

// Config returns the current automation configuration.
func (c *Controller) Config() domain.AutomationConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// UpdateConfig replaces the automation configuration.
func (c *Controller) UpdateConfig(config domain.AutomationConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
}

// ExecutionHistory returns every recorded execution, oldest first.
func (c *Controller) ExecutionHistory() []domain.ExecutionRecord {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	out := make([]domain.ExecutionRecord, len(c.history))
	copy(out, c.history)
	return out
}

// EvaluateAllPositions runs rule evaluation for every monitored position.
// It is exported so the façade and tests can drive it synchronously
// instead of waiting on the ticker.
func (c *Controller) EvaluateAllPositions(ctx context.Context) {
	config := c.Config()
	if !config.Enabled {
		return
	}

	for _, position := range c.positions.ListPositions() {
		if err := c.evaluatePosition(ctx, position, config); err != nil {
			c.log.Error().Err(err).Str("position_id", position.ID.String()).Msg("failed to evaluate position")
		}
	}
}

func (c *Controller) evaluatePosition(ctx context.Context, position domain.Position, config domain.AutomationConfig) error {
	if c.inCooldown(position.ID, config.SafetyThresholds.CooldownPeriod) {
		return nil
	}

	healthFactor, err := c.positions.CalculateHealth(ctx, position.ID)
	if err != nil {
		return err
	}

	applicable := make([]domain.InterventionRule, 0, len(config.InterventionRules))
	for _, rule := range config.InterventionRules {
		if rule.Enabled && c.checkRuleConditions(rule, healthFactor) {
			applicable = append(applicable, rule)
		}
	}
	if len(applicable) == 0 {
		return nil
	}

	sort.Slice(applicable, func(i, j int) bool { return applicable[i].Priority > applicable[j].Priority })
	topRule := applicable[0]

	c.log.Info().Str("rule", topRule.Name).Str("position_id", position.ID.String()).Msg("applying intervention rule")
	c.executeInterventionRule(ctx, position, topRule, healthFactor, config)
	c.setCooldown(position.ID)
	return nil
}

func (c *Controller) checkRuleConditions(rule domain.InterventionRule, healthFactor domain.HealthFactor) bool {
	for _, condition := range rule.Conditions {
		if !evaluateCondition(condition, healthFactor) {
			return false
		}
	}
	return true
}

// evaluateCondition implements the conditions with enough information
// to decide today; PriceImpactAbove, VolatilityAbove, LiquidityBelow,
// time-window, and protocol-specific conditions need a trade simulation
// or market-state input the rule evaluator does not have at this stage
// and are left unmatched, mirroring the reference controller's
// placeholders.
func evaluateCondition(condition domain.InterventionCondition, healthFactor domain.HealthFactor) bool {
	switch condition.Kind {
	case domain.ConditionHealthFactorBelow:
		return healthFactor.Value.LessThan(condition.Threshold)
	case domain.ConditionHealthFactorAbove:
		return healthFactor.Value.GreaterThan(condition.Threshold)
	default:
		return false
	}
}

func (c *Controller) executeInterventionRule(ctx context.Context, position domain.Position, rule domain.InterventionRule, healthFactor domain.HealthFactor, config domain.AutomationConfig) {
	for _, action := range rule.Actions {
		record := domain.ExecutionRecord{
			ID:             uuid.New(),
			PositionID:     position.ID,
			Action:         action,
			TriggeringRule: rule.ID,
			Status:         domain.ExecutionPending,
			CreatedAt:      now(),
		}
		c.executeAction(ctx, &record, position, healthFactor, config)
		c.recordExecution(record)
	}
}

func (c *Controller) executeAction(ctx context.Context, record *domain.ExecutionRecord, position domain.Position, healthFactor domain.HealthFactor, config domain.AutomationConfig) {
	switch record.Action.Kind {
	case domain.ActionSendAlert:
		c.executeSendAlert(ctx, record, position, healthFactor)
	case domain.ActionReducePosition:
		c.executePositionReduction(ctx, record, position, config)
	case domain.ActionEmergencyExit:
		c.executeEmergencyExit(ctx, record, position)
	case domain.ActionAddCollateral:
		c.executeAddCollateral(ctx, record, position)
	case domain.ActionRepayDebt:
		c.executeRepayDebt(ctx, record, position)
	case domain.ActionPauseTrading:
		record.Status = domain.ExecutionCompleted
		c.log.Info().Str("position_id", position.ID.String()).Dur("duration", record.Action.PauseDuration).Msg("trading paused")
	}
}

func (c *Controller) executeSendAlert(ctx context.Context, record *domain.ExecutionRecord, position domain.Position, healthFactor domain.HealthFactor) {
	alert := domain.RiskAlert{
		ID:           uuid.New(),
		PositionID:   position.ID,
		Kind:         domain.AlertKindLiquidationRisk,
		Level:        record.Action.AlertLevel,
		HealthFactor: healthFactor,
		Message:      fmt.Sprintf("automated intervention triggered: %s", record.TriggeringRule),
		CreatedAt:    now(),
		Acknowledged: !record.Action.RequireAcknowledgment,
	}

	if err := c.alertSink.SendAlert(ctx, alert); err != nil {
		record.Status = domain.ExecutionFailed
		errMsg := err.Error()
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: errMsg}
		return
	}

	completed := now()
	record.Status = domain.ExecutionCompleted
	record.CompletedAt = &completed
	record.Result = &domain.ExecutionResult{Success: true}
}

func (c *Controller) executePositionReduction(ctx context.Context, record *domain.ExecutionRecord, position domain.Position, config domain.AutomationConfig) {
	if !c.checkExecutionLimits(config) {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: "execution limits exceeded"}
		return
	}

	token, tokenPosition, ok := firstCollateralToken(position)
	if !ok {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: "position has no collateral token to reduce"}
		return
	}

	reductionAmount := tokenPosition.Amount.Mul(record.Action.Percentage).Div(decimal.NewFromInt(100))

	simulation, err := c.simulator.SimulateTrade(ctx, position.ID, domain.TradeTypeLiquidation, token, reductionAmount)
	if err != nil {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: err.Error()}
		return
	}
	record.Simulation = &simulation

	if simulation.ExpectedOutcome.TotalPriceImpact.GreaterThan(record.Action.MaxPriceImpact) {
		c.log.Warn().Str("position_id", position.ID.String()).Str("price_impact", simulation.ExpectedOutcome.TotalPriceImpact.StringFixed(2)).Msg("price impact too high for automated reduction")
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{
			Success:           false,
			ActualPriceImpact: simulation.ExpectedOutcome.TotalPriceImpact,
			ErrorMessage:      "price impact too high",
		}
		return
	}

	tradeValue := reductionAmount.Mul(tokenPosition.PricePerToken)
	if tradeValue.GreaterThan(config.ApprovalRequirements.RequireHumanApprovalAboveUSD) {
		c.log.Warn().Str("position_id", position.ID.String()).Str("trade_value", tradeValue.StringFixed(2)).Msg("trade requires human approval")
		record.Status = domain.ExecutionAwaitingApproval
		return
	}

	record.Status = domain.ExecutionExecuting
	result, err := c.executor.ExecutePositionReduction(ctx, position.ID, token, reductionAmount)
	if err != nil {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: err.Error()}
		c.log.Error().Err(err).Str("position_id", position.ID.String()).Msg("failed to reduce position")
		return
	}

	completed := now()
	record.Status = domain.ExecutionCompleted
	record.CompletedAt = &completed
	record.Result = &result
	c.addDailyStats(tradeValue)
	c.log.Info().Str("position_id", position.ID.String()).Str("percentage", record.Action.Percentage.String()).Msg("successfully reduced position")
}

func (c *Controller) executeEmergencyExit(ctx context.Context, record *domain.ExecutionRecord, position domain.Position) {
	record.Status = domain.ExecutionExecuting
	result, err := c.executor.EmergencyExitPosition(ctx, position.ID)
	if err != nil {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: err.Error()}
		c.log.Error().Err(err).Str("position_id", position.ID.String()).Msg("emergency exit failed")
		return
	}

	completed := now()
	record.Status = domain.ExecutionCompleted
	record.CompletedAt = &completed
	record.Result = &result
	c.log.Info().Str("position_id", position.ID.String()).Msg("emergency exit completed")
}

func (c *Controller) executeAddCollateral(ctx context.Context, record *domain.ExecutionRecord, position domain.Position) {
	token, _, ok := firstCollateralToken(position)
	if !ok {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: "position has no collateral token"}
		return
	}

	amount := record.Action.MaxAmountUSD
	result, err := c.executor.AddCollateral(ctx, position.ID, token, amount)
	if err != nil {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: err.Error()}
		return
	}

	completed := now()
	record.Status = domain.ExecutionCompleted
	record.CompletedAt = &completed
	record.Result = &result
}

func (c *Controller) executeRepayDebt(ctx context.Context, record *domain.ExecutionRecord, position domain.Position) {
	token, tokenPosition, ok := firstDebtToken(position)
	if !ok {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: "position has no debt token to repay"}
		return
	}

	repayAmount := tokenPosition.Amount.Mul(record.Action.Percentage).Div(decimal.NewFromInt(100))
	result, err := c.executor.RepayDebt(ctx, position.ID, token, repayAmount)
	if err != nil {
		record.Status = domain.ExecutionFailed
		record.Result = &domain.ExecutionResult{Success: false, ErrorMessage: err.Error()}
		return
	}

	completed := now()
	record.Status = domain.ExecutionCompleted
	record.CompletedAt = &completed
	record.Result = &result
}

func (c *Controller) checkExecutionLimits(config domain.AutomationConfig) bool {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	nowUTC := time.Now().UTC()
	if nowUTC.Year() != c.stats.LastResetDate.Year() || nowUTC.YearDay() != c.stats.LastResetDate.YearDay() {
		c.stats = domain.DailyExecutionStats{LastResetDate: nowUTC}
	}

	if c.stats.TradesToday >= config.ExecutionLimits.MaxTradesPerDay {
		c.log.Warn().Int("trades_today", c.stats.TradesToday).Msg("daily trade limit exceeded")
		return false
	}
	if c.stats.ValueTodayUSD.GreaterThanOrEqual(config.ExecutionLimits.MaxTotalValuePerDayUSD) {
		c.log.Warn().Str("value_today", c.stats.ValueTodayUSD.String()).Msg("daily value limit exceeded")
		return false
	}
	return true
}

func (c *Controller) addDailyStats(tradeValue decimal.Decimal) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.TradesToday++
	c.stats.ValueTodayUSD = c.stats.ValueTodayUSD.Add(tradeValue)
}

// DailyStats returns a snapshot of today's execution volume.
func (c *Controller) DailyStats() domain.DailyExecutionStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *Controller) inCooldown(positionID uuid.UUID, cooldown time.Duration) bool {
	c.cooldownMu.Lock()
	defer c.cooldownMu.Unlock()

	last, ok := c.cooldowns[positionID]
	return ok && time.Since(last) < cooldown
}

func (c *Controller) setCooldown(positionID uuid.UUID) {
	c.cooldownMu.Lock()
	defer c.cooldownMu.Unlock()
	c.cooldowns[positionID] = time.Now()
}

func (c *Controller) recordExecution(record domain.ExecutionRecord) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = append(c.history, record)
}

// firstCollateralToken picks the reduction target deterministically:
// lowest token address, sorted lexically. spec.md §9 leaves the exact
// order implementation-defined but requires it be deterministic, which
// plain map iteration in Go is not.
func firstCollateralToken(position domain.Position) (domain.TokenAddress, domain.PositionToken, bool) {
	return firstToken(position.CollateralTokens)
}

func firstDebtToken(position domain.Position) (domain.TokenAddress, domain.PositionToken, bool) {
	return firstToken(position.DebtTokens)
}

func firstToken(tokens map[domain.TokenAddress]domain.PositionToken) (domain.TokenAddress, domain.PositionToken, bool) {
	if len(tokens) == 0 {
		return "", domain.PositionToken{}, false
	}
	addrs := make([]string, 0, len(tokens))
	for addr := range tokens {
		addrs = append(addrs, string(addr))
	}
	sort.Strings(addrs)
	first := domain.TokenAddress(addrs[0])
	return first, tokens[first], true
}

func now() time.Time { return time.Now().UTC() }
