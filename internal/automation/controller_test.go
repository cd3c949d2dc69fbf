package automation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aegis-labs/aegis/internal/automation"
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePositionSource struct {
	positions []domain.Position
	health    map[uuid.UUID]domain.HealthFactor
}

func (f *fakePositionSource) ListPositions() []domain.Position { return f.positions }

func (f *fakePositionSource) CalculateHealth(ctx context.Context, id uuid.UUID) (domain.HealthFactor, error) {
	return f.health[id], nil
}

type fakeSimulator struct {
	simulation domain.TradeSimulation
	err        error
}

func (f *fakeSimulator) SimulateTrade(ctx context.Context, positionID uuid.UUID, tradeType domain.TradeType, token domain.TokenAddress, amount decimal.Decimal) (domain.TradeSimulation, error) {
	return f.simulation, f.err
}

type fakeAlertSink struct {
	mu    sync.Mutex
	sent  []domain.RiskAlert
}

func (f *fakeAlertSink) SendAlert(ctx context.Context, alert domain.RiskAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, alert)
	return nil
}

func (f *fakeAlertSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeExecutor struct {
	reduceCalls int
	exitCalls   int
}

func (f *fakeExecutor) ExecutePositionReduction(ctx context.Context, positionID uuid.UUID, token domain.TokenAddress, amount decimal.Decimal) (domain.ExecutionResult, error) {
	f.reduceCalls++
	return domain.ExecutionResult{Success: true}, nil
}

func (f *fakeExecutor) EmergencyExitPosition(ctx context.Context, positionID uuid.UUID) (domain.ExecutionResult, error) {
	f.exitCalls++
	return domain.ExecutionResult{Success: true}, nil
}

func (f *fakeExecutor) AddCollateral(ctx context.Context, positionID uuid.UUID, token domain.TokenAddress, amount decimal.Decimal) (domain.ExecutionResult, error) {
	return domain.ExecutionResult{Success: true}, nil
}

func (f *fakeExecutor) RepayDebt(ctx context.Context, positionID uuid.UUID, token domain.TokenAddress, amount decimal.Decimal) (domain.ExecutionResult, error) {
	return domain.ExecutionResult{Success: true}, nil
}

func samplePosition() domain.Position {
	return domain.Position{
		ID:       uuid.New(),
		Protocol: "aave",
		CollateralTokens: map[domain.TokenAddress]domain.PositionToken{
			"0xWETH": {TokenAddress: "0xWETH", Amount: decimal.NewFromInt(10), PricePerToken: decimal.NewFromInt(2000)},
		},
		DebtTokens: map[domain.TokenAddress]domain.PositionToken{
			"0xUSDC": {TokenAddress: "0xUSDC", Amount: decimal.NewFromInt(10000)},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func lowImpactSimulation() domain.TradeSimulation {
	return domain.TradeSimulation{
		ExpectedOutcome: domain.TradeOutcome{TotalPriceImpact: decimal.NewFromInt(1)},
	}
}

func TestEvaluateAllPositionsTriggersCriticalRule(t *testing.T) {
	position := samplePosition()
	source := &fakePositionSource{
		positions: []domain.Position{position},
		health:    map[uuid.UUID]domain.HealthFactor{position.ID: {Value: decimal.NewFromFloat(1.2)}},
	}
	sim := &fakeSimulator{simulation: lowImpactSimulation()}
	sink := &fakeAlertSink{}
	executor := &fakeExecutor{}

	config := domain.DefaultAutomationConfig()
	controller := automation.New(config, source, sim, sink, executor, zerolog.Nop())

	controller.EvaluateAllPositions(context.Background())

	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, executor.reduceCalls)

	history := controller.ExecutionHistory()
	require.Len(t, history, 2)
	assert.Equal(t, domain.ActionSendAlert, history[0].Action.Kind)
	assert.Equal(t, domain.ActionReducePosition, history[1].Action.Kind)
	assert.Equal(t, domain.ExecutionCompleted, history[1].Status)
}

func TestEvaluateAllPositionsTriggersEmergencyExit(t *testing.T) {
	position := samplePosition()
	source := &fakePositionSource{
		positions: []domain.Position{position},
		health:    map[uuid.UUID]domain.HealthFactor{position.ID: {Value: decimal.NewFromFloat(1.05)}},
	}
	sim := &fakeSimulator{simulation: lowImpactSimulation()}
	sink := &fakeAlertSink{}
	executor := &fakeExecutor{}

	config := domain.DefaultAutomationConfig()
	controller := automation.New(config, source, sim, sink, executor, zerolog.Nop())

	controller.EvaluateAllPositions(context.Background())

	assert.Equal(t, 1, executor.exitCalls)
}

func TestEvaluateAllPositionsHealthyNoAction(t *testing.T) {
	position := samplePosition()
	source := &fakePositionSource{
		positions: []domain.Position{position},
		health:    map[uuid.UUID]domain.HealthFactor{position.ID: {Value: decimal.NewFromFloat(2.0)}},
	}
	sim := &fakeSimulator{simulation: lowImpactSimulation()}
	sink := &fakeAlertSink{}
	executor := &fakeExecutor{}

	config := domain.DefaultAutomationConfig()
	controller := automation.New(config, source, sim, sink, executor, zerolog.Nop())

	controller.EvaluateAllPositions(context.Background())

	assert.Empty(t, controller.ExecutionHistory())
}

func TestHighPriceImpactAbortsReduction(t *testing.T) {
	position := samplePosition()
	source := &fakePositionSource{
		positions: []domain.Position{position},
		health:    map[uuid.UUID]domain.HealthFactor{position.ID: {Value: decimal.NewFromFloat(1.2)}},
	}
	sim := &fakeSimulator{simulation: domain.TradeSimulation{
		ExpectedOutcome: domain.TradeOutcome{TotalPriceImpact: decimal.NewFromInt(10)},
	}}
	sink := &fakeAlertSink{}
	executor := &fakeExecutor{}

	config := domain.DefaultAutomationConfig()
	controller := automation.New(config, source, sim, sink, executor, zerolog.Nop())

	controller.EvaluateAllPositions(context.Background())

	assert.Equal(t, 0, executor.reduceCalls)
	history := controller.ExecutionHistory()
	require.Len(t, history, 2)
	assert.Equal(t, domain.ExecutionFailed, history[1].Status)
}

func TestApprovalRequiredAboveThreshold(t *testing.T) {
	position := samplePosition()
	position.CollateralTokens["0xWETH"] = domain.PositionToken{
		TokenAddress: "0xWETH", Amount: decimal.NewFromInt(1000), PricePerToken: decimal.NewFromInt(2000),
	}
	source := &fakePositionSource{
		positions: []domain.Position{position},
		health:    map[uuid.UUID]domain.HealthFactor{position.ID: {Value: decimal.NewFromFloat(1.2)}},
	}
	sim := &fakeSimulator{simulation: lowImpactSimulation()}
	sink := &fakeAlertSink{}
	executor := &fakeExecutor{}

	config := domain.DefaultAutomationConfig()
	controller := automation.New(config, source, sim, sink, executor, zerolog.Nop())

	controller.EvaluateAllPositions(context.Background())

	assert.Equal(t, 0, executor.reduceCalls)
	history := controller.ExecutionHistory()
	require.Len(t, history, 2)
	assert.Equal(t, domain.ExecutionAwaitingApproval, history[1].Status)
}

func TestCooldownPreventsReEvaluation(t *testing.T) {
	position := samplePosition()
	source := &fakePositionSource{
		positions: []domain.Position{position},
		health:    map[uuid.UUID]domain.HealthFactor{position.ID: {Value: decimal.NewFromFloat(1.2)}},
	}
	sim := &fakeSimulator{simulation: lowImpactSimulation()}
	sink := &fakeAlertSink{}
	executor := &fakeExecutor{}

	config := domain.DefaultAutomationConfig()
	controller := automation.New(config, source, sim, sink, executor, zerolog.Nop())

	controller.EvaluateAllPositions(context.Background())
	firstCount := len(controller.ExecutionHistory())

	controller.EvaluateAllPositions(context.Background())
	assert.Equal(t, firstCount, len(controller.ExecutionHistory()))
}
