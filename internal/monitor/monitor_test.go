package monitor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/monitor"
	"github.com/aegis-labs/aegis/internal/registry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePriceFeed struct {
	prices map[domain.TokenAddress]domain.PriceData
	err    error
}

func (f *fakePriceFeed) GetPrices(ctx context.Context, tokens []domain.TokenAddress) (map[domain.TokenAddress]domain.PriceData, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[domain.TokenAddress]domain.PriceData, len(tokens))
	for _, t := range tokens {
		if p, ok := f.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

func (f *fakePriceFeed) GetPrice(ctx context.Context, token domain.TokenAddress) (domain.PriceData, error) {
	return f.prices[token], nil
}

type fakeAlertSink struct {
	mu     sync.Mutex
	alerts []domain.RiskAlert
}

func (s *fakeAlertSink) SendAlert(ctx context.Context, alert domain.RiskAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeAlertSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func samplePosition(protocol, collateral, debt string) domain.Position {
	return domain.Position{
		ID:       uuid.New(),
		Protocol: protocol,
		CollateralTokens: map[domain.TokenAddress]domain.PositionToken{
			"0xWETH": {TokenAddress: "0xWETH", Amount: decimal.RequireFromString(collateral)},
		},
		DebtTokens: map[domain.TokenAddress]domain.PositionToken{
			"0xUSDC": {TokenAddress: "0xUSDC", Amount: decimal.RequireFromString(debt)},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func healthyPrices() *fakePriceFeed {
	return &fakePriceFeed{prices: map[domain.TokenAddress]domain.PriceData{
		"0xWETH": {TokenAddress: "0xWETH", PriceUSD: decimal.NewFromInt(2000)},
		"0xUSDC": {TokenAddress: "0xUSDC", PriceUSD: decimal.NewFromInt(1)},
	}}
}

func TestAddPositionTriggersImmediateHealthCheck(t *testing.T) {
	reg := registry.New()
	feed := healthyPrices()
	sink := &fakeAlertSink{}
	m := monitor.New(reg, feed, sink, zerolog.Nop())

	// collateral 1 weth ($2000) * 0.8 = 1600, debt 10000 usdc => health 0.16, at risk
	position := samplePosition("aave", "1", "10000")

	_, err := m.AddPosition(context.Background(), position)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.count())
}

func TestAddPositionHealthyNoAlert(t *testing.T) {
	reg := registry.New()
	feed := healthyPrices()
	sink := &fakeAlertSink{}
	m := monitor.New(reg, feed, sink, zerolog.Nop())

	position := samplePosition("aave", "10", "1000")
	_, err := m.AddPosition(context.Background(), position)
	require.NoError(t, err)
	assert.Equal(t, 0, sink.count())
}

func TestCalculateHealthUnsupportedProtocol(t *testing.T) {
	reg := registry.New()
	feed := healthyPrices()
	sink := &fakeAlertSink{}
	m := monitor.New(reg, feed, sink, zerolog.Nop())

	position := samplePosition("uniswap", "10", "1000")
	require.NoError(t, reg.Add(position))

	_, err := m.CalculateHealth(context.Background(), position.ID)
	require.Error(t, err)
	var unsupported *domain.UnsupportedProtocolError
	assert.ErrorAs(t, err, &unsupported)
}

func TestMonitorPositionsRaisesErrorAlertOnFailure(t *testing.T) {
	reg := registry.New()
	sink := &fakeAlertSink{}

	position := samplePosition("aave", "10", "1000")
	require.NoError(t, reg.Add(position))

	failingFeed := healthyPrices()
	failingFeed.prices = map[domain.TokenAddress]domain.PriceData{}
	m := monitor.New(reg, failingFeed, sink, zerolog.Nop())

	alerts := m.MonitorPositions(context.Background())
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.RiskLevelCritical, alerts[0].Level)
	assert.Equal(t, 1, sink.count())
}

func TestMonitorPositionsSweepsAll(t *testing.T) {
	reg := registry.New()
	feed := healthyPrices()
	sink := &fakeAlertSink{}
	m := monitor.New(reg, feed, sink, zerolog.Nop())

	require.NoError(t, reg.Add(samplePosition("aave", "1", "10000")))
	require.NoError(t, reg.Add(samplePosition("aave", "10", "1000")))

	alerts := m.MonitorPositions(context.Background())
	assert.Len(t, alerts, 1)
}

func TestUpdateAndRiskParameters(t *testing.T) {
	reg := registry.New()
	feed := healthyPrices()
	sink := &fakeAlertSink{}
	m := monitor.New(reg, feed, sink, zerolog.Nop())

	custom := domain.DefaultRiskParameters()
	custom.CriticalThreshold = decimal.NewFromFloat(2.0)
	m.UpdateRiskParameters(custom)
	assert.True(t, m.RiskParameters().CriticalThreshold.Equal(decimal.NewFromFloat(2.0)))
}
