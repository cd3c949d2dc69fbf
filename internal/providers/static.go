// Package providers holds reference implementations of the capability
// interfaces Aegis consumes (domain.PriceFeed, domain.TradeExecutor,
// domain.LiquidityProvider, domain.HistoricalDataProvider). Real
// deployments plug in their own price feed, DEX aggregator and executor;
// these exist so cmd/server has something concrete to run against and so
// the wiring in engine.New can be exercised without a live integration.
package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func nowUTC() time.Time { return time.Now().UTC() }

// StaticPriceFeed serves prices from an in-memory table, seeded at
// construction and updatable at runtime. It is safe for concurrent use.
type StaticPriceFeed struct {
	mu     sync.RWMutex
	prices map[domain.TokenAddress]domain.PriceData
}

// NewStaticPriceFeed constructs a feed seeded with a small set of
// illustrative token prices.
func NewStaticPriceFeed() *StaticPriceFeed {
	now := nowUTC()
	return &StaticPriceFeed{
		prices: map[domain.TokenAddress]domain.PriceData{
			"ETH":  {TokenAddress: "ETH", PriceUSD: decimal.NewFromInt(2000), Timestamp: now, Source: "static", Confidence: decimal.NewFromInt(1)},
			"USDC": {TokenAddress: "USDC", PriceUSD: decimal.NewFromInt(1), Timestamp: now, Source: "static", Confidence: decimal.NewFromInt(1)},
			"DAI":  {TokenAddress: "DAI", PriceUSD: decimal.NewFromInt(1), Timestamp: now, Source: "static", Confidence: decimal.NewFromInt(1)},
		},
	}
}

// SetPrice updates (or inserts) a quote, for tests and demos that need to
// move a position's health factor.
func (f *StaticPriceFeed) SetPrice(token domain.TokenAddress, price domain.PriceData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[token] = price
}

func (f *StaticPriceFeed) GetPrices(ctx context.Context, tokens []domain.TokenAddress) (map[domain.TokenAddress]domain.PriceData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[domain.TokenAddress]domain.PriceData, len(tokens))
	for _, token := range tokens {
		price, ok := f.prices[token]
		if !ok {
			return nil, fmt.Errorf("no price data for token %s", token)
		}
		out[token] = price
	}
	return out, nil
}

func (f *StaticPriceFeed) GetPrice(ctx context.Context, token domain.TokenAddress) (domain.PriceData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.prices[token]
	if !ok {
		return domain.PriceData{}, fmt.Errorf("no price data for token %s", token)
	}
	return price, nil
}

// LoggingTradeExecutor fulfils domain.TradeExecutor by logging every
// instruction and reporting success. It never touches a real chain.
type LoggingTradeExecutor struct {
	log zerolog.Logger
}

// NewLoggingTradeExecutor constructs a no-op executor suitable for
// demos and diagnostics; it never moves funds.
func NewLoggingTradeExecutor(log zerolog.Logger) *LoggingTradeExecutor {
	return &LoggingTradeExecutor{log: log.With().Str("component", "providers.executor").Logger()}
}

func (e *LoggingTradeExecutor) ExecutePositionReduction(ctx context.Context, positionID uuid.UUID, token domain.TokenAddress, amount decimal.Decimal) (domain.ExecutionResult, error) {
	e.log.Info().Str("position_id", positionID.String()).Str("token", string(token)).Str("amount", amount.String()).Msg("executing position reduction")
	return domain.ExecutionResult{Success: true, TransactionRef: uuid.New().String(), AmountExecuted: amount}, nil
}

func (e *LoggingTradeExecutor) EmergencyExitPosition(ctx context.Context, positionID uuid.UUID) (domain.ExecutionResult, error) {
	e.log.Warn().Str("position_id", positionID.String()).Msg("executing emergency exit")
	return domain.ExecutionResult{Success: true, TransactionRef: uuid.New().String()}, nil
}

func (e *LoggingTradeExecutor) AddCollateral(ctx context.Context, positionID uuid.UUID, token domain.TokenAddress, amount decimal.Decimal) (domain.ExecutionResult, error) {
	e.log.Info().Str("position_id", positionID.String()).Str("token", string(token)).Str("amount", amount.String()).Msg("adding collateral")
	return domain.ExecutionResult{Success: true, TransactionRef: uuid.New().String(), AmountExecuted: amount}, nil
}

func (e *LoggingTradeExecutor) RepayDebt(ctx context.Context, positionID uuid.UUID, token domain.TokenAddress, amount decimal.Decimal) (domain.ExecutionResult, error) {
	e.log.Info().Str("position_id", positionID.String()).Str("token", string(token)).Str("amount", amount.String()).Msg("repaying debt")
	return domain.ExecutionResult{Success: true, TransactionRef: uuid.New().String(), AmountExecuted: amount}, nil
}

// StaticLiquidityProvider serves a synthetic depth ladder for any token,
// generated around the token's current spot price so the price-impact
// simulator has something plausible to walk without a live DEX
// integration.
type StaticLiquidityProvider struct {
	name         string
	depthPerSide decimal.Decimal
}

// NewStaticLiquidityProvider constructs a provider reporting depthPerSide
// dollars of liquidity, split across ten rungs around the spot price.
func NewStaticLiquidityProvider(name string, depthPerSide decimal.Decimal) *StaticLiquidityProvider {
	return &StaticLiquidityProvider{name: name, depthPerSide: depthPerSide}
}

func (p *StaticLiquidityProvider) GetLiquidityDepth(ctx context.Context, token domain.TokenAddress) (domain.LiquidityDepth, error) {
	spot, ok := staticSpotPrices[token]
	if !ok {
		spot = decimal.NewFromInt(1)
	}

	const rungs = 10
	rungDepth := p.depthPerSide.Div(decimal.NewFromInt(rungs))
	levels := make([]domain.DepthLevel, 0, rungs)
	cumulative := decimal.Zero
	for i := 1; i <= rungs; i++ {
		// Each rung sits half a percent further from spot than the last,
		// a simple synthetic stand-in for a real order book's price spread.
		drift := decimal.NewFromFloat(0.005 * float64(i))
		price := spot.Mul(decimal.NewFromInt(1).Add(drift))
		quantity := rungDepth.Div(price)
		cumulative = cumulative.Add(rungDepth)
		levels = append(levels, domain.DepthLevel{
			Price:               price,
			Quantity:            quantity,
			CumulativeVolumeUSD: cumulative,
		})
	}

	return domain.LiquidityDepth{TotalUSD: p.depthPerSide, Levels: levels}, nil
}

var staticSpotPrices = map[domain.TokenAddress]decimal.Decimal{
	"ETH":  decimal.NewFromInt(2000),
	"USDC": decimal.NewFromInt(1),
	"DAI":  decimal.NewFromInt(1),
}

// StaticHistoricalDataProvider serves a flat (zero-volatility) synthetic
// price history for any token, so the volatility-spike risk factor has
// data to compute over without a live historical-data integration.
type StaticHistoricalDataProvider struct{}

// NewStaticHistoricalDataProvider constructs a no-volatility historical
// data stub.
func NewStaticHistoricalDataProvider() *StaticHistoricalDataProvider {
	return &StaticHistoricalDataProvider{}
}

func (p *StaticHistoricalDataProvider) GetHistoricalPrices(ctx context.Context, token domain.TokenAddress, days int) ([]decimal.Decimal, error) {
	spot, ok := staticSpotPrices[token]
	if !ok {
		spot = decimal.NewFromInt(1)
	}
	if days <= 0 {
		days = 1
	}
	prices := make([]decimal.Decimal, days)
	for i := range prices {
		prices[i] = spot
	}
	return prices, nil
}
