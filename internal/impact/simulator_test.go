package impact_test

import (
	"context"
	"testing"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/impact"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPriceFeed struct {
	price decimal.Decimal
}

func (s stubPriceFeed) GetPrices(ctx context.Context, tokens []domain.TokenAddress) (map[domain.TokenAddress]domain.PriceData, error) {
	out := make(map[domain.TokenAddress]domain.PriceData, len(tokens))
	for _, t := range tokens {
		out[t] = domain.PriceData{TokenAddress: t, PriceUSD: s.price}
	}
	return out, nil
}

func (s stubPriceFeed) GetPrice(ctx context.Context, token domain.TokenAddress) (domain.PriceData, error) {
	return domain.PriceData{TokenAddress: token, PriceUSD: s.price}, nil
}

type stubLiquidityProvider struct {
	depth domain.LiquidityDepth
}

func (p stubLiquidityProvider) GetLiquidityDepth(ctx context.Context, token domain.TokenAddress) (domain.LiquidityDepth, error) {
	return p.depth, nil
}

type stubHistoricalData struct {
	prices []decimal.Decimal
}

func (h stubHistoricalData) GetHistoricalPrices(ctx context.Context, token domain.TokenAddress, days int) ([]decimal.Decimal, error) {
	return h.prices, nil
}

func deepLiquidity() map[string]domain.LiquidityProvider {
	return map[string]domain.LiquidityProvider{
		"uniswap_v3": stubLiquidityProvider{depth: domain.LiquidityDepth{
			TotalUSD: decimal.NewFromInt(1_000_000),
			Levels: []domain.DepthLevel{
				{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(5000)},
				{Price: decimal.NewFromInt(101), Quantity: decimal.NewFromInt(5000)},
			},
		}},
	}
}

func flatHistory() stubHistoricalData {
	prices := make([]decimal.Decimal, 10)
	for i := range prices {
		prices[i] = decimal.NewFromInt(100)
	}
	return stubHistoricalData{prices: prices}
}

func TestSimulatePriceImpactSmallTrade(t *testing.T) {
	sim := impact.New(stubPriceFeed{price: decimal.NewFromInt(100)}, deepLiquidity(), flatHistory())

	out, err := sim.SimulatePriceImpact(context.Background(), "0xWETH", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, out.PriceImpactPercent.GreaterThanOrEqual(decimal.Zero))
}

func TestSimulatePriceImpactInsufficientLiquidity(t *testing.T) {
	providers := map[string]domain.LiquidityProvider{
		"thin": stubLiquidityProvider{depth: domain.LiquidityDepth{TotalUSD: decimal.Zero}},
	}
	sim := impact.New(stubPriceFeed{price: decimal.NewFromInt(100)}, providers, flatHistory())

	_, err := sim.SimulatePriceImpact(context.Background(), "0xWETH", decimal.NewFromInt(1000))
	require.Error(t, err)
	var insufficient *domain.InsufficientLiquidityError
	assert.ErrorAs(t, err, &insufficient)
}

func TestSimulateTradeRecommendationExecuteImmediately(t *testing.T) {
	sim := impact.New(stubPriceFeed{price: decimal.NewFromInt(100)}, deepLiquidity(), flatHistory())

	out, err := sim.SimulateTrade(context.Background(), uuid.New(), domain.TradeTypeLiquidation, "0xWETH", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendExecuteImmediately, out.Recommendation)
	assert.True(t, out.ExpectedOutcome.SuccessProbability.GreaterThanOrEqual(decimal.NewFromInt(10)))
}

func TestSimulateTradeLargeTradeHighImpact(t *testing.T) {
	thinProviders := map[string]domain.LiquidityProvider{
		"uniswap_v3": stubLiquidityProvider{depth: domain.LiquidityDepth{
			TotalUSD: decimal.NewFromInt(2000),
			Levels: []domain.DepthLevel{
				{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(10)},
				{Price: decimal.NewFromInt(150), Quantity: decimal.NewFromInt(10)},
			},
		}},
	}
	sim := impact.New(stubPriceFeed{price: decimal.NewFromInt(100)}, thinProviders, flatHistory())

	out, err := sim.SimulateTrade(context.Background(), uuid.New(), domain.TradeTypeEmergency, "0xWETH", decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.NotEmpty(t, out.RiskFactors)
	assert.NotEqual(t, domain.RecommendExecuteImmediately, out.Recommendation)
}

func TestEstimateExecutionTimeBuckets(t *testing.T) {
	sim := impact.New(stubPriceFeed{price: decimal.NewFromInt(100)}, deepLiquidity(), flatHistory())

	small, err := sim.SimulateTrade(context.Background(), uuid.New(), domain.TradeTypeRebalancing, "0xWETH", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, 15e9, float64(small.ExpectedOutcome.ExecutionTimeEstimate))
}
