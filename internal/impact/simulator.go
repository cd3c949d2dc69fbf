// Package impact implements the price-impact simulator (component D): it
// walks a merged liquidity depth ladder to estimate execution price,
// surfaces the risk factors a trade of that size carries, and produces a
// recommendation plus success-probability estimate.
package impact

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
	five    = decimal.NewFromInt(5)
	eight   = decimal.NewFromInt(8)
	ten     = decimal.NewFromInt(10)
	fifteen = decimal.NewFromInt(15)
	twenty  = decimal.NewFromInt(20)
	fifty   = decimal.NewFromInt(50)
	baseSuccessProbability = decimal.NewFromInt(95)
	minSuccessProbability  = decimal.NewFromInt(10)
)

// Simulator aggregates liquidity across every registered provider and
// estimates the outcome of trading a given size of one token.
type Simulator struct {
	priceFeed           domain.PriceFeed
	liquidityProviders  map[string]domain.LiquidityProvider
	historicalData      domain.HistoricalDataProvider
}

// New constructs a Simulator. providers is keyed by DEX name; the
// simulator does not read the keys, and every provider's depth ladder is
// merged together.
func New(priceFeed domain.PriceFeed, providers map[string]domain.LiquidityProvider, historicalData domain.HistoricalDataProvider) *Simulator {
	return &Simulator{
		priceFeed:          priceFeed,
		liquidityProviders: providers,
		historicalData:     historicalData,
	}
}

// SimulatePriceImpact estimates the execution price of trading
// tradeSizeUSD worth of token against the currently aggregated
// liquidity.
func (s *Simulator) SimulatePriceImpact(ctx context.Context, token domain.TokenAddress, tradeSizeUSD decimal.Decimal) (domain.PriceImpactSimulation, error) {
	priceData, err := s.priceFeed.GetPrice(ctx, token)
	if err != nil {
		return domain.PriceImpactSimulation{}, &domain.CalculationFailedError{Message: fmt.Sprintf("failed to fetch current price: %v", err)}
	}
	currentPrice := priceData.PriceUSD

	depth, err := s.aggregateLiquidityDepth(ctx, token)
	if err != nil {
		return domain.PriceImpactSimulation{}, err
	}

	executionPrice, priceImpact, err := calculatePriceImpact(currentPrice, tradeSizeUSD, depth)
	if err != nil {
		return domain.PriceImpactSimulation{}, err
	}

	return domain.PriceImpactSimulation{
		TokenAddress:       token,
		TradeSizeUSD:       tradeSizeUSD,
		CurrentPrice:       currentPrice,
		ExecutionPrice:     executionPrice,
		PriceImpactPercent: priceImpact,
		LiquidityDepth:     depth,
		SimulatedAt:        now(),
	}, nil
}

// SimulateTrade produces the full pre-trade assessment for reducing
// amount of token in positionID: price impact, risk factors, expected
// outcome, and a recommendation.
func (s *Simulator) SimulateTrade(ctx context.Context, positionID uuid.UUID, tradeType domain.TradeType, token domain.TokenAddress, amount decimal.Decimal) (domain.TradeSimulation, error) {
	priceData, err := s.priceFeed.GetPrice(ctx, token)
	if err != nil {
		return domain.TradeSimulation{}, &domain.CalculationFailedError{Message: fmt.Sprintf("failed to fetch current price: %v", err)}
	}
	tradeSizeUSD := amount.Mul(priceData.PriceUSD)

	sim, err := s.SimulatePriceImpact(ctx, token, tradeSizeUSD)
	if err != nil {
		return domain.TradeSimulation{}, err
	}

	riskFactors, err := s.analyzeRiskFactors(ctx, token, sim)
	if err != nil {
		return domain.TradeSimulation{}, err
	}

	expectedProceeds := amount.Mul(sim.ExecutionPrice)
	executionTime := estimateExecutionTime(tradeSizeUSD)

	outcome := domain.TradeOutcome{
		EstimatedProceedsUSD:  expectedProceeds,
		TotalPriceImpact:      sim.PriceImpactPercent,
		ExecutionTimeEstimate: executionTime,
		SuccessProbability:    calculateSuccessProbability(riskFactors),
	}

	return domain.TradeSimulation{
		PositionID:      positionID,
		TradeType:       tradeType,
		TokenAddress:    token,
		Amount:          amount,
		ExpectedOutcome: outcome,
		RiskFactors:     riskFactors,
		Recommendation:  generateRecommendation(sim, riskFactors),
	}, nil
}

func (s *Simulator) aggregateLiquidityDepth(ctx context.Context, token domain.TokenAddress) (domain.LiquidityDepth, error) {
	total := decimal.Zero
	var levels []domain.DepthLevel

	for _, provider := range s.liquidityProviders {
		depth, err := provider.GetLiquidityDepth(ctx, token)
		if err != nil {
			continue
		}
		total = total.Add(depth.TotalUSD)
		levels = append(levels, depth.Levels...)
	}

	return domain.LiquidityDepth{
		TotalUSD: total,
		Levels:   mergeDepthLevels(levels),
	}, nil
}

// mergeDepthLevels sorts levels by price and recomputes a single
// cumulative-volume ladder across the merged set, so the ladder walked
// by calculatePriceImpact reflects combined liquidity rather than each
// provider's independent view.
func mergeDepthLevels(levels []domain.DepthLevel) []domain.DepthLevel {
	if len(levels) == 0 {
		return levels
	}

	sorted := make([]domain.DepthLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price.LessThan(sorted[j].Price) })

	merged := make([]domain.DepthLevel, 0, len(sorted))
	cumulative := decimal.Zero
	for _, level := range sorted {
		cumulative = cumulative.Add(level.Quantity.Mul(level.Price))
		merged = append(merged, domain.DepthLevel{
			Price:               level.Price,
			Quantity:            level.Quantity,
			CumulativeVolumeUSD: cumulative,
		})
	}
	return merged
}

func calculatePriceImpact(currentPrice, tradeSizeUSD decimal.Decimal, depth domain.LiquidityDepth) (decimal.Decimal, decimal.Decimal, error) {
	remaining := tradeSizeUSD
	weightedPrice := decimal.Zero
	totalQuantity := decimal.Zero

	for _, level := range depth.Levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		levelValue := level.Quantity.Mul(level.Price)
		var quantityToConsume decimal.Decimal
		if levelValue.GreaterThanOrEqual(remaining) {
			quantityToConsume = remaining.Div(level.Price)
		} else {
			quantityToConsume = level.Quantity
		}

		weightedPrice = weightedPrice.Add(quantityToConsume.Mul(level.Price))
		totalQuantity = totalQuantity.Add(quantityToConsume)
		remaining = remaining.Sub(quantityToConsume.Mul(level.Price))
	}

	if totalQuantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, decimal.Decimal{}, &domain.InsufficientLiquidityError{
			Required:  tradeSizeUSD.StringFixed(2),
			Available: depth.TotalUSD.StringFixed(2),
		}
	}

	averageExecutionPrice := weightedPrice.Div(totalQuantity)
	priceImpact := averageExecutionPrice.Sub(currentPrice).Div(currentPrice).Mul(hundred)

	return averageExecutionPrice, priceImpact, nil
}

func (s *Simulator) analyzeRiskFactors(ctx context.Context, token domain.TokenAddress, sim domain.PriceImpactSimulation) ([]domain.RiskFactor, error) {
	var riskFactors []domain.RiskFactor

	if sim.PriceImpactPercent.GreaterThan(five) {
		severity := domain.SeverityMedium
		switch {
		case sim.PriceImpactPercent.GreaterThan(fifteen):
			severity = domain.SeverityCritical
		case sim.PriceImpactPercent.GreaterThan(ten):
			severity = domain.SeverityHigh
		}
		riskFactors = append(riskFactors, domain.RiskFactor{
			Type:        domain.RiskFactorHighPriceImpact,
			Severity:    severity,
			Description: fmt.Sprintf("price impact of %s%% exceeds recommended threshold", sim.PriceImpactPercent.StringFixed(2)),
			ImpactScore: sim.PriceImpactPercent.Div(two),
		})
	}

	if sim.LiquidityDepth.TotalUSD.LessThan(sim.TradeSizeUSD.Mul(ten)) {
		riskFactors = append(riskFactors, domain.RiskFactor{
			Type:        domain.RiskFactorLowLiquidity,
			Severity:    domain.SeverityHigh,
			Description: "available liquidity is less than 10x trade size",
			ImpactScore: eight,
		})
	}

	volatility, err := s.calculateRecentVolatility(ctx, token)
	if err != nil {
		return nil, err
	}
	if volatility.GreaterThan(fifty) {
		riskFactors = append(riskFactors, domain.RiskFactor{
			Type:        domain.RiskFactorVolatilitySpike,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("high volatility detected: %s%% annualized", volatility.StringFixed(1)),
			ImpactScore: volatility.Div(ten),
		})
	}

	return riskFactors, nil
}

// calculateRecentVolatility reports the annualized standard deviation of
// daily returns over the trailing window, expressed as a percentage.
func (s *Simulator) calculateRecentVolatility(ctx context.Context, token domain.TokenAddress) (decimal.Decimal, error) {
	prices, err := s.historicalData.GetHistoricalPrices(ctx, token, 30)
	if err != nil {
		return decimal.Decimal{}, &domain.CalculationFailedError{Message: fmt.Sprintf("failed to fetch historical prices: %v", err)}
	}
	if len(prices) < 2 {
		return decimal.Zero, nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, _ := prices[i-1].Float64()
		cur, _ := prices[i].Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) == 0 {
		return decimal.Zero, nil
	}

	_, stdDev := stat.MeanStdDev(returns, nil)
	annualized := stdDev * 15.8745078664 * 100 // sqrt(252) scaled to a percentage
	return decimal.NewFromFloat(annualized), nil
}

func generateRecommendation(sim domain.PriceImpactSimulation, riskFactors []domain.RiskFactor) domain.RecommendedAction {
	criticalCount, highCount := 0, 0
	for _, rf := range riskFactors {
		switch rf.Severity {
		case domain.SeverityCritical:
			criticalCount++
		case domain.SeverityHigh:
			highCount++
		}
	}

	switch {
	case criticalCount > 0:
		return domain.RecommendAbort
	case highCount > 1 || sim.PriceImpactPercent.GreaterThan(twenty):
		return domain.RecommendWaitForBetterConditions
	case sim.PriceImpactPercent.GreaterThan(ten):
		return domain.RecommendSplitIntoSmallerTrades
	case sim.PriceImpactPercent.GreaterThan(five):
		return domain.RecommendExecuteWithCaution
	default:
		return domain.RecommendExecuteImmediately
	}
}

func calculateSuccessProbability(riskFactors []domain.RiskFactor) decimal.Decimal {
	penalty := decimal.Zero
	for _, rf := range riskFactors {
		switch rf.Severity {
		case domain.SeverityLow:
			penalty = penalty.Add(two)
		case domain.SeverityMedium:
			penalty = penalty.Add(five)
		case domain.SeverityHigh:
			penalty = penalty.Add(fifteen)
		case domain.SeverityCritical:
			penalty = penalty.Add(decimal.NewFromInt(40))
		}
	}

	probability := baseSuccessProbability.Sub(penalty)
	if probability.LessThan(minSuccessProbability) {
		return minSuccessProbability
	}
	return probability
}

func estimateExecutionTime(tradeSizeUSD decimal.Decimal) time.Duration {
	switch {
	case tradeSizeUSD.GreaterThan(decimal.NewFromInt(1_000_000)):
		return 300 * time.Second
	case tradeSizeUSD.GreaterThan(decimal.NewFromInt(100_000)):
		return 60 * time.Second
	default:
		return 15 * time.Second
	}
}

func now() time.Time { return time.Now().UTC() }
