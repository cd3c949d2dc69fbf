package health

import (
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/shopspring/decimal"
)

// defaultTokenLiquidationThreshold is Aave's default per-token weight
// (80%) applied to collateral; a real deployment would look this up
// per-token, but Aegis's protocol-agnostic position model has no slot for
// token-level overrides yet.
var defaultTokenLiquidationThreshold = decimal.NewFromFloat(0.80)

// AaveCalculator implements the Aave-style health factor:
// health = (Σ collateral·price·threshold) / (Σ debt·price).
type AaveCalculator struct {
	liquidationThreshold decimal.Decimal
}

// NewAaveCalculator constructs a calculator using Aave's default 80%
// liquidation threshold.
func NewAaveCalculator() *AaveCalculator {
	return &AaveCalculator{liquidationThreshold: defaultTokenLiquidationThreshold}
}

func (c *AaveCalculator) Protocol() string { return "aave" }

func (c *AaveCalculator) Calculate(position domain.Position, prices map[domain.TokenAddress]domain.PriceData) (domain.HealthFactor, error) {
	totalCollateral := decimal.Zero
	weightedCollateral := decimal.Zero
	totalDebt := decimal.Zero

	for addr, tok := range position.CollateralTokens {
		price, ok := prices[addr]
		if !ok {
			return domain.HealthFactor{}, &domain.MissingPriceDataError{Token: addr}
		}
		value := tok.Amount.Mul(price.PriceUSD)
		totalCollateral = totalCollateral.Add(value)
		weightedCollateral = weightedCollateral.Add(value.Mul(c.liquidationThreshold))
	}

	for addr, tok := range position.DebtTokens {
		price, ok := prices[addr]
		if !ok {
			return domain.HealthFactor{}, &domain.MissingPriceDataError{Token: addr}
		}
		totalDebt = totalDebt.Add(tok.Amount.Mul(price.PriceUSD))
	}

	value := domain.MaxHealthFactor
	if totalDebt.GreaterThan(decimal.Zero) {
		value = weightedCollateral.Div(totalDebt)
	}

	return domain.HealthFactor{
		Value:                value,
		LiquidationThreshold: c.liquidationThreshold,
		CollateralValueUSD:   totalCollateral,
		DebtValueUSD:         totalDebt,
		CalculatedAt:         now(),
	}, nil
}
