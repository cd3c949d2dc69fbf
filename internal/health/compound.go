package health

import (
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	defaultCollateralFactor   = decimal.NewFromFloat(0.75)
	defaultLiquidationIncentive = decimal.NewFromFloat(1.08)
)

// CompoundCalculator implements the Compound-style health factor:
// health = (Σ collateral·price·collateral_factor) / (Σ debt·price).
// The reported liquidation threshold is the inverse of the liquidation
// incentive, matching how Compound expresses the same number.
type CompoundCalculator struct {
	collateralFactor     decimal.Decimal
	liquidationIncentive decimal.Decimal
}

// NewCompoundCalculator constructs a calculator using Compound's default
// 75% collateral factor and 8% liquidation incentive.
func NewCompoundCalculator() *CompoundCalculator {
	return &CompoundCalculator{
		collateralFactor:     defaultCollateralFactor,
		liquidationIncentive: defaultLiquidationIncentive,
	}
}

func (c *CompoundCalculator) Protocol() string { return "compound" }

func (c *CompoundCalculator) Calculate(position domain.Position, prices map[domain.TokenAddress]domain.PriceData) (domain.HealthFactor, error) {
	totalCollateral := decimal.Zero
	borrowLimit := decimal.Zero
	totalDebt := decimal.Zero

	for addr, tok := range position.CollateralTokens {
		price, ok := prices[addr]
		if !ok {
			return domain.HealthFactor{}, &domain.MissingPriceDataError{Token: addr}
		}
		value := tok.Amount.Mul(price.PriceUSD)
		totalCollateral = totalCollateral.Add(value)
		borrowLimit = borrowLimit.Add(value.Mul(c.collateralFactor))
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
		value = borrowLimit.Div(totalDebt)
	}

	return domain.HealthFactor{
		Value:                value,
		LiquidationThreshold: decimal.NewFromInt(1).Div(c.liquidationIncentive),
		CollateralValueUSD:   totalCollateral,
		DebtValueUSD:         totalDebt,
		CalculatedAt:         now(),
	}, nil
}
