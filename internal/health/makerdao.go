package health

import (
	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/shopspring/decimal"
)

var defaultLiquidationRatio = decimal.NewFromFloat(1.50)

// MakerDAOCalculator implements the MakerDAO-style health factor:
// health = (collateral / debt) / liquidation_ratio.
type MakerDAOCalculator struct {
	liquidationRatio decimal.Decimal
}

// NewMakerDAOCalculator constructs a calculator using MakerDAO's default
// 150% liquidation ratio.
func NewMakerDAOCalculator() *MakerDAOCalculator {
	return &MakerDAOCalculator{liquidationRatio: defaultLiquidationRatio}
}

func (c *MakerDAOCalculator) Protocol() string { return "makerdao" }

func (c *MakerDAOCalculator) Calculate(position domain.Position, prices map[domain.TokenAddress]domain.PriceData) (domain.HealthFactor, error) {
	totalCollateral := decimal.Zero
	totalDebt := decimal.Zero

	for addr, tok := range position.CollateralTokens {
		price, ok := prices[addr]
		if !ok {
			return domain.HealthFactor{}, &domain.MissingPriceDataError{Token: addr}
		}
		totalCollateral = totalCollateral.Add(tok.Amount.Mul(price.PriceUSD))
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
		value = totalCollateral.Div(totalDebt).Div(c.liquidationRatio)
	}

	return domain.HealthFactor{
		Value:                value,
		LiquidationThreshold: decimal.NewFromInt(1).Div(c.liquidationRatio),
		CollateralValueUSD:   totalCollateral,
		DebtValueUSD:         totalDebt,
		CalculatedAt:         now(),
	}, nil
}
