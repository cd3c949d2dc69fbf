package health_test

import (
	"testing"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/aegis-labs/aegis/internal/health"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	weth = domain.TokenAddress("0xWETH")
	usdc = domain.TokenAddress("0xUSDC")
)

func samplePosition(collateralAmount, debtAmount string) domain.Position {
	return domain.Position{
		ID:       uuid.New(),
		Protocol: "aave",
		CollateralTokens: map[domain.TokenAddress]domain.PositionToken{
			weth: {TokenAddress: weth, Amount: decimal.RequireFromString(collateralAmount)},
		},
		DebtTokens: map[domain.TokenAddress]domain.PositionToken{
			usdc: {TokenAddress: usdc, Amount: decimal.RequireFromString(debtAmount)},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func samplePrices() map[domain.TokenAddress]domain.PriceData {
	return map[domain.TokenAddress]domain.PriceData{
		weth: {TokenAddress: weth, PriceUSD: decimal.NewFromInt(2000)},
		usdc: {TokenAddress: usdc, PriceUSD: decimal.NewFromInt(1)},
	}
}

func TestAaveCalculator(t *testing.T) {
	calc := health.NewAaveCalculator()
	position := samplePosition("10", "10000")

	hf, err := calc.Calculate(position, samplePrices())
	require.NoError(t, err)

	// collateral = 10*2000 = 20000, weighted = 20000*0.80 = 16000, debt = 10000
	// health = 16000/10000 = 1.6
	assert.True(t, hf.Value.Equal(decimal.NewFromFloat(1.6)), "got %s", hf.Value)
	assert.True(t, hf.LiquidationThreshold.Equal(decimal.NewFromFloat(0.80)))
	assert.Equal(t, "aave", calc.Protocol())
}

func TestAaveCalculatorZeroDebt(t *testing.T) {
	calc := health.NewAaveCalculator()
	position := samplePosition("10", "0")

	hf, err := calc.Calculate(position, samplePrices())
	require.NoError(t, err)
	assert.True(t, hf.Value.Equal(domain.MaxHealthFactor))
}

func TestAaveCalculatorMissingPrice(t *testing.T) {
	calc := health.NewAaveCalculator()
	position := samplePosition("10", "10000")

	_, err := calc.Calculate(position, map[domain.TokenAddress]domain.PriceData{})
	require.Error(t, err)
	var missing *domain.MissingPriceDataError
	assert.ErrorAs(t, err, &missing)
}

func TestCompoundCalculator(t *testing.T) {
	calc := health.NewCompoundCalculator()
	position := samplePosition("10", "10000")

	hf, err := calc.Calculate(position, samplePrices())
	require.NoError(t, err)

	// borrow limit = 20000*0.75 = 15000, health = 15000/10000 = 1.5
	assert.True(t, hf.Value.Equal(decimal.NewFromFloat(1.5)), "got %s", hf.Value)
	expectedThreshold := decimal.NewFromInt(1).Div(decimal.NewFromFloat(1.08))
	assert.True(t, hf.LiquidationThreshold.Equal(expectedThreshold))
}

func TestMakerDAOCalculator(t *testing.T) {
	calc := health.NewMakerDAOCalculator()
	position := samplePosition("10", "10000")

	hf, err := calc.Calculate(position, samplePrices())
	require.NoError(t, err)

	// collateralization = 20000/10000 = 2, health = 2/1.5 = 1.3333...
	expected := decimal.NewFromInt(2).Div(decimal.NewFromFloat(1.50))
	assert.True(t, hf.Value.Equal(expected), "got %s", hf.Value)
}

func TestNewCalculatorUnsupportedProtocol(t *testing.T) {
	_, err := health.NewCalculator("uniswap")
	require.Error(t, err)
	var unsupported *domain.UnsupportedProtocolError
	assert.ErrorAs(t, err, &unsupported)
}

func TestNewCalculatorAliases(t *testing.T) {
	for _, protocol := range []string{"Aave", "COMPOUND", "makerdao", "Maker"} {
		calc, err := health.NewCalculator(protocol)
		require.NoError(t, err, protocol)
		assert.NotEmpty(t, calc.Protocol())
	}
}

func TestSupportedProtocols(t *testing.T) {
	assert.ElementsMatch(t, []string{"aave", "compound", "makerdao"}, health.SupportedProtocols())
}
