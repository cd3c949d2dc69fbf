package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceFeed is the external market-data collaborator. Implementations
// must be safe for concurrent use; errors are opaque strings per
// spec.md §6.
type PriceFeed interface {
	GetPrices(ctx context.Context, tokens []TokenAddress) (map[TokenAddress]PriceData, error)
	GetPrice(ctx context.Context, token TokenAddress) (PriceData, error)
}

// TradeExecutor is the external collaborator that actually moves funds.
// It is never called with a simulated or pending trade — only once every
// safety gate in the automation controller has passed.
type TradeExecutor interface {
	ExecutePositionReduction(ctx context.Context, positionID uuid.UUID, token TokenAddress, amount decimal.Decimal) (ExecutionResult, error)
	EmergencyExitPosition(ctx context.Context, positionID uuid.UUID) (ExecutionResult, error)
	AddCollateral(ctx context.Context, positionID uuid.UUID, token TokenAddress, amount decimal.Decimal) (ExecutionResult, error)
	RepayDebt(ctx context.Context, positionID uuid.UUID, token TokenAddress, amount decimal.Decimal) (ExecutionResult, error)
}

// LiquidityProvider supplies a per-token depth ladder for the price-impact
// simulator to merge across providers.
type LiquidityProvider interface {
	GetLiquidityDepth(ctx context.Context, token TokenAddress) (LiquidityDepth, error)
}

// HistoricalDataProvider supplies a recent price series for the
// volatility-spike risk factor.
type HistoricalDataProvider interface {
	GetHistoricalPrices(ctx context.Context, token TokenAddress, days int) ([]decimal.Decimal, error)
}

// NotificationTransport delivers one notification to one channel kind.
// Transports other than console are pluggable and may be stubbed; a
// transport failure never blocks sibling deliveries.
type NotificationTransport interface {
	Kind() ChannelKind
	Send(ctx context.Context, channel NotificationChannel, alert RiskAlert, isEscalation bool, escalationLevel int) error
}
