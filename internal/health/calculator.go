// Package health implements the per-protocol health-factor formulas
// (component A). Each calculator is a pure function of (position, prices)
// with no shared state, so it needs no locking of its own.
package health

import (
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
)

// Calculator computes a HealthFactor for one lending protocol.
type Calculator interface {
	Calculate(position domain.Position, prices map[domain.TokenAddress]domain.PriceData) (domain.HealthFactor, error)
	Protocol() string
}

func now() time.Time { return time.Now().UTC() }
