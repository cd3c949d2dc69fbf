package health

import (
	"strings"

	"github.com/aegis-labs/aegis/internal/domain"
)

// NewCalculator resolves the Calculator registered for protocol, matched
// case-insensitively. "maker" is accepted as an alias for "makerdao".
func NewCalculator(protocol string) (Calculator, error) {
	switch strings.ToLower(protocol) {
	case "aave":
		return NewAaveCalculator(), nil
	case "compound":
		return NewCompoundCalculator(), nil
	case "makerdao", "maker":
		return NewMakerDAOCalculator(), nil
	default:
		return nil, &domain.UnsupportedProtocolError{Protocol: protocol}
	}
}

// SupportedProtocols lists the protocol tags NewCalculator accepts.
func SupportedProtocols() []string {
	return []string{"aave", "compound", "makerdao"}
}
