package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for caller-facing registry operations. Wrap with
// fmt.Errorf("%w", ...) when adding position-id context so callers can
// still match with errors.Is.
var (
	ErrPositionNotFound      = errors.New("position not found")
	ErrPositionAlreadyExists = errors.New("position already exists")
	ErrRateLimited           = errors.New("alert rate limited")
	ErrApprovalRequired      = errors.New("approval required")
)

// MissingPriceDataError is raised by a health calculator when a
// referenced token has no price quote.
type MissingPriceDataError struct {
	Token TokenAddress
}

func (e *MissingPriceDataError) Error() string {
	return fmt.Sprintf("missing price data for token: %s", e.Token)
}

// UnsupportedProtocolError is raised when no calculator is registered for
// a position's protocol tag.
type UnsupportedProtocolError struct {
	Protocol string
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("unsupported protocol: %s", e.Protocol)
}

// InsufficientLiquidityError is raised by the price-impact simulator when
// the merged depth ladder cannot absorb any of the requested size.
type InsufficientLiquidityError struct {
	Required  string
	Available string
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity: required %s, available %s", e.Required, e.Available)
}

// CalculationFailedError wraps any other calculator or price-feed failure.
type CalculationFailedError struct {
	Message string
}

func (e *CalculationFailedError) Error() string {
	return fmt.Sprintf("calculation failed: %s", e.Message)
}

// PositionNotFoundError gives ErrPositionNotFound an id-specific message
// while remaining errors.Is-compatible.
type PositionNotFoundError struct {
	ID uuid.UUID
}

func (e *PositionNotFoundError) Error() string {
	return fmt.Sprintf("position not found: %s", e.ID)
}

func (e *PositionNotFoundError) Unwrap() error { return ErrPositionNotFound }

// PositionAlreadyExistsError gives ErrPositionAlreadyExists an
// id-specific message while remaining errors.Is-compatible.
type PositionAlreadyExistsError struct {
	ID uuid.UUID
}

func (e *PositionAlreadyExistsError) Error() string {
	return fmt.Sprintf("position already exists: %s", e.ID)
}

func (e *PositionAlreadyExistsError) Unwrap() error { return ErrPositionAlreadyExists }

// ErrAlertNotFound is returned when acknowledging an alert id that has
// no active escalation state (already acknowledged, raised at a level
// with no escalation rule, or never raised).
var ErrAlertNotFound = errors.New("alert not found")

// AlertNotFoundError gives ErrAlertNotFound an id-specific message while
// remaining errors.Is-compatible.
type AlertNotFoundError struct {
	ID uuid.UUID
}

func (e *AlertNotFoundError) Error() string {
	return fmt.Sprintf("alert not found: %s", e.ID)
}

func (e *AlertNotFoundError) Unwrap() error { return ErrAlertNotFound }
