package domain

import (
	"errors"
	"fmt"
)

// Pipeline errors. Per-signal errors are absorbed at the processing
// boundary; only configuration errors stop the process.
var (
	// ErrConfiguration is returned for invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstreamUnavailable is returned when a market, balance, portfolio
	// or order-book lookup fails.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMarketNotFound is returned when a market provider has no market
	// for a condition id.
	ErrMarketNotFound = errors.New("market not found")

	// ErrDuplicateSignal is returned for an already seen transaction hash.
	ErrDuplicateSignal = errors.New("duplicate signal")

	// ErrThresholdNotMet is returned when a gate rejects a signal.
	ErrThresholdNotMet = errors.New("threshold not met")

	// ErrCredentialsUnavailable is returned while trading credentials could
	// not be derived or created.
	ErrCredentialsUnavailable = errors.New("trading credentials unavailable")

	// ErrOrderRejected is returned when the broker fails to place an order.
	ErrOrderRejected = errors.New("order rejected")
)

// ConfigError describes an invalid configuration field.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
