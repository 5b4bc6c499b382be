package domain

import (
	"fmt"
	"strconv"
)

// SizeKind tags how a Size is interpreted.
type SizeKind uint8

// Size kinds
const (
	SizeNone SizeKind = iota
	SizeAbsolute
	SizeRatio
)

func (k SizeKind) String() string {
	switch k {
	case SizeAbsolute:
		return "absolute_usd"
	case SizeRatio:
		return "ratio_of_capital"
	}
	return "none"
}

// Size is a copy size: either an absolute USD amount or a fraction of the
// caller's spendable capital.
type Size struct {
	kind  SizeKind
	value float64
}

// AbsoluteUSD returns a size of usd dollars.
func AbsoluteUSD(usd float64) Size {
	return Size{kind: SizeAbsolute, value: usd}
}

// RatioOfCapital returns a size of fraction * spendable capital.
func RatioOfCapital(fraction float64) Size {
	return Size{kind: SizeRatio, value: fraction}
}

// Kind returns the size tag.
func (s Size) Kind() SizeKind { return s.kind }

// Value returns the raw amount (USD or fraction).
func (s Size) Value() float64 { return s.value }

// IsZero reports whether the size is empty or non-positive.
func (s Size) IsZero() bool {
	return s.kind == SizeNone || s.value <= 0
}

// Resolve converts the size into USD against capital.
func (s Size) Resolve(capital float64) float64 {
	switch s.kind {
	case SizeAbsolute:
		return s.value
	case SizeRatio:
		return s.value * capital
	}
	return 0
}

// Signed renders the legacy signed convention: negative = ratio of capital,
// positive = absolute USD.
func (s Size) Signed() float64 {
	if s.kind == SizeRatio {
		return -s.value
	}
	return s.value
}

func (s Size) String() string {
	switch s.kind {
	case SizeAbsolute:
		return "$" + strconv.FormatFloat(s.value, 'f', 2, 64)
	case SizeRatio:
		return strconv.FormatFloat(s.value*100, 'f', 2, 64) + "% of capital"
	}
	return "none"
}

// ReasonCode classifies the outcome of an evaluation.
type ReasonCode string

// Reason codes, one per gate
const (
	ReasonMatched                 ReasonCode = "MATCHED"
	ReasonMarketNotFound          ReasonCode = "MARKET_NOT_FOUND"
	ReasonDuplicateSignal         ReasonCode = "DUPLICATE_SIGNAL"
	ReasonWindowExpired           ReasonCode = "WINDOW_EXPIRED"
	ReasonTooCloseToResolution    ReasonCode = "TOO_CLOSE_TO_RESOLUTION"
	ReasonPriceBelowFloor         ReasonCode = "PRICE_BELOW_FLOOR"
	ReasonExposureTooSmall        ReasonCode = "EXPOSURE_TOO_SMALL"
	ReasonAllocationBelowMin      ReasonCode = "ALLOCATION_BELOW_MIN"
	ReasonDominanceBelowThreshold ReasonCode = "DOMINANCE_BELOW_THRESHOLD"
	ReasonAlreadyExecuted         ReasonCode = "ALREADY_EXECUTED"
	ReasonMaxExecutions           ReasonCode = "MAX_EXECUTIONS"
	ReasonExecutionInFlight       ReasonCode = "EXECUTION_IN_FLIGHT"
	ReasonNoSizingTier            ReasonCode = "NO_SIZING_TIER"
	ReasonInvalidSignal           ReasonCode = "INVALID_SIGNAL"
)

// Decision is the result of evaluating one trade. Ephemeral.
type Decision struct {
	ShouldExecute bool
	Size          Size
	Code          ReasonCode
	Reason        string
	Market        *MarketData

	// Diagnostics, populated as far as evaluation progressed.
	NetExposureUSD float64
	EquityUSD      float64
	AllocationPct  float64
	Dominance      float64
}

// Reject builds a negative decision.
func Reject(code ReasonCode, format string, args ...any) Decision {
	return Decision{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Err maps a negative decision onto the error taxonomy. Returns nil for an
// executable decision.
func (d Decision) Err() error {
	switch {
	case d.ShouldExecute:
		return nil
	case d.Code == ReasonDuplicateSignal:
		return fmt.Errorf("%w: %s", ErrDuplicateSignal, d.Reason)
	case d.Code == ReasonMarketNotFound:
		return fmt.Errorf("%w: %s", ErrMarketNotFound, d.Reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrThresholdNotMet, d.Code, d.Reason)
}
