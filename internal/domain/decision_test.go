package domain

import (
	"errors"
	"math"
	"testing"
)

func TestSize_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		size    Size
		capital float64
		want    float64
		signed  float64
	}{
		{"ratio", RatioOfCapital(0.015), 1000, 15, -0.015},
		{"absolute", AbsoluteUSD(42), 1000, 42, 42},
		{"none", Size{}, 1000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.size.Resolve(tt.capital); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Resolve: got %f, want %f", got, tt.want)
			}
			if got := tt.size.Signed(); got != tt.signed {
				t.Errorf("Signed: got %f, want %f", got, tt.signed)
			}
		})
	}
}

func TestSize_IsZero(t *testing.T) {
	if !(Size{}).IsZero() {
		t.Error("empty size should be zero")
	}
	if !RatioOfCapital(0).IsZero() {
		t.Error("zero ratio should be zero")
	}
	if RatioOfCapital(0.01).IsZero() {
		t.Error("positive ratio should not be zero")
	}
}

func TestDecision_Err(t *testing.T) {
	if err := (Decision{ShouldExecute: true}).Err(); err != nil {
		t.Fatalf("executable decision returned %v", err)
	}

	dup := Reject(ReasonDuplicateSignal, "tx %s already seen", "0xabc")
	if !errors.Is(dup.Err(), ErrDuplicateSignal) {
		t.Errorf("expected ErrDuplicateSignal, got %v", dup.Err())
	}

	missing := Reject(ReasonMarketNotFound, "no market")
	if !errors.Is(missing.Err(), ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", missing.Err())
	}

	low := Reject(ReasonAllocationBelowMin, "allocation 5.00%% below 12.00%%")
	if !errors.Is(low.Err(), ErrThresholdNotMet) {
		t.Errorf("expected ErrThresholdNotMet, got %v", low.Err())
	}
	if low.Reason != "allocation 5.00% below 12.00%" {
		t.Errorf("unexpected reason %q", low.Reason)
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	var err error = &ConfigError{Field: "trader_address", Msg: "is required"}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("ConfigError should unwrap to ErrConfiguration")
	}
}
