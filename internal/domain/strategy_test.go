package domain

import (
	"math"
	"testing"
)

func defaultTiers() SizingConfig {
	return SizingConfig{
		Mode: SizingFixedTiers,
		Rules: []SizingRule{
			{MinTraderAlloc: 0.12, MaxTraderAlloc: 0.20, CopySizeRatio: 0.015},
			{MinTraderAlloc: 0.20, MaxTraderAlloc: math.Inf(1), CopySizeRatio: 0.025},
		},
	}
}

func TestSizingConfig_Lookup(t *testing.T) {
	tiers := defaultTiers()

	tests := []struct {
		alloc float64
		found bool
		ratio float64
	}{
		{0.05, false, 0},
		{0.12, true, 0.015},
		{0.1999, true, 0.015},
		{0.20, true, 0.025},
		{3.5, true, 0.025},
	}

	for _, tt := range tests {
		rule, ok := tiers.Lookup(tt.alloc)
		if ok != tt.found {
			t.Errorf("alloc %.4f: found=%v, want %v", tt.alloc, ok, tt.found)
			continue
		}
		if ok && rule.Size(tiers.Mode).Value() != tt.ratio {
			t.Errorf("alloc %.4f: ratio %f, want %f", tt.alloc, rule.Size(tiers.Mode).Value(), tt.ratio)
		}
	}
}

func TestSizingConfig_LookupGap(t *testing.T) {
	tiers := SizingConfig{Rules: []SizingRule{
		{MinTraderAlloc: 0.10, MaxTraderAlloc: 0.15, CopySizeRatio: 0.01},
		{MinTraderAlloc: 0.25, MaxTraderAlloc: 0.50, CopySizeRatio: 0.02},
	}}

	if _, ok := tiers.Lookup(0.20); ok {
		t.Error("allocation in gap should not match a tier")
	}
}

func TestSizingConfig_Validate(t *testing.T) {
	if err := defaultTiers().Validate(); err != nil {
		t.Fatalf("default tiers invalid: %v", err)
	}

	overlapping := SizingConfig{Rules: []SizingRule{
		{MinTraderAlloc: 0.10, MaxTraderAlloc: 0.30},
		{MinTraderAlloc: 0.20, MaxTraderAlloc: 0.40},
	}}
	if err := overlapping.Validate(); err == nil {
		t.Error("expected overlap error")
	}

	inverted := SizingConfig{Rules: []SizingRule{{MinTraderAlloc: 0.3, MaxTraderAlloc: 0.3}}}
	if err := inverted.Validate(); err == nil {
		t.Error("expected empty interval error")
	}
}

func TestSizingRule_SizeByMode(t *testing.T) {
	r := SizingRule{CopySizeRatio: 0.01, CopyWalletRatio: 0.05}
	if got := r.Size(SizingWalletScaled); got.Kind() != SizeRatio || got.Value() != 0.05 {
		t.Errorf("wallet scaled: got %v", got)
	}
	if got := r.Size(SizingFixedTiers); got.Value() != 0.01 {
		t.Errorf("fixed tiers: got %v", got)
	}

	r.CopyUSD = 10
	if got := r.Size(SizingFixedTiers); got.Kind() != SizeAbsolute || got.Value() != 10 {
		t.Errorf("absolute override: got %v", got)
	}
}

func TestMarketData_OutcomeIndex(t *testing.T) {
	m := &MarketData{Tokens: []MarketToken{{TokenID: "111", Outcome: "Yes"}, {TokenID: "222", Outcome: "No"}}}

	if got := m.OutcomeIndex("222"); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if got := m.OutcomeIndex("999"); got != 0 {
		t.Errorf("unknown asset: got %d, want 0", got)
	}
	if _, ok := m.Token(2); ok {
		t.Error("out of range token should not resolve")
	}
}

func TestMarketExposureRecord_Dominance(t *testing.T) {
	r := &MarketExposureRecord{}
	if r.Dominance() != 0 {
		t.Error("empty record dominance should be 0")
	}
	r.Add(SideBuy, 60)
	r.Add(SideSell, 40)
	if math.Abs(r.Dominance()-0.6) > 1e-9 {
		t.Errorf("dominance %f, want 0.6", r.Dominance())
	}
	if math.Abs(r.Net()-20) > 1e-9 {
		t.Errorf("net %f, want 20", r.Net())
	}
}
