package executor

import "testing"

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		price, tick, want float64
	}{
		{0.537, 0.01, 0.54},
		{0.534, 0.01, 0.53},
		{0.5374, 0.001, 0.537},
		{0.001, 0.01, 0.01},
		{0.999, 0.01, 0.99},
		{0.55, 0.1, 0.6},
	}

	for _, tt := range tests {
		if got := roundToTick(tt.price, tt.tick); got != tt.want {
			t.Errorf("roundToTick(%v, %v) = %v, want %v", tt.price, tt.tick, got, tt.want)
		}
	}
}

func TestSharesFor(t *testing.T) {
	if got := sharesFor(20, 0.5); got != 40 {
		t.Errorf("got %v, want 40", got)
	}
	if got := sharesFor(10, 0.3); got != 33.33 {
		t.Errorf("got %v, want 33.33", got)
	}
	if got := sharesFor(10, 0); got != 0 {
		t.Errorf("zero price: got %v, want 0", got)
	}
}
