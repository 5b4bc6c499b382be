package strategy

import (
	"testing"
	"time"

	"polycopy/internal/domain"
)

func TestDedupSet_CapacityEvictsOldest(t *testing.T) {
	d := dedupSet{at: make(map[string]time.Time)}
	base := time.Unix(1_700_000_000, 0)

	d.add("a", base, 2)
	d.add("b", base.Add(time.Second), 2)
	d.add("c", base.Add(2*time.Second), 2)

	if d.contains("a") {
		t.Error("oldest hash should be evicted at capacity")
	}
	if !d.contains("b") || !d.contains("c") {
		t.Error("newer hashes should be retained")
	}
	if len(d.order) != 2 {
		t.Errorf("order length %d, want 2", len(d.order))
	}
}

func TestDedupSet_CompactByAge(t *testing.T) {
	d := dedupSet{at: make(map[string]time.Time)}
	base := time.Unix(1_700_000_000, 0)

	for i, h := range []string{"a", "b", "c"} {
		d.add(h, base.Add(time.Duration(i)*time.Hour), 0)
	}

	dropped := d.compact(base.Add(90*time.Minute), 0)
	if dropped != 2 {
		t.Errorf("dropped %d, want 2", dropped)
	}
	if !d.contains("c") || d.contains("b") {
		t.Error("only entries newer than cutoff should remain")
	}
}

func TestState_SweepDropsOldRecords(t *testing.T) {
	s := NewState()
	now := time.Unix(1_700_000_000, 0)
	s.exposures["old"] = &domain.MarketExposureRecord{ConditionID: "old", FirstSeenAt: now.Add(-3 * time.Hour)}
	s.exposures["new"] = &domain.MarketExposureRecord{ConditionID: "new", FirstSeenAt: now.Add(-time.Minute)}

	expired, _ := s.sweep(now.Add(-2*time.Hour), now.Add(-24*time.Hour))

	if expired != 1 {
		t.Errorf("expired %d, want 1", expired)
	}
	if _, ok := s.Exposure("old"); ok {
		t.Error("old record should be swept")
	}
	if _, ok := s.Exposure("new"); !ok {
		t.Error("fresh record should remain")
	}
}
