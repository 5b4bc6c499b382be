package strategy

import (
	"sync"
	"time"

	"polycopy/internal/domain"
)

// State is the mutable bookkeeping of one engine: per-market exposure
// aggregation, the transaction dedup set and execution latches.
// A State must not be shared between engines.
type State struct {
	mu sync.Mutex

	exposures  map[string]*domain.MarketExposureRecord // keyed by condition id
	seen       dedupSet
	latched    map[string]bool
	executions map[string]int
	inFlight   map[string]time.Time // claimed market -> resolution time
	resolvesAt map[string]time.Time // executed market -> resolution time
	lastSweep  time.Time
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		exposures:  make(map[string]*domain.MarketExposureRecord),
		seen:       dedupSet{at: make(map[string]time.Time)},
		latched:    make(map[string]bool),
		executions: make(map[string]int),
		inFlight:   make(map[string]time.Time),
		resolvesAt: make(map[string]time.Time),
	}
}

// Exposure returns a copy of the live exposure record for conditionID.
func (s *State) Exposure(conditionID string) (domain.MarketExposureRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.exposures[conditionID]
	if !ok {
		return domain.MarketExposureRecord{}, false
	}
	return *rec, true
}

// Executions returns the number of settled executions for conditionID.
func (s *State) Executions(conditionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executions[conditionID]
}

// Latched reports whether conditionID has been executed.
func (s *State) Latched(conditionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched[conditionID]
}

// Stats is a point-in-time view of State sizes.
type Stats struct {
	TrackedMarkets int
	SeenHashes     int
	Latched        int
	InFlight       int
}

// Stats returns current State sizes.
func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TrackedMarkets: len(s.exposures),
		SeenHashes:     len(s.seen.at),
		Latched:        len(s.latched),
		InFlight:       len(s.inFlight),
	}
}

// sweep deletes exposure records first seen before cutoff and compacts
// the dedup set. Caller holds mu.
func (s *State) sweep(exposureCutoff, dedupCutoff time.Time) (expired, forgotten int) {
	for cid, rec := range s.exposures {
		if rec.FirstSeenAt.Before(exposureCutoff) {
			delete(s.exposures, cid)
			expired++
		}
	}
	forgotten = s.seen.compact(dedupCutoff, 0)
	return expired, forgotten
}

// forgetResolved drops the latch and execution count of executed markets
// that resolved before now. Markets without a known end date are kept.
func (s *State) forgetResolved(now time.Time) int {
	n := 0
	for cid, end := range s.resolvesAt {
		if end.Before(now) {
			delete(s.latched, cid)
			delete(s.executions, cid)
			delete(s.resolvesAt, cid)
			n++
		}
	}
	return n
}

// dedupSet is an insertion-ordered set of transaction hashes, bounded by
// age and capacity. Oldest entries are dropped first.
type dedupSet struct {
	at    map[string]time.Time
	order []string
}

func (d *dedupSet) contains(hash string) bool {
	_, ok := d.at[hash]
	return ok
}

func (d *dedupSet) add(hash string, now time.Time, capacity int) {
	d.at[hash] = now
	d.order = append(d.order, hash)
	if capacity > 0 && len(d.at) > capacity {
		d.compact(time.Time{}, capacity)
	}
}

// compact drops entries older than cutoff, then the oldest entries beyond
// capacity (0 = unbounded). Returns the number dropped.
func (d *dedupSet) compact(cutoff time.Time, capacity int) int {
	dropped := 0
	for len(d.order) > 0 {
		oldest := d.order[0]
		ts := d.at[oldest]
		overCapacity := capacity > 0 && len(d.at) > capacity
		if !overCapacity && !ts.Before(cutoff) {
			break
		}
		delete(d.at, oldest)
		d.order = d.order[1:]
		dropped++
	}
	if cap(d.order) > 2*len(d.order)+1024 {
		d.order = append([]string(nil), d.order...)
	}
	return dropped
}
