package executor

import (
	"errors"
	"fmt"
	"sync"

	"polycopy/internal/domain"
)

// Risk errors
var (
	ErrNoCapital           = errors.New("no spendable capital")
	ErrTotalExposureLimit  = errors.New("total exposure limit reached")
	ErrMarketExposureLimit = errors.New("market exposure limit reached")
	ErrOpenPositionsLimit  = errors.New("open positions limit reached")
	ErrReservationNotFound = errors.New("reservation not found")
)

// exposureEpsilon absorbs float error in cap comparisons.
const exposureEpsilon = 1e-9

// ExposureState tracks capital committed to copied orders for the life of
// the process. Committed values change only through Commit; cap checks
// also count sizes reserved by orders still in flight.
type ExposureState struct {
	mu sync.Mutex

	sessionTotal float64
	perMarket    map[string]float64

	nextID   uint64
	reserved map[uint64]Reservation
}

// NewExposureState creates an empty ExposureState.
func NewExposureState() *ExposureState {
	return &ExposureState{
		perMarket: make(map[string]float64),
		reserved:  make(map[uint64]Reservation),
	}
}

// Reservation holds capacity for one in-flight order.
type Reservation struct {
	id          uint64
	ConditionID string
	SizeUSD     float64
	Requested   float64 // size before the single-trade clamp
	Clamped     bool
}

// ExposureSnapshot is a copy of committed exposure.
type ExposureSnapshot struct {
	SessionTotalUSD float64
	PerMarketUSD    map[string]float64
}

// Snapshot returns committed exposure only.
func (s *ExposureState) Snapshot() ExposureSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	per := make(map[string]float64, len(s.perMarket))
	for k, v := range s.perMarket {
		per[k] = v
	}
	return ExposureSnapshot{SessionTotalUSD: s.sessionTotal, PerMarketUSD: per}
}

// Reserve applies the risk caps to sizeUSD against spendable capital, in
// order: clamp to the single-trade cap, then reject on the total-exposure,
// per-market and open-positions caps. On success the clamped size is held
// until Commit or Release.
func (s *ExposureState) Reserve(conditionID string, sizeUSD, spendable float64, risk domain.RiskControls) (Reservation, error) {
	if spendable <= 0 {
		return Reservation{}, ErrNoCapital
	}

	res := Reservation{ConditionID: conditionID, SizeUSD: sizeUSD, Requested: sizeUSD}
	if tradeCap := spendable * risk.MaxSingleTradeSize; sizeUSD > tradeCap {
		res.SizeUSD = tradeCap
		res.Clamped = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pendingTotal, pendingMarket := 0.0, 0.0
	pendingMarkets := make(map[string]struct{})
	for _, r := range s.reserved {
		pendingTotal += r.SizeUSD
		pendingMarkets[r.ConditionID] = struct{}{}
		if r.ConditionID == conditionID {
			pendingMarket += r.SizeUSD
		}
	}

	totalCap := spendable * risk.MaxTotalOpenExposure
	if total := s.sessionTotal + pendingTotal + res.SizeUSD; total > totalCap+exposureEpsilon {
		return Reservation{}, fmt.Errorf("%w: $%.2f + $%.2f exceeds $%.2f",
			ErrTotalExposureLimit, s.sessionTotal+pendingTotal, res.SizeUSD, totalCap)
	}

	marketCap := spendable * risk.MaxSingleMarketExposure
	current := s.perMarket[conditionID] + pendingMarket
	if current+res.SizeUSD > marketCap+exposureEpsilon {
		return Reservation{}, fmt.Errorf("%w: %s at $%.2f + $%.2f exceeds $%.2f",
			ErrMarketExposureLimit, conditionID, current, res.SizeUSD, marketCap)
	}

	if limit := risk.MaxOpenPositions; limit > 0 && current == 0 {
		open := len(s.perMarket)
		for cid := range pendingMarkets {
			if _, ok := s.perMarket[cid]; !ok {
				open++
			}
		}
		if open >= limit {
			return Reservation{}, fmt.Errorf("%w: %d of %d", ErrOpenPositionsLimit, open, limit)
		}
	}

	s.nextID++
	res.id = s.nextID
	s.reserved[res.id] = res
	return res, nil
}

// Commit records a confirmed order. Each reservation commits at most once.
func (s *ExposureState) Commit(res Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reserved[res.id]; !ok {
		return ErrReservationNotFound
	}
	delete(s.reserved, res.id)
	s.sessionTotal += res.SizeUSD
	s.perMarket[res.ConditionID] += res.SizeUSD
	return nil
}

// Release drops a reservation without committing it.
func (s *ExposureState) Release(res Reservation) {
	s.mu.Lock()
	delete(s.reserved, res.id)
	s.mu.Unlock()
}
