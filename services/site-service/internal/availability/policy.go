package availability

import (
	"context"
	"fmt"

	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

const DefaultFullyBookedThreshold = 3

// Policy holds the configurable inputs of classification. The curated date
// lists come from configuration or the blocked_dates table, never from code.
type Policy struct {
	BlockedDates            []model.Date
	PartiallyBookedDates    []model.Date
	FullyBookedThreshold    int
	SimulatedTakenSlots     []Slot
	SimulatePartialBookings bool
}

func DefaultPolicy() Policy {
	return Policy{
		FullyBookedThreshold:    DefaultFullyBookedThreshold,
		SimulatedTakenSlots:     []Slot{"09:00", "14:00"},
		SimulatePartialBookings: true,
	}
}

// ParseDates parses YYYY-MM-DD values, reporting the first bad one.
func ParseDates(values []string) ([]model.Date, error) {
	out := make([]model.Date, 0, len(values))
	for _, v := range values {
		d, err := model.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", v, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Source yields the policy in force for a request.
type Source interface {
	Policy(ctx context.Context) (Policy, error)
}

type staticSource struct {
	policy Policy
}

func NewStaticSource(p Policy) Source {
	return &staticSource{policy: p}
}

func (s *staticSource) Policy(context.Context) (Policy, error) {
	return s.policy, nil
}

// BlockedDateStore lists dates an administrator has closed.
type BlockedDateStore interface {
	ListBlockedDates(ctx context.Context) ([]model.Date, error)
}

type storeSource struct {
	base  Policy
	store BlockedDateStore
}

// NewStoreSource merges admin-managed blocked dates into base.
func NewStoreSource(base Policy, store BlockedDateStore) Source {
	return &storeSource{base: base, store: store}
}

func (s *storeSource) Policy(ctx context.Context) (Policy, error) {
	dates, err := s.store.ListBlockedDates(ctx)
	if err != nil {
		return Policy{}, fmt.Errorf("list blocked dates: %w", err)
	}
	p := s.base
	p.BlockedDates = append(append([]model.Date(nil), s.base.BlockedDates...), dates...)
	return p, nil
}
