package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// RateSnapshot maps a currency code to home-currency units per one foreign unit
// Time is the display label published by the rate service
type RateSnapshot struct {
	Rates map[string]decimal.Decimal
	Time  string
}

// IsEmpty reports whether the snapshot holds no rates at all
func (s RateSnapshot) IsEmpty() bool {
	return len(s.Rates) == 0
}

// Rate returns the rate for currency and whether it is present
func (s RateSnapshot) Rate(currency string) (decimal.Decimal, bool) {
	r, ok := s.Rates[currency]
	return r, ok
}

// Currencies returns the snapshot's currency codes in ascending order
func (s RateSnapshot) Currencies() []string {
	codes := make([]string, 0, len(s.Rates))
	for code := range s.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns a copy whose map can be handed out without aliasing
func (s RateSnapshot) Clone() RateSnapshot {
	rates := make(map[string]decimal.Decimal, len(s.Rates))
	for k, v := range s.Rates {
		rates[k] = v
	}
	return RateSnapshot{Rates: rates, Time: s.Time}
}

// Validate ensures every rate is positive
func (s RateSnapshot) Validate() error {
	for code, rate := range s.Rates {
		if rate.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("rate for %s must be positive, got %s", code, rate)
		}
	}
	return nil
}
