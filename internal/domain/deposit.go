package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// HistoryRecord represents one completed or in-progress interest-bearing period
// Records are immutable once appended to an account
type HistoryRecord struct {
	InterestStartYear   int
	TimeDepositAmount   decimal.Decimal // Principal carried into the period
	ReceivedGrossAmount decimal.Decimal // Gross interest received for the period
	InterestRate        decimal.Decimal // Percentage, informational only
}

// Balance returns principal plus gross interest of the period
func (h HistoryRecord) Balance() decimal.Decimal {
	return h.TimeDepositAmount.Add(h.ReceivedGrossAmount)
}

// Equal reports whether two records hold the same values
// The document stores use it to dedupe merge-appends
func (h HistoryRecord) Equal(o HistoryRecord) bool {
	return h.InterestStartYear == o.InterestStartYear &&
		h.TimeDepositAmount.Equal(o.TimeDepositAmount) &&
		h.ReceivedGrossAmount.Equal(o.ReceivedGrossAmount) &&
		h.InterestRate.Equal(o.InterestRate)
}

// DerivedFields holds the values computed from an account and the current rate snapshot.
// They are never persisted.
type DerivedFields struct {
	AvailableBalance decimal.Decimal // In the account's foreign currency
	Revenue          decimal.Decimal // AvailableBalance converted to home currency
	PL               decimal.Decimal // Revenue - Cost
	ROIPercent       decimal.Decimal // PL / Cost * 100
	RevenueAvailable bool            // false until a rate snapshot has been fetched
}

// DepositAccount represents a single foreign-currency time deposit
type DepositAccount struct {
	ID           string
	Currency     string
	Cost         decimal.Decimal // Home-currency principal at origination
	ExchangeRate decimal.Decimal // Home-currency units per foreign unit at origination
	Year         int
	Month        time.Month
	Day          int
	History      []HistoryRecord // Chronological, append-only

	Derived DerivedFields
}

// OriginationDate returns the origination date at midnight UTC
func (a *DepositAccount) OriginationDate() time.Time {
	return time.Date(a.Year, a.Month, a.Day, 0, 0, 0, 0, time.UTC)
}

// LatestHistory returns the tail record, or nil if no period was recorded yet
func (a *DepositAccount) LatestHistory() *HistoryRecord {
	if len(a.History) == 0 {
		return nil
	}
	return &a.History[len(a.History)-1]
}

// Clone returns a deep copy so callers cannot alias the store's history slice
func (a *DepositAccount) Clone() DepositAccount {
	c := *a
	c.History = append([]HistoryRecord(nil), a.History...)
	return c
}

// Validate ensures the account adheres to domain rules
// Returns an error wrapping ErrInvalidDeposit if validation fails
func (a *DepositAccount) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return invalid("account identifier cannot be empty")
	}

	if err := ValidateCurrency(a.Currency); err != nil {
		return err
	}

	if a.Cost.LessThanOrEqual(decimal.Zero) {
		return invalid("cost must be positive")
	}

	if a.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return invalid("exchange rate must be positive")
	}

	// time.Date normalizes out-of-range values, so a round trip detects 2021/02/30
	d := a.OriginationDate()
	if a.Month < time.January || a.Month > time.December || d.Day() != a.Day || d.Month() != a.Month {
		return invalid(fmt.Sprintf("invalid origination date %d/%02d/%02d", a.Year, a.Month, a.Day))
	}

	for i, rec := range a.History {
		var prev *HistoryRecord
		if i > 0 {
			prev = &a.History[i-1]
		}
		if err := rec.validateAfter(prev); err != nil {
			return err
		}
	}

	return nil
}

// ValidateNext checks that rec may be appended to the account's history
func (a *DepositAccount) ValidateNext(rec HistoryRecord) error {
	return rec.validateAfter(a.LatestHistory())
}

func (h HistoryRecord) validateAfter(prev *HistoryRecord) error {
	if h.Balance().LessThan(decimal.Zero) {
		return invalid("principal plus gross interest cannot be negative")
	}

	if prev != nil && h.InterestStartYear <= prev.InterestStartYear {
		return invalid(fmt.Sprintf("interest start year %d must be after %d", h.InterestStartYear, prev.InterestStartYear))
	}

	return nil
}

// ValidateCurrency checks that code is a known 3-letter currency code
func ValidateCurrency(code string) error {
	if len(code) != 3 || strings.ToUpper(code) != code {
		return invalid(fmt.Sprintf("currency %q must be a 3-letter uppercase code", code))
	}
	if money.GetCurrency(code) == nil {
		return invalid(fmt.Sprintf("unknown currency %q", code))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidDeposit, msg)
}

// IsInvalid reports whether err is a validation failure
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidDeposit)
}
