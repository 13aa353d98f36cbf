package period

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// State is the state of a deposit's tail interest period
type State string

const (
	StateOpen    State = "OPEN"
	StateMatured State = "MATURED"
)

// NextPeriod is the pre-filled entry for the period following a matured one
type NextPeriod struct {
	InterestStartYear int
	// TimeDepositAmount is the roll-forward principal rounded to 2 places
	// nil for the first period, where the principal is left for the user to enter
	TimeDepositAmount *decimal.Decimal
}

// Status describes the tail period of an account as of a given day
type Status struct {
	State       State
	PeriodStart time.Time
	PeriodEnd   time.Time
	LastEndYear int
	Next        *NextPeriod // Set only when State is StateMatured
}

// Matured reports whether the tail period has ended
func (s Status) Matured() bool {
	return s.State == StateMatured
}

// Resolve determines whether the account's latest interest period has matured as of now
// Logic:
//   - Period end = origination month/day in (latest.InterestStartYear + 1), or (origination year + 1) without history
//   - Matured when now, at day granularity, is on or after the period end
//   - A matured period offers the next entry: start year = period end year,
//     principal = round2(latest principal + latest gross interest)
//
// Only the single next period is resolved, even when several anniversaries have passed.
// Periods are never closed here; that happens through an explicit history append.
func Resolve(account domain.DepositAccount, now time.Time) Status {
	startYear := account.Year
	latest := account.LatestHistory()
	if latest != nil {
		startYear = latest.InterestStartYear
	}
	endYear := startYear + 1

	status := Status{
		State:       StateOpen,
		PeriodStart: anniversary(account, startYear),
		PeriodEnd:   anniversary(account, endYear),
		LastEndYear: endYear,
	}

	if today(now).Before(status.PeriodEnd) {
		return status
	}

	status.State = StateMatured
	status.Next = &NextPeriod{InterestStartYear: endYear}
	if latest != nil {
		principal := latest.Balance().Round(2)
		status.Next.TimeDepositAmount = &principal
	}

	return status
}

// ResolveAll resolves every account, keyed by account identifier
func ResolveAll(accounts []domain.DepositAccount, now time.Time) map[string]Status {
	out := make(map[string]Status, len(accounts))
	for _, account := range accounts {
		out[account.ID] = Resolve(account, now)
	}
	return out
}

// anniversary returns the origination month/day in year at midnight UTC
// A 29 February origination falls on 1 March in non-leap years
func anniversary(account domain.DepositAccount, year int) time.Time {
	return time.Date(year, account.Month, account.Day, 0, 0, 0, 0, time.UTC)
}

// today truncates now to its calendar day in its own location, expressed in UTC
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
