package roi

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// AvailableBalance returns the foreign-currency balance of an account
// Logic:
//   - With history: principal + gross interest of the latest record
//   - Without history: Cost / ExchangeRate at origination
func AvailableBalance(account domain.DepositAccount) decimal.Decimal {
	if latest := account.LatestHistory(); latest != nil {
		return latest.Balance()
	}
	if account.ExchangeRate.IsZero() {
		return decimal.Zero
	}
	return account.Cost.Div(account.ExchangeRate)
}

// WithDerivedFields returns a copy of account with its derived fields recomputed against snapshot
// Logic:
//   - Revenue = AvailableBalance * snapshot[currency], 0 when the currency is absent
//   - PL = Revenue - Cost
//   - ROI% = PL / Cost * 100
//
// An empty snapshot leaves revenue unavailable instead of reporting a loss of the full cost.
// The result only depends on the persisted fields, so applying it twice is a no-op.
func WithDerivedFields(account domain.DepositAccount, snapshot domain.RateSnapshot) domain.DepositAccount {
	out := account.Clone()
	derived := domain.DerivedFields{
		AvailableBalance: AvailableBalance(account),
	}

	if !snapshot.IsEmpty() {
		derived.RevenueAvailable = true
		if rate, ok := snapshot.Rate(account.Currency); ok {
			derived.Revenue = derived.AvailableBalance.Mul(rate)
		}
		derived.PL = derived.Revenue.Sub(account.Cost)
		derived.ROIPercent = percent(derived.PL, account.Cost)
	}

	out.Derived = derived
	return out
}

// WithDerivedFieldsAll applies WithDerivedFields to every account, preserving order
func WithDerivedFieldsAll(accounts []domain.DepositAccount, snapshot domain.RateSnapshot) []domain.DepositAccount {
	out := make([]domain.DepositAccount, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, WithDerivedFields(account, snapshot))
	}
	return out
}

// CurrencyTotals sums cost and revenue for one currency group
type CurrencyTotals struct {
	Currency string
	Cost     decimal.Decimal
	Revenue  decimal.Decimal
	Accounts int
}

// PL returns Revenue - Cost for the group
func (c CurrencyTotals) PL() decimal.Decimal {
	return c.Revenue.Sub(c.Cost)
}

// ROIPercent returns (Revenue - Cost) / Cost * 100
// ok is false when the group's cost sum is zero; such groups are left out of percentage display
func (c CurrencyTotals) ROIPercent() (decimal.Decimal, bool) {
	if c.Cost.IsZero() {
		return decimal.Zero, false
	}
	return percent(c.PL(), c.Cost), true
}

// Summary represents the portfolio-level totals
type Summary struct {
	PerCurrency      map[string]CurrencyTotals
	TotalCost        decimal.Decimal
	TotalRevenue     decimal.Decimal
	RevenueAvailable bool
}

// TotalPL returns TotalRevenue - TotalCost
func (s Summary) TotalPL() decimal.Decimal {
	return s.TotalRevenue.Sub(s.TotalCost)
}

// TotalROIPercent returns the portfolio ROI%, ok is false for an empty portfolio
func (s Summary) TotalROIPercent() (decimal.Decimal, bool) {
	if s.TotalCost.IsZero() {
		return decimal.Zero, false
	}
	return percent(s.TotalPL(), s.TotalCost), true
}

// Currencies returns the currency codes present in the summary, sorted
func (s Summary) Currencies() []string {
	codes := make([]string, 0, len(s.PerCurrency))
	for code := range s.PerCurrency {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Aggregate sums cost and revenue grouped by currency and overall
// Revenue is recomputed from snapshot, so accounts need not carry derived fields
func Aggregate(accounts []domain.DepositAccount, snapshot domain.RateSnapshot) Summary {
	summary := Summary{
		PerCurrency:      make(map[string]CurrencyTotals),
		TotalCost:        decimal.Zero,
		TotalRevenue:     decimal.Zero,
		RevenueAvailable: !snapshot.IsEmpty(),
	}

	for _, account := range accounts {
		derived := WithDerivedFields(account, snapshot).Derived

		group := summary.PerCurrency[account.Currency]
		group.Currency = account.Currency
		group.Cost = group.Cost.Add(account.Cost)
		group.Revenue = group.Revenue.Add(derived.Revenue)
		group.Accounts++
		summary.PerCurrency[account.Currency] = group

		summary.TotalCost = summary.TotalCost.Add(account.Cost)
		summary.TotalRevenue = summary.TotalRevenue.Add(derived.Revenue)
	}

	return summary
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
