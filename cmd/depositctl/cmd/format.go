package cmd

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney renders amount in currency with its symbol and minor-unit precision
// Unknown currencies fall back to a plain 2-place number.
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// formatPercent renders a percentage with 2 places
func formatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(2) + "%"
}

// signed prefixes positive values with "+"
func signed(amount decimal.Decimal, s string) string {
	if amount.IsPositive() {
		return "+" + s
	}
	return s
}
