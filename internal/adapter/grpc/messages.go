package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/dashboard"
	"github.com/simaogato/timedeposit-backend/internal/usecase/period"
)

// dateLayout is used for period start/end dates on the wire
const dateLayout = "2006-01-02"

// domainAccountToMap converts a domain account, derived fields included, to a struct-compatible map
func domainAccountToMap(account domain.DepositAccount) map[string]any {
	history := make([]any, 0, len(account.History))
	for _, rec := range account.History {
		history = append(history, domainRecordToMap(rec))
	}

	derived := map[string]any{
		"available_balance": account.Derived.AvailableBalance.String(),
		"revenue_available": account.Derived.RevenueAvailable,
	}
	if account.Derived.RevenueAvailable {
		derived["revenue"] = account.Derived.Revenue.String()
		derived["pl"] = account.Derived.PL.String()
		derived["roi_percent"] = account.Derived.ROIPercent.StringFixed(2)
	}

	return map[string]any{
		"id":            account.ID,
		"currency":      account.Currency,
		"cost":          account.Cost.String(),
		"exchange_rate": account.ExchangeRate.String(),
		"year":          account.Year,
		"month":         int(account.Month),
		"day":           account.Day,
		"history":       history,
		"derived":       derived,
	}
}

func domainRecordToMap(rec domain.HistoryRecord) map[string]any {
	return map[string]any{
		"interest_start_year":            rec.InterestStartYear,
		"time_deposit_amount":            rec.TimeDepositAmount.String(),
		"received_gross_interest_amount": rec.ReceivedGrossAmount.String(),
		"interest_rate":                  rec.InterestRate.String(),
	}
}

func domainAccountsToList(accounts []domain.DepositAccount) []any {
	out := make([]any, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, domainAccountToMap(account))
	}
	return out
}

func rateSnapshotToMap(snap domain.RateSnapshot) map[string]any {
	rates := make(map[string]any, len(snap.Rates))
	for _, code := range snap.Currencies() {
		rates[code] = snap.Rates[code].String()
	}
	return map[string]any{
		"time":  snap.Time,
		"rates": rates,
	}
}

func periodStatusToMap(status period.Status) map[string]any {
	out := map[string]any{
		"state":         string(status.State),
		"period_start":  status.PeriodStart.Format(dateLayout),
		"period_end":    status.PeriodEnd.Format(dateLayout),
		"last_end_year": status.LastEndYear,
	}
	if status.Next != nil {
		next := map[string]any{"interest_start_year": status.Next.InterestStartYear}
		if status.Next.TimeDepositAmount != nil {
			next["time_deposit_amount"] = status.Next.TimeDepositAmount.StringFixed(2)
		}
		out["next"] = next
	}
	return out
}

func portfolioSummaryToMap(summary *dashboard.PortfolioSummary) map[string]any {
	groups := make([]any, 0, len(summary.PerCurrency))
	for _, code := range summary.Currencies() {
		group := summary.PerCurrency[code]
		m := map[string]any{
			"currency": code,
			"cost":     group.Cost.String(),
			"accounts": group.Accounts,
		}
		if summary.RevenueAvailable {
			m["revenue"] = group.Revenue.String()
			m["pl"] = group.PL().String()
			if pct, ok := group.ROIPercent(); ok {
				m["roi_percent"] = pct.StringFixed(2)
			}
		}
		groups = append(groups, m)
	}

	out := map[string]any{
		"per_currency":      groups,
		"total_cost":        summary.TotalCost.String(),
		"revenue_available": summary.RevenueAvailable,
		"rate_time":         summary.RateTime,
		"matured":           summary.Matured,
	}
	if summary.RevenueAvailable {
		out["total_revenue"] = summary.TotalRevenue.String()
		out["total_pl"] = summary.TotalPL().String()
		if pct, ok := summary.TotalROIPercent(); ok {
			out["total_roi_percent"] = pct.StringFixed(2)
		}
	}
	if !summary.FetchedAt.IsZero() {
		out["fetched_at"] = summary.FetchedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func changeEventToMap(event domain.ChangeEvent) map[string]any {
	out := map[string]any{
		"id":       event.ID.String(),
		"success":  event.Success,
		"action":   string(event.Action),
		"deposits": domainAccountsToList(event.Result),
	}
	if event.Err != nil {
		out["error"] = event.Err.Error()
	}
	return out
}

// newStruct wraps structpb.NewStruct; every map built here holds only struct-compatible values
func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return s, nil
}

// stringField returns a string field, empty when absent
func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

// intField returns an integer field given as a number or numeric string
func intField(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(n), nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil || !d.IsInteger() {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(d.IntPart()), nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

// decimalField returns a decimal field given as a string or number
// Strings are preferred on the wire since numbers pass through float64.
func decimalField(s *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s is required", key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s format: %v", key, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, fmt.Errorf("%s must be a decimal string", key)
	}
}

// historyRecordFromStruct parses a history record message
func historyRecordFromStruct(s *structpb.Struct) (domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	var err error

	if rec.InterestStartYear, err = intField(s, "interest_start_year"); err != nil {
		return rec, err
	}
	if rec.TimeDepositAmount, err = decimalField(s, "time_deposit_amount"); err != nil {
		return rec, err
	}
	if rec.ReceivedGrossAmount, err = decimalField(s, "received_gross_interest_amount"); err != nil {
		return rec, err
	}
	if rec.InterestRate, err = decimalField(s, "interest_rate"); err != nil {
		return rec, err
	}
	return rec, nil
}
