package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/period"
	"github.com/simaogato/timedeposit-backend/internal/usecase/roi"
)

// AccountSource provides the ledger's current collection
type AccountSource interface {
	Accounts() []domain.DepositAccount
	Account(accountID string) (domain.DepositAccount, error)
	Now() time.Time
}

// RateSource provides the rate snapshot and when it was fetched
type RateSource interface {
	Snapshot() domain.RateSnapshot
	FetchedAt() time.Time
}

// PortfolioSummary represents the portfolio totals next to the rates they were computed with
type PortfolioSummary struct {
	roi.Summary
	RateTime  string    // Display label of the snapshot, empty without rates
	FetchedAt time.Time // Zero until the first successful refresh
	Matured   int       // Accounts whose tail period has ended
}

// AccountStatus pairs an account with its tail period status
type AccountStatus struct {
	Account domain.DepositAccount
	Period  period.Status
}

// DashboardService handles read-only portfolio views
type DashboardService struct {
	Ledger AccountSource
	Rates  RateSource
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(ledger AccountSource, rates RateSource) *DashboardService {
	return &DashboardService{
		Ledger: ledger,
		Rates:  rates,
	}
}

// GetPortfolioSummary aggregates cost, revenue and ROI per currency and overall
// Logic:
//   - Revenue is computed against the current snapshot; an empty snapshot reports RevenueAvailable=false
//   - Matured counts accounts whose tail period ended on or before the ledger's today
func (s *DashboardService) GetPortfolioSummary(ctx context.Context) (*PortfolioSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accounts := s.Ledger.Accounts()
	snapshot := s.Rates.Snapshot()
	now := s.Ledger.Now()

	matured := 0
	for _, account := range accounts {
		if period.Resolve(account, now).Matured() {
			matured++
		}
	}

	return &PortfolioSummary{
		Summary:   roi.Aggregate(accounts, snapshot),
		RateTime:  snapshot.Time,
		FetchedAt: s.Rates.FetchedAt(),
		Matured:   matured,
	}, nil
}

// GetPeriodStatus resolves the tail period of a single account
func (s *DashboardService) GetPeriodStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	account, err := s.Ledger.Account(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &AccountStatus{
		Account: account,
		Period:  period.Resolve(account, s.Ledger.Now()),
	}, nil
}

// ListMatured returns every account whose tail period has ended, in presentation order
func (s *DashboardService) ListMatured(ctx context.Context) ([]AccountStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.Ledger.Now()
	var out []AccountStatus
	for _, account := range s.Ledger.Accounts() {
		status := period.Resolve(account, now)
		if status.Matured() {
			out = append(out, AccountStatus{Account: account, Period: status})
		}
	}
	return out, nil
}
