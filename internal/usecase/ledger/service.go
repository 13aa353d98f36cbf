package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/roi"
	"github.com/simaogato/timedeposit-backend/internal/usecase/sorter"
)

// RateSource provides the rate snapshot derived fields are computed against
type RateSource interface {
	Snapshot() domain.RateSnapshot
}

// Publisher receives a change event after every ledger operation
type Publisher interface {
	Notify(event domain.ChangeEvent)
}

// CreateDepositInput represents the input for creating a deposit account
type CreateDepositInput struct {
	Currency     string
	Cost         decimal.Decimal
	ExchangeRate decimal.Decimal
	Year         int
	Month        time.Month
	Day          int
}

// LedgerService owns the in-memory deposit collection and keeps it in sync with the repository
// Every operation runs to completion, notification included, before the next one starts.
type LedgerService struct {
	Repo   domain.DepositRepository
	Rates  RateSource
	Events Publisher

	now func() time.Time

	mu    sync.Mutex
	order []string // Presentation order, most recently created first
	index map[string]*domain.DepositAccount
}

// NewLedgerService creates a new LedgerService instance with an empty collection
func NewLedgerService(repo domain.DepositRepository, rates RateSource, events Publisher) *LedgerService {
	return &LedgerService{
		Repo:   repo,
		Rates:  rates,
		Events: events,
		now:    time.Now,
		index:  make(map[string]*domain.DepositAccount),
	}
}

// LoadAll fetches every account from the repository and replaces the in-memory collection
// On failure the collection is cleared to empty. Observers are notified either way.
func (s *LedgerService) LoadAll(ctx context.Context) ([]domain.DepositAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.Repo.List(ctx)
	if err != nil {
		s.replace(nil)
		return s.fail(domain.ActionGetDeposits, classify("failed to load deposits", err))
	}

	s.replace(accounts)
	result := s.snapshot()
	s.publish(domain.ActionGetDeposits, result, nil)

	return result, nil
}

// Create validates and persists a new account, then prepends it to the in-memory collection
// Returns an error wrapping ErrDuplicateAccount if the repository already holds the identifier
func (s *LedgerService) Create(ctx context.Context, accountID string, input CreateDepositInput) (*domain.DepositAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := &domain.DepositAccount{
		ID:           accountID,
		Currency:     input.Currency,
		Cost:         input.Cost,
		ExchangeRate: input.ExchangeRate,
		Year:         input.Year,
		Month:        input.Month,
		Day:          input.Day,
	}

	if err := account.Validate(); err != nil {
		_, err = s.fail(domain.ActionCreateDepositAccount, err)
		return nil, err
	}

	if err := s.Repo.Create(ctx, account); err != nil {
		_, err = s.fail(domain.ActionCreateDepositAccount, classify("failed to create deposit account", err))
		return nil, err
	}

	s.remove(accountID)
	s.order = append([]string{accountID}, s.order...)
	s.index[accountID] = account

	created := roi.WithDerivedFields(*account, s.Rates.Snapshot())
	s.publish(domain.ActionCreateDepositAccount, s.snapshot(), nil)

	return &created, nil
}

// AppendHistory records a closed interest period for an account
// Logic:
//   - The account must be present in the in-memory index (ErrNotFound otherwise)
//   - The record must follow the current tail; resending the tail itself is allowed and is deduped by the repository
//   - After the merge-append the account is re-read and replaced at its existing position
func (s *LedgerService) AppendHistory(ctx context.Context, accountID string, record domain.HistoryRecord) (*domain.DepositAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.index[accountID]
	if !ok {
		_, err := s.fail(domain.ActionUpdateHistory, fmt.Errorf("append history to %s: %w", accountID, domain.ErrNotFound))
		return nil, err
	}

	if latest := current.LatestHistory(); latest == nil || !latest.Equal(record) {
		if err := current.ValidateNext(record); err != nil {
			_, err = s.fail(domain.ActionUpdateHistory, err)
			return nil, err
		}
	}

	if err := s.Repo.AppendHistory(ctx, accountID, record); err != nil {
		_, err = s.fail(domain.ActionUpdateHistory, classify("failed to append history", err))
		return nil, err
	}

	updated, err := s.Repo.Get(ctx, accountID)
	if err != nil {
		_, err = s.fail(domain.ActionUpdateHistory, classify("failed to re-read deposit account", err))
		return nil, err
	}
	s.index[accountID] = updated

	result := roi.WithDerivedFields(*updated, s.Rates.Snapshot())
	s.publish(domain.ActionUpdateHistory, s.snapshot(), nil)

	return &result, nil
}

// Sort returns an ordered view of the collection and broadcasts it
// The stored presentation order is not changed.
func (s *LedgerService) Sort(key sorter.Key, opts sorter.Options) ([]domain.DepositAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.Now.IsZero() {
		opts.Now = s.now()
	}

	sorted, err := sorter.Sort(s.snapshot(), key, opts)
	if err != nil {
		return s.fail(domain.ActionSortDepositList, err)
	}

	s.publish(domain.ActionSortDepositList, sorted, nil)
	return sorted, nil
}

// Accounts returns the collection in presentation order with derived fields computed
func (s *LedgerService) Accounts() []domain.DepositAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Account returns a single account with derived fields computed
func (s *LedgerService) Account(accountID string) (domain.DepositAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.index[accountID]
	if !ok {
		return domain.DepositAccount{}, fmt.Errorf("deposit account %s: %w", accountID, domain.ErrNotFound)
	}
	return roi.WithDerivedFields(*account, s.Rates.Snapshot()), nil
}

// Now returns the service clock
func (s *LedgerService) Now() time.Time {
	return s.now()
}

// SetClock replaces the service clock
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// snapshot must be called with mu held
func (s *LedgerService) snapshot() []domain.DepositAccount {
	rates := s.Rates.Snapshot()
	out := make([]domain.DepositAccount, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, roi.WithDerivedFields(*s.index[id], rates))
	}
	return out
}

// replace must be called with mu held; the index is rebuilt from scratch
func (s *LedgerService) replace(accounts []*domain.DepositAccount) {
	s.order = make([]string, 0, len(accounts))
	s.index = make(map[string]*domain.DepositAccount, len(accounts))
	for _, account := range accounts {
		if _, dup := s.index[account.ID]; dup {
			continue
		}
		s.order = append(s.order, account.ID)
		s.index[account.ID] = account
	}
}

// remove must be called with mu held
func (s *LedgerService) remove(accountID string) {
	if _, ok := s.index[accountID]; !ok {
		return
	}
	delete(s.index, accountID)
	for i, id := range s.order {
		if id == accountID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// fail logs err, notifies observers with the current snapshot and returns it alongside err
func (s *LedgerService) fail(action domain.Action, err error) ([]domain.DepositAccount, error) {
	log.Printf("ledger %s failed: %v", action, err)
	result := s.snapshot()
	s.publish(action, result, err)
	return result, err
}

func (s *LedgerService) publish(action domain.Action, result []domain.DepositAccount, err error) {
	if s.Events == nil {
		return
	}
	s.Events.Notify(domain.ChangeEvent{
		Success: err == nil,
		Action:  action,
		Result:  result,
		Err:     err,
	})
}

// classify keeps domain sentinels from the repository and marks everything else as a remote failure
func classify(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicateAccount),
		errors.Is(err, domain.ErrRemoteFailure):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteFailure, err)
	}
}
