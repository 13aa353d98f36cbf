package seeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of an account import
type SeedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedAccount defines one account to be seeded
// Amounts are strings so they parse exactly into decimals
type SeedAccount struct {
	ID           string       `yaml:"id"`
	Currency     string       `yaml:"currency"`
	Cost         string       `yaml:"cost"`
	ExchangeRate string       `yaml:"exchange_rate"`
	Year         int          `yaml:"year"`
	Month        int          `yaml:"month"`
	Day          int          `yaml:"day"`
	History      []SeedRecord `yaml:"history,omitempty"`
}

// SeedRecord defines one history entry of a seeded account
type SeedRecord struct {
	InterestStartYear   int    `yaml:"interest_start_year"`
	TimeDepositAmount   string `yaml:"time_deposit_amount"`
	ReceivedGrossAmount string `yaml:"received_gross_amount"`
	InterestRate        string `yaml:"interest_rate"`
}

// Result counts what a seed run changed
type Result struct {
	Created  int
	Existing int
	Records  int // History records submitted; the store drops ones already present
}

// AccountSeeder imports accounts into the deposit collection
type AccountSeeder struct {
	repo domain.DepositRepository
}

// NewAccountSeeder creates a new AccountSeeder instance
func NewAccountSeeder(repo domain.DepositRepository) *AccountSeeder {
	return &AccountSeeder{
		repo: repo,
	}
}

// LoadSeedFile reads and decodes a YAML seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &file, nil
}

// Seed ensures every account in the file exists with at least the listed history
// Logic:
//   - All entries are decoded and validated before anything is written
//   - A missing account is created; an existing one is left as is
//   - Each history record is merge-appended, so re-running the same file is a no-op
func (s *AccountSeeder) Seed(ctx context.Context, file *SeedFile) (Result, error) {
	var result Result

	accounts := make([]*domain.DepositAccount, 0, len(file.Accounts))
	for i, entry := range file.Accounts {
		account, err := entry.toAccount()
		if err != nil {
			return result, fmt.Errorf("account #%d (%s): %w", i+1, entry.ID, err)
		}
		accounts = append(accounts, account)
	}

	for _, account := range accounts {
		_, err := s.repo.Get(ctx, account.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// History goes through AppendHistory below
			shell := *account
			shell.History = nil
			if err := s.repo.Create(ctx, &shell); err != nil {
				return result, fmt.Errorf("failed to create account %s: %w", account.ID, err)
			}
			result.Created++
		case err != nil:
			return result, fmt.Errorf("failed to get account %s: %w", account.ID, err)
		default:
			result.Existing++
		}

		for _, rec := range account.History {
			if err := s.repo.AppendHistory(ctx, account.ID, rec); err != nil {
				return result, fmt.Errorf("failed to append history to %s: %w", account.ID, err)
			}
			result.Records++
		}
	}

	return result, nil
}

func (e SeedAccount) toAccount() (*domain.DepositAccount, error) {
	cost, err := parseAmount("cost", e.Cost)
	if err != nil {
		return nil, err
	}
	rate, err := parseAmount("exchange_rate", e.ExchangeRate)
	if err != nil {
		return nil, err
	}

	account := &domain.DepositAccount{
		ID:           e.ID,
		Currency:     e.Currency,
		Cost:         cost,
		ExchangeRate: rate,
		Year:         e.Year,
		Month:        time.Month(e.Month),
		Day:          e.Day,
	}

	for _, r := range e.History {
		rec := domain.HistoryRecord{InterestStartYear: r.InterestStartYear}
		if rec.TimeDepositAmount, err = parseAmount("time_deposit_amount", r.TimeDepositAmount); err != nil {
			return nil, err
		}
		if rec.ReceivedGrossAmount, err = parseAmount("received_gross_amount", r.ReceivedGrossAmount); err != nil {
			return nil, err
		}
		if rec.InterestRate, err = parseAmount("interest_rate", r.InterestRate); err != nil {
			return nil, err
		}
		account.History = append(account.History, rec)
	}

	// Validate before creating
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", domain.ErrInvalidDeposit, field, s)
	}
	return d, nil
}
