// Package document encodes deposit accounts to and from the JSON documents held by the stores.
// The document identifier is the account identifier and is never stored as a field.
package document

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// DefaultCollection is the collection used when none is configured
const DefaultCollection = "time-deposit"

// Deposit is the persisted shape of a deposit account
type Deposit struct {
	Currency     string        `json:"currency"`
	ExchangeRate json.Number   `json:"exchange_rate"`
	Cost         json.Number   `json:"cost"`
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	Day          int           `json:"day"`
	History      []HistoryItem `json:"history"`
}

// HistoryItem is the persisted shape of a history record
type HistoryItem struct {
	InterestStartYear           int         `json:"interest_start_year"`
	TimeDepositAmount           json.Number `json:"time_deposit_amount"`
	ReceivedGrossInterestAmount json.Number `json:"received_gross_interest_amount"`
	InterestRate                json.Number `json:"interest_rate"`
}

// FromAccount converts a domain account to its document
func FromAccount(account *domain.DepositAccount) Deposit {
	doc := Deposit{
		Currency:     account.Currency,
		ExchangeRate: number(account.ExchangeRate),
		Cost:         number(account.Cost),
		Year:         account.Year,
		Month:        int(account.Month),
		Day:          account.Day,
		History:      make([]HistoryItem, 0, len(account.History)),
	}
	for _, rec := range account.History {
		doc.History = append(doc.History, FromRecord(rec))
	}
	return doc
}

// FromRecord converts a history record to its document item
func FromRecord(rec domain.HistoryRecord) HistoryItem {
	return HistoryItem{
		InterestStartYear:           rec.InterestStartYear,
		TimeDepositAmount:           number(rec.TimeDepositAmount),
		ReceivedGrossInterestAmount: number(rec.ReceivedGrossAmount),
		InterestRate:                number(rec.InterestRate),
	}
}

// ToAccount converts a document back to a domain account
func (d Deposit) ToAccount(id string) (*domain.DepositAccount, error) {
	cost, err := parse(d.Cost, "cost")
	if err != nil {
		return nil, err
	}
	rate, err := parse(d.ExchangeRate, "exchange_rate")
	if err != nil {
		return nil, err
	}

	account := &domain.DepositAccount{
		ID:           id,
		Currency:     d.Currency,
		Cost:         cost,
		ExchangeRate: rate,
		Year:         d.Year,
		Month:        time.Month(d.Month),
		Day:          d.Day,
		History:      make([]domain.HistoryRecord, 0, len(d.History)),
	}

	for i, item := range d.History {
		rec, err := item.ToRecord()
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		account.History = append(account.History, rec)
	}

	return account, nil
}

// ToRecord converts a document item back to a history record
func (h HistoryItem) ToRecord() (domain.HistoryRecord, error) {
	principal, err := parse(h.TimeDepositAmount, "time_deposit_amount")
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	gross, err := parse(h.ReceivedGrossInterestAmount, "received_gross_interest_amount")
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	rate, err := parse(h.InterestRate, "interest_rate")
	if err != nil {
		return domain.HistoryRecord{}, err
	}

	return domain.HistoryRecord{
		InterestStartYear:   h.InterestStartYear,
		TimeDepositAmount:   principal,
		ReceivedGrossAmount: gross,
		InterestRate:        rate,
	}, nil
}

// Marshal encodes an account as a JSON document
func Marshal(account *domain.DepositAccount) ([]byte, error) {
	return json.Marshal(FromAccount(account))
}

// Unmarshal decodes a JSON document into an account with the given identifier
func Unmarshal(id string, data []byte) (*domain.DepositAccount, error) {
	var doc Deposit
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	account, err := doc.ToAccount(id)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return account, nil
}

// AppendUnique appends rec to history unless an equal record is already present
// It reports whether the history changed.
func AppendUnique(history []domain.HistoryRecord, rec domain.HistoryRecord) ([]domain.HistoryRecord, bool) {
	for _, existing := range history {
		if existing.Equal(rec) {
			return history, false
		}
	}
	return append(history, rec), true
}

var unsafeTableChars = regexp.MustCompile(`[^a-z0-9_]`)

// TableName turns a collection identifier into a safe SQL table name
// "time-deposit" becomes "time_deposit"
func TableName(collection string) string {
	name := strings.ToLower(strings.TrimSpace(collection))
	if name == "" {
		name = DefaultCollection
	}
	name = unsafeTableChars.ReplaceAllString(name, "_")
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return name
}

func number(v decimal.Decimal) json.Number {
	return json.Number(v.String())
}

func parse(n json.Number, field string) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, n, err)
	}
	return v, nil
}
