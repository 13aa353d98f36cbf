package domain

import "context"

// DepositRepository defines the document collection holding deposit accounts
// The document identifier is the account identifier
type DepositRepository interface {
	// List retrieves every account in the collection
	List(ctx context.Context) ([]*DepositAccount, error)

	// Get retrieves a single account
	// Returns an error wrapping ErrNotFound if the document is absent
	Get(ctx context.Context, id string) (*DepositAccount, error)

	// Create stores a new account document
	// Returns an error wrapping ErrDuplicateAccount if the identifier is taken
	Create(ctx context.Context, account *DepositAccount) error

	// AppendHistory merges record into the stored history array
	// An equal record already present is not duplicated
	AppendHistory(ctx context.Context, id string, record HistoryRecord) error
}

// RateProvider defines the external exchange rate lookup
type RateProvider interface {
	// FetchRates retrieves the latest snapshot
	// Any transport or parse failure returns an error wrapping ErrRateFetchFailure
	FetchRates(ctx context.Context) (RateSnapshot, error)
}
