package sorter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// Key represents the field a ledger view is ordered by
type Key string

const (
	KeyAccount  Key = "account"
	KeyPL       Key = "pl"
	KeyCurrency Key = "currency"
	KeyMonth    Key = "month"
)

// Order represents the direction of a sorted view
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// FromCurrent rotates a month-sorted view to start at the current calendar month
const FromCurrent = "current"

// Options controls direction and rotation of a sorted view
type Options struct {
	Order Order
	From  string    // Only meaningful for KeyMonth; FromCurrent or empty
	Now   time.Time // Reference month for FromCurrent; zero means time.Now()
}

// ParseKey validates a sort key received as a string
func ParseKey(s string) (Key, error) {
	switch k := Key(strings.ToLower(strings.TrimSpace(s))); k {
	case KeyAccount, KeyPL, KeyCurrency, KeyMonth:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidSort, s)
	}
}

// ParseOrder validates a sort direction, defaulting to ascending
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OrderAsc, nil
	case OrderAsc, OrderDesc:
		return o, nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", domain.ErrInvalidSort, s)
	}
}

// Sort returns a new ordered copy of accounts; the input slice is left untouched
// Logic:
//   - account: by identifier
//   - pl: by derived profit/loss (derived fields must already be computed)
//   - currency: by currency code, ties broken by identifier
//   - month: by (month, day); From=FromCurrent rotates to the first entry at or after the current month
//   - desc reverses the final list, after any rotation
//
// The sort is stable, so equal keys keep their input order.
func Sort(accounts []domain.DepositAccount, key Key, opts Options) ([]domain.DepositAccount, error) {
	out := slices.Clone(accounts)

	switch key {
	case KeyAccount:
		slices.SortStableFunc(out, func(a, b domain.DepositAccount) int {
			return strings.Compare(a.ID, b.ID)
		})
	case KeyPL:
		slices.SortStableFunc(out, func(a, b domain.DepositAccount) int {
			return a.Derived.PL.Cmp(b.Derived.PL)
		})
	case KeyCurrency:
		slices.SortStableFunc(out, func(a, b domain.DepositAccount) int {
			if c := strings.Compare(a.Currency, b.Currency); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
	case KeyMonth:
		slices.SortStableFunc(out, compareMonthDay)
		if opts.From == FromCurrent {
			now := opts.Now
			if now.IsZero() {
				now = time.Now()
			}
			out = rotateToMonth(out, now.Month())
		}
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidSort, key)
	}

	if opts.Order == OrderDesc {
		slices.Reverse(out)
	}

	return out, nil
}

func compareMonthDay(a, b domain.DepositAccount) int {
	if a.Month != b.Month {
		return int(a.Month) - int(b.Month)
	}
	return a.Day - b.Day
}

// rotateToMonth moves the first entry whose month is at or after month to the front,
// wrapping the earlier entries to the end
func rotateToMonth(sorted []domain.DepositAccount, month time.Month) []domain.DepositAccount {
	idx := slices.IndexFunc(sorted, func(a domain.DepositAccount) bool {
		return a.Month >= month
	})
	if idx <= 0 {
		return sorted
	}
	return append(slices.Clone(sorted[idx:]), sorted[:idx]...)
}
