package sorter

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acc(id, currency string, month time.Month, day int, pl int64) domain.DepositAccount {
	return domain.DepositAccount{
		ID:       id,
		Currency: currency,
		Cost:     decimal.NewFromInt(1000),
		Year:     2020,
		Month:    month,
		Day:      day,
		Derived:  domain.DerivedFields{PL: decimal.NewFromInt(pl)},
	}
}

func ids(accounts []domain.DepositAccount) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.ID)
	}
	return out
}

func fixture() []domain.DepositAccount {
	return []domain.DepositAccount{
		acc("c", "USD", time.November, 5, 300),
		acc("a", "AUD", time.February, 20, -50),
		acc("d", "USD", time.February, 1, 10),
		acc("b", "AUD", time.July, 15, 10),
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		opts Options
		want []string
	}{
		{"account asc", KeyAccount, Options{}, []string{"a", "b", "c", "d"}},
		{"account desc", KeyAccount, Options{Order: OrderDesc}, []string{"d", "c", "b", "a"}},
		{"pl asc keeps ties stable", KeyPL, Options{}, []string{"a", "d", "b", "c"}},
		{"pl desc", KeyPL, Options{Order: OrderDesc}, []string{"c", "b", "d", "a"}},
		{"currency ties by account", KeyCurrency, Options{}, []string{"a", "b", "c", "d"}},
		{"month asc", KeyMonth, Options{}, []string{"d", "a", "b", "c"}},
		{
			"month from current rotates",
			KeyMonth,
			Options{From: FromCurrent, Now: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)},
			[]string{"b", "c", "d", "a"},
		},
		{
			"month from current then desc",
			KeyMonth,
			Options{From: FromCurrent, Order: OrderDesc, Now: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)},
			[]string{"a", "d", "c", "b"},
		},
		{
			"month from current wraps when nothing is later",
			KeyMonth,
			Options{From: FromCurrent, Now: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)},
			[]string{"d", "a", "b", "c"},
		},
		{
			"month from current in first month is identity",
			KeyMonth,
			Options{From: FromCurrent, Now: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
			[]string{"d", "a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sort(fixture(), tt.key, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := fixture()
	_, err := Sort(in, KeyAccount, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "d", "b"}, ids(in))
}

func TestSort_StableOnSortedInput(t *testing.T) {
	sorted, err := Sort(fixture(), KeyAccount, Options{})
	require.NoError(t, err)

	again, err := Sort(sorted, KeyAccount, Options{})
	require.NoError(t, err)
	assert.Equal(t, ids(sorted), ids(again))
}

func TestSort_DescIsReverseOfAsc(t *testing.T) {
	asc, err := Sort(fixture(), KeyAccount, Options{})
	require.NoError(t, err)
	desc, err := Sort(fixture(), KeyAccount, Options{Order: OrderDesc})
	require.NoError(t, err)

	reversed := ids(desc)
	slices.Reverse(reversed)
	assert.Equal(t, ids(asc), reversed)

	slices.Reverse(reversed)
	assert.Equal(t, ids(desc), reversed)
}

func TestSort_UnknownKey(t *testing.T) {
	_, err := Sort(fixture(), Key("balance"), Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
}

func TestParseKeyAndOrder(t *testing.T) {
	k, err := ParseKey(" PL ")
	assert.NoError(t, err)
	assert.Equal(t, KeyPL, k)

	_, err = ParseKey("balance")
	assert.ErrorIs(t, err, domain.ErrInvalidSort)

	o, err := ParseOrder("")
	assert.NoError(t, err)
	assert.Equal(t, OrderAsc, o)

	o, err = ParseOrder("DESC")
	assert.NoError(t, err)
	assert.Equal(t, OrderDesc, o)

	_, err = ParseOrder("sideways")
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
}
