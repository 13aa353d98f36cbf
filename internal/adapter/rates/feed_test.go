package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantTime  string
		wantRates map[string]string
	}{
		{
			name:      "numbers and numeric strings",
			body:      `{"time":"2021/02/20 15:00","USD":29.5,"AUD":"20.1"}`,
			wantTime:  "2021/02/20 15:00",
			wantRates: map[string]string{"USD": "29.5", "AUD": "20.1"},
		},
		{
			name:      "non currency keys ignored",
			body:      `{"time":"t","USD":28,"source":"bot","usd":1}`,
			wantTime:  "t",
			wantRates: map[string]string{"USD": "28"},
		},
		{
			name:      "missing time label",
			body:      `{"NZD":19.9}`,
			wantRates: map[string]string{"NZD": "19.9"},
		},
		{name: "no rates", body: `{"time":"t"}`, wantErr: true},
		{name: "zero rate", body: `{"USD":0}`, wantErr: true},
		{name: "negative rate", body: `{"USD":-1}`, wantErr: true},
		{name: "garbage rate", body: `{"USD":"abc"}`, wantErr: true},
		{name: "not json", body: `<html></html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseFeed([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrRateFetchFailure)
				assert.True(t, snap.IsEmpty())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTime, snap.Time)
			require.Len(t, snap.Rates, len(tt.wantRates))
			for code, want := range tt.wantRates {
				assert.True(t, decimal.RequireFromString(want).Equal(snap.Rates[code]), "rate for %s", code)
			}
		})
	}
}

func TestFeedClient_FetchRates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"time":"2021/02/20 15:00","USD":29.5}`))
	}))
	defer srv.Close()

	t.Run("without cache every call hits the endpoint", func(t *testing.T) {
		hits.Store(0)
		client := NewFeedClient(srv.URL, time.Second, 0)

		for i := 0; i < 2; i++ {
			snap, err := client.FetchRates(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "2021/02/20 15:00", snap.Time)
		}
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("cache serves repeated calls", func(t *testing.T) {
		hits.Store(0)
		client := NewFeedClient(srv.URL, time.Second, time.Minute)

		first, err := client.FetchRates(context.Background())
		require.NoError(t, err)
		first.Rates["USD"] = decimal.NewFromInt(1)

		second, err := client.FetchRates(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int32(1), hits.Load())
		assert.True(t, decimal.RequireFromString("29.5").Equal(second.Rates["USD"]), "cached snapshot must not alias callers")
	})
}

func TestFeedClient_FetchRatesFailures(t *testing.T) {
	t.Run("non 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewFeedClient(srv.URL, time.Second, time.Minute).FetchRates(context.Background())
		assert.ErrorIs(t, err, domain.ErrRateFetchFailure)
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		_, err := NewFeedClient(srv.URL, time.Second, 0).FetchRates(context.Background())
		assert.ErrorIs(t, err, domain.ErrRateFetchFailure)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewFeedClient(url, time.Second, 0).FetchRates(context.Background())
		assert.ErrorIs(t, err, domain.ErrRateFetchFailure)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"USD":30}`))
		}))
		defer srv.Close()

		client := NewFeedClient(srv.URL, time.Second, time.Minute)
		_, err := client.FetchRates(context.Background())
		require.Error(t, err)

		fail.Store(false)
		snap, err := client.FetchRates(context.Background())
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(30).Equal(snap.Rates["USD"]))
	})
}
