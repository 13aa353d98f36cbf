package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/timedeposit-backend/internal/adapter/rates"
	"github.com/simaogato/timedeposit-backend/internal/config"
)

func sqliteConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "deposits.db")
	return cfg
}

func TestNew_SQLite(t *testing.T) {
	a, err := New(context.Background(), sqliteConfig(t))
	require.NoError(t, err)
	defer a.Close()

	accounts, err := a.Ledger.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	latest, ok := a.Events.Latest()
	require.True(t, ok)
	assert.True(t, latest.Success)
}

func TestOpenRepository_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "mongo"

	_, _, err := OpenRepository(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestNewRateProvider(t *testing.T) {
	cfg := config.Default()

	p, err := NewRateProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &rates.BankPageScraper{}, p)

	cfg.Rates.Source = config.SourceFeed
	p, err = NewRateProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &rates.FeedClient{}, p)

	cfg.Rates.Source = "carrier-pigeon"
	_, err = NewRateProvider(cfg)
	assert.Error(t, err)
}
