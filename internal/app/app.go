// Package app assembles the deposit ledger from configuration.
// The server binary and the CLI share it so both talk to the same store and rate source.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/simaogato/timedeposit-backend/internal/adapter/rates"
	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/timedeposit-backend/internal/config"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/dashboard"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ledger"
	"github.com/simaogato/timedeposit-backend/internal/usecase/notifier"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ratecache"
)

// App holds the wired services
type App struct {
	Repo      domain.DepositRepository
	Rates     *ratecache.Cache
	Events    *notifier.Notifier
	Ledger    *ledger.LedgerService
	Dashboard *dashboard.DashboardService

	closer io.Closer
}

// New opens the configured store and builds the services on top of it
// Nothing is loaded or fetched yet; callers decide when to LoadAll and Refresh.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, closer, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := NewRateProvider(cfg)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	cache := ratecache.NewCache(provider)
	events := notifier.NewNotifier()
	ledgerService := ledger.NewLedgerService(repo, cache, events)

	return &App{
		Repo:      repo,
		Rates:     cache,
		Events:    events,
		Ledger:    ledgerService,
		Dashboard: dashboard.NewDashboardService(ledgerService, cache),
		closer:    closer,
	}, nil
}

// Close releases the store connection
func (a *App) Close() error {
	return a.closer.Close()
}

// OpenRepository connects to the configured document store and ensures the collection exists
func OpenRepository(ctx context.Context, cfg *config.Config) (domain.DepositRepository, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(cfg.PostgresConnString())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureCollection(ctx, cfg.Store.Collection); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewDepositRepository(db, cfg.Store.Collection), db, nil

	case config.DriverSQLite:
		db, err := sqlite.NewDB(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.EnsureCollection(ctx, cfg.Store.Collection); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlite.NewDepositRepository(db, cfg.Store.Collection), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NewRateProvider builds the configured rate source
func NewRateProvider(cfg *config.Config) (domain.RateProvider, error) {
	timeout, err := cfg.RatesTimeout()
	if err != nil {
		return nil, err
	}

	switch cfg.Rates.Source {
	case config.SourceFeed:
		ttl, err := cfg.RatesCacheTTL()
		if err != nil {
			return nil, err
		}
		return rates.NewFeedClient(cfg.Rates.URL, timeout, ttl), nil
	case config.SourceBankPage:
		return rates.NewBankPageScraper(cfg.Rates.URL, cfg.Rates.Currencies, timeout), nil
	default:
		return nil, fmt.Errorf("unknown rate source %q", cfg.Rates.Source)
	}
}
