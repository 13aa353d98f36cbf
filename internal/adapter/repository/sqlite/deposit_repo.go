package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/document"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// depositRepository implements domain.DepositRepository on a JSON text document table
type depositRepository struct {
	db    *DB
	table string
}

// NewDepositRepository creates a new deposit repository over the given collection
func NewDepositRepository(db *DB, collection string) domain.DepositRepository {
	return &depositRepository{db: db, table: document.TableName(collection)}
}

// List retrieves every deposit document ordered by identifier
func (r *depositRepository) List(ctx context.Context) ([]*domain.DepositAccount, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, document FROM %s ORDER BY id`, r.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.DepositAccount
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}

		account, err := document.Unmarshal(id, []byte(raw))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return accounts, nil
}

// Get retrieves a deposit document by its identifier
func (r *depositRepository) Get(ctx context.Context, id string) (*domain.DepositAccount, error) {
	return r.get(ctx, r.db, id)
}

// Create inserts a new deposit document
func (r *depositRepository) Create(ctx context.Context, account *domain.DepositAccount) error {
	raw, err := document.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode deposit: %w", err)
	}

	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, document) VALUES (?, ?)`, r.table), account.ID, string(raw))
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("deposit %s: %w", account.ID, domain.ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// AppendHistory merges a record into the document's history array
// Logic: read, dedupe and rewrite inside one transaction
func (r *depositRepository) AppendHistory(ctx context.Context, id string, record domain.HistoryRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := r.get(ctx, tx, id)
	if err != nil {
		return err
	}

	history, changed := document.AppendUnique(account.History, record)
	if !changed {
		return nil
	}
	account.History = history

	raw, err := document.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode deposit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET document = ? WHERE id = ?`, r.table), string(raw), id); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *depositRepository) get(ctx context.Context, q queryer, id string) (*domain.DepositAccount, error) {
	var raw string
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT document FROM %s WHERE id = ?`, r.table), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deposit %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get deposit by ID: %w", err)
	}
	return document.Unmarshal(id, []byte(raw))
}

func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
