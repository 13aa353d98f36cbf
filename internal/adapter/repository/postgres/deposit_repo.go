package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/simaogato/timedeposit-backend/internal/adapter/repository/document"
	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// uniqueViolation is the PostgreSQL error code raised on a primary key conflict
const uniqueViolation = "23505"

// depositRepository implements domain.DepositRepository on a JSONB document table
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
	query := fmt.Sprintf(`SELECT id, document FROM %s ORDER BY id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.DepositAccount
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}

		account, err := document.Unmarshal(id, raw)
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
	query := fmt.Sprintf(`SELECT document FROM %s WHERE id = $1`, r.table)

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deposit %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get deposit by ID: %w", err)
	}

	return document.Unmarshal(id, raw)
}

// Create inserts a new deposit document
// The primary key conflict is the collection's own duplicate signal
func (r *depositRepository) Create(ctx context.Context, account *domain.DepositAccount) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, document) VALUES ($1, $2)`, r.table)

	raw, err := document.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode deposit: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, account.ID, string(raw))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("deposit %s: %w", account.ID, domain.ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// AppendHistory merges a record into the document's history array
// Logic: JSONB concatenation guarded by containment, so an equal record is never appended twice
func (r *depositRepository) AppendHistory(ctx context.Context, id string, record domain.HistoryRecord) error {
	item, err := json.Marshal([]document.HistoryItem{document.FromRecord(record)})
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET document = jsonb_set(document, '{history}', COALESCE(document->'history', '[]'::jsonb) || $2::jsonb)
		WHERE id = $1
		  AND NOT COALESCE(document->'history', '[]'::jsonb) @> $2::jsonb
	`, r.table)

	res, err := r.db.ExecContext(ctx, query, id, string(item))
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read append result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing changed: either the record was already present or the document is missing
	var exists bool
	existsQuery := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.table)
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check deposit existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("deposit %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
