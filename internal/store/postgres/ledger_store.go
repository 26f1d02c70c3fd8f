package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openmint/marketd/internal/domain"
)

// LedgerStore implements domain.LedgerStore on a single path-keyed jsonb
// table. Batches execute inside one transaction, so a failed commit leaves
// no partial writes.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Get retrieves one document by path.
func (s *LedgerStore) Get(ctx context.Context, path string) (domain.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM ledger_documents WHERE path = $1`, path,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("postgres: get document %s: %w", path, err)
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.Document{}, fmt.Errorf("postgres: decode document %s: %w", path, err)
	}
	return domain.Document{Path: path, Data: data}, nil
}

// Delete removes one document. Deleting a missing document is not an error.
func (s *LedgerStore) Delete(ctx context.Context, path string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM ledger_documents WHERE path = $1`, path,
	); err != nil {
		return fmt.Errorf("postgres: delete document %s: %w", path, err)
	}
	return nil
}

// List returns the documents directly under prefix, ordered by path.
// Documents nested deeper than one segment are excluded.
func (s *LedgerStore) List(ctx context.Context, prefix string) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT path, data FROM ledger_documents
		 WHERE path LIKE $1 || '/%' AND path NOT LIKE $1 || '/%/%'
		 ORDER BY path`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents under %s: %w", prefix, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			path string
			raw  []byte
		)
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		data := make(map[string]any)
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("postgres: decode document %s: %w", path, err)
		}
		docs = append(docs, domain.Document{Path: path, Data: data})
	}
	return docs, rows.Err()
}

// Batch starts a write batch. Operations are buffered client-side and run
// in one transaction on Commit.
func (s *LedgerStore) Batch() domain.LedgerBatch {
	return &ledgerBatch{pool: s.pool}
}

type batchOp struct {
	path   string
	data   map[string]any // nil means delete
	delete bool
}

type ledgerBatch struct {
	pool *pgxpool.Pool
	ops  []batchOp
}

func (b *ledgerBatch) Set(path string, data map[string]any) {
	b.ops = append(b.ops, batchOp{path: path, data: data})
}

func (b *ledgerBatch) Delete(path string) {
	b.ops = append(b.ops, batchOp{path: path, delete: true})
}

func (b *ledgerBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range b.ops {
		if op.delete {
			if _, err := tx.Exec(ctx,
				`DELETE FROM ledger_documents WHERE path = $1`, op.path,
			); err != nil {
				return fmt.Errorf("postgres: batch delete %s: %w", op.path, err)
			}
			continue
		}

		raw, err := json.Marshal(op.data)
		if err != nil {
			return fmt.Errorf("postgres: encode document %s: %w", op.path, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO ledger_documents (path, data, updated_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
			op.path, raw,
		); err != nil {
			return fmt.Errorf("postgres: batch set %s: %w", op.path, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit batch: %w", err)
	}
	return nil
}

var _ domain.LedgerStore = (*LedgerStore)(nil)
