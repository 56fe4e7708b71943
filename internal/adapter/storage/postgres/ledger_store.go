package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"courier-wallet/internal/core/domain"
	"courier-wallet/internal/core/ports"
	"courier-wallet/pkg/apperror"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is satisfied by both Pool and pgx.Tx, so the same statements run
// inside and outside an account-lock transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCtxKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// Schema is the append-only entries table. Entries are never updated or
// deleted; the partial unique index enforces per-account idempotency keys
// and the sequence index turns a lost serialization race into a constraint
// violation instead of silent corruption.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id               UUID PRIMARY KEY,
	account_id       TEXT NOT NULL,
	kind             TEXT NOT NULL,
	amount           BIGINT NOT NULL CHECK (amount >= 0),
	description      TEXT NOT NULL DEFAULT '',
	reference_id     TEXT,
	reference_kind   TEXT,
	idempotency_key  TEXT,
	metadata         JSONB,
	sequence         BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS ledger_entries_account_idem_key
	ON ledger_entries (account_id, idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS ledger_entries_account_sequence
	ON ledger_entries (account_id, sequence);
CREATE INDEX IF NOT EXISTS ledger_entries_account_reference
	ON ledger_entries (account_id, reference_id) WHERE reference_id IS NOT NULL;
`

const entryColumns = `id, account_id, kind, amount, description, reference_id, reference_kind, idempotency_key, metadata, sequence, created_at`

// LedgerStore implements ports.LedgerStore on PostgreSQL.
type LedgerStore struct {
	pool Pool
}

// NewLedgerStore creates a PostgreSQL-backed ledger store.
func NewLedgerStore(pool Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// EnsureSchema creates the entries table and indexes if absent.
func (s *LedgerStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// q returns the account-lock transaction when running inside
// WithAccountLock, the pool otherwise.
func (s *LedgerStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// Append inserts one immutable entry, assigning id, sequence and timestamp.
// If the entry's idempotency key is already present for the account, the
// stored entry is returned unchanged. The key check and the insert are
// atomic: a racing duplicate trips the partial unique index and resolves to
// the winner's row.
func (s *LedgerStore) Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	q := s.q(ctx)

	if entry.IdempotencyKey != nil {
		existing, err := s.findByIdempotencyKey(ctx, q, entry.AccountID, *entry.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	metadata, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal entry metadata: %w", err))
	}

	stored := *entry
	stored.ID = uuid.New()

	query := `INSERT INTO ledger_entries
		(id, account_id, kind, amount, description, reference_id, reference_kind, idempotency_key, metadata, sequence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			(SELECT COALESCE(MAX(sequence), 0) + 1 FROM ledger_entries WHERE account_id = $2),
			NOW())
		RETURNING sequence, created_at`

	err = q.QueryRow(ctx, query,
		stored.ID, stored.AccountID, stored.Kind, stored.Amount, stored.Description,
		stored.ReferenceID, refKindValue(stored.ReferenceKind), stored.IdempotencyKey, metadata,
	).Scan(&stored.Sequence, &stored.CreatedAt)
	if err != nil {
		return s.resolveAppendError(ctx, q, entry, err)
	}

	return &stored, nil
}

// resolveAppendError maps constraint violations: a losing race on the
// idempotency index resolves to the winner's entry, a losing race on the
// sequence index is a retryable conflict.
func (s *LedgerStore) resolveAppendError(ctx context.Context, q querier, entry *domain.LedgerEntry, err error) (*domain.LedgerEntry, error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "idem") && entry.IdempotencyKey != nil {
			existing, findErr := s.findByIdempotencyKey(ctx, q, entry.AccountID, *entry.IdempotencyKey)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, apperror.ErrStorageConflict(fmt.Errorf("append entry: %w", err))
	}
	return nil, apperror.ErrStorage(fmt.Errorf("append entry: %w", err))
}

// EntriesFor returns the account's entries in the requested order.
func (s *LedgerStore) EntriesFor(ctx context.Context, accountID string, order ports.SortOrder) ([]domain.LedgerEntry, error) {
	direction := "ASC"
	if order == ports.NewestFirst {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE account_id = $1 ORDER BY sequence %s`, entryColumns, direction)

	rows, err := s.q(ctx).Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query entries for %s: %w", accountID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// FindByReference returns the account's entries correlated to referenceID,
// oldest first.
func (s *LedgerStore) FindByReference(ctx context.Context, accountID, referenceID string) ([]domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE account_id = $1 AND reference_id = $2 ORDER BY sequence ASC`, entryColumns)

	rows, err := s.q(ctx).Query(ctx, query, accountID, referenceID)
	if err != nil {
		return nil, fmt.Errorf("query entries by reference %s: %w", referenceID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// FindById returns the entry with the given id, or nil when absent.
func (s *LedgerStore) FindByID(ctx context.Context, accountID string, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE account_id = $1 AND id = $2`, entryColumns)

	entry, err := scanEntry(s.q(ctx).QueryRow(ctx, query, accountID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find entry %s: %w", id, err)
	}
	return entry, nil
}

// FindByIdempotencyKey returns the entry committed under the account-scoped
// idempotency key, or nil when the key is unseen. Inside WithAccountLock the
// lookup joins the account transaction.
func (s *LedgerStore) FindByIdempotencyKey(ctx context.Context, accountID, key string) (*domain.LedgerEntry, error) {
	return s.findByIdempotencyKey(ctx, s.q(ctx), accountID, key)
}

// WithAccountLock serializes fn against all other mutations on the account:
// the callback runs inside one transaction holding the account's advisory
// lock, and commits only when fn returns nil. An error, or an abandoned
// context, rolls the whole sequence back.
func (s *LedgerStore) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("begin account tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, accountID); err != nil {
		return apperror.ErrStorage(fmt.Errorf("lock account %s: %w", accountID, err))
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrStorageConflict(fmt.Errorf("commit account tx: %w", err))
	}
	return nil
}

func (s *LedgerStore) findByIdempotencyKey(ctx context.Context, q querier, accountID, key string) (*domain.LedgerEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE account_id = $1 AND idempotency_key = $2`, entryColumns)

	entry, err := scanEntry(q.QueryRow(ctx, query, accountID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrStorage(fmt.Errorf("find entry by idempotency key: %w", err))
	}
	return entry, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return json.Marshal(metadata)
}

func refKindValue(kind *domain.ReferenceKind) *string {
	if kind == nil {
		return nil
	}
	s := string(*kind)
	return &s
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e        domain.LedgerEntry
		refKind  *string
		metadata []byte
	)
	err := row.Scan(
		&e.ID, &e.AccountID, &e.Kind, &e.Amount, &e.Description,
		&e.ReferenceID, &refKind, &e.IdempotencyKey, &metadata,
		&e.Sequence, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if refKind != nil {
		rk := domain.ReferenceKind(*refKind)
		e.ReferenceKind = &rk
	}
	if metadata != nil {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
		}
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
