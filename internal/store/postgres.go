package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Schema creates the tables PostgresStore reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	store_name  TEXT NOT NULL DEFAULT '',
	store_chain TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL,
	subtotal    DOUBLE PRECISION NOT NULL DEFAULT 0,
	tax         DOUBLE PRECISION NOT NULL DEFAULT 0,
	total       DOUBLE PRECISION NOT NULL DEFAULT 0,
	payment     JSONB NOT NULL DEFAULT '{}',
	items       JSONB NOT NULL DEFAULT '[]',
	image_uri   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_user_date_idx ON receipts (user_id, date DESC, id DESC);

CREATE TABLE IF NOT EXISTS verified_products (
	store_chain        TEXT NOT NULL,
	code               TEXT NOT NULL,
	name               TEXT NOT NULL,
	brand              TEXT NOT NULL DEFAULT '',
	size               TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	verification_count INTEGER NOT NULL DEFAULT 1,
	last_verified      TIMESTAMPTZ NOT NULL,
	last_verified_by   TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (store_chain, code)
);`

const receiptColumns = `id, user_id, store_name, store_chain, date, subtotal, tax, total, payment, items, image_uri, created_at, updated_at`

const productColumns = `code, store_chain, name, brand, size, category, verification_count, last_verified, last_verified_by, created_at`

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements the Store interface on PostgreSQL via pgx.
type PostgresStore struct {
	pool Pool
	now  func() time.Time
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// OpenPostgres parses the DSN, opens a pool and pings it.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse database url")
	}
	if maxConns > 0 {
		pc.MaxConns = maxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "grocerylens"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping database")
	}
	zap.L().Info("connected to postgres", zap.Int32("max_conns", pc.MaxConns))
	return pool, nil
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	return nil
}

func scanReceipt(row pgx.Row) (*receipt.Receipt, error) {
	var (
		r              receipt.Receipt
		payment, items []byte
	)
	err := row.Scan(&r.ID, &r.UserID, &r.StoreName, &r.StoreChain, &r.Date,
		&r.Subtotal, &r.Tax, &r.Total, &payment, &items, &r.ImageURI, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(payment) > 0 {
		if err := json.Unmarshal(payment, &r.Payment); err != nil {
			return nil, eris.Wrap(err, "store: decode payment")
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &r.Items); err != nil {
			return nil, eris.Wrap(err, "store: decode items")
		}
	}
	return &r, nil
}

func scanProduct(row pgx.Row) (*receipt.VerifiedProduct, error) {
	var p receipt.VerifiedProduct
	err := row.Scan(&p.Code, &p.StoreChain, &p.Name, &p.Brand, &p.Size, &p.Category,
		&p.VerificationCount, &p.LastVerified, &p.LastVerifiedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func encodeReceiptJSON(r *receipt.Receipt) ([]byte, []byte, error) {
	payment, err := json.Marshal(r.Payment)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: encode payment")
	}
	items := r.Items
	if items == nil {
		items = []receipt.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: encode items")
	}
	return payment, itemsJSON, nil
}

// Receipt operations

func (s *PostgresStore) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	payment, items, err := encodeReceiptJSON(r)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO receipts (`+receiptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.UserID, r.StoreName, r.StoreChain, r.Date, r.Subtotal, r.Tax, r.Total,
		payment, items, r.ImageURI, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return eris.Wrapf(err, "store: create receipt %s", r.ID)
	}
	return nil
}

func (s *PostgresStore) GetReceipt(ctx context.Context, receiptID string) (*receipt.Receipt, error) {
	r, err := scanReceipt(s.pool.QueryRow(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, receiptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
		}
		return nil, eris.Wrapf(err, "store: get receipt %s", receiptID)
	}
	return r, nil
}

func (s *PostgresStore) UpdateReceipt(ctx context.Context, r *receipt.Receipt) error {
	payment, items, err := encodeReceiptJSON(r)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE receipts SET user_id = $2, store_name = $3, store_chain = $4, date = $5,
			subtotal = $6, tax = $7, total = $8, payment = $9, items = $10, image_uri = $11, updated_at = $12
		WHERE id = $1`,
		r.ID, r.UserID, r.StoreName, r.StoreChain, r.Date, r.Subtotal, r.Tax, r.Total,
		payment, items, r.ImageURI, r.UpdatedAt)
	if err != nil {
		return eris.Wrapf(err, "store: update receipt %s", r.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "store: receipt %s", r.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, receiptID)
	if err != nil {
		return eris.Wrapf(err, "store: delete receipt %s", receiptID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
	}
	return nil
}

func (s *PostgresStore) ListReceipts(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*receipt.Receipt, string, error) {
	var (
		where []string
		args  []any
	)
	// add appends a clause whose %d verbs become the positions of vals.
	add := func(clause string, vals ...any) {
		placeholders := make([]any, len(vals))
		for i, v := range vals {
			args = append(args, v)
			placeholders[i] = len(args)
		}
		where = append(where, fmt.Sprintf(clause, placeholders...))
	}

	if userID != "" {
		add("user_id = $%d", userID)
	}
	start, end := dateBounds(startDate, endDate)
	if start != "" {
		add("date >= $%d", start)
	}
	if end != "" {
		add("date <= $%d", end)
	}
	if pageToken != "" {
		cursor, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", eris.Wrap(err, "store: invalid page token")
		}
		date, id, ok := strings.Cut(cursor, "|")
		if !ok {
			return nil, "", eris.New("store: invalid page token")
		}
		add("(date, id) < ($%d, $%d)", date, id)
	}

	size := normalizePageSize(pageSize)
	sql := `SELECT ` + receiptColumns + ` FROM receipts`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(` ORDER BY date DESC, id DESC LIMIT %d`, size+1)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, "", eris.Wrap(err, "store: list receipts")
	}
	defer rows.Close()

	var receipts []*receipt.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, "", eris.Wrap(err, "store: scan receipt")
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", eris.Wrap(err, "store: list receipts")
	}

	var nextPageToken string
	if len(receipts) > size {
		receipts = receipts[:size]
		nextPageToken = EncodePageToken(receiptSortKey(receipts[size-1]))
	}
	return receipts, nextPageToken, nil
}

// Item operations. Items are a JSONB column, edited under a row lock.

func (s *PostgresStore) mutateItems(ctx context.Context, receiptID, itemID string, mutate func(r *receipt.Receipt, idx int)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	r, err := scanReceipt(tx.QueryRow(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = $1 FOR UPDATE`, receiptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
		}
		return eris.Wrapf(err, "store: get receipt %s", receiptID)
	}
	idx := r.FindItem(itemID)
	if idx < 0 {
		return eris.Wrapf(ErrNotFound, "store: item %s on receipt %s", itemID, receiptID)
	}
	mutate(r, idx)

	_, items, err := encodeReceiptJSON(r)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE receipts SET items = $2, updated_at = $3 WHERE id = $1`,
		receiptID, items, s.now()); err != nil {
		return eris.Wrapf(err, "store: update items on receipt %s", receiptID)
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "store: commit")
	}
	return nil
}

func (s *PostgresStore) UpdateReceiptItem(ctx context.Context, receiptID string, item *receipt.Item) error {
	return s.mutateItems(ctx, receiptID, item.ID, func(r *receipt.Receipt, idx int) {
		r.Items[idx] = *item
	})
}

func (s *PostgresStore) DeleteReceiptItem(ctx context.Context, receiptID, itemID string) error {
	return s.mutateItems(ctx, receiptID, itemID, func(r *receipt.Receipt, idx int) {
		r.Items = append(r.Items[:idx], r.Items[idx+1:]...)
	})
}

// Verified product operations

func (s *PostgresStore) FindVerifiedProducts(ctx context.Context, codes []string, storeChain string) ([]*receipt.VerifiedProduct, error) {
	codes = dedupeCodes(codes)
	if len(codes) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM verified_products WHERE store_chain = $1 AND code = ANY($2)`,
		storeChain, codes)
	if err != nil {
		return nil, eris.Wrap(err, "store: find verified products")
	}
	defer rows.Close()

	var products []*receipt.VerifiedProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan verified product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: find verified products")
	}
	return products, nil
}

func (s *PostgresStore) GetVerifiedProduct(ctx context.Context, code, storeChain string) (*receipt.VerifiedProduct, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM verified_products WHERE store_chain = $1 AND code = $2`,
		storeChain, strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "store: get verified product")
	}
	return p, nil
}

func (s *PostgresStore) UpsertVerifiedProduct(ctx context.Context, p *receipt.VerifiedProduct) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO verified_products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (store_chain, code) DO UPDATE SET
			name = EXCLUDED.name, brand = EXCLUDED.brand, size = EXCLUDED.size, category = EXCLUDED.category,
			verification_count = EXCLUDED.verification_count,
			last_verified = EXCLUDED.last_verified, last_verified_by = EXCLUDED.last_verified_by`,
		strings.TrimSpace(p.Code), p.StoreChain, p.Name, p.Brand, p.Size, p.Category,
		p.VerificationCount, p.LastVerified, p.LastVerifiedBy, p.CreatedAt)
	if err != nil {
		return eris.Wrapf(err, "store: upsert verified product %s", p.Key())
	}
	return nil
}

// RecordVerification inserts the product with a count of 1, or overwrites its
// descriptive fields and increments the count in the same statement.
func (s *PostgresStore) RecordVerification(ctx context.Context, p *receipt.VerifiedProduct) (*receipt.VerifiedProduct, error) {
	now := s.now()
	out, err := scanProduct(s.pool.QueryRow(ctx,
		`INSERT INTO verified_products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8, $7)
		ON CONFLICT (store_chain, code) DO UPDATE SET
			name = EXCLUDED.name, brand = EXCLUDED.brand, size = EXCLUDED.size, category = EXCLUDED.category,
			verification_count = verified_products.verification_count + 1,
			last_verified = EXCLUDED.last_verified, last_verified_by = EXCLUDED.last_verified_by
		RETURNING `+productColumns,
		strings.TrimSpace(p.Code), p.StoreChain, p.Name, p.Brand, p.Size, p.Category, now, p.LastVerifiedBy))
	if err != nil {
		return nil, eris.Wrapf(err, "store: record verification %s", p.Key())
	}
	return out, nil
}
