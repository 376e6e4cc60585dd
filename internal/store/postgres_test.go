package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var (
	receiptCols = []string{"id", "user_id", "store_name", "store_chain", "date", "subtotal", "tax", "total", "payment", "items", "image_uri", "created_at", "updated_at"}
	productCols = []string{"code", "store_chain", "name", "brand", "size", "category", "verification_count", "last_verified", "last_verified_by", "created_at"}
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func receiptRow(rows *pgxmock.Rows, id, date string, ts time.Time) *pgxmock.Rows {
	return rows.AddRow(id, "user-1", "NO FRILLS", "no_frills", date, 10.0, 0.0, 10.0,
		[]byte(`{"method":"debit"}`),
		[]byte(`[{"id":"item-1","item_name":"BANANAS","quantity":1,"unit_price":1.2,"total_price":1.2,"is_discount":false,"confidence":"ocr"}]`),
		"", ts, ts)
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS receipts").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.Contains(t, Schema, "PRIMARY KEY (store_chain, code)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReceipt(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("decodes json columns", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .+ FROM receipts WHERE id").
			WithArgs("r-1").
			WillReturnRows(receiptRow(pgxmock.NewRows(receiptCols), "r-1", "2024-03-01", ts))

		r, err := s.GetReceipt(context.Background(), "r-1")
		require.NoError(t, err)
		assert.Equal(t, "debit", r.Payment.Method)
		require.Len(t, r.Items, 1)
		assert.Equal(t, "BANANAS", r.Items[0].Name)
		assert.Equal(t, receipt.ConfidenceOCR, r.Items[0].Confidence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .+ FROM receipts WHERE id").
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.GetReceipt(context.Background(), "nope")
		assert.True(t, IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_DeleteReceipt(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM receipts").WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM receipts").WithArgs("r-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteReceipt(context.Background(), "r-1"))
	assert.True(t, IsNotFound(s.DeleteReceipt(context.Background(), "r-2")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReceipts(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("next token when more rows than page", func(t *testing.T) {
		s, mock := newMockStore(t)
		rows := pgxmock.NewRows(receiptCols)
		receiptRow(rows, "r-3", "2024-03-03", ts)
		receiptRow(rows, "r-2", "2024-03-02", ts)
		receiptRow(rows, "r-1", "2024-03-01", ts)
		mock.ExpectQuery(`WHERE user_id = \$1 ORDER BY date DESC, id DESC LIMIT 3`).
			WithArgs("user-1").
			WillReturnRows(rows)

		got, next, err := s.ListReceipts(context.Background(), "user-1", nil, nil, 2, "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		cursor, err := DecodePageToken(next)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-02|r-2", cursor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("date range and cursor become arguments", func(t *testing.T) {
		s, mock := newMockStore(t)
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`date >= \$2 AND date <= \$3 AND \(date, id\) < \(\$4, \$5\)`).
			WithArgs("user-1", "2024-01-01", "2024-12-31", "2024-03-02", "r-2").
			WillReturnRows(pgxmock.NewRows(receiptCols))

		got, next, err := s.ListReceipts(context.Background(), "user-1", &start, &end, 10, EncodePageToken("2024-03-02|r-2"))
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed cursor", func(t *testing.T) {
		s, _ := newMockStore(t)
		_, _, err := s.ListReceipts(context.Background(), "user-1", nil, nil, 10, EncodePageToken("no-separator"))
		assert.Error(t, err)
	})
}

func TestPostgresStore_UpdateReceiptItem(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("rewrites items under a row lock", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FOR UPDATE").WithArgs("r-1").
			WillReturnRows(receiptRow(pgxmock.NewRows(receiptCols), "r-1", "2024-03-01", ts))
		mock.ExpectExec("UPDATE receipts SET items").
			WithArgs("r-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		item := &receipt.Item{ID: "item-1", RawItem: receipt.RawItem{Name: "ORGANIC BANANAS", TotalPrice: 1.2}, Confidence: receipt.ConfidenceVerified}
		require.NoError(t, s.UpdateReceiptItem(context.Background(), "r-1", item))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown item rolls back", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FOR UPDATE").WithArgs("r-1").
			WillReturnRows(receiptRow(pgxmock.NewRows(receiptCols), "r-1", "2024-03-01", ts))
		mock.ExpectRollback()

		err := s.DeleteReceiptItem(context.Background(), "r-1", "item-9")
		assert.True(t, IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_FindVerifiedProducts(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM verified_products WHERE store_chain").
		WithArgs("loblaws", []string{"0601", "0602"}).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("0601", "loblaws", "Bananas", "", "", "Produce", 4, ts, "user-1", ts))

	got, err := s.FindVerifiedProducts(context.Background(), []string{"0601", "0602", "0601", ""}, "loblaws")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].VerificationCount)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := s.FindVerifiedProducts(context.Background(), nil, "loblaws")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresStore_GetVerifiedProductMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .+ FROM verified_products").
		WithArgs("walmart", "1234").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetVerifiedProduct(context.Background(), "1234", "walmart")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordVerification(t *testing.T) {
	s, mock := newMockStore(t)
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	mock.ExpectQuery(`(?s)ON CONFLICT \(store_chain, code\) DO UPDATE SET .+verification_count = verified_products.verification_count \+ 1`).
		WithArgs("0601", "loblaws", "Bananas", "", "", "Produce", fixed, "user-1").
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("0601", "loblaws", "Bananas", "", "", "Produce", 3, fixed, "user-1", fixed.Add(-time.Hour)))

	out, err := s.RecordVerification(context.Background(), &receipt.VerifiedProduct{
		Code: " 0601 ", StoreChain: "loblaws", Name: "Bananas", Category: "Produce", LastVerifiedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.VerificationCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExecError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO receipts").
		WillReturnError(errors.New("connection reset"))

	err := s.CreateReceipt(context.Background(), newTestReceipt("r-1", "user-1", "2024-03-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create receipt r-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
