package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(NewWithPool(mock, logger.Nop())), mock
}

func sampleCommit() models.CommitRequest {
	forty := decimal.NewFromInt(40)
	thirtyFive := decimal.NewFromInt(35)
	return models.CommitRequest{
		Lines: []models.OrderLine{
			{ItemID: 1, Name: "Americano", UnitPrice: forty, Quantity: 2, LineTotal: decimal.NewFromInt(80), Description: "normal sweet, small, hot"},
			{ItemID: 8, Name: "Butter Croissant", UnitPrice: thirtyFive, Quantity: 1, LineTotal: thirtyFive},
		},
		Total:         decimal.NewFromInt(115),
		Attendant:     "Nok Srisuk",
		PaymentMethod: models.PaymentCash,
		Cash:          &models.CashDetails{Tendered: decimal.NewFromInt(150), Change: decimal.NewFromInt(35)},
	}
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestCommitOrder_WritesEverythingInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q(InsertOrderSQL)).
		WithArgs("processing", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))
	mock.ExpectExec(q(InsertOrderLineSQL)).
		WithArgs(int64(42), int64(1), "Americano", pgxmock.AnyArg(), 2, pgxmock.AnyArg(), "normal sweet, small, hot", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(InsertOrderLineSQL)).
		WithArgs(int64(42), int64(8), "Butter Croissant", pgxmock.AnyArg(), 1, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(InsertReceiptSQL)).
		WithArgs(int64(42), "cash", "Nok Srisuk", "processing", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", models.ReceiptPaid).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(InsertOrderStatusLogSQL)).
		WithArgs(int64(42), "processing", "Nok Srisuk", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(q(ReconcileOrderSQL)).
		WithArgs(int64(42)).
		WillReturnRows(mock.NewRows([]string{"reconciled"}).AddRow(true))
	mock.ExpectCommit()

	id, at, err := store.CommitOrder(context.Background(), sampleCommit())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, created, at)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitOrder_LineFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(InsertOrderSQL)).
		WithArgs("processing", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))
	mock.ExpectExec(q(InsertOrderLineSQL)).
		WithArgs(int64(7), int64(1), "Americano", pgxmock.AnyArg(), 2, pgxmock.AnyArg(), "normal sweet, small, hot", "").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := store.CommitOrder(context.Background(), sampleCommit())

	var pErr *models.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "lines", pErr.Step)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitOrder_StoredTotalsMismatch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(InsertOrderSQL)).
		WithArgs("processing", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), time.Now()))
	mock.ExpectExec(q(InsertOrderLineSQL)).
		WithArgs(int64(9), int64(1), "Americano", pgxmock.AnyArg(), 2, pgxmock.AnyArg(), "normal sweet, small, hot", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(InsertOrderLineSQL)).
		WithArgs(int64(9), int64(8), "Butter Croissant", pgxmock.AnyArg(), 1, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(InsertReceiptSQL)).
		WithArgs(int64(9), "cash", "Nok Srisuk", "processing", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", models.ReceiptPaid).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(InsertOrderStatusLogSQL)).
		WithArgs(int64(9), "processing", "Nok Srisuk", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(q(ReconcileOrderSQL)).
		WithArgs(int64(9)).
		WillReturnRows(mock.NewRows([]string{"reconciled"}).AddRow(false))
	mock.ExpectRollback()

	_, _, err := store.CommitOrder(context.Background(), sampleCommit())

	var pErr *models.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "reconcile", pErr.Step)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitOrder_RejectsUnbalancedRequestBeforeWriting(t *testing.T) {
	store, mock := newMockStore(t)

	req := sampleCommit()
	req.Total = decimal.NewFromInt(100)

	_, _, err := store.CommitOrder(context.Background(), req)

	var pErr *models.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "reconcile", pErr.Step)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListQueue_ReadsOneSnapshot(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(q(ListOrdersByStatusSQL)).
		WithArgs("processing").
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at", "status", "total_amount"}).
			AddRow(int64(10), created, created, models.StatusProcessing, decimal.NewFromInt(40)))
	mock.ExpectQuery(q(ListOrderLinesByStatusSQL)).
		WithArgs("processing").
		WillReturnRows(mock.NewRows([]string{"id", "order_id", "item_id", "name", "unit_price", "quantity", "line_total", "description", "note"}).
			AddRow(int64(1), int64(10), int64(1), "Americano", decimal.NewFromInt(40), 1, decimal.NewFromInt(40), "normal sweet, small, hot", ""))
	mock.ExpectCommit()

	orders, lines, err := store.ListQueue(context.Background(), models.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, lines, 1)
	assert.Equal(t, orders[0].ID, lines[0].OrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListQueue_LineFailureEndsSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(q(ListOrdersByStatusSQL)).
		WithArgs("processing").
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at", "status", "total_amount"}))
	mock.ExpectQuery(q(ListOrderLinesByStatusSQL)).
		WithArgs("processing").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := store.ListQueue(context.Background(), models.StatusProcessing)
	require.ErrorContains(t, err, "failed to query order lines")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStatus(t *testing.T) {
	t.Run("processing to ready", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q(LockOrderStatusSQL)).WithArgs(int64(5)).
			WillReturnRows(mock.NewRows([]string{"status"}).AddRow("processing"))
		mock.ExpectExec(q(UpdateOrderStatusSQL)).WithArgs("ready", int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(q(UpdateReceiptStatusSQL)).WithArgs("ready", int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(q(InsertOrderStatusLogSQL)).WithArgs(int64(5), "ready", "bar-1", "drinks up").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		from, err := store.TransitionStatus(context.Background(), 5, models.StatusReady, "bar-1", "drinks up")
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, from)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("illegal transition", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q(LockOrderStatusSQL)).WithArgs(int64(5)).
			WillReturnRows(mock.NewRows([]string{"status"}).AddRow("done"))
		mock.ExpectRollback()

		_, err := store.TransitionStatus(context.Background(), 5, models.StatusReady, "bar-1", "")
		require.ErrorIs(t, err, models.ErrIllegalTransition)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(q(LockOrderStatusSQL)).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := store.TransitionStatus(context.Background(), 99, models.StatusDone, "pos", "")
		require.ErrorIs(t, err, models.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettleReceipt_UnknownReference(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(q(SettleReceiptSQL)).WithArgs(models.ReceiptRefunded, "ref-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.SettleReceipt(context.Background(), "ref-1", models.ReceiptRefunded)
	require.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	db := NewWithPool(mock, logger.Nop())

	fsys := fstest.MapFS{
		"migrations/001_first.sql":  {Data: []byte("CREATE TABLE a (id INT)")},
		"migrations/002_second.sql": {Data: []byte("CREATE TABLE b (id INT)")},
		"migrations/readme.txt":     {Data: []byte("ignored")},
	}

	mock.ExpectExec(q(createMigrationsTableSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(q("SELECT migration_name FROM schema_migrations")).
		WillReturnRows(mock.NewRows([]string{"migration_name"}).AddRow("001_first.sql"))
	mock.ExpectBegin()
	mock.ExpectExec(q("CREATE TABLE b (id INT)")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(q("INSERT INTO schema_migrations (migration_name) VALUES ($1)")).
		WithArgs("002_second.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, db.runMigrations(context.Background(), fsys, "migrations"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	files, err := getMigrationFiles(migrationFS, "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_catalog.sql", "002_orders.sql", "003_baristas.sql"}, files)
}
