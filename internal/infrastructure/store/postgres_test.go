package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, metrics.NewNoop()), mock
}

func testOrder() *model.Order {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:               "order-1",
		UserID:           "user-1",
		OrderNumber:      "ORD-20240301120000-abcd1234",
		Status:           model.OrderStatusPending,
		CheckoutType:     model.CheckoutTypeCart,
		TotalAmount:      decimal.RequireFromString("120.00"),
		ShippingAddress:  model.Address{Name: "Jane", Line1: "1 Main St"},
		PaymentReference: "cs_test_1",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func orderRow(status string) *sqlmock.Rows {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "user_id", "order_number", "status", "checkout_type", "total_amount",
		"shipping_address", "billing_address", "payment_reference", "created_at", "updated_at"}).
		AddRow("order-1", "user-1", "ORD-20240301120000-abcd1234", status, "cart", "120.00",
			[]byte(`{"name":"Jane","line1":"1 Main St"}`), nil, "cs_test_1", now, now)
}

// ==========================================
// CreateOrder Tests
// ==========================================

func TestCreateOrder_CommitsOrderAndItems(t *testing.T) {
	s, mock := newMockStore(t)
	items := []model.OrderItem{
		{ID: "item-1", ProductID: "p-a", Quantity: 2, Price: decimal.RequireFromString("45.00")},
		{ID: "item-2", ProductID: "p-b", Quantity: 1, Price: decimal.RequireFromString("30.00")},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.CreateOrder(context.Background(), testOrder(), items)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_RollsBackWhenItemInsertFails(t *testing.T) {
	s, mock := newMockStore(t)
	items := []model.OrderItem{
		{ID: "item-1", ProductID: "p-a", Quantity: 2, Price: decimal.RequireFromString("45.00")},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), testOrder(), items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert order item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_DuplicateOrderNumber(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), testOrder(), nil)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================================
// ConfirmPayment Tests
// ==========================================

func TestConfirmPayment_AppliesAndDecrementsStock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET status = 'paid'")).
		WithArgs("cs_test_1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(orderRow("paid"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity FROM order_items")).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
			AddRow("p-a", 2).
			AddRow("p-b", 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs("p-a").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = GREATEST")).
		WithArgs("p-a", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stock FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs("p-b").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = GREATEST")).
		WithArgs("p-b", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.ConfirmPayment(context.Background(), model.PaymentConfirmation{
		PaymentReference: "cs_test_1",
		ShippingAddress:  &model.Address{Name: "Jane", Line1: "2 Side St"},
		ConfirmedAt:      time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, model.OrderStatusPaid, res.Order.Status)
	assert.Equal(t, []string{"p-b"}, res.Oversold)
	assert.True(t, decimal.RequireFromString("120").Equal(res.Order.TotalAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_ReplayIsNotApplied(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET status = 'paid'")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE payment_reference = $1")).
		WithArgs("cs_test_1").
		WillReturnRows(orderRow("paid"))
	mock.ExpectCommit()

	res, err := s.ConfirmPayment(context.Background(), model.PaymentConfirmation{PaymentReference: "cs_test_1"})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, "order-1", res.Order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_UnknownReference(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET status = 'paid'")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE payment_reference = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.ConfirmPayment(context.Background(), model.PaymentConfirmation{PaymentReference: "cs_missing"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================================
// Cart Tests
// ==========================================

func TestAddToCartLine_StockExceeded(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO cart_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.AddToCartLine(context.Background(), model.CartLineKey{UserID: "u", ProductID: "p"}, 10)
	assert.ErrorIs(t, err, ErrStockExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCartLineQuantity_DistinguishesMissingLine(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE cart_items ci SET quantity")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.SetCartLineQuantity(context.Background(), "missing", 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================================
// Malformed ID Tests
// ==========================================

func TestGetters_MalformedIDIsNotFound(t *testing.T) {
	invalidUUID := &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	tests := []struct {
		name  string
		query string
		call  func(s *PostgresStore) error
	}{
		{"product", "FROM products WHERE id = $1", func(s *PostgresStore) error {
			_, err := s.GetProduct(context.Background(), "abc")
			return err
		}},
		{"cart line", "FROM cart_items WHERE id = $1", func(s *PostgresStore) error {
			_, err := s.GetCartLine(context.Background(), "abc")
			return err
		}},
		{"order", "FROM orders WHERE id = $1", func(s *PostgresStore) error {
			_, err := s.GetOrder(context.Background(), "abc")
			return err
		}},
		{"category", "FROM categories WHERE id = $1", func(s *PostgresStore) error {
			_, err := s.GetCategory(context.Background(), "abc")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WillReturnError(invalidUUID)

			assert.ErrorIs(t, tt.call(s), ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteProduct_MalformedIDIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WillReturnError(&pq.Error{Code: "22P02"})

	assert.ErrorIs(t, s.DeleteProduct(context.Background(), "abc"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus_MalformedIDIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status")).
		WillReturnError(&pq.Error{Code: "22P02"})

	err := s.UpdateOrderStatus(context.Background(), "abc", model.OrderStatusPaid, model.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProducts_SkipsMalformedIDs(t *testing.T) {
	s, mock := newMockStore(t)

	out, err := s.GetProducts(context.Background(), []string{"abc", "not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateErr_KeepsOtherDriverErrors(t *testing.T) {
	err := translateErr(&pq.Error{Code: "23503", Constraint: "order_items_product_id_fkey"})
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrDuplicate))
}

// ==========================================
// Schema Tests
// ==========================================

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements(schemaSQL)
	require.NotEmpty(t, stmts)
	for _, stmt := range stmts {
		assert.NotContains(t, stmt, "--")
	}
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS profiles")
}
