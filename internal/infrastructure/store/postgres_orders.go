package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/example/storefront/internal/model"
)

const orderColumns = `id, user_id, order_number, status, checkout_type, total_amount,
	shipping_address, billing_address, payment_reference, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, product_name, quantity, price, color, size, created_at`

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.CheckoutType, &o.TotalAmount,
		&o.ShippingAddress, &o.BillingAddress, &o.PaymentReference, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrderItem(row rowScanner) (model.OrderItem, error) {
	var it model.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.Price, &it.Color, &it.Size, &it.CreatedAt)
	return it, err
}

// CreateOrder inserts the order row and every item row in one transaction.
// A failure on any item rolls the order back.
func (s *PostgresStore) CreateOrder(ctx context.Context, o *model.Order, items []model.OrderItem) (err error) {
	defer func(start time.Time) { s.observe(ctx, "insert", "orders", start, err) }(time.Now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			o.ID, o.UserID, o.OrderNumber, o.Status, o.CheckoutType, o.TotalAmount,
			o.ShippingAddress, o.BillingAddress, o.PaymentReference, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", translateErr(err))
		}

		for _, it := range items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (`+orderItemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.Price, it.Color, it.Size, it.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", translateErr(err))
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return o, nil
}

func (s *PostgresStore) GetOrderByPaymentReference(ctx context.Context, ref string) (*model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, ref))
	if err != nil {
		return nil, translateErr(err)
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) ListOrderItems(ctx context.Context, orderIDs []string) ([]model.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY created_at, id`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		it, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`, id, from, to)
	s.observe(ctx, "update", "orders", start, err)
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetOrder(ctx, id); err != nil {
		return err
	}
	return ErrStatusChanged
}

// ConfirmPayment flips a pending order to paid and commits its stock in the
// same transaction. Stock is clamped at zero; products that could not cover
// their item are reported in Oversold.
func (s *PostgresStore) ConfirmPayment(ctx context.Context, c model.PaymentConfirmation) (*PaymentResult, error) {
	start := time.Now()
	result := &PaymentResult{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`UPDATE orders SET status = 'paid', shipping_address = COALESCE($2::jsonb, shipping_address), updated_at = $3
			WHERE payment_reference = $1 AND status = 'pending'
			RETURNING `+orderColumns,
			c.PaymentReference, c.ShippingAddress, c.ConfirmedAt)
		order, err := scanOrder(row)
		if errors.Is(err, sql.ErrNoRows) {
			existing, getErr := scanOrder(tx.QueryRowContext(ctx,
				`SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, c.PaymentReference))
			if getErr != nil {
				return translateErr(getErr)
			}
			result.Order = existing
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		result.Order = order
		result.Applied = true

		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, order.ID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
		type need struct {
			productID string
			quantity  int
		}
		var needs []need
		for rows.Next() {
			var n need
			if err := rows.Scan(&n.productID, &n.quantity); err != nil {
				rows.Close()
				return err
			}
			needs = append(needs, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, n := range needs {
			var stock int
			err := tx.QueryRowContext(ctx,
				`SELECT stock FROM products WHERE id = $1 FOR UPDATE`, n.productID).Scan(&stock)
			if errors.Is(err, sql.ErrNoRows) {
				log.Printf("[Store] Product %s of order %s no longer exists, skipping stock update", n.productID, order.OrderNumber)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to lock product stock: %w", err)
			}
			if stock < n.quantity {
				result.Oversold = append(result.Oversold, n.productID)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = now() WHERE id = $1`,
				n.productID, n.quantity); err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
		}
		return nil
	})
	s.observe(ctx, "confirm_payment", "orders", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}
