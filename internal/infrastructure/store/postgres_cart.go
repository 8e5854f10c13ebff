package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/model"
)

const cartColumns = `id, user_id, product_id, quantity, color, size, created_at, updated_at`

func scanCartLine(row rowScanner) (*model.CartLine, error) {
	var l model.CartLine
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.Color, &l.Size, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) ListCartLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cartColumns+` FROM cart_items WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*model.CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *PostgresStore) GetCartLine(ctx context.Context, id string) (*model.CartLine, error) {
	l, err := scanCartLine(s.db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM cart_items WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return l, nil
}

// AddToCartLine upserts on (user, product, color, size). Both the insert and
// the increment only happen when the resulting quantity fits the product's
// stock at statement time; otherwise no row comes back.
func (s *PostgresStore) AddToCartLine(ctx context.Context, key model.CartLineKey, quantity int) (*model.CartLine, error) {
	query := `INSERT INTO cart_items (id, user_id, product_id, quantity, color, size, created_at, updated_at)
		SELECT $1::uuid, $2::uuid, p.id, $4::int, $5::text, $6::text, now(), now()
		FROM products p
		WHERE p.id = $3::uuid AND p.stock >= $4::int
		ON CONFLICT (user_id, product_id, color, size) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		WHERE cart_items.quantity + EXCLUDED.quantity <=
			(SELECT stock FROM products WHERE id = EXCLUDED.product_id)
		RETURNING ` + cartColumns

	l, err := scanCartLine(s.db.QueryRowContext(ctx, query,
		uuid.New().String(), key.UserID, key.ProductID, quantity, key.Color, key.Size))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStockExceeded
	}
	if err != nil {
		return nil, translateErr(err)
	}
	return l, nil
}

func (s *PostgresStore) SetCartLineQuantity(ctx context.Context, id string, quantity int) (*model.CartLine, error) {
	query := `UPDATE cart_items ci SET quantity = $2, updated_at = now()
		FROM products p
		WHERE ci.id = $1 AND p.id = ci.product_id AND p.stock >= $2
		RETURNING ci.id, ci.user_id, ci.product_id, ci.quantity, ci.color, ci.size, ci.created_at, ci.updated_at`

	l, err := scanCartLine(s.db.QueryRowContext(ctx, query, id, quantity))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetCartLine(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStockExceeded
	}
	if err != nil {
		return nil, translateErr(err)
	}
	return l, nil
}

func (s *PostgresStore) DeleteCartLine(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
