package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/example/storefront/internal/model"
)

const productColumns = `id, name, description, price, stock, discount_percentage,
	colors, sizes, images, category_id, is_featured, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var discount sql.NullInt64
	var categoryID sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &discount,
		pq.Array(&p.Colors), pq.Array(&p.Sizes), pq.Array(&p.Images),
		&categoryID, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		d := int(discount.Int64)
		p.DiscountPercentage = &d
	}
	p.CategoryID = categoryID.String
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.Product) error {
	query := `INSERT INTO products (id, name, description, price, stock, discount_percentage,
		colors, sizes, images, category_id, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.Stock,
		p.DiscountPercentage, pq.Array(p.Colors), pq.Array(p.Sizes), pq.Array(p.Images),
		nullString(p.CategoryID), p.IsFeatured, p.CreatedAt, p.UpdatedAt)
	return translateErr(err)
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	query := `UPDATE products SET name = $2, description = $3, price = $4, stock = $5,
		discount_percentage = $6, colors = $7, sizes = $8, images = $9, category_id = $10,
		is_featured = $11, updated_at = $12
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.Stock,
		p.DiscountPercentage, pq.Array(p.Colors), pq.Array(p.Sizes), pq.Array(p.Images),
		nullString(p.CategoryID), p.IsFeatured, p.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

func (s *PostgresStore) GetProducts(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	out := make(map[string]*model.Product, len(ids))
	ids = uuidsOnly(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	var where []string
	var args []any
	if filter.CategoryID != "" {
		if uuid.Validate(filter.CategoryID) != nil {
			return nil, nil
		}
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.Featured {
		where = append(where, "is_featured = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products`
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

	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (s *PostgresStore) SetDiscountPercentage(ctx context.Context, productIDs []string, pct *int) error {
	productIDs = uuidsOnly(productIDs)
	if len(productIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE products SET discount_percentage = $2, updated_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(productIDs), pct)
	return err
}

// uuidsOnly drops ids that could never match a uuid column
func uuidsOnly(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
