package store

import (
	"context"

	"github.com/lib/pq"

	"github.com/example/storefront/internal/model"
)

// ==========================================
// Categories
// ==========================================

const categoryColumns = `id, name, slug, description, image_url, created_at, updated_at`

func scanCategory(row rowScanner) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c *model.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Slug, c.Description, c.ImageURL, c.CreatedAt, c.UpdatedAt)
	return translateErr(err)
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c *model.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = $2, slug = $3, description = $4, image_url = $5, updated_at = $6 WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Description, c.ImageURL, c.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return c, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]*model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ==========================================
// Banners
// ==========================================

const bannerColumns = `id, title, subtitle, image_url, link_url, position, is_active, created_at, updated_at`

func scanBanner(row rowScanner) (*model.Banner, error) {
	var b model.Banner
	err := row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.ImageURL, &b.LinkURL,
		&b.Position, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) CreateBanner(ctx context.Context, b *model.Banner) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO banners (`+bannerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.Title, b.Subtitle, b.ImageURL, b.LinkURL, b.Position, b.IsActive, b.CreatedAt, b.UpdatedAt)
	return translateErr(err)
}

func (s *PostgresStore) UpdateBanner(ctx context.Context, b *model.Banner) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE banners SET title = $2, subtitle = $3, image_url = $4, link_url = $5,
		position = $6, is_active = $7, updated_at = $8 WHERE id = $1`,
		b.ID, b.Title, b.Subtitle, b.ImageURL, b.LinkURL, b.Position, b.IsActive, b.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteBanner(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) GetBanner(ctx context.Context, id string) (*model.Banner, error) {
	b, err := scanBanner(s.db.QueryRowContext(ctx,
		`SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return b, nil
}

func (s *PostgresStore) ListBanners(ctx context.Context, activeOnly bool) ([]*model.Banner, error) {
	query := `SELECT ` + bannerColumns + ` FROM banners`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY position, created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Banner
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ==========================================
// Discounts
// ==========================================

const discountColumns = `id, name, percentage, product_ids, is_active, starts_at, ends_at, created_at, updated_at`

func scanDiscount(row rowScanner) (*model.Discount, error) {
	var d model.Discount
	err := row.Scan(&d.ID, &d.Name, &d.Percentage, pq.Array(&d.ProductIDs), &d.IsActive,
		&d.StartsAt, &d.EndsAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) CreateDiscount(ctx context.Context, d *model.Discount) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO discounts (`+discountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Name, d.Percentage, pq.Array(d.ProductIDs), d.IsActive, d.StartsAt, d.EndsAt,
		d.CreatedAt, d.UpdatedAt)
	return translateErr(err)
}

func (s *PostgresStore) UpdateDiscount(ctx context.Context, d *model.Discount) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE discounts SET name = $2, percentage = $3, product_ids = $4, is_active = $5,
		starts_at = $6, ends_at = $7, updated_at = $8 WHERE id = $1`,
		d.ID, d.Name, d.Percentage, pq.Array(d.ProductIDs), d.IsActive, d.StartsAt, d.EndsAt, d.UpdatedAt)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteDiscount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) GetDiscount(ctx context.Context, id string) (*model.Discount, error) {
	d, err := scanDiscount(s.db.QueryRowContext(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return d, nil
}

func (s *PostgresStore) ListDiscounts(ctx context.Context) ([]*model.Discount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+discountColumns+` FROM discounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
