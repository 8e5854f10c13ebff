package store

import (
	"context"
	"time"

	"github.com/example/storefront/internal/model"
)

const profileColumns = `id, email, password_hash, name, phone, is_admin, created_at, updated_at`

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.Phone, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Email, p.PasswordHash, p.Name, p.Phone, p.IsAdmin, p.CreatedAt, p.UpdatedAt)
	return translateErr(err)
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

func (s *PostgresStore) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE is_admin = FALSE`).Scan(&n)
	return n, err
}

func (s *PostgresStore) ListProfilesSince(ctx context.Context, since time.Time) ([]*model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE created_at >= $1 ORDER BY created_at`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
