package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/storefront/internal/metrics"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore implements every store interface on one *sql.DB
type PostgresStore struct {
	db      *sql.DB
	metrics *metrics.AppMetrics
}

// NewPostgresStore wraps db. m may be nil.
func NewPostgresStore(db *sql.DB, m *metrics.AppMetrics) *PostgresStore {
	return &PostgresStore{db: db, metrics: m}
}

// ConnectPostgres establishes an instrumented connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// InitSchema applies the embedded schema statement by statement
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	for i, stmt := range splitSQLStatements(schemaSQL) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}
	return nil
}

func splitSQLStatements(src string) []string {
	var lines []string
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			lines = append(lines, line)
		}
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// withTx runs fn in a transaction, rolling back on error or panic
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// observe records the outcome of a write path started at start
func (s *PostgresStore) observe(ctx context.Context, operation, table string, start time.Time, err error) {
	s.metrics.RecordDBQuery(ctx, operation, table, start, err)
}

// translateErr maps driver errors onto store sentinels. An id that is not a
// valid uuid cannot name any row, so Postgres' cast failure is a miss.
func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case "22P02":
			return ErrNotFound
		}
	}
	return err
}

// placeholders returns "$start, $start+1, ..." for n arguments
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ ProductStore  = (*PostgresStore)(nil)
	_ CategoryStore = (*PostgresStore)(nil)
	_ BannerStore   = (*PostgresStore)(nil)
	_ DiscountStore = (*PostgresStore)(nil)
	_ ProfileStore  = (*PostgresStore)(nil)
	_ CartStore     = (*PostgresStore)(nil)
	_ OrderStore    = (*PostgresStore)(nil)
)
