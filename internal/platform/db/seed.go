package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/platform/config"
)

// Seed makes sure a directory entry exists for the bootstrap HR account so
// a development token minted for it resolves to a real employee.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (string, error) {
	if cfg.SeedHREmail == "" {
		return "", errors.New("seed email is required")
	}
	var id string
	err := pool.QueryRow(ctx, "SELECT id::text FROM employees WHERE email = $1", cfg.SeedHREmail).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	start := time.Now().UTC().AddDate(-1, 0, 0)
	err = pool.QueryRow(ctx, `
    INSERT INTO employees (name, email, start_date, employment_type, active)
    VALUES ($1, $2, $3, 'full_time', true)
    RETURNING id::text
  `, cfg.SeedHRName, cfg.SeedHREmail, start).Scan(&id)
	return id, err
}
