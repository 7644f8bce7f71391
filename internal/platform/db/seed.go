package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"campus/internal/domain/auth"
	"campus/internal/domain/components"
	"campus/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	schoolID, err := ensureSchool(ctx, pool, cfg.SeedSchoolName)
	if err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, schoolID, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	return ensureDefaultComponents(ctx, pool, schoolID)
}

func ensureSchool(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM schools WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO schools (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, schoolID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE school_id = $1 AND email = $2", schoolID, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return pool.QueryRow(ctx, `
    INSERT INTO users (school_id, email, password_hash, role, status)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id
  `, schoolID, email, hash, auth.RoleAdmin, auth.UserStatusActive).Scan(&id)
}

func ensureDefaultComponents(ctx context.Context, pool *pgxpool.Pool, schoolID string) error {
	defaults := []struct {
		name     string
		ctype    string
		calcMode string
		amount   float64
		rate     float64
		taxable  bool
	}{
		{"House Rent Allowance", components.TypeEarning, components.CalcPercentage, 0, 40, true},
		{"Medical Allowance", components.TypeEarning, components.CalcFixed, 1500, 0, false},
		{"Transport Allowance", components.TypeEarning, components.CalcFixed, 1000, 0, false},
		{"Provident Fund", components.TypeDeduction, components.CalcPercentage, 0, 10, false},
		{"Income Tax", components.TypeDeduction, components.CalcPercentage, 0, 5, false},
	}

	for _, d := range defaults {
		_, err := pool.Exec(ctx, `
      INSERT INTO salary_components (school_id, name, component_type, calc_mode, default_amount, percentage_rate, taxable, active)
      VALUES ($1, $2, $3, $4, $5, $6, $7, true)
      ON CONFLICT (school_id, name) DO NOTHING
    `, schoolID, d.name, d.ctype, d.calcMode, d.amount, d.rate, d.taxable)
		if err != nil {
			return err
		}
	}
	return nil
}
