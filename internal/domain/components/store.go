package components

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("salary component not found")

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB Querier
}

func NewStore(db Querier) *Store {
	return &Store{DB: db}
}

const componentColumns = `id, school_id, name, COALESCE(name_local, ''), component_type, calc_mode, default_amount, percentage_rate, taxable, active, created_at`

func (s *Store) List(ctx context.Context, schoolID string) ([]Component, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+componentColumns+`
    FROM salary_components
    WHERE school_id = $1
    ORDER BY name
  `, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Component
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, component)
	}
	return list, rows.Err()
}

func (s *Store) ListActive(ctx context.Context, schoolID string) ([]Component, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+componentColumns+`
    FROM salary_components
    WHERE school_id = $1 AND active = true
    ORDER BY name
  `, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Component
	for rows.Next() {
		component, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, component)
	}
	return list, rows.Err()
}

func (s *Store) Create(ctx context.Context, schoolID string, c Component) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO salary_components (school_id, name, name_local, component_type, calc_mode, default_amount, percentage_rate, taxable, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true)
    RETURNING id
  `, schoolID, c.Name, c.NameLocal, c.Type, c.CalcMode, c.DefaultAmount, c.PercentageRate, c.Taxable).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, schoolID, componentID string, c Component) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE salary_components
    SET name = $1, name_local = $2, component_type = $3, calc_mode = $4,
        default_amount = $5, percentage_rate = $6, taxable = $7
    WHERE school_id = $8 AND id = $9
  `, c.Name, c.NameLocal, c.Type, c.CalcMode, c.DefaultAmount, c.PercentageRate, c.Taxable, schoolID, componentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a component; historical payroll records keep
// referencing it by id.
func (s *Store) Deactivate(ctx context.Context, schoolID, componentID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE salary_components SET active = false WHERE school_id = $1 AND id = $2
  `, schoolID, componentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanComponent(row pgx.Row) (Component, error) {
	var c Component
	err := row.Scan(&c.ID, &c.SchoolID, &c.Name, &c.NameLocal, &c.Type, &c.CalcMode,
		&c.DefaultAmount, &c.PercentageRate, &c.Taxable, &c.Active, &c.CreatedAt)
	return c, err
}
