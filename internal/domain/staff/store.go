package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("staff member not found")

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

const memberColumns = `id, school_id, first_name, last_name, email, COALESCE(designation, ''), COALESCE(department, ''), base_salary, status, created_at`

func (s *Store) ListActive(ctx context.Context, schoolID string) ([]Member, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+memberColumns+`
    FROM staff
    WHERE school_id = $1 AND status = $2
    ORDER BY last_name, first_name
  `, schoolID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *Store) List(ctx context.Context, schoolID string, limit, offset int) ([]Member, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+memberColumns+`
    FROM staff
    WHERE school_id = $1
    ORDER BY last_name, first_name
    LIMIT $2 OFFSET $3
  `, schoolID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *Store) Get(ctx context.Context, schoolID, staffID string) (Member, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+memberColumns+`
    FROM staff
    WHERE school_id = $1 AND id = $2
  `, schoolID, staffID)
	member, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, err
	}
	return member, nil
}

func (s *Store) Create(ctx context.Context, schoolID string, member Member) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO staff (school_id, first_name, last_name, email, designation, department, base_salary, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, schoolID, member.FirstName, member.LastName, member.Email, member.Designation, member.Department, member.BaseSalary, StatusActive).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetStatus(ctx context.Context, schoolID, staffID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE staff SET status = $1 WHERE school_id = $2 AND id = $3
  `, status, schoolID, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMember(row pgx.Row) (Member, error) {
	var member Member
	err := row.Scan(&member.ID, &member.SchoolID, &member.FirstName, &member.LastName, &member.Email,
		&member.Designation, &member.Department, &member.BaseSalary, &member.Status, &member.CreatedAt)
	return member, err
}
