package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs; tests substitute a
// pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	DB Querier
}

func NewStore(db Querier) *Store {
	return &Store{DB: db}
}

const recordColumns = `id, school_id, staff_id, month, year, basic_salary, earnings_json, deductions_json,
    gross_salary, total_deductions, net_salary, payment_method, payment_status, payment_date, notes, created_at, updated_at`

// Upsert writes the record for (school, staff, month, year), replacing the
// monetary snapshot if one already exists. The write is a single statement so
// concurrent submissions for the same key cannot race into duplicates; the
// winner is simply the last statement to commit. The record id, payment date
// and created_at of an existing row are preserved.
func (s *Store) Upsert(ctx context.Context, p UpsertParams) (Record, error) {
	earningsJSON, deductionsJSON, err := marshalSelections(p.Totals)
	if err != nil {
		return Record{}, err
	}

	row := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_records
      (school_id, staff_id, month, year, basic_salary, earnings_json, deductions_json,
       gross_salary, total_deductions, net_salary, payment_method, payment_status, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    ON CONFLICT (school_id, staff_id, month, year)
    DO UPDATE SET
      basic_salary = EXCLUDED.basic_salary,
      earnings_json = EXCLUDED.earnings_json,
      deductions_json = EXCLUDED.deductions_json,
      gross_salary = EXCLUDED.gross_salary,
      total_deductions = EXCLUDED.total_deductions,
      net_salary = EXCLUDED.net_salary,
      payment_method = EXCLUDED.payment_method,
      payment_status = EXCLUDED.payment_status,
      notes = EXCLUDED.notes,
      updated_at = now()
    RETURNING `+recordColumns,
		p.SchoolID, p.StaffID, p.Month, p.Year, p.Totals.BasicSalary, earningsJSON, deductionsJSON,
		p.Totals.GrossSalary, p.Totals.TotalDeductions, p.Totals.NetSalary,
		p.PaymentMethod, p.PaymentStatus, p.Notes)

	record, err := scanRecord(row)
	if err != nil {
		return Record{}, translateWriteErr(err)
	}
	return record, nil
}

// CreateIfAbsent inserts the record only when no record exists for the key.
// The second return value is false when an existing record made the insert a
// no-op, which is how bulk runs skip already-generated staff.
func (s *Store) CreateIfAbsent(ctx context.Context, p UpsertParams) (Record, bool, error) {
	earningsJSON, deductionsJSON, err := marshalSelections(p.Totals)
	if err != nil {
		return Record{}, false, err
	}

	row := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_records
      (school_id, staff_id, month, year, basic_salary, earnings_json, deductions_json,
       gross_salary, total_deductions, net_salary, payment_method, payment_status, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    ON CONFLICT (school_id, staff_id, month, year) DO NOTHING
    RETURNING `+recordColumns,
		p.SchoolID, p.StaffID, p.Month, p.Year, p.Totals.BasicSalary, earningsJSON, deductionsJSON,
		p.Totals.GrossSalary, p.Totals.TotalDeductions, p.Totals.NetSalary,
		p.PaymentMethod, p.PaymentStatus, p.Notes)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, translateWriteErr(err)
	}
	return record, true, nil
}

// Advance moves the record's payment status inside a transaction. The row is
// locked first so two concurrent transitions serialize instead of both reading
// the same stale status. Advancing to the current status returns the record
// unchanged.
func (s *Store) Advance(ctx context.Context, schoolID, recordID, toStatus string, paymentDate *time.Time) (Record, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `
    SELECT payment_status FROM payroll_records
    WHERE id = $1 AND school_id = $2
    FOR UPDATE
  `, recordID, schoolID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}

	if !CanTransition(current, toStatus) {
		if Terminal(current) {
			return Record{}, ErrTerminalStatus
		}
		return Record{}, ErrInvalidTransition
	}

	var row pgx.Row
	if current == toStatus {
		row = tx.QueryRow(ctx, `
      SELECT `+recordColumns+` FROM payroll_records WHERE id = $1 AND school_id = $2
    `, recordID, schoolID)
	} else if toStatus == StatusPaid {
		row = tx.QueryRow(ctx, `
      UPDATE payroll_records
      SET payment_status = $3, payment_date = $4, updated_at = now()
      WHERE id = $1 AND school_id = $2
      RETURNING `+recordColumns,
			recordID, schoolID, toStatus, paymentDate)
	} else {
		row = tx.QueryRow(ctx, `
      UPDATE payroll_records
      SET payment_status = $3, payment_date = NULL, updated_at = now()
      WHERE id = $1 AND school_id = $2
      RETURNING `+recordColumns,
			recordID, schoolID, toStatus)
	}

	record, err := scanRecord(row)
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (s *Store) Get(ctx context.Context, schoolID, recordID string) (Record, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+` FROM payroll_records WHERE id = $1 AND school_id = $2
  `, recordID, schoolID)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return record, err
}

// ListFilter narrows List and Summarize. Zero values mean "no filter" except
// Month/Year, which must both be set or both be zero.
type ListFilter struct {
	Month   int
	Year    int
	StaffID string
	Status  string
}

func (s *Store) List(ctx context.Context, schoolID string, f ListFilter, limit, offset int) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM payroll_records
    WHERE school_id = $1
      AND ($2 = 0 OR (month = $2 AND year = $3))
      AND ($4 = '' OR staff_id::text = $4)
      AND ($5 = '' OR payment_status = $5)
    ORDER BY year DESC, month DESC, created_at DESC
    LIMIT $6 OFFSET $7
  `, schoolID, f.Month, f.Year, f.StaffID, f.Status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) Summarize(ctx context.Context, schoolID string, month, year int) (Summary, error) {
	summary := Summary{CountByStatus: map[string]int{}}

	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(gross_salary), 0), COALESCE(SUM(total_deductions), 0),
           COALESCE(SUM(net_salary), 0), COUNT(*)
    FROM payroll_records
    WHERE school_id = $1 AND month = $2 AND year = $3
  `, schoolID, month, year).Scan(
		&summary.TotalGross, &summary.TotalDeductions, &summary.TotalNet, &summary.RecordCount)
	if err != nil {
		return Summary{}, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT payment_status, COUNT(*)
    FROM payroll_records
    WHERE school_id = $1 AND month = $2 AND year = $3
    GROUP BY payment_status
  `, schoolID, month, year)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.CountByStatus[status] = count
	}
	return summary, rows.Err()
}

func marshalSelections(t Totals) ([]byte, []byte, error) {
	earnings := t.Earnings
	if earnings == nil {
		earnings = Selections{}
	}
	deductions := t.Deductions
	if deductions == nil {
		deductions = Selections{}
	}
	earningsJSON, err := json.Marshal(earnings)
	if err != nil {
		return nil, nil, err
	}
	deductionsJSON, err := json.Marshal(deductions)
	if err != nil {
		return nil, nil, err
	}
	return earningsJSON, deductionsJSON, nil
}

func translateWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrStaffNotFound
	}
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	var earningsJSON, deductionsJSON []byte
	err := row.Scan(
		&r.ID, &r.SchoolID, &r.StaffID, &r.Month, &r.Year, &r.BasicSalary,
		&earningsJSON, &deductionsJSON,
		&r.GrossSalary, &r.TotalDeductions, &r.NetSalary,
		&r.PaymentMethod, &r.PaymentStatus, &r.PaymentDate, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	if len(earningsJSON) > 0 {
		if err := json.Unmarshal(earningsJSON, &r.Earnings); err != nil {
			return Record{}, err
		}
	}
	if len(deductionsJSON) > 0 {
		if err := json.Unmarshal(deductionsJSON, &r.Deductions); err != nil {
			return Record{}, err
		}
	}
	return r, nil
}
