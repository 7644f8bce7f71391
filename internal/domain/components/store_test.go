package components

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreListActive(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "school_id", "name", "name_local", "component_type", "calc_mode",
		"default_amount", "percentage_rate", "taxable", "active", "created_at",
	}).
		AddRow("c1", "school-1", "House Rent Allowance", "", TypeEarning, CalcPercentage, 0.0, 40.0, true, true, now).
		AddRow("c2", "school-1", "Income Tax", "", TypeDeduction, CalcPercentage, 0.0, 5.0, false, true, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE school_id = $1 AND active = true")).
		WithArgs("school-1").
		WillReturnRows(rows)

	list, err := store.ListActive(context.Background(), "school-1")
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 components, got %d", len(list))
	}
	if list[0].Name != "House Rent Allowance" || list[0].PercentageRate != 40 {
		t.Fatalf("unexpected first component: %+v", list[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreDeactivateMissingComponent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE salary_components SET active = false")).
		WithArgs("school-1", "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.Deactivate(context.Background(), "school-1", "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
