package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/domain/audit"
	"campus/internal/domain/auth"
	"campus/internal/domain/components"
	"campus/internal/domain/payroll"
	"campus/internal/domain/staff"
	"campus/internal/transport/http/middleware"
)

const testSecret = "test-secret"

type memoryRecords struct {
	mu      sync.Mutex
	nextID  int
	records map[string]*payroll.Record
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: map[string]*payroll.Record{}}
}

func (m *memoryRecords) key(p payroll.UpsertParams) string {
	return fmt.Sprintf("%s|%s|%d|%d", p.SchoolID, p.StaffID, p.Month, p.Year)
}

func (m *memoryRecords) build(p payroll.UpsertParams, id string) payroll.Record {
	return payroll.Record{
		ID:              id,
		SchoolID:        p.SchoolID,
		StaffID:         p.StaffID,
		Month:           p.Month,
		Year:            p.Year,
		BasicSalary:     p.Totals.BasicSalary,
		Earnings:        p.Totals.Earnings,
		Deductions:      p.Totals.Deductions,
		GrossSalary:     p.Totals.GrossSalary,
		TotalDeductions: p.Totals.TotalDeductions,
		NetSalary:       p.Totals.NetSalary,
		PaymentMethod:   p.PaymentMethod,
		PaymentStatus:   p.PaymentStatus,
		Notes:           p.Notes,
	}
}

func (m *memoryRecords) Upsert(_ context.Context, p payroll.UpsertParams) (payroll.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(p)
	if existing, ok := m.records[key]; ok {
		updated := m.build(p, existing.ID)
		m.records[key] = &updated
		return updated, nil
	}
	m.nextID++
	record := m.build(p, fmt.Sprintf("rec-%d", m.nextID))
	m.records[key] = &record
	return record, nil
}

func (m *memoryRecords) CreateIfAbsent(_ context.Context, p payroll.UpsertParams) (payroll.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(p)
	if _, ok := m.records[key]; ok {
		return payroll.Record{}, false, nil
	}
	m.nextID++
	record := m.build(p, fmt.Sprintf("rec-%d", m.nextID))
	m.records[key] = &record
	return record, true, nil
}

func (m *memoryRecords) Advance(_ context.Context, schoolID, recordID, toStatus string, paymentDate *time.Time) (payroll.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID != recordID || record.SchoolID != schoolID {
			continue
		}
		if !payroll.CanTransition(record.PaymentStatus, toStatus) {
			if payroll.Terminal(record.PaymentStatus) {
				return payroll.Record{}, payroll.ErrTerminalStatus
			}
			return payroll.Record{}, payroll.ErrInvalidTransition
		}
		if record.PaymentStatus == toStatus {
			return *record, nil
		}
		record.PaymentStatus = toStatus
		if toStatus == payroll.StatusPaid {
			record.PaymentDate = paymentDate
		} else {
			record.PaymentDate = nil
		}
		return *record, nil
	}
	return payroll.Record{}, payroll.ErrRecordNotFound
}

func (m *memoryRecords) Get(_ context.Context, schoolID, recordID string) (payroll.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID == recordID && record.SchoolID == schoolID {
			return *record, nil
		}
	}
	return payroll.Record{}, payroll.ErrRecordNotFound
}

func (m *memoryRecords) List(_ context.Context, schoolID string, _ payroll.ListFilter, _, _ int) ([]payroll.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.Record
	for _, record := range m.records {
		if record.SchoolID == schoolID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *memoryRecords) Summarize(_ context.Context, schoolID string, month, year int) (payroll.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := payroll.Summary{CountByStatus: map[string]int{}}
	for _, record := range m.records {
		if record.SchoolID != schoolID || record.Month != month || record.Year != year {
			continue
		}
		summary.TotalGross += record.GrossSalary
		summary.TotalDeductions += record.TotalDeductions
		summary.TotalNet += record.NetSalary
		summary.RecordCount++
		summary.CountByStatus[record.PaymentStatus]++
	}
	return summary, nil
}

type memoryDirectory struct {
	members []staff.Member
}

func (m *memoryDirectory) Get(_ context.Context, schoolID, staffID string) (staff.Member, error) {
	for _, member := range m.members {
		if member.ID == staffID && member.SchoolID == schoolID {
			return member, nil
		}
	}
	return staff.Member{}, staff.ErrNotFound
}

func (m *memoryDirectory) ListActive(_ context.Context, schoolID string) ([]staff.Member, error) {
	var out []staff.Member
	for _, member := range m.members {
		if member.SchoolID == schoolID && member.Status == staff.StatusActive {
			out = append(out, member)
		}
	}
	return out, nil
}

type memoryCatalog struct {
	active []components.Component
}

func (m *memoryCatalog) ListActive(_ context.Context, _ string) ([]components.Component, error) {
	return m.active, nil
}

// nopQuerier satisfies audit.Querier; audit writes are fire-and-forget in
// handlers, so a blind sink is enough here.
type nopQuerier struct{}

func (nopQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (nopQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (nopQuerier) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }

func newTestRouter(t *testing.T) (http.Handler, *memoryRecords) {
	t.Helper()

	salary := 30000.0
	records := newMemoryRecords()
	directory := &memoryDirectory{members: []staff.Member{
		{ID: "staff-1", SchoolID: "school-1", Status: staff.StatusActive, BaseSalary: &salary},
		{ID: "staff-2", SchoolID: "school-1", Status: staff.StatusActive},
	}}
	catalog := &memoryCatalog{active: []components.Component{
		{ID: "allowance", Type: components.TypeEarning, Active: true},
		{ID: "tax", Type: components.TypeDeduction, Active: true},
	}}
	service := payroll.NewService(records, directory, catalog, 2)
	handler := NewHandler(service, audit.New(nopQuerier{}))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(testSecret))
	router.Route("/api/v1/payroll", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router, records
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{
		UserID:   "user-1",
		SchoolID: "school-1",
		Role:     auth.RoleAdmin,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payroll/records", token, payroll.SubmitInput{
		StaffID:    "staff-1",
		Month:      3,
		Year:       2025,
		Earnings:   payroll.Selections{"allowance": 5000},
		Deductions: payroll.Selections{"tax": 2000},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Success bool           `json:"success"`
		Data    payroll.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, 33000.0, envelope.Data.NetSalary)
	assert.Equal(t, payroll.StatusPending, envelope.Data.PaymentStatus)
}

func TestSubmitEndpointRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payroll/records", "", payroll.SubmitInput{
		StaffID: "staff-1", Month: 3, Year: 2025,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitEndpointRejectsBadPeriod(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payroll/records", token, payroll.SubmitInput{
		StaffID: "staff-1", Month: 13, Year: 2025,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitEndpointMissingStaff(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payroll/records", token, payroll.SubmitInput{
		StaffID: "ghost", Month: 3, Year: 2025,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusLifecycleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payroll/records", token, payroll.SubmitInput{
		StaffID: "staff-1", Month: 3, Year: 2025,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data payroll.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := "/api/v1/payroll/records/" + created.Data.ID + "/status"

	rec = doJSON(t, router, http.MethodPatch, path, token, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var paid struct {
		Data payroll.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.NotNil(t, paid.Data.PaymentDate)

	rec = doJSON(t, router, http.MethodPatch, path, token, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, path, token, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkRunEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/payroll/bulk-runs", token, payroll.BulkInput{
		Month: 4, Year: 2025,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data payroll.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Created, 2)
	assert.Empty(t, envelope.Data.Skipped)

	// Running again skips everyone.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/payroll/bulk-runs", token, payroll.BulkInput{
		Month: 4, Year: 2025,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var repeat struct {
		Data payroll.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repeat))
	assert.Empty(t, repeat.Data.Created)
	assert.Len(t, repeat.Data.Skipped, 2)
}

func TestSummaryEndpointRequiresPeriod(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/payroll/summary", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/payroll/summary?month=3&year=2025", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
