package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"campus/internal/app/server"
	"campus/internal/domain/payroll"
	"campus/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

// End-to-end pass over the payroll surface against a real database. Skipped
// unless TEST_DATABASE_URL points at a disposable Postgres instance.
func TestPayrollJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:       dbURL,
		JWTSecret:         "test-secret",
		Environment:       "test",
		SeedSchoolName:    "Test School",
		SeedAdminEmail:    "admin@test.local",
		SeedAdminPassword: "ChangeMe123!",
		RunMigrations:     true,
		RunSeed:           true,
		MigrationsDir:     "../../../../migrations",
		BulkWorkers:       4,
		MetricsEnabled:    true,
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	staffEmail := fmt.Sprintf("journey-%d@example.com", time.Now().UnixNano())
	staffID := createStaff(t, client, ts.URL, token, staffEmail, 30000)

	period := time.Now().UTC()

	// Individual submission.
	record := submitPayroll(t, client, ts.URL, token, staffID, int(period.Month()), period.Year())
	if record.PaymentStatus != payroll.StatusPending {
		t.Fatalf("expected pending record, got %s", record.PaymentStatus)
	}
	if record.NetSalary != record.GrossSalary-record.TotalDeductions {
		t.Fatalf("net/gross/deductions mismatch: %+v", record)
	}

	// Resubmission keeps the same record.
	again := submitPayroll(t, client, ts.URL, token, staffID, int(period.Month()), period.Year())
	if again.ID != record.ID {
		t.Fatalf("resubmission created a new record: %s vs %s", again.ID, record.ID)
	}

	// Bulk run skips the staff member that already has a record.
	var bulk payroll.BulkResult
	doRequest(t, client, http.MethodPost, ts.URL+"/api/v1/payroll/bulk-runs", token, map[string]any{
		"month": int(period.Month()),
		"year":  period.Year(),
	}, http.StatusCreated, &bulk)
	for _, created := range bulk.Created {
		if created.StaffID == staffID {
			t.Fatalf("bulk run recreated an existing record for %s", staffID)
		}
	}
	found := false
	for _, skipped := range bulk.Skipped {
		if skipped == staffID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s in skipped list, got %v", staffID, bulk.Skipped)
	}

	// Payment lifecycle.
	var paid payroll.Record
	doRequest(t, client, http.MethodPatch, ts.URL+"/api/v1/payroll/records/"+record.ID+"/status", token,
		map[string]string{"status": payroll.StatusPaid}, http.StatusOK, &paid)
	if paid.PaymentDate == nil {
		t.Fatal("expected payment date to be stamped")
	}

	doRequest(t, client, http.MethodPatch, ts.URL+"/api/v1/payroll/records/"+record.ID+"/status", token,
		map[string]string{"status": payroll.StatusCancelled}, http.StatusConflict, nil)

	// Summary covers the period.
	var summary payroll.Summary
	doRequest(t, client, http.MethodGet,
		fmt.Sprintf("%s/api/v1/payroll/summary?month=%d&year=%d", ts.URL, int(period.Month()), period.Year()),
		token, nil, http.StatusOK, &summary)
	if summary.RecordCount == 0 {
		t.Fatal("expected at least one record in summary")
	}
	if summary.CountByStatus[payroll.StatusPaid] == 0 {
		t.Fatal("expected a paid record in summary")
	}
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	doRequest(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK, &out)
	if out.Token == "" {
		t.Fatal("login returned empty token")
	}
	return out.Token
}

func createStaff(t *testing.T, client *http.Client, baseURL, token, email string, baseSalary float64) string {
	t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	doRequest(t, client, http.MethodPost, baseURL+"/api/v1/staff", token, map[string]any{
		"firstName":  "Journey",
		"lastName":   "Example",
		"email":      email,
		"baseSalary": baseSalary,
	}, http.StatusCreated, &out)
	if out.ID == "" {
		t.Fatal("staff creation returned empty id")
	}
	return out.ID
}

func submitPayroll(t *testing.T, client *http.Client, baseURL, token, staffID string, month, year int) payroll.Record {
	t.Helper()
	var record payroll.Record
	doRequest(t, client, http.MethodPost, baseURL+"/api/v1/payroll/records", token, map[string]any{
		"staffId": staffID,
		"month":   month,
		"year":    year,
	}, http.StatusCreated, &record)
	return record
}

func doRequest(t *testing.T, client *http.Client, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, url, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d (%v)", method, url, wantStatus, resp.StatusCode, env.Error)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("%s %s: decode data: %v", method, url, err)
		}
	}
}
