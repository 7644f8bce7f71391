package payrollhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campus/internal/domain/audit"
	"campus/internal/domain/auth"
	"campus/internal/domain/payroll"
	"campus/internal/transport/http/api"
	"campus/internal/transport/http/middleware"
	"campus/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
	Audit   *audit.Log
}

func NewHandler(service *payroll.Service, auditLog *audit.Log) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

// RegisterRoutes expects a router already rooted at /payroll; the components
// handler shares that subtree.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/preview", h.HandlePreview)
		r.Get("/records", h.HandleList)
		r.Get("/records/{recordID}", h.HandleGet)
		r.Get("/summary", h.HandleSummary)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/records", h.HandleSubmit)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/bulk-runs", h.HandleBulkRun)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Patch("/records/{recordID}/status", h.HandleUpdateStatus)
	})
}

type statusUpdateRequest struct {
	Status      string     `json:"status"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload payroll.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	totals, err := h.Service.Preview(r.Context(), user.SchoolID, payload)
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}
	api.Success(w, totals, reqID)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload payroll.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("staffId", payload.StaffID, "staff id is required")
	if v.Reject(w, reqID) {
		return
	}

	record, err := h.Service.Submit(r.Context(), user.SchoolID, payload)
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "payroll.submit", "payroll_record", record.ID, reqID, nil, record)

	api.Created(w, record, reqID)
}

func (h *Handler) HandleBulkRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload payroll.BulkInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	result, err := h.Service.RunBulk(r.Context(), user.SchoolID, payload)
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "payroll.bulk_run", "payroll_record", "", reqID, nil, map[string]any{
		"month":   payload.Month,
		"year":    payload.Year,
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	})

	api.Created(w, result, reqID)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	recordID := chi.URLParam(r, "recordID")

	var payload statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	record, err := h.Service.UpdateStatus(r.Context(), user.SchoolID, recordID, payload.Status, payload.PaymentDate)
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "payroll.status", "payroll_record", recordID, reqID, nil, map[string]string{
		"status": payload.Status,
	})

	api.Success(w, record, reqID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	record, err := h.Service.Get(r.Context(), user.SchoolID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}
	api.Success(w, record, reqID)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	month, year, ok := shared.ParsePeriod(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "month and year must be provided together", reqID)
		return
	}

	filter := payroll.ListFilter{
		Month:   month,
		Year:    year,
		StaffID: r.URL.Query().Get("staffId"),
		Status:  r.URL.Query().Get("status"),
	}
	page := shared.ParsePagination(r, 50, 200)

	records, err := h.Service.List(r.Context(), user.SchoolID, filter, page.Limit, page.Offset)
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}
	api.Success(w, records, reqID)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	month, year, ok := shared.ParsePeriod(r)
	if !ok || month == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "month and year are required", reqID)
		return
	}

	summary, err := h.Service.Summarize(r.Context(), user.SchoolID, month, year)
	if err != nil {
		h.failDomain(w, err, reqID)
		return
	}
	api.Success(w, summary, reqID)
}

// failDomain maps domain errors onto HTTP statuses; anything unrecognized is a
// 500 with the detail kept out of the response body.
func (h *Handler) failDomain(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, payroll.ErrPeriodOutOfRange),
		errors.Is(err, payroll.ErrInvalidBasicSalary),
		errors.Is(err, payroll.ErrMissingBaseSalary),
		errors.Is(err, payroll.ErrUnknownComponent),
		errors.Is(err, payroll.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	case errors.Is(err, payroll.ErrStaffNotFound),
		errors.Is(err, payroll.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, payroll.ErrInvalidTransition),
		errors.Is(err, payroll.ErrTerminalStatus):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "payroll operation failed", reqID)
	}
}
