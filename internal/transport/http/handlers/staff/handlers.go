package staffhandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus/internal/domain/audit"
	"campus/internal/domain/auth"
	"campus/internal/domain/staff"
	"campus/internal/transport/http/api"
	"campus/internal/transport/http/middleware"
	"campus/internal/transport/http/shared"
)

type Handler struct {
	Store *staff.Store
	Audit *audit.Log
}

func NewHandler(store *staff.Store, auditLog *audit.Log) *Handler {
	return &Handler{Store: store, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.HandleList)
		r.Get("/{staffID}", h.HandleGet)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", h.HandleCreate)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Patch("/{staffID}/status", h.HandleSetStatus)
	})
}

type createStaffRequest struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Designation string   `json:"designation"`
	Department  string   `json:"department"`
	BaseSalary  *float64 `json:"baseSalary"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	if r.URL.Query().Get("status") == staff.StatusActive {
		members, err := h.Store.ListActive(r.Context(), user.SchoolID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list staff", reqID)
			return
		}
		api.Success(w, members, reqID)
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	members, err := h.Store.List(r.Context(), user.SchoolID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list staff", reqID)
		return
	}
	api.Success(w, members, reqID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	member, err := h.Store.Get(r.Context(), user.SchoolID, chi.URLParam(r, "staffID"))
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load staff member", reqID)
		return
	}
	api.Success(w, member, reqID)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "first name is required")
	v.Required("lastName", payload.LastName, "last name is required")
	v.Required("email", payload.Email, "email is required")
	if payload.BaseSalary != nil && *payload.BaseSalary < 0 {
		v.Add("baseSalary", "must not be negative")
	}
	if v.Reject(w, reqID) {
		return
	}

	member := staff.Member{
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Email:       payload.Email,
		Designation: payload.Designation,
		Department:  payload.Department,
		BaseSalary:  payload.BaseSalary,
	}
	id, err := h.Store.Create(r.Context(), user.SchoolID, member)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to create staff member", reqID)
		return
	}
	member.ID = id
	member.SchoolID = user.SchoolID
	member.Status = staff.StatusActive

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "staff.create", "staff", id, reqID, nil, member)

	api.Created(w, member, reqID)
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	staffID := chi.URLParam(r, "staffID")

	var payload setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.Status != staff.StatusActive && payload.Status != staff.StatusInactive {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "status must be active or inactive", reqID)
		return
	}

	if err := h.Store.SetStatus(r.Context(), user.SchoolID, staffID, payload.Status); err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to update staff status", reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "staff.set_status", "staff", staffID, reqID, nil, payload)

	api.Success(w, map[string]string{"id": staffID, "status": payload.Status}, reqID)
}
