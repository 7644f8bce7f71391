package componentshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"campus/internal/domain/audit"
	"campus/internal/domain/auth"
	"campus/internal/domain/components"
	"campus/internal/domain/payroll"
	"campus/internal/transport/http/api"
	"campus/internal/transport/http/middleware"
	"campus/internal/transport/http/shared"
)

// DefaultsResolver resolves prefilled selections for a staff member; the
// payroll service satisfies it.
type DefaultsResolver interface {
	Defaults(ctx context.Context, schoolID, staffID string) (payroll.Selections, payroll.Selections, error)
}

type Handler struct {
	Store    *components.Store
	Audit    *audit.Log
	Defaults DefaultsResolver
}

func NewHandler(store *components.Store, auditLog *audit.Log, defaults DefaultsResolver) *Handler {
	return &Handler{Store: store, Audit: auditLog, Defaults: defaults}
}

// RegisterRoutes expects a router already rooted at /payroll.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/components", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.HandleList)
		r.Get("/defaults", h.HandleDefaults)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", h.HandleCreate)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/{componentID}", h.HandleUpdate)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Delete("/{componentID}", h.HandleDeactivate)
	})
}

type componentRequest struct {
	Name           string  `json:"name"`
	NameLocal      string  `json:"nameLocal"`
	Type           string  `json:"type"`
	CalcMode       string  `json:"calcMode"`
	DefaultAmount  float64 `json:"defaultAmount"`
	PercentageRate float64 `json:"percentageRate"`
	Taxable        bool    `json:"taxable"`
}

func (p componentRequest) validate() *shared.Validator {
	v := shared.NewValidator()
	v.Required("name", p.Name, "name is required")
	if !components.ValidType(p.Type) {
		v.Add("type", "must be earning or deduction")
	}
	if !components.ValidCalcMode(p.CalcMode) {
		v.Add("calcMode", "must be fixed or percentage")
	}
	if p.DefaultAmount < 0 {
		v.Add("defaultAmount", "must not be negative")
	}
	if p.CalcMode == components.CalcPercentage && (p.PercentageRate < 0 || p.PercentageRate > 100) {
		v.Add("percentageRate", "must be between 0 and 100")
	}
	return v
}

func (p componentRequest) toComponent() components.Component {
	return components.Component{
		Name:           p.Name,
		NameLocal:      p.NameLocal,
		Type:           p.Type,
		CalcMode:       p.CalcMode,
		DefaultAmount:  p.DefaultAmount,
		PercentageRate: p.PercentageRate,
		Taxable:        p.Taxable,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var (
		list []components.Component
		err  error
	)
	if r.URL.Query().Get("active") == "true" {
		list, err = h.Store.ListActive(r.Context(), user.SchoolID)
	} else {
		list, err = h.Store.List(r.Context(), user.SchoolID)
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list components", reqID)
		return
	}
	api.Success(w, list, reqID)
}

type defaultsResponse struct {
	Earnings   payroll.Selections `json:"earningsSelections"`
	Deductions payroll.Selections `json:"deductionsSelections"`
}

// HandleDefaults prefills component selections either for a specific staff
// member (staffId) or for an arbitrary basic salary (basicSalary). Clients use
// it to seed the payroll entry form.
func (h *Handler) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	if staffID := r.URL.Query().Get("staffId"); staffID != "" {
		earnings, deductions, err := h.Defaults.Defaults(r.Context(), user.SchoolID, staffID)
		if err != nil {
			if errors.Is(err, payroll.ErrStaffNotFound) {
				api.Fail(w, http.StatusNotFound, "not_found", "staff member not found", reqID)
				return
			}
			api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to resolve defaults", reqID)
			return
		}
		api.Success(w, defaultsResponse{Earnings: earnings, Deductions: deductions}, reqID)
		return
	}

	basicSalary, err := strconv.ParseFloat(r.URL.Query().Get("basicSalary"), 64)
	if err != nil || basicSalary < 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "staffId or a non-negative basicSalary is required", reqID)
		return
	}

	active, err := h.Store.ListActive(r.Context(), user.SchoolID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to resolve defaults", reqID)
		return
	}

	out := defaultsResponse{Earnings: payroll.Selections{}, Deductions: payroll.Selections{}}
	for _, c := range active {
		amount := components.ResolveDefault(c, basicSalary)
		switch c.Type {
		case components.TypeEarning:
			out.Earnings[c.ID] = amount
		case components.TypeDeduction:
			out.Deductions[c.ID] = amount
		}
	}
	api.Success(w, out, reqID)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload componentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.validate().Reject(w, reqID) {
		return
	}

	component := payload.toComponent()
	id, err := h.Store.Create(r.Context(), user.SchoolID, component)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to create component", reqID)
		return
	}
	component.ID = id
	component.SchoolID = user.SchoolID
	component.Active = true

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "component.create", "salary_component", id, reqID, nil, component)

	api.Created(w, component, reqID)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	componentID := chi.URLParam(r, "componentID")

	var payload componentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.validate().Reject(w, reqID) {
		return
	}

	component := payload.toComponent()
	if err := h.Store.Update(r.Context(), user.SchoolID, componentID, component); err != nil {
		if errors.Is(err, components.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "component not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to update component", reqID)
		return
	}
	component.ID = componentID
	component.SchoolID = user.SchoolID

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "component.update", "salary_component", componentID, reqID, nil, component)

	api.Success(w, component, reqID)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	componentID := chi.URLParam(r, "componentID")

	if err := h.Store.Deactivate(r.Context(), user.SchoolID, componentID); err != nil {
		if errors.Is(err, components.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "component not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to deactivate component", reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), user.SchoolID, user.UserID, "component.deactivate", "salary_component", componentID, reqID, nil, nil)

	api.Success(w, map[string]any{"id": componentID, "active": false}, reqID)
}
