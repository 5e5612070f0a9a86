package employeeshandler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/platform/requestctx"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

type Records interface {
	List(ctx context.Context, session auth.Session, role auth.Role) ([]employees.Record, error)
	Get(ctx context.Context, session auth.Session, role auth.Role, id string) (employees.Record, error)
	Own(ctx context.Context, session auth.Session) (employees.Record, error)
	Delete(ctx context.Context, session auth.Session, id string) error
}

type Handler struct {
	Records Records
	Log     *zap.Logger
}

func NewHandler(records Records, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Records: records, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/employees", h.HandleList)
	r.Get("/employees/{employeeID}", h.HandleGet)
	r.Get("/employees/{employeeID}/profile.pdf", h.HandleProfilePDF)
	r.Get("/me", h.HandleMe)
}

// RegisterAdminRoutes mounts the routes only admins reach.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/employees/{employeeID}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, role, ok := caller(w, r)
	if !ok {
		return
	}
	records, err := h.Records.List(r.Context(), session, role)
	if err != nil {
		h.fail(w, err, requestID)
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	api.Success(w, map[string]any{
		"items":  shared.Page(records, page),
		"total":  len(records),
		"limit":  page.Limit,
		"offset": page.Offset,
	}, requestID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, role, ok := caller(w, r)
	if !ok {
		return
	}
	record, err := h.Records.Get(r.Context(), session, role, chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, err, requestID)
		return
	}
	api.Success(w, record, requestID)
}

// HandleMe returns the caller's identity and own record. A signed-in account
// with no record yet gets a null employee.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, role, ok := caller(w, r)
	if !ok {
		return
	}
	var employee *employees.Record
	record, err := h.Records.Own(r.Context(), session)
	switch {
	case err == nil:
		employee = &record
	case errors.Is(err, employees.ErrNotFound):
	default:
		h.fail(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{
		"account":  map[string]string{"id": session.AccountID, "email": session.Email, "role": role.String()},
		"employee": employee,
	}, requestID)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, _, ok := caller(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "employeeID")
	if err := h.Records.Delete(r.Context(), session, id); err != nil {
		h.fail(w, err, requestID)
		return
	}
	h.Log.Info("employee deleted", zap.String("employeeId", id), zap.String("accountId", session.AccountID))
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, requestID)
}

func (h *Handler) HandleProfilePDF(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, role, ok := caller(w, r)
	if !ok {
		return
	}
	record, err := h.Records.Get(r.Context(), session, role, chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := employees.WriteProfilePDF(&buf, record); err != nil {
		h.Log.Error("render profile pdf failed", zap.String("employeeId", record.ID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render profile", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "employee-"+record.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func caller(w http.ResponseWriter, r *http.Request) (auth.Session, auth.Role, bool) {
	session, ok := middleware.GetSession(r.Context())
	role, hasRole := middleware.GetRole(r.Context())
	if !ok || !hasRole {
		api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", requestctx.GetRequestID(r.Context()))
		return auth.Session{}, "", false
	}
	return session, role, true
}

func (h *Handler) fail(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, employees.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
	case errors.Is(err, employees.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	default:
		h.Log.Error("employee request failed", zap.String("requestId", requestID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "employee_error", "request failed", requestID)
	}
}
