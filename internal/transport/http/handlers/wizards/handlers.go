package wizardshandler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/domain/wizard"
	"staffdesk/internal/platform/requestctx"
	"staffdesk/internal/transport/http/api"
	avatarshandler "staffdesk/internal/transport/http/handlers/avatars"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

// Wizards is the wizard service as the handlers use it.
type Wizards interface {
	Open(ctx context.Context, session auth.Session, req wizard.OpenRequest) (wizard.Instance, error)
	Get(session auth.Session, id string) (wizard.Instance, error)
	Current(session auth.Session) (wizard.Instance, bool)
	Change(session auth.Session, id string, changes map[wizard.Field]string) (wizard.Instance, error)
	Touch(session auth.Session, id string, f wizard.Field) (wizard.Instance, error)
	Next(session auth.Session, id string) (wizard.Instance, error)
	Previous(session auth.Session, id string) (wizard.Instance, error)
	AttachPhoto(ctx context.Context, session auth.Session, id, name string, body io.Reader) (wizard.Instance, error)
	Submit(ctx context.Context, session auth.Session, id string) (employees.Record, error)
	Cancel(session auth.Session, id string) error
}

type Handler struct {
	Wizards Wizards
	Log     *zap.Logger
}

func NewHandler(wizards Wizards, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Wizards: wizards, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/wizards", h.HandleOpen)
	r.Get("/wizards/current", h.HandleCurrent)
	r.Get("/wizards/{wizardID}", h.HandleGet)
	r.Patch("/wizards/{wizardID}/fields", h.HandleChange)
	r.Post("/wizards/{wizardID}/touch", h.HandleTouch)
	r.Post("/wizards/{wizardID}/next", h.HandleNext)
	r.Post("/wizards/{wizardID}/previous", h.HandlePrevious)
	r.Post("/wizards/{wizardID}/photo", h.HandlePhoto)
	r.Post("/wizards/{wizardID}/submit", h.HandleSubmit)
	r.Delete("/wizards/{wizardID}", h.HandleCancel)
}

type stepView struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
}

type wizardView struct {
	ID         string             `json:"id"`
	Mode       wizard.Mode        `json:"mode"`
	AccountID  string             `json:"accountId,omitempty"`
	Step       stepView           `json:"step"`
	Steps      []stepView         `json:"steps"`
	Draft      wizard.Draft       `json:"draft"`
	Errors     wizard.FieldErrors `json:"errors"`
	StepErrors wizard.FieldErrors `json:"stepErrors"`
	Fields     []wizard.Field     `json:"fields"`
	Required   []wizard.Field     `json:"required"`
	CanSubmit  bool               `json:"canSubmit"`
	Submitting bool               `json:"submitting"`
}

// view renders an instance for clients. The password never leaves the server.
func view(inst wizard.Instance) wizardView {
	state := inst.State.View()
	steps := make([]stepView, 0, len(wizard.Steps))
	for _, s := range wizard.Steps {
		steps = append(steps, stepView{Number: int(s), Label: s.Label()})
	}
	return wizardView{
		ID:         inst.ID,
		Mode:       state.Mode,
		AccountID:  state.AccountID,
		Step:       stepView{Number: int(state.Step), Label: state.Step.Label()},
		Steps:      steps,
		Draft:      state.Draft,
		Errors:     state.Errors,
		StepErrors: state.StepErrors(),
		Fields:     state.Step.Fields(),
		Required:   state.Step.Required(state.Mode),
		CanSubmit:  inst.State.CanSubmit() == nil,
		Submitting: inst.Submitting,
	}
}

type openRequest struct {
	Mode       string `json:"mode"`
	AccountID  string `json:"accountId"`
	EmployeeID string `json:"employeeId"`
}

type changeRequest struct {
	Fields map[string]string `json:"fields"`
}

type touchRequest struct {
	Field string `json:"field"`
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		unauthenticated(w, requestID)
		return
	}
	var payload openRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	mode, err := wizard.ParseMode(payload.Mode)
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "mode", Reason: "mode must be create, associate or edit"}})
		return
	}

	inst, err := h.Wizards.Open(r.Context(), session, wizard.OpenRequest{Mode: mode, AccountID: payload.AccountID, EmployeeID: payload.EmployeeID})
	if err != nil {
		h.fail(w, err, requestID)
		return
	}
	api.Created(w, view(inst), requestID)
}

func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		unauthenticated(w, requestID)
		return
	}
	inst, ok := h.Wizards.Current(session)
	if !ok {
		api.Fail(w, http.StatusNotFound, "wizard_not_found", "no open wizard", requestID)
		return
	}
	api.Success(w, view(inst), requestID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(session auth.Session, id string) (wizard.Instance, error) {
		return h.Wizards.Get(session, id)
	})
}

// HandleChange applies a batch of field edits. Unknown field names reject
// the whole batch.
func (h *Handler) HandleChange(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload changeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	changes, ok := parseChanges(w, payload.Fields, requestID)
	if !ok {
		return
	}
	h.respond(w, r, func(session auth.Session, id string) (wizard.Instance, error) {
		return h.Wizards.Change(session, id, changes)
	})
}

func (h *Handler) HandleTouch(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload touchRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	f, err := wizard.ParseField(payload.Field)
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "field", Reason: "unknown field"}})
		return
	}
	h.respond(w, r, func(session auth.Session, id string) (wizard.Instance, error) {
		return h.Wizards.Touch(session, id, f)
	})
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(session auth.Session, id string) (wizard.Instance, error) {
		return h.Wizards.Next(session, id)
	})
}

func (h *Handler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(session auth.Session, id string) (wizard.Instance, error) {
		return h.Wizards.Previous(session, id)
	})
}

func (h *Handler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		unauthenticated(w, requestID)
		return
	}
	file, header, err := shared.OpenUpload(r, "file")
	if err != nil {
		avatarshandler.FailUpload(w, h.Log, err, requestID)
		return
	}
	defer file.Close()

	inst, err := h.Wizards.AttachPhoto(r.Context(), session, chi.URLParam(r, "wizardID"), header.Filename, file)
	if errors.Is(err, wizard.ErrWizardNotFound) || errors.Is(err, wizard.ErrSubmitting) {
		h.fail(w, err, requestID)
		return
	}
	if err != nil {
		avatarshandler.FailUpload(w, h.Log, err, requestID)
		return
	}
	api.Success(w, view(inst), requestID)
}

// HandleSubmit runs the submission sequence. Failures carry the toast text
// the console shows and leave the wizard open.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, _ := middleware.GetSession(r.Context())
	id := chi.URLParam(r, "wizardID")

	record, err := h.Wizards.Submit(r.Context(), session, id)
	var submitErr *wizard.SubmitError
	switch {
	case err == nil:
		h.Log.Info("employee submitted", zap.String("employeeId", record.ID), zap.String("accountId", session.AccountID))
		api.Created(w, map[string]any{"employee": record, "message": wizard.SuccessMessage}, requestID)
	case errors.As(err, &submitErr):
		h.failSubmit(w, submitErr, requestID)
	default:
		h.fail(w, err, requestID)
	}
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		unauthenticated(w, requestID)
		return
	}
	if err := h.Wizards.Cancel(session, chi.URLParam(r, "wizardID")); err != nil {
		h.fail(w, err, requestID)
		return
	}
	api.Success(w, map[string]string{"status": "cancelled"}, requestID)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, fn func(auth.Session, string) (wizard.Instance, error)) {
	requestID := requestctx.GetRequestID(r.Context())
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		unauthenticated(w, requestID)
		return
	}
	inst, err := fn(session, chi.URLParam(r, "wizardID"))
	var gate *wizard.GateError
	if errors.As(err, &gate) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "step_incomplete", gate.Error(),
			map[string]any{"missing": gate.Missing, "wizard": view(inst)}, requestID)
		return
	}
	if err != nil {
		h.fail(w, err, requestID)
		return
	}
	api.Success(w, view(inst), requestID)
}

func (h *Handler) failSubmit(w http.ResponseWriter, err *wizard.SubmitError, requestID string) {
	details := map[string]any{"stage": err.Stage}
	status, code := http.StatusInternalServerError, "submit_failed"

	switch err.Stage {
	case wizard.StageSession:
		status, code = http.StatusUnauthorized, "unauthenticated"
	case wizard.StageDraft:
		status, code = http.StatusUnprocessableEntity, "draft_invalid"
		var problems wizard.FieldErrors
		if errors.As(err, &problems) {
			details["fields"] = problems
		}
		var gate *wizard.GateError
		if errors.As(err, &gate) {
			details["missing"] = gate.Missing
		}
	case wizard.StageProvision:
		status, code = http.StatusBadGateway, "signup_failed"
		if errors.Is(err, auth.ErrEmailTaken) {
			status, code = http.StatusConflict, "email_taken"
		}
	case wizard.StageRecord:
		if errors.Is(err, employees.ErrRecordExists) {
			status, code = http.StatusConflict, "record_exists"
		}
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error("wizard submit failed", zap.String("requestId", requestID), zap.String("stage", string(err.Stage)), zap.Error(err))
	}
	api.FailWithDetails(w, status, code, err.Message(), details, requestID)
}

func (h *Handler) fail(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, wizard.ErrWizardNotFound):
		api.Fail(w, http.StatusNotFound, "wizard_not_found", "wizard not found or expired", requestID)
	case errors.Is(err, wizard.ErrSubmitting):
		api.Fail(w, http.StatusConflict, "submission_in_progress", "submission already in progress", requestID)
	case errors.Is(err, wizard.ErrInvalidOpen):
		api.Fail(w, http.StatusBadRequest, "invalid_wizard", "associate needs accountId and edit needs employeeId", requestID)
	case errors.Is(err, wizard.ErrReadOnlyField):
		api.Fail(w, http.StatusBadRequest, "read_only_field", "profile photo is set by uploading an image", requestID)
	case errors.Is(err, wizard.ErrUnknownField):
		api.Fail(w, http.StatusBadRequest, "unknown_field", err.Error(), requestID)
	case errors.Is(err, employees.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
	default:
		h.Log.Error("wizard request failed", zap.String("requestId", requestID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "wizard_error", "request failed", requestID)
	}
}

func parseChanges(w http.ResponseWriter, raw map[string]string, requestID string) (map[wizard.Field]string, bool) {
	validator := shared.NewValidator()
	changes := make(map[wizard.Field]string, len(raw))
	for name, value := range raw {
		f, err := wizard.ParseField(name)
		if err != nil {
			validator.Add(name, "unknown field")
			continue
		}
		changes[f] = value
	}
	if len(raw) == 0 {
		validator.Add("fields", "at least one field is required")
	}
	if validator.Reject(w, requestID) {
		return nil, false
	}
	return changes, true
}

func unauthenticated(w http.ResponseWriter, requestID string) {
	api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", requestID)
}
