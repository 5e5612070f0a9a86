package web

import (
	"errors"
	"net/http"

	"github.com/flosch/pongo2/v4"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/avatars"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/domain/wizard"
	"staffdesk/internal/transport/http/shared"
)

const expiredMessage = "This form has expired. Please start again."

type fieldView struct {
	Name     string
	Label    string
	Type     string
	Options  []string
	Value    string
	Error    string
	Required bool
}

var inputTypes = map[wizard.Field]string{
	wizard.FieldWorkEmail:       "email",
	wizard.FieldEmail:           "email",
	wizard.FieldPassword:        "password",
	wizard.FieldMobileNumber:    "tel",
	wizard.FieldDateOfBirth:     "date",
	wizard.FieldStartDate:       "date",
	wizard.FieldStartTime:       "time",
	wizard.FieldEndTime:         "time",
	wizard.FieldBaseSalary:      "number",
	wizard.FieldBonusIncentives: "number",
}

var selectOptions = map[wizard.Field][]string{
	wizard.FieldGender:          names(employees.Genders),
	wizard.FieldJobType:         names(employees.JobTypes),
	wizard.FieldWorkStatus:      names(employees.WorkStatuses),
	wizard.FieldShift:           names(employees.Shifts),
	wizard.FieldSalaryFrequency: names(employees.SalaryFrequencies),
}

func names[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func stepFields(state wizard.State) []fieldView {
	required := map[wizard.Field]bool{}
	for _, f := range state.Step.Required(state.Mode) {
		required[f] = true
	}
	draft := state.View().Draft

	var out []fieldView
	for _, f := range state.Step.Fields() {
		if f == wizard.FieldPassword && state.Mode != wizard.ModeCreate {
			continue
		}
		view := fieldView{
			Name:     string(f),
			Label:    f.Label(),
			Type:     "text",
			Value:    draft.Get(f),
			Error:    state.Errors[f],
			Required: required[f],
		}
		if t, ok := inputTypes[f]; ok {
			view.Type = t
		}
		if opts, ok := selectOptions[f]; ok {
			view.Type, view.Options = "select", opts
		}
		out = append(out, view)
	}
	return out
}

func stepTabs() []pongo2.Context {
	out := make([]pongo2.Context, 0, len(wizard.Steps))
	for _, s := range wizard.Steps {
		out = append(out, pongo2.Context{"number": int(s), "label": s.Label()})
	}
	return out
}

func (c *Console) handleWizardOpen(w http.ResponseWriter, r *http.Request) {
	session, _ := c.caller(r)
	mode, err := wizard.ParseMode(r.PostFormValue("mode"))
	if err != nil {
		c.addFlash(w, r, flashError, "Unknown form mode.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	inst, err := c.wizards.Open(r.Context(), session, wizard.OpenRequest{
		Mode:       mode,
		AccountID:  r.PostFormValue("accountId"),
		EmployeeID: r.PostFormValue("employeeId"),
	})
	if errors.Is(err, wizard.ErrSubmitting) {
		c.addFlash(w, r, flashError, "Submission in progress. Please wait.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	if err != nil {
		if !errors.Is(err, employees.ErrNotFound) && !errors.Is(err, wizard.ErrInvalidOpen) {
			c.log.Error("open wizard failed", zap.Error(err))
		}
		c.addFlash(w, r, flashError, "Unable to open the employee form.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/wizard/"+inst.ID, http.StatusSeeOther)
}

func (c *Console) handleWizardPage(w http.ResponseWriter, r *http.Request) {
	session, _ := c.caller(r)
	inst, err := c.wizards.Get(session, chi.URLParam(r, "wizardID"))
	if err != nil {
		c.addFlash(w, r, flashError, expiredMessage)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	state := inst.State
	c.render(w, r, http.StatusOK, "wizard.html", pongo2.Context{
		"wizard":     inst,
		"mode":       string(state.Mode),
		"step":       int(state.Step),
		"stepLabel":  state.Step.Label(),
		"steps":      stepTabs(),
		"fields":     stepFields(state),
		"first":      state.Step == wizard.FirstStep,
		"last":       state.Step == wizard.LastStep,
		"photo":      state.Draft.ProfilePhoto,
		"submitting": inst.Submitting,
	})
}

// handleWizardStep stores the posted fields of the current step and then
// runs the requested action.
func (c *Console) handleWizardStep(w http.ResponseWriter, r *http.Request) {
	session, _ := c.caller(r)
	id := chi.URLParam(r, "wizardID")
	back := "/admin/wizard/" + id
	action := r.PostFormValue("action")

	if action == "cancel" {
		if err := c.wizards.Cancel(session, id); err != nil && !errors.Is(err, wizard.ErrWizardNotFound) {
			c.addFlash(w, r, flashError, "Submission in progress. Please wait.")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	if !c.saveStep(w, r, session, id, back) {
		return
	}

	switch action {
	case "next":
		if _, err := c.wizards.Next(session, id); err != nil {
			c.failWizard(w, r, err, back)
			return
		}
	case "previous":
		if _, err := c.wizards.Previous(session, id); err != nil {
			c.failWizard(w, r, err, back)
			return
		}
	case "submit":
		if _, err := c.wizards.Submit(r.Context(), session, id); err != nil {
			c.failWizard(w, r, err, back)
			return
		}
		c.addFlash(w, r, flashSuccess, wizard.SuccessMessage)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// saveStep applies the posted fields of the current step. It answers the
// request itself and reports false when the wizard is gone or a change was
// refused.
func (c *Console) saveStep(w http.ResponseWriter, r *http.Request, session auth.Session, id, back string) bool {
	inst, err := c.wizards.Get(session, id)
	if err != nil {
		c.addFlash(w, r, flashError, expiredMessage)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return false
	}
	if changes := postedChanges(r, inst.State); len(changes) > 0 {
		if _, err := c.wizards.Change(session, id, changes); err != nil {
			c.failWizard(w, r, err, back)
			return false
		}
	}
	return true
}

// postedChanges collects the current step's fields from the form. A blank
// password leaves a previously entered one in place.
func postedChanges(r *http.Request, state wizard.State) map[wizard.Field]string {
	changes := map[wizard.Field]string{}
	for _, f := range state.Step.Fields() {
		values, ok := r.PostForm[string(f)]
		if !ok || len(values) == 0 {
			continue
		}
		if f == wizard.FieldPassword && values[0] == "" && state.Draft.Password != "" {
			continue
		}
		if values[0] == state.Draft.Get(f) {
			continue
		}
		changes[f] = values[0]
	}
	return changes
}

func (c *Console) handleWizardPhoto(w http.ResponseWriter, r *http.Request) {
	session, _ := c.caller(r)
	id := chi.URLParam(r, "wizardID")
	back := "/admin/wizard/" + id

	file, header, uploadErr := shared.OpenUpload(r, "photo")
	if uploadErr == nil {
		defer file.Close()
	}
	// The step's fields arrive alongside the photo.
	if !c.saveStep(w, r, session, id, back) {
		return
	}
	if uploadErr != nil {
		c.addFlash(w, r, flashError, "Choose an image to upload.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if _, err := c.wizards.AttachPhoto(r.Context(), session, id, header.Filename, file); err != nil {
		c.failWizard(w, r, err, back)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (c *Console) failWizard(w http.ResponseWriter, r *http.Request, err error, back string) {
	var (
		gate      *wizard.GateError
		submitErr *wizard.SubmitError
	)
	switch {
	case errors.As(err, &gate):
		c.addFlash(w, r, flashError, gate.Error())
	case errors.As(err, &submitErr):
		c.addFlash(w, r, flashError, submitErr.Message())
	case errors.Is(err, wizard.ErrWizardNotFound):
		c.addFlash(w, r, flashError, expiredMessage)
		back = "/admin"
	case errors.Is(err, wizard.ErrSubmitting):
		c.addFlash(w, r, flashError, "Submission in progress. Please wait.")
	case errors.Is(err, avatars.ErrEmpty), errors.Is(err, avatars.ErrTooLarge), errors.Is(err, avatars.ErrUnsupported):
		c.addFlash(w, r, flashError, err.Error())
	default:
		c.log.Error("wizard action failed", zap.Error(err))
		c.addFlash(w, r, flashError, "Something went wrong. Please try again.")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
