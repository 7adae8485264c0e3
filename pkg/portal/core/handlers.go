package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/portal/otp"
)

const msgTooManyAttempts = "Too many registration attempts. Please wait %d seconds and try again."

// handleRegisterPage renders the registration form. A session that already
// finished starts a new registration here.
func (p *Portal) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := p.cookie.Ensure(w, r)

	st, err := p.load(ctx, id)
	if err != nil {
		p.handle500(w, r, err)
		return
	}

	dirty := false
	switch {
	case st.Step == flow.StepSucceeded:
		st.Restart(p.clock.Now())
		dirty = true
	case st.Step == flow.StepVerifying && len(st.Notices) > 0:
		// notices from a registration that just went through belong to /Verify
		redirect(w, r, flow.StepVerifying.Path())
		return
	}

	notices := st.TakeNotices()
	if dirty || len(notices) > 0 {
		if err := p.sessions.Save(ctx, st); err != nil {
			p.handle500(w, r, err)
			return
		}
	}

	data := RegisterPageData{
		PageData: p.buildPageData("Register", notices),
		Fields:   p.buildFields(st.Draft),
		Selects:  p.buildSelects(st.Draft),
		SiteKey:  p.captcha.SiteKey(),
	}
	if err := p.render(w, p.templates.register, data, http.StatusOK); err != nil {
		p.logger.Error("Failed to render register page", "error", err)
	}
}

// handleRegisterSubmit runs a registration attempt and redirects to the page
// for the resulting step.
func (p *Portal) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := p.cookie.Ensure(w, r)

	if err := r.ParseForm(); err != nil {
		p.handle400(w, r, "Malformed form submission")
		return
	}

	ip := p.clientIP(r)
	if p.limiter != nil && !p.limiter.Allow(ctx, "submit:"+ip) {
		secs := int(p.limiter.RetryAfter(ctx, "submit:"+ip).Seconds()) + 1
		p.logger.Warn("Submit rate limited", "client", ip)
		if err := p.notify(ctx, id, flow.NoticeError, fmt.Sprintf(msgTooManyAttempts, secs)); err != nil {
			p.handle500(w, r, err)
			return
		}
		redirect(w, r, "/")
		return
	}

	values := make(map[form.Field]string, len(form.Fields))
	for _, f := range form.Fields {
		values[f] = r.PostForm.Get(string(f))
	}

	st, err := p.registrar.Submit(ctx, id, flow.Submission{
		Values:    values,
		Challenge: p.captcha.Challenge(r),
		ClientIP:  ip,
	})
	switch {
	case errors.Is(err, flow.ErrInFlight):
		redirect(w, r, "/")
		return
	case err != nil:
		p.handle500(w, r, err)
		return
	}
	redirect(w, r, st.Step.Path())
}

type validateRequest struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Trigger string `json:"trigger"`
}

type validateResponse struct {
	Field  string            `json:"field"`
	Error  string            `json:"error,omitempty"`
	Errors map[string]string `json:"errors"`
}

// handleValidate applies one field event and returns every current message.
func (p *Portal) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<10)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	field, ok := form.ParseField(req.Field)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "unknown field")
		return
	}
	trigger := form.Trigger(req.Trigger)
	if trigger != form.TriggerBlur && trigger != form.TriggerChange {
		trigger = form.TriggerBlur
	}

	id := p.cookie.Ensure(w, r)
	draft, err := p.registrar.Validate(r.Context(), id, field, req.Value, trigger)
	if err != nil {
		p.logger.Error("Field validation failed", "field", field, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "validation unavailable")
		return
	}

	resp := validateResponse{
		Field:  string(field),
		Error:  draft.Error(field),
		Errors: make(map[string]string, len(draft.Errors)),
	}
	for f, msg := range draft.Errors {
		resp.Errors[string(f)] = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVerifyPage renders the code grid. After a successful verification it
// shows the result and then moves on to /Success.
func (p *Portal) handleVerifyPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := p.cookie.Ensure(w, r)

	st, err := p.load(ctx, id)
	if err != nil {
		p.handle500(w, r, err)
		return
	}
	if st.Context.Email == "" {
		redirect(w, r, "/")
		return
	}

	notices := st.TakeNotices()
	if st.Step == flow.StepSucceeded && len(notices) == 0 {
		redirect(w, r, flow.StepSucceeded.Path())
		return
	}
	if len(notices) > 0 {
		if err := p.sessions.Save(ctx, st); err != nil {
			p.handle500(w, r, err)
			return
		}
	}

	data := VerifyPageData{
		PageData:       p.buildPageData("Verification Code", notices),
		Email:          st.Context.Email,
		Slots:          st.Grid.Slots,
		Focus:          st.Grid.Focus,
		CodeComplete:   st.Grid.Complete(),
		ResendIn:       p.verifier.ResendIn(st),
		Succeeded:      st.Step == flow.StepSucceeded,
		SuccessPath:    flow.StepSucceeded.Path(),
		SuccessDelayMS: p.successDelay.Milliseconds(),
		SuccessDelayS:  int(math.Ceil(p.successDelay.Seconds())),
	}
	if err := p.render(w, p.templates.verify, data, http.StatusOK); err != nil {
		p.logger.Error("Failed to render verify page", "error", err)
	}
}

// codeSlots reads the entered code either from one field per slot or from a
// single "otp" field.
func codeSlots(r *http.Request) [otp.Length]string {
	if code, ok := r.PostForm["otp"]; ok && len(code) > 0 {
		var g otp.Grid
		g.Fill(strings.TrimSpace(code[0]))
		return g.Slots
	}
	var slots [otp.Length]string
	for i := range slots {
		slots[i] = strings.TrimSpace(r.PostForm.Get(fmt.Sprintf("otp-%d", i)))
	}
	return slots
}

// handleVerifySubmit checks the entered code.
func (p *Portal) handleVerifySubmit(w http.ResponseWriter, r *http.Request) {
	id := p.cookie.Ensure(w, r)
	if err := r.ParseForm(); err != nil {
		p.handle400(w, r, "Malformed form submission")
		return
	}

	_, err := p.verifier.Verify(r.Context(), id, flow.Entry{
		Slots:    codeSlots(r),
		ClientIP: p.clientIP(r),
	})
	p.afterVerifyStep(w, r, err)
}

// handleResend asks for a new code.
func (p *Portal) handleResend(w http.ResponseWriter, r *http.Request) {
	id := p.cookie.Ensure(w, r)
	_, err := p.verifier.Resend(r.Context(), id, p.clientIP(r))
	p.afterVerifyStep(w, r, err)
}

func (p *Portal) afterVerifyStep(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, flow.ErrNoRegistration):
		redirect(w, r, "/")
	case errors.Is(err, flow.ErrInFlight), err == nil:
		redirect(w, r, flow.StepVerifying.Path())
	default:
		p.handle500(w, r, err)
	}
}

// handleSuccessPage renders the confirmation.
func (p *Portal) handleSuccessPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := p.cookie.Ensure(w, r)

	st, err := p.load(ctx, id)
	if err != nil {
		p.handle500(w, r, err)
		return
	}
	if st.Step != flow.StepSucceeded {
		redirect(w, r, st.Step.Path())
		return
	}

	notices := st.TakeNotices()
	if len(notices) > 0 {
		if err := p.sessions.Save(ctx, st); err != nil {
			p.handle500(w, r, err)
			return
		}
	}

	data := SuccessPageData{
		PageData: p.buildPageData("Registration Successful!", notices),
		Email:    st.Context.Email,
	}
	if err := p.render(w, p.templates.success, data, http.StatusOK); err != nil {
		p.logger.Error("Failed to render success page", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
