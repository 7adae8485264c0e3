package core

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/config"
	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/portal/form"
)

func TestRegistrationToSuccess(t *testing.T) {
	tp := newTestPortal(t, nil)

	path, body := tp.get(t, "/")
	assert.Equal(t, "/", path)
	assert.Contains(t, body, `id="register-form"`)
	assert.Contains(t, body, "College Email Id")

	path, body = tp.post(t, "/", janeDoeForm())
	assert.Equal(t, "/Verify", path)
	assert.Contains(t, body, flow.MsgRegistered)
	assert.Contains(t, body, "We have sent a 5-character verification code to your college id <strong>2412345@akgec.ac.in</strong>")
	assert.Contains(t, body, ">Resend OTP<", "no cooldown before the first resend")

	require.Len(t, tp.backend.registrations, 1)
	assert.Equal(t, "Jane Doe", tp.backend.registrations[0].FullName)
	assert.Equal(t, "2412345@akgec.ac.in", tp.backend.registrations[0].StudentEmail)

	path, body = tp.post(t, "/Verify", codeForm("ab12c"))
	assert.Equal(t, "/Verify", path, "success is shown on the verify page first")
	assert.Contains(t, body, flow.MsgVerified)
	assert.Contains(t, body, `data-redirect="/Success"`)
	assert.Contains(t, body, `data-delay="2000"`)
	assert.Equal(t, []string{"AB12C"}, tp.backend.codes)

	path, body = tp.get(t, "/Verify")
	assert.Equal(t, "/Success", path, "revisiting verify after success goes on")
	assert.Contains(t, body, "Registration Successful!")
	assert.Contains(t, body, "Your email <strong>2412345@akgec.ac.in</strong> has been verified.")
	assert.Contains(t, body, "Back to Home")

	path, body = tp.get(t, "/")
	assert.Equal(t, "/", path)
	assert.NotContains(t, body, "2412345@akgec.ac.in", "home starts a new registration")

	path, _ = tp.get(t, "/Success")
	assert.Equal(t, "/", path)
}

func TestSubmitBlockedWithoutBackendCall(t *testing.T) {
	tp := newTestPortal(t, nil)

	f := janeDoeForm()
	f.Set("mobile", "")
	path, body := tp.post(t, "/", f)

	assert.Equal(t, "/", path)
	assert.Contains(t, body, string(form.ProblemIncomplete))
	assert.Contains(t, body, `value="Jane Doe"`, "draft survives")
	assert.Empty(t, tp.backend.registrations)
	assert.Zero(t, tp.backend.captchaCalls)

	f = janeDoeForm()
	f.Set("studentNumber", "2512345")
	_, body = tp.post(t, "/", f)
	assert.Contains(t, body, "Student number must start with 24")
	assert.Empty(t, tp.backend.registrations)
}

func TestRegisterFailureShowsDetail(t *testing.T) {
	tp := newTestPortal(t, nil)
	tp.backend.registerErr = &api.StatusError{StatusCode: 400, Detail: "Student number is already registered. Please contact support if you need assistance."}

	path, body := tp.post(t, "/", janeDoeForm())
	assert.Equal(t, "/", path)
	assert.Contains(t, body, "Student number is already registered.")
	assert.Contains(t, body, `value="2412345"`)
}

func TestVerifyFailureKeepsGrid(t *testing.T) {
	tp := newTestPortal(t, nil)
	tp.post(t, "/", janeDoeForm())
	tp.backend.verifyErr = &api.StatusError{StatusCode: 400, Detail: "Invalid or expired OTP"}

	path, body := tp.post(t, "/Verify", codeForm("AB12C"))
	assert.Equal(t, "/Verify", path)
	assert.Contains(t, body, flow.MsgCodeInvalid)
	assert.Contains(t, body, `name="otp-0" value="A"`)
	assert.Contains(t, body, `name="otp-4" value="C"`)
	assert.Contains(t, body, verifyButtonEnabled, "a full grid can be resubmitted")
	assert.NotContains(t, body, "data-redirect")
}

func TestVerifyIncompleteCode(t *testing.T) {
	tp := newTestPortal(t, nil)
	tp.post(t, "/", janeDoeForm())

	_, body := tp.post(t, "/Verify", url.Values{"otp": {"AB1"}})
	assert.Contains(t, body, flow.MsgCodeIncomplete)
	assert.Contains(t, body, `name="otp-2" value="1"`)
	assert.Contains(t, body, verifyButtonDisabled)
	assert.Empty(t, tp.backend.codes)
}

const (
	verifyButtonEnabled  = `id="verify-button" class="btn">`
	verifyButtonDisabled = `id="verify-button" class="btn" disabled>`
)

func TestVerifyButtonFollowsGrid(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"empty", url.Values{"otp": {""}}, verifyButtonDisabled},
		{"partial slots", codeForm("AB1"), verifyButtonDisabled},
		{"gap", url.Values{"otp-0": {"A"}, "otp-1": {"B"}, "otp-3": {"2"}, "otp-4": {"C"}}, verifyButtonDisabled},
		{"invalid character", url.Values{"otp": {"AB-2C"}}, verifyButtonDisabled},
		{"full", codeForm("AB12C"), verifyButtonEnabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newTestPortal(t, nil)
			tp.post(t, "/", janeDoeForm())

			_, body := tp.get(t, "/Verify")
			assert.Contains(t, body, verifyButtonDisabled, "a fresh grid cannot be submitted")

			tp.backend.verifyErr = &api.StatusError{StatusCode: 400, Detail: "Invalid or expired OTP"}
			path, body := tp.post(t, "/Verify", tt.form)
			assert.Equal(t, "/Verify", path)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestResendCooldown(t *testing.T) {
	tp := newTestPortal(t, nil)
	tp.post(t, "/", janeDoeForm())

	_, body := tp.post(t, "/Verify/resend", nil)
	assert.Contains(t, body, flow.MsgResent)
	assert.Contains(t, body, `data-countdown="60"`)
	assert.Contains(t, body, "Resend OTP in 60s")

	tp.clock.Advance(15 * time.Second)
	_, body = tp.post(t, "/Verify/resend", nil)
	assert.Contains(t, body, "Please wait 45 seconds before requesting a new code.")
	assert.Equal(t, 1, tp.backend.resends)

	tp.clock.Advance(45 * time.Second)
	_, body = tp.post(t, "/Verify/resend", nil)
	assert.Contains(t, body, flow.MsgResent)
	assert.Equal(t, 2, tp.backend.resends)
}

func TestVerifyRequiresRegistration(t *testing.T) {
	tp := newTestPortal(t, nil)

	path, _ := tp.get(t, "/Verify")
	assert.Equal(t, "/", path)

	path, _ = tp.post(t, "/Verify", codeForm("AB12C"))
	assert.Equal(t, "/", path)

	path, _ = tp.post(t, "/Verify/resend", nil)
	assert.Equal(t, "/", path)

	assert.Empty(t, tp.backend.codes)
	assert.Zero(t, tp.backend.resends)
}

func TestSubmitRateLimit(t *testing.T) {
	tp := newTestPortal(t, func(c *config.Config) { c.RateLimit.SubmitPerMinute = 1 })

	f := janeDoeForm()
	f.Set("mobile", "")
	tp.post(t, "/", f)

	_, body := tp.post(t, "/", janeDoeForm())
	assert.Contains(t, body, "Too many registration attempts.")
	assert.Empty(t, tp.backend.registrations)
}
