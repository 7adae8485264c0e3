package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/portal/otp"
)

const janeEmail = "2412345@akgec.ac.in"

func slots(code string) [otp.Length]string {
	var s [otp.Length]string
	for i, r := range code {
		if i < otp.Length {
			s[i] = string(r)
		}
	}
	return s
}

func TestVerifier_Success(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)

	st, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("ab12c"), ClientIP: "198.51.100.4"})
	require.NoError(t, err)

	assert.Equal(t, StepSucceeded, st.Step)
	assert.Equal(t, Notice{Kind: NoticeSuccess, Text: MsgVerified}, lastNotice(t, st))
	require.Len(t, h.backend.verified, 1)
	assert.Equal(t, api.Verification{OTP: "AB12C", Email: janeEmail}, h.backend.verified[0])
	assert.Equal(t, janeEmail, st.Context.Email, "email stays available for the success page")
}

func TestVerifier_IncompleteCodeMakesNoCall(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)

	st, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("AB1")})
	require.NoError(t, err)

	assert.Equal(t, MsgCodeIncomplete, lastNotice(t, st).Text)
	assert.Equal(t, StepVerifying, st.Step)
	assert.Zero(t, h.backend.calls())
}

func TestVerifier_InvalidSlotIsDropped(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)

	st, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: [otp.Length]string{"A", "B", "!", "2", "C"}})
	require.NoError(t, err)

	assert.Equal(t, MsgCodeIncomplete, lastNotice(t, st).Text)
	assert.Equal(t, "", st.Grid.Slots[2])
}

func TestVerifier_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"wrong code", &api.StatusError{StatusCode: 400, Detail: "Invalid or expired OTP"}, MsgCodeInvalid},
		{"server error", &api.StatusError{StatusCode: 500}, MsgVerifyFailed},
		{"network", errors.New("reset by peer"), MsgVerifyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.verifying("s", janeEmail)
			h.backend.verifyErr = tt.err

			st, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("AB12C")})
			require.NoError(t, err)

			assert.Equal(t, Notice{Kind: NoticeError, Text: tt.want}, lastNotice(t, st))
			assert.Equal(t, StepVerifying, st.Step)
			code, ok := st.Grid.Code()
			assert.True(t, ok)
			assert.Equal(t, "AB12C", code, "entered code stays in the grid")
		})
	}
}

func TestVerifier_NoRegistration(t *testing.T) {
	h := newHarness()

	_, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("AB12C")})
	assert.ErrorIs(t, err, ErrNoRegistration)

	_, err = h.verifier.Resend(context.Background(), "s", "")
	assert.ErrorIs(t, err, ErrNoRegistration)

	assert.Zero(t, h.backend.calls())
}

func TestVerifier_VerifyAfterSuccessIsNoop(t *testing.T) {
	h := newHarness()
	st := NewState("s", h.clock.Now())
	st.Step = StepSucceeded
	st.Context.Email = janeEmail
	h.sessions.put(st)

	got, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("AB12C")})
	require.NoError(t, err)
	assert.Equal(t, StepSucceeded, got.Step)
	assert.Zero(t, h.backend.calls())
}

func TestVerifier_ResendCooldown(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)
	ctx := context.Background()

	st, err := h.verifier.Resend(ctx, "s", "")
	require.NoError(t, err)
	assert.Equal(t, Notice{Kind: NoticeSuccess, Text: MsgResent}, lastNotice(t, st))
	assert.Equal(t, 60, h.verifier.ResendIn(st))
	assert.Equal(t, []string{janeEmail}, h.backend.resent)

	h.clock.Advance(30 * time.Second)
	st, err = h.verifier.Resend(ctx, "s", "")
	require.NoError(t, err)
	assert.Equal(t, NoticeWarning, lastNotice(t, st).Kind)
	assert.Equal(t, "Please wait 30 seconds before requesting a new code.", lastNotice(t, st).Text)
	assert.Len(t, h.backend.resent, 1, "resend during cooldown is a no-op")

	h.clock.Advance(30 * time.Second)
	assert.Equal(t, 0, h.verifier.ResendIn(st))
	_, err = h.verifier.Resend(ctx, "s", "")
	require.NoError(t, err)
	assert.Len(t, h.backend.resent, 2)
}

func TestVerifier_ResendClearsGrid(t *testing.T) {
	h := newHarness()
	st := NewState("s", h.clock.Now())
	st.Step = StepVerifying
	st.Context.Email = janeEmail
	st.Grid.Fill("AB1")
	h.sessions.put(st)

	got, err := h.verifier.Resend(context.Background(), "s", "")
	require.NoError(t, err)
	assert.Equal(t, otp.Grid{}, got.Grid)
}

func TestVerifier_ResendFailureDoesNotStartCooldown(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)
	h.backend.resendErr = &api.StatusError{StatusCode: 404, Detail: "No pending registration found. Please register first."}

	st, err := h.verifier.Resend(context.Background(), "s", "")
	require.NoError(t, err)

	assert.Equal(t, Notice{Kind: NoticeError, Text: MsgResendFailed}, lastNotice(t, st))
	assert.True(t, st.LastResend.IsZero())
	assert.Equal(t, 0, h.verifier.ResendIn(st))
}

func TestVerifier_FirstResendIsNotBlocked(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)

	st, err := h.sessions.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, 0, h.verifier.ResendIn(st))
}

func TestVerifier_InFlightVerifyIsIgnored(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)
	h.verifying("other", "2400002@akgec.ac.in")
	h.backend.block = make(chan struct{})
	h.backend.entered = make(chan struct{}, 2)

	done := make(chan error, 1)
	go func() {
		_, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("AB12C")})
		done <- err
	}()

	select {
	case <-h.backend.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first verify never reached the backend")
	}

	_, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("ZZ99Z")})
	assert.ErrorIs(t, err, ErrInFlight)

	_, err = h.verifier.Verify(context.Background(), "other", Entry{Slots: slots("AB1")})
	assert.NoError(t, err, "other sessions are not blocked")

	close(h.backend.block)
	require.NoError(t, <-done)
	require.Len(t, h.backend.verified, 1)
	assert.Equal(t, "AB12C", h.backend.verified[0].OTP)
}

func TestVerifier_ResendWaitsForVerify(t *testing.T) {
	h := newHarness()
	h.verifying("s", janeEmail)
	h.backend.block = make(chan struct{})
	h.backend.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.verifier.Verify(context.Background(), "s", Entry{Slots: slots("AB12C")})
		done <- err
	}()

	select {
	case <-h.backend.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("verify never reached the backend")
	}

	_, err := h.verifier.Resend(context.Background(), "s", "")
	assert.ErrorIs(t, err, ErrInFlight, "resend shares the verification slot")

	close(h.backend.block)
	require.NoError(t, <-done)
	assert.Empty(t, h.backend.resent)

	st, err := h.sessions.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, StepSucceeded, st.Step, "the verify outcome is what gets saved")
	assert.True(t, st.LastResend.IsZero())
}
