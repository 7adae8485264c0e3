package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1/", time.Second, logging.NewTestLogger())
}

func TestClient_Register(t *testing.T) {
	var got Registration
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/student/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "203.0.113.9", r.Header.Get("X-Forwarded-For"))

		ck, err := r.Cookie("backend_session")
		require.NoError(t, err)
		assert.Equal(t, "abc", ck.Value)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		http.SetCookie(w, &http.Cookie{Name: "backend_session", Value: "def"})
		_, _ = w.Write([]byte(`{"success":true,"message":"Registration initiated."}`))
	})

	creds := &Credentials{Cookies: map[string]string{"backend_session": "abc"}, ClientIP: "203.0.113.9"}
	res, err := client.Register(context.Background(), Registration{
		FullName:      "Jane Doe",
		StudentNumber: "2400123",
		StudentEmail:  "jane2400123@akgec.ac.in",
	}, creds)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, "jane2400123@akgec.ac.in", got.StudentEmail)
	assert.Equal(t, "def", creds.Cookies["backend_session"], "cookies set by the backend are kept")
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantDetail string
	}{
		{"bad request with detail", 400, `{"detail":"Student number is already registered. Please contact support if you need assistance."}`, KindBadRequest, "Student number is already registered. Please contact support if you need assistance."},
		{"bad request without detail", 400, `{}`, KindBadRequest, ""},
		{"validation list", 400, `{"detail":[{"msg":"field required"},{"msg":"bad email"}]}`, KindBadRequest, "field required; bad email"},
		{"server error", 500, `{"detail":"Failed to send verification email"}`, KindServerError, ""},
		{"not found", 404, `{"detail":"No pending registration found. Please register first."}`, KindOther, ""},
		{"html error page", 502, `<html>bad gateway</html>`, KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Verify(context.Background(), "AB12C", "jane2400123@akgec.ac.in", nil)
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)

			kind, detail := Classify(err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestClient_UnsuccessfulBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	})

	err := client.ValidateCaptcha(context.Background(), "tok", nil)
	assert.ErrorIs(t, err, ErrUnsuccessful)

	kind, _ := Classify(err)
	assert.Equal(t, KindOther, kind)
}

func TestClient_ResendOTPQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/student/resend-otp", r.URL.Path)
		assert.Equal(t, "jane+2400123@akgec.ac.in", r.URL.Query().Get("email"))
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := client.ResendOTP(context.Background(), "jane+2400123@akgec.ac.in", &Credentials{})
	require.NoError(t, err)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, 200*time.Millisecond, logging.NewTestLogger())
	_, err := client.Register(context.Background(), Registration{}, nil)
	require.Error(t, err)

	kind, _ := Classify(err)
	assert.Equal(t, KindOther, kind)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", 0, logging.NewTestLogger())
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
}

func TestCredentials_DropsExpiredCookies(t *testing.T) {
	creds := &Credentials{Cookies: map[string]string{"sid": "1"}}
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Add("Set-Cookie", "sid=; Max-Age=0")
	creds.absorb(resp)
	assert.NotContains(t, creds.Cookies, "sid")
}
