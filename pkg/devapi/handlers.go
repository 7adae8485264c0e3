package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/mail"
	"strings"

	"github.com/mlcoe/turingreg/pkg/portal/api"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

const (
	msgRegistered      = "Registration initiated. Please check your email for verification code."
	msgVerified        = "Email verified successfully! Registration completed."
	msgResent          = "Verification code sent successfully"
	msgCaptchaOK       = "reCAPTCHA validated successfully"
	msgSendFailed      = "Failed to send verification email"
	msgInvalidOTP      = "Invalid or expired OTP"
	msgDataNotFound    = "Registration data not found. Please register again."
	msgNoSession       = "No active session found. Please register again."
	msgAlreadyVerified = "Student is already verified. No need to resend OTP."
	msgNoPending       = "No pending registration found. Please register first."
	msgInvalidCaptcha  = "Invalid reCAPTCHA"
	msgTooManyResends  = "Too many verification codes requested. Please try again later."
	msgContactSupport  = "Please contact support if you need assistance."
)

const maxRequestBody = 64 << 10

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msg, Success: true})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
}

// clientIP returns the request's address without port. RealIP has already
// applied X-Forwarded-For.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": s.cfg.EventName + " Registration API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reg api.Registration
	if err := decodeBody(r, &reg); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if !validEmail(reg.StudentEmail) {
		writeDetail(w, http.StatusUnprocessableEntity, "value is not a valid email address")
		return
	}

	dups, err := s.store.Duplicates(ctx, reg)
	if err != nil {
		s.internalError(w, "Registration failed", err)
		return
	}
	if dups.Any() {
		detail := strings.Join(dups.Messages(), ". ") + ". " + msgContactSupport
		s.logger.Info("Duplicate registration rejected", "email", logging.MaskEmail(reg.StudentEmail))
		writeDetail(w, http.StatusBadRequest, detail)
		return
	}

	stored, err := s.store.SavePending(ctx, reg)
	if err != nil {
		s.internalError(w, "Registration failed", err)
		return
	}
	if !stored {
		s.logger.Info("Pending registration exists, reissuing code", "email", logging.MaskEmail(reg.StudentEmail))
	}

	if err := s.issueCode(ctx, reg.StudentEmail); err != nil {
		s.logger.Error("Failed to send verification email", "email", logging.MaskEmail(reg.StudentEmail), "error", err)
		writeDetail(w, http.StatusInternalServerError, msgSendFailed)
		return
	}

	if err := s.store.RememberClient(ctx, clientIP(r), reg.StudentEmail); err != nil {
		s.logger.Warn("Failed to remember client", "error", err)
	}

	s.logger.Info("Registration initiated", "email", logging.MaskEmail(reg.StudentEmail))
	writeMessage(w, msgRegistered)
}

// issueCode stores a fresh code for email and mails it.
func (s *Server) issueCode(ctx context.Context, email string) error {
	code, err := GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.store.IssueOTP(ctx, email, code); err != nil {
		return err
	}

	htmlBody, textBody, err := s.template.Verification(code, s.cfg.OTPTTL)
	if err != nil {
		return err
	}
	return s.sender.SendHTML(email, s.template.VerificationSubject(), htmlBody, textBody)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var v api.Verification
	if err := decodeBody(r, &v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if !validEmail(v.Email) {
		writeDetail(w, http.StatusUnprocessableEntity, "value is not a valid email address")
		return
	}

	ok, err := s.store.ConsumeOTP(ctx, v.Email, v.OTP)
	if err != nil {
		s.internalError(w, "Verification failed", err)
		return
	}
	if !ok {
		writeDetail(w, http.StatusBadRequest, msgInvalidOTP)
		return
	}

	student, err := s.store.Promote(ctx, v.Email)
	if errors.Is(err, kvs.ErrNotFound) {
		writeDetail(w, http.StatusBadRequest, msgDataNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "Verification failed", err)
		return
	}

	htmlBody, textBody, err := s.template.Confirmation()
	if err == nil {
		err = s.sender.SendHTML(v.Email, s.template.ConfirmationSubject(), htmlBody, textBody)
	}
	if err != nil {
		s.logger.Warn("Failed to send confirmation email", "email", logging.MaskEmail(v.Email), "error", err)
	}

	s.logger.Info("Student verified", "id", student.ID, "email", logging.MaskEmail(v.Email))
	writeMessage(w, msgVerified)
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email, err := s.store.ClientEmail(ctx, clientIP(r))
	if err != nil {
		s.internalError(w, "Failed to resend OTP", err)
		return
	}
	if email == "" {
		email = r.URL.Query().Get("email")
	}
	if email == "" {
		writeDetail(w, http.StatusBadRequest, msgNoSession)
		return
	}

	verified, err := s.store.IsVerified(ctx, email)
	if err != nil {
		s.internalError(w, "Failed to resend OTP", err)
		return
	}
	if verified {
		writeDetail(w, http.StatusBadRequest, msgAlreadyVerified)
		return
	}

	if _, err := s.store.Pending(ctx, email); errors.Is(err, kvs.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, msgNoPending)
		return
	} else if err != nil {
		s.internalError(w, "Failed to resend OTP", err)
		return
	}

	if s.resend != nil && !s.resend.Allow(ctx, emailKey(email)) {
		writeDetail(w, http.StatusTooManyRequests, msgTooManyResends)
		return
	}

	if err := s.issueCode(ctx, email); err != nil {
		s.logger.Error("Failed to resend verification email", "email", logging.MaskEmail(email), "error", err)
		writeDetail(w, http.StatusInternalServerError, msgSendFailed)
		return
	}

	s.logger.Info("Verification code resent", "email", logging.MaskEmail(email))
	writeMessage(w, msgResent)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var cv api.CaptchaValidation
	if err := decodeBody(r, &cv); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	ok, err := s.captcha.Check(r.Context(), cv.RecaptchaValue)
	if err != nil {
		s.internalError(w, "reCAPTCHA validation failed", err)
		return
	}
	if !ok {
		writeDetail(w, http.StatusBadRequest, msgInvalidCaptcha)
		return
	}
	writeMessage(w, msgCaptchaOK)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.Students(r.Context())
	if err != nil {
		s.internalError(w, "Export failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="students_backup.csv"`)
	if err := WriteCSV(w, students); err != nil {
		s.logger.Error("Failed to write export", "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.internalError(w, "Failed to get system stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) internalError(w http.ResponseWriter, prefix string, err error) {
	s.logger.Error(prefix, "error", err)
	writeDetail(w, http.StatusInternalServerError, prefix+": "+err.Error())
}
