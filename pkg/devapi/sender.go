package devapi

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// Sender delivers an HTML email with a plain text alternative.
type Sender interface {
	SendHTML(to, subject, htmlBody, textBody string) error
}

// NewSender creates the sender selected by cfg.
func NewSender(cfg EmailConfig, logger logging.Logger) (Sender, error) {
	switch cfg.SenderType {
	case "log", "":
		return NewLogSender(logger), nil
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "sendgrid":
		return NewSendGridSender(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSender, cfg.SenderType)
	}
}

// LogSender writes the plain text body to the log instead of sending it.
type LogSender struct {
	logger logging.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendHTML logs the message
func (s *LogSender) SendHTML(to, subject, htmlBody, textBody string) error {
	s.logger.Info("Email (log sender)", "to", to, "subject", subject)
	s.logger.Info(textBody)
	return nil
}

// SMTPSender sends emails via SMTP
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPSender creates a new SMTP email sender
func NewSMTPSender(cfg EmailConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	if cfg.SMTP.TLS {
		d.SSL = true
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTP.Host}
	}
	return &SMTPSender{dialer: d, from: cfg.From, fromName: cfg.FromName}
}

// SendHTML sends an HTML email with plain text fallback via SMTP
func (s *SMTPSender) SendHTML(to, subject, htmlBody, textBody string) error {
	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.from, s.fromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// SendGridSender sends emails via SendGrid API
type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridSender creates a new SendGrid email sender
func NewSendGridSender(cfg EmailConfig) *SendGridSender {
	client := sendgrid.NewSendClient(cfg.SendGrid.APIKey)
	if cfg.SendGrid.EndpointURL != "" {
		client.BaseURL = cfg.SendGrid.EndpointURL
	}
	return &SendGridSender{client: client, from: cfg.From, fromName: cfg.FromName}
}

// SendHTML sends an HTML email with plain text fallback via SendGrid API
func (s *SendGridSender) SendHTML(to, subject, htmlBody, textBody string) error {
	from := mail.NewEmail(s.fromName, s.from)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), textBody, htmlBody)

	response, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid returned error status: %d %s", response.StatusCode, response.Body)
	}
	return nil
}

// MockSender records messages for tests.
type MockSender struct {
	mu    sync.Mutex
	Err   error
	calls []SentMail
}

// SentMail is one recorded message.
type SentMail struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendHTML records the message and returns Err.
func (m *MockSender) SendHTML(to, subject, htmlBody, textBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SentMail{To: to, Subject: subject, HTMLBody: htmlBody, TextBody: textBody})
	return m.Err
}

// Sent returns a copy of the recorded messages.
func (m *MockSender) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.calls...)
}

// SetErr changes the error returned by later sends.
func (m *MockSender) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
