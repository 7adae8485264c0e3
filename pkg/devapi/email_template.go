package devapi

import (
	"fmt"
	"strings"
	"time"

	hermes "github.com/ideamans/hermes"
)

const codePlaceholder = "{{VERIFICATION_CODE_PLACEHOLDER}}"

// EmailTemplate renders the backend's emails with Hermes.
type EmailTemplate struct {
	eventName string
	link      string
	year      int
}

// NewEmailTemplate creates a template generator for eventName.
func NewEmailTemplate(eventName, link string, now time.Time) *EmailTemplate {
	return &EmailTemplate{eventName: eventName, link: link, year: now.Year()}
}

func (t *EmailTemplate) hermes() hermes.Hermes {
	return hermes.Hermes{
		Product: hermes.Product{
			Name:          t.eventName,
			Link:          t.link,
			Copyright:     fmt.Sprintf("© %d %s | Student Registration System", t.year, t.eventName),
			HideSignature: true,
			HideGreeting:  true,
		},
	}
}

// VerificationSubject is the subject of the code email.
func (t *EmailTemplate) VerificationSubject() string {
	return "Verification Code - " + t.eventName
}

// ConfirmationSubject is the subject of the confirmation email.
func (t *EmailTemplate) ConfirmationSubject() string {
	return "Registration Confirmed - " + t.eventName
}

// Verification renders the email carrying code.
func (t *EmailTemplate) Verification(code string, validFor time.Duration) (htmlBody, textBody string, err error) {
	h := t.hermes()
	email := hermes.Email{
		Body: hermes.Body{
			Intros: []string{
				"Welcome! Almost there...",
				fmt.Sprintf("Thank you for registering for %s! To complete your registration, please verify your email address using the code below.", t.eventName),
			},
			Outros: []string{
				codePlaceholder,
				fmt.Sprintf("The code is valid for %d minutes. Enter it in the verification screen to complete your registration.", int(validFor.Minutes())),
				"If you didn't request this code, please ignore this email. This is an automated message, please do not reply.",
			},
		},
	}

	htmlBody, err = h.GenerateHTML(email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate HTML email: %w", err)
	}
	codeHTML := fmt.Sprintf(
		`<div style="text-align: center; margin: 24px 0;"><p style="color: #667eea; font-size: 14px; font-weight: bold; margin-bottom: 10px;">VERIFICATION CODE</p><div style="font-family: 'Courier New', monospace; font-size: 32px; font-weight: bold; letter-spacing: 8px; background-color: #ffffff; border: 2px dashed #667eea; border-radius: 8px; padding: 20px; display: inline-block;">%s</div></div>`,
		code,
	)
	htmlBody = strings.ReplaceAll(htmlBody, codePlaceholder, codeHTML)

	textBody, err = h.GeneratePlainText(email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate plain text email: %w", err)
	}
	textBody = strings.ReplaceAll(textBody, codePlaceholder, "VERIFICATION CODE\n\n"+code+"\n")

	return htmlBody, textBody, nil
}

// Confirmation renders the email sent once the address is verified.
func (t *EmailTemplate) Confirmation() (htmlBody, textBody string, err error) {
	h := t.hermes()
	email := hermes.Email{
		Body: hermes.Body{
			Intros: []string{
				"Registration Confirmed!",
				fmt.Sprintf("Congratulations! Your email has been successfully verified and your registration for %s is now complete.", t.eventName),
			},
			Outros: []string{
				"We look forward to seeing you at the event!",
				"This is an automated message, please do not reply.",
			},
		},
	}

	htmlBody, err = h.GenerateHTML(email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate HTML email: %w", err)
	}
	textBody, err = h.GeneratePlainText(email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate plain text email: %w", err)
	}
	return htmlBody, textBody, nil
}
