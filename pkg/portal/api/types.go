// Package api is the client for the registration backend's student
// endpoints: captcha validation, registration, code verification and resend.
package api

// Registration is the register request body.
type Registration struct {
	FullName      string `json:"fullName"`
	Branch        string `json:"branch"`
	RollNumber    string `json:"rollNumber"`
	Gender        string `json:"gender"`
	Scholar       string `json:"scholar"`
	StudentNumber string `json:"studentNumber"`
	StudentEmail  string `json:"studentEmail"`
	MobileNumber  string `json:"mobileNumber"`
	Domain        string `json:"domain"`
}

// CaptchaValidation is the validate request body.
type CaptchaValidation struct {
	RecaptchaValue string `json:"recaptchaValue"`
}

// Verification is the verify request body.
type Verification struct {
	OTP   string `json:"otp"`
	Email string `json:"email"`
}

// Result is the body of every successful response.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
