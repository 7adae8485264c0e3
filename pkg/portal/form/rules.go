// Package form models the registration draft: field values, per-field
// validation messages and the checks that gate submission.
package form

import (
	"fmt"
	"regexp"
	"strings"
)

// Field names a registration form input. Values match the HTML input names.
type Field string

const (
	FieldName          Field = "name"
	FieldBranch        Field = "branch"
	FieldUnivRoll      Field = "univRoll"
	FieldGender        Field = "gender"
	FieldScholarType   Field = "scholarType"
	FieldStudentNumber Field = "studentNumber"
	FieldEmail         Field = "email"
	FieldMobile        Field = "mobile"
	FieldDomain        Field = "domain"
)

// Fields lists every form field in display order. All are required.
var Fields = []Field{
	FieldName,
	FieldBranch,
	FieldDomain,
	FieldUnivRoll,
	FieldGender,
	FieldScholarType,
	FieldStudentNumber,
	FieldEmail,
	FieldMobile,
}

// ParseField maps an input name to a Field.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Trigger is the UI event that caused a validation pass.
type Trigger string

const (
	TriggerBlur   Trigger = "blur"
	TriggerChange Trigger = "change"
)

const (
	studentNumberDigitsMin = 5
	studentNumberDigitsMax = 18
)

// Rules holds the compiled field patterns for one college.
type Rules struct {
	emailDomain string
	prefix      string

	name          *regexp.Regexp
	branch        *regexp.Regexp
	mobile        *regexp.Regexp
	studentNumber *regexp.Regexp
	email         *regexp.Regexp
}

// DefaultRules returns the rules for akgec.ac.in students of the 2024 batch.
func DefaultRules() *Rules {
	r, err := NewRules("akgec.ac.in", "24")
	if err != nil {
		panic(err)
	}
	return r
}

// NewRules compiles rules for a college email domain and a student number prefix.
func NewRules(emailDomain, studentNumberPrefix string) (*Rules, error) {
	emailDomain = strings.TrimPrefix(strings.TrimSpace(emailDomain), "@")
	if emailDomain == "" {
		return nil, fmt.Errorf("form: email domain is required")
	}
	if studentNumberPrefix == "" || strings.Trim(studentNumberPrefix, "0123456789") != "" {
		return nil, fmt.Errorf("form: student number prefix must be digits, got %q", studentNumberPrefix)
	}

	return &Rules{
		emailDomain:   emailDomain,
		prefix:        studentNumberPrefix,
		name:          regexp.MustCompile(`^[A-Za-z\s]{3,30}$`),
		branch:        regexp.MustCompile(`^[A-Za-z\s()]+$`),
		mobile:        regexp.MustCompile(`^[0-9]{10}$`),
		studentNumber: regexp.MustCompile(fmt.Sprintf(`^%s[0-9]{%d,%d}$`, studentNumberPrefix, studentNumberDigitsMin, studentNumberDigitsMax)),
		email:         regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@` + regexp.QuoteMeta(emailDomain) + `$`),
	}, nil
}

// EmailDomain returns the college domain without "@".
func (r *Rules) EmailDomain() string { return r.emailDomain }

// StudentNumberPrefix returns the required leading digits.
func (r *Rules) StudentNumberPrefix() string { return r.prefix }

func (r *Rules) minStudentNumberLen() int { return len(r.prefix) + studentNumberDigitsMin }
func (r *Rules) maxStudentNumberLen() int { return len(r.prefix) + studentNumberDigitsMax }

// HasPattern reports whether field is checked by a pattern. Fields without one
// never carry an error.
func (r *Rules) HasPattern(field Field) bool {
	return r.pattern(field) != nil
}

func (r *Rules) pattern(field Field) *regexp.Regexp {
	switch field {
	case FieldName:
		return r.name
	case FieldBranch:
		return r.branch
	case FieldMobile:
		return r.mobile
	case FieldStudentNumber:
		return r.studentNumber
	case FieldEmail:
		return r.email
	default:
		return nil
	}
}

// Message returns the validation message for value, or "" when it is
// acceptable. Empty values are always acceptable here; emptiness is a
// submission concern. studentNumber is the draft's current student number,
// used by the email cross-check.
func (r *Rules) Message(field Field, value, studentNumber string) string {
	if value == "" {
		return ""
	}

	switch field {
	case FieldStudentNumber:
		return r.studentNumberMessage(value)
	case FieldEmail:
		return r.emailMessage(value, studentNumber)
	}

	if p := r.pattern(field); p != nil && !p.MatchString(value) {
		return "Invalid " + string(field)
	}
	return ""
}

// studentNumberMessage gives incremental feedback while the number is typed:
// prefix first, then length, then shape.
func (r *Rules) studentNumberMessage(value string) string {
	mustStart := "Student number must start with " + r.prefix

	n := len(value)
	if n > len(r.prefix) {
		n = len(r.prefix)
	}
	if value[:n] != r.prefix[:n] || len(value) < len(r.prefix) {
		return mustStart
	}

	switch {
	case len(value) > r.maxStudentNumberLen():
		return fmt.Sprintf("Student number cannot exceed %d characters", r.maxStudentNumberLen())
	case len(value) < r.minStudentNumberLen():
		return fmt.Sprintf("Student number must be at least %d characters", r.minStudentNumberLen())
	case !r.studentNumber.MatchString(value):
		return mustStart
	}
	return ""
}

func (r *Rules) emailMessage(value, studentNumber string) string {
	if !r.email.MatchString(value) {
		return "Email must belong to " + r.emailDomain + " domain"
	}
	if studentNumber != "" && !strings.Contains(value, studentNumber) {
		return "Email must contain student number " + studentNumber
	}
	return ""
}

// Validates reports whether trigger runs validation for field. Every
// patterned field validates on blur; the student number and email also
// validate on every change.
func (r *Rules) Validates(field Field, trigger Trigger) bool {
	if !r.HasPattern(field) {
		return false
	}
	if trigger == TriggerBlur {
		return true
	}
	return field == FieldStudentNumber || field == FieldEmail
}
