package form

import "strings"

// Problem is a user-facing reason a submission was refused before any
// network call.
type Problem string

const (
	ProblemIncomplete    Problem = "Please fill all the required fields."
	ProblemEmailMismatch Problem = "Student number must match the number in email ID."
	ProblemInvalid       Problem = "Please fix the validation errors before submitting."
)

// Precheck applies the submission preconditions in order and returns the
// first one that fails.
func (d *Draft) Precheck() (Problem, bool) {
	if len(d.Missing()) > 0 {
		return ProblemIncomplete, false
	}
	if !strings.Contains(d.Values[FieldEmail], d.Values[FieldStudentNumber]) {
		return ProblemEmailMismatch, false
	}
	if d.HasErrors() {
		return ProblemInvalid, false
	}
	return "", true
}
