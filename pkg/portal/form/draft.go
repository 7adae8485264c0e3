package form

import "strings"

// Draft is an in-progress registration. A field missing from Errors is
// either valid or not yet validated.
type Draft struct {
	Values map[Field]string `json:"values"`
	Errors map[Field]string `json:"errors,omitempty"`
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{
		Values: make(map[Field]string),
		Errors: make(map[Field]string),
	}
}

func (d *Draft) init() {
	if d.Values == nil {
		d.Values = make(map[Field]string)
	}
	if d.Errors == nil {
		d.Errors = make(map[Field]string)
	}
}

// Get returns the current value of f.
func (d *Draft) Get(f Field) string { return d.Values[f] }

// Error returns the message recorded for f, or "".
func (d *Draft) Error(f Field) string { return d.Errors[f] }

// HasErrors reports whether any field carries a validation message.
func (d *Draft) HasErrors() bool { return len(d.Errors) > 0 }

// Set stores a value without validating it.
func (d *Draft) Set(f Field, value string) {
	d.init()
	d.Values[f] = value
}

// Apply stores value for field and runs validation when trigger calls for it.
func (d *Draft) Apply(r *Rules, field Field, value string, trigger Trigger) {
	d.Set(field, value)
	if r.Validates(field, trigger) {
		d.Validate(r, field)
	}
}

// Validate recomputes the message for field. Changing the student number
// re-checks a non-empty email against the new number.
func (d *Draft) Validate(r *Rules, field Field) {
	d.init()
	d.setError(field, r.Message(field, d.Values[field], d.Values[FieldStudentNumber]))

	if field == FieldStudentNumber && d.Values[FieldEmail] != "" {
		d.setError(FieldEmail, r.Message(FieldEmail, d.Values[FieldEmail], d.Values[FieldStudentNumber]))
	}
}

// ValidateAll validates every patterned field as if each had lost focus.
func (d *Draft) ValidateAll(r *Rules) {
	for _, f := range Fields {
		if r.HasPattern(f) {
			d.Validate(r, f)
		}
	}
}

func (d *Draft) setError(f Field, msg string) {
	if msg == "" {
		delete(d.Errors, f)
		return
	}
	d.Errors[f] = msg
}

// Missing lists required fields that are empty, in display order.
func (d *Draft) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if strings.TrimSpace(d.Values[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clear empties every value and error.
func (d *Draft) Clear() {
	d.Values = make(map[Field]string)
	d.Errors = make(map[Field]string)
}
