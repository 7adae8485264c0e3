package core

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/mlcoe/turingreg/pkg/portal/assets"
	"github.com/mlcoe/turingreg/pkg/portal/flow"
	"github.com/mlcoe/turingreg/pkg/portal/form"
	"github.com/mlcoe/turingreg/pkg/portal/otp"
)

// PageData contains common data for all pages
type PageData struct {
	ServiceName        string
	ServiceDescription string
	Title              string
	Notices            []flow.Notice
	AssetVersion       string
}

// FieldData is one text input of the registration form
type FieldData struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

// SelectData is one select input of the registration form
type SelectData struct {
	FieldData
	Placeholder string
	Options     []form.Option
}

// RegisterPageData contains data for the registration form
type RegisterPageData struct {
	PageData
	Fields  map[string]FieldData
	Selects map[string]SelectData
	SiteKey string
}

// VerifyPageData contains data for the code entry page
type VerifyPageData struct {
	PageData
	Email          string
	Slots          [otp.Length]string
	Focus          int
	CodeComplete   bool
	ResendIn       int
	Succeeded      bool
	SuccessPath    string
	SuccessDelayMS int64
	SuccessDelayS  int
}

// SuccessPageData contains data for the confirmation page
type SuccessPageData struct {
	PageData
	Email string
}

// ErrorPageData contains data for error pages
type ErrorPageData struct {
	PageData
	Message     string
	Detail      string
	ActionURL   string
	ActionLabel string
}

// Templates holds all parsed templates
type Templates struct {
	register *template.Template
	verify   *template.Template
	success  *template.Template
	errPage  *template.Template
}

var funcs = template.FuncMap{
	"slot": func(i int) string { return fmt.Sprintf("otp-%d", i) },
}

func parse(name string, pages ...string) (*template.Template, error) {
	return template.New(name).Funcs(funcs).Parse(layoutTemplate + strings.Join(pages, ""))
}

// newTemplates creates and parses all templates
func newTemplates() (*Templates, error) {
	t := &Templates{}
	var err error

	if t.register, err = parse("register", registerTemplate); err != nil {
		return nil, err
	}
	if t.verify, err = parse("verify", verifyTemplate); err != nil {
		return nil, err
	}
	if t.success, err = parse("success", successTemplate); err != nil {
		return nil, err
	}
	if t.errPage, err = parse("error", errorTemplate); err != nil {
		return nil, err
	}
	return t, nil
}

// render executes tmpl into a buffer first so a template error never leaves
// a half-written page.
func (p *Portal) render(w http.ResponseWriter, tmpl *template.Template, data interface{}, status int) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	p.setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// setSecurityHeaders sets the page security headers. Development mode allows
// inline scripts for local tooling.
func (p *Portal) setSecurityHeaders(w http.ResponseWriter) {
	scriptSrc := "'self' https://www.google.com https://www.gstatic.com"
	if p.config.Server.Development {
		scriptSrc += " 'unsafe-inline'"
	}
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src " + scriptSrc,
		"frame-src https://www.google.com https://recaptcha.google.com",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: https://www.gstatic.com",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
	}, "; ")

	h := w.Header()
	h.Set("Content-Security-Policy", csp)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

func (p *Portal) buildPageData(title string, notices []flow.Notice) PageData {
	return PageData{
		ServiceName:        p.config.Service.Name,
		ServiceDescription: p.config.Service.Description,
		Title:              title,
		Notices:            notices,
		AssetVersion:       assets.Version(),
	}
}

var inputs = []struct {
	field form.Field
	label string
	typ   string
}{
	{form.FieldName, "Name", "text"},
	{form.FieldUnivRoll, "University Roll no.", "text"},
	{form.FieldStudentNumber, "Student Number", "tel"},
	{form.FieldEmail, "College Email Id", "email"},
	{form.FieldMobile, "Mobile No", "tel"},
}

func fieldData(d *form.Draft, f form.Field, label, typ string) FieldData {
	return FieldData{
		Name:  string(f),
		Label: label,
		Type:  typ,
		Value: d.Get(f),
		Error: d.Error(f),
	}
}

func (p *Portal) buildFields(d *form.Draft) map[string]FieldData {
	fields := make(map[string]FieldData, len(inputs))
	for _, in := range inputs {
		fields[string(in.field)] = fieldData(d, in.field, in.label, in.typ)
	}
	return fields
}

func (p *Portal) buildSelects(d *form.Draft) map[string]SelectData {
	sel := func(f form.Field, label, placeholder string, opts []form.Option) SelectData {
		return SelectData{
			FieldData:   fieldData(d, f, label, "select"),
			Placeholder: placeholder,
			Options:     opts,
		}
	}
	return map[string]SelectData{
		string(form.FieldBranch):      sel(form.FieldBranch, "Branch", "Select Branch", p.options.Branches),
		string(form.FieldDomain):      sel(form.FieldDomain, "Domain", "Select Domain", p.options.Domains),
		string(form.FieldGender):      sel(form.FieldGender, "Gender", "Select Gender", p.options.Genders),
		string(form.FieldScholarType): sel(form.FieldScholarType, "Scholar", "Select Scholar Type", p.options.ScholarTypes),
	}
}
