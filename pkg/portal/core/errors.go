package core

import (
	"net/http"
	"strings"
)

func (p *Portal) renderError(w http.ResponseWriter, status int, title, message, detail string) {
	data := ErrorPageData{
		PageData:    p.buildPageData(title, nil),
		Message:     message,
		Detail:      detail,
		ActionURL:   "/",
		ActionLabel: "Back to Home",
	}
	if err := p.render(w, p.templates.errPage, data, status); err != nil {
		p.logger.Error("Failed to render error page", "status", status, "error", err)
	}
}

func (p *Portal) handle400(w http.ResponseWriter, r *http.Request, detail string) {
	p.renderError(w, http.StatusBadRequest, "Bad Request", "Bad Request", detail)
}

func (p *Portal) handle404(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, http.StatusNotFound, "Not Found", "Page not found", "The page you requested does not exist.")
}

func (p *Portal) handle405(w http.ResponseWriter, r *http.Request, allow []string) {
	w.Header().Set("Allow", strings.Join(allow, ", "))
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}

// handle500 logs err and shows a generic error page. Internal details never
// reach the visitor.
func (p *Portal) handle500(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	p.renderError(w, http.StatusInternalServerError, "Server Error", "Something went wrong", "Please try again in a moment.")
}
