package core

import (
	"net/http"

	"github.com/mlcoe/turingreg/pkg/portal/assets"
)

// handleMainCSS serves the embedded stylesheet
func (p *Portal) handleMainCSS(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "text/css; charset=utf-8", assets.MainCSS())
}

// handlePortalJS serves the embedded script
func (p *Portal) handlePortalJS(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "text/javascript; charset=utf-8", assets.PortalJS())
}

func serveAsset(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000") // URLs carry a content hash
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
