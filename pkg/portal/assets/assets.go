// Package assets embeds the stylesheet and script served by the portal.
package assets

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
)

//go:embed static/main.css
var mainCSS string

//go:embed static/portal.js
var portalJS string

// MainCSS returns the portal stylesheet.
func MainCSS() string { return mainCSS }

// PortalJS returns the browser script driving field checks, the code grid and
// the resend countdown.
func PortalJS() string { return portalJS }

// Version is a short content hash of both assets, appended to asset URLs so
// they can be cached forever.
func Version() string {
	h := sha256.New()
	h.Write([]byte(mainCSS))
	h.Write([]byte(portalJS))
	return hex.EncodeToString(h.Sum(nil))[:12]
}
