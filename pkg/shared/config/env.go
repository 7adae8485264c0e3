// Package config holds helpers shared by every configuration loader:
// environment variable expansion and masking for display.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

type envRef struct {
	name       string
	def        string
	hasDefault bool
}

func parseRef(match string) (envRef, bool) {
	parts := envVarPattern.FindStringSubmatch(match)
	if len(parts) < 2 {
		return envRef{}, false
	}
	ref := envRef{name: parts[1]}
	if len(parts) >= 4 && parts[2] != "" {
		ref.hasDefault = true
		ref.def = parts[3]
	}
	return ref, true
}

// ExpandEnv replaces ${VAR} and ${VAR:-default} references with values from the
// environment. An unset or empty variable falls back to its default, or to "".
//
//	api_url: "${API_URL:-http://mlcoe.live/api/v1}"
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		ref, ok := parseRef(match)
		if !ok {
			return match
		}
		if value := os.Getenv(ref.name); value != "" {
			return value
		}
		return ref.def
	})
}

// ExpandEnvBytes is ExpandEnv for file contents prior to YAML/JSON decoding.
func ExpandEnvBytes(input []byte) []byte {
	return []byte(ExpandEnv(string(input)))
}

// MissingEnvVars lists referenced variables that have no default and are unset.
func MissingEnvVars(input string) []string {
	seen := make(map[string]bool)
	missing := make([]string, 0)

	for _, match := range envVarPattern.FindAllString(input, -1) {
		ref, ok := parseRef(match)
		if !ok || ref.hasDefault || seen[ref.name] {
			continue
		}
		seen[ref.name] = true
		if os.Getenv(ref.name) == "" {
			missing = append(missing, ref.name)
		}
	}

	return missing
}

// ExpandEnvForDisplay expands like ExpandEnv but masks values of variables
// whose names look like credentials ("SMTP_PASSWORD" becomes "***").
func ExpandEnvForDisplay(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		ref, ok := parseRef(match)
		if !ok {
			return match
		}
		if value := os.Getenv(ref.name); value != "" {
			if IsSensitiveName(ref.name) {
				return "***"
			}
			return value
		}
		return ref.def
	})
}

var sensitiveKeywords = []string{
	"password", "secret", "token", "apikey", "api_key", "credential", "private",
}

// IsSensitiveName reports whether a variable or field name suggests a secret.
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
