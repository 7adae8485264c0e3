package server

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mlcoe/turingreg/pkg/portal/config"
)

// TestFormatConfigError tests the formatConfigError function
func TestFormatConfigError(t *testing.T) {
	tests := []struct {
		name          string
		component     string
		inputError    error
		checkContains []string
	}{
		{
			name:      "ValidationError with multiple errors",
			component: "portal",
			inputError: &config.ValidationError{
				Errors: []error{
					config.ErrServiceNameRequired,
					config.ErrSiteKeyRequired,
				},
			},
			checkContains: []string{
				"Configuration validation failed for portal with 2 error(s)",
				"1. service name is required",
				"2. captcha site_key is required",
				"Please fix the errors above",
			},
		},
		{
			name:      "ValidationError with a single error",
			component: "portal",
			inputError: &config.ValidationError{
				Errors: []error{config.ErrInvalidRateLimit},
			},
			checkContains: []string{
				"configuration validation error in portal",
				"submit_per_minute must not be negative",
			},
		},
		{
			name:       "ErrServiceNameRequired",
			component:  "portal",
			inputError: config.ErrServiceNameRequired,
			checkContains: []string{
				"configuration validation error in portal",
				"service name is required",
				"please check your configuration file",
			},
		},
		{
			name:       "ErrInvalidAPIURL wrapped",
			component:  "portal",
			inputError: fmt.Errorf("%w: ftp://example.com", config.ErrInvalidAPIURL),
			checkContains: []string{
				"configuration validation error in portal",
				"must start with http:// or https://",
			},
		},
		{
			name:       "ErrConfigFileNotFound",
			component:  "portal",
			inputError: fmt.Errorf("%w: missing.yaml", config.ErrConfigFileNotFound),
			checkContains: []string{
				"configuration file not found",
				"please create a configuration file",
			},
		},
		{
			name:       "generic error",
			component:  "portal",
			inputError: errors.New("boom"),
			checkContains: []string{
				"failed to initialize portal",
				"boom",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := formatConfigError(tt.component, tt.inputError)
			if err == nil {
				t.Fatal("formatConfigError() returned nil")
			}
			for _, want := range tt.checkContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("formatConfigError() = %q, want it to contain %q", err.Error(), want)
				}
			}
		})
	}
}
