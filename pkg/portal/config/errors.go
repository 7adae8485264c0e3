package config

import "errors"

var (
	// ErrServiceNameRequired is returned when service name is not provided
	ErrServiceNameRequired = errors.New("service name is required")

	// ErrInvalidPort is returned when server port is out of range
	ErrInvalidPort = errors.New("server port must be between 0 and 65535")

	// ErrAPIURLRequired is returned when no backend URL is available
	ErrAPIURLRequired = errors.New("backend api_url is required")

	// ErrInvalidAPIURL is returned when the backend URL is not http(s)
	ErrInvalidAPIURL = errors.New("backend api_url must start with http:// or https://")

	// ErrSiteKeyRequired is returned when the captcha is enabled without a site key
	ErrSiteKeyRequired = errors.New("captcha site_key is required unless captcha is disabled")

	// ErrInvalidRateLimit is returned for a negative submit limit
	ErrInvalidRateLimit = errors.New("ratelimit submit_per_minute must not be negative")

	// ErrLogFilePathRequired is returned when file logging has no path
	ErrLogFilePathRequired = errors.New("logging.file.path is required when file logging is configured")

	// ErrConfigFileNotFound is returned when config file is not found
	ErrConfigFileNotFound = errors.New("configuration file not found")
)
