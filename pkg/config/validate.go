package config

import (
	"fmt"
	"strings"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/logging"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid configuration:\n  - " + strings.Join(msgs, "\n  - ")
}

// Validate checks a resolved ServerConfig for errors.
func Validate(c *ServerConfig) error {
	var errs ValidationErrors

	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, ValidationError{"transport", "must be 'stdio' or 'http'"})
	}

	// Port only matters to the HTTP transport, which probes upward from
	// it if busy (§6.3); stdio ignores it entirely.
	if c.Transport == TransportHTTP {
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, ValidationError{"port", "must be between 1 and 65535"})
		}
	}

	if !logging.ValidMCPLevel(c.LogLevel) {
		errs = append(errs, ValidationError{"log-level", "must be one of emergency, alert, critical, error, warning, notice, info, debug"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
