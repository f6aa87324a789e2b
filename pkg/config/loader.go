// Package config resolves cmd/sf-mcp-server's startup configuration
// from CLI flags and environment variables, in priority order CLI flag
// > environment variable > default (§6.1).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Environment variable names for the fallback chain (§6.1).
const (
	EnvTransport      = "MCP_TRANSPORT"
	EnvHTTPPort       = "MCP_HTTP_PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFile        = "MCP_LOG_FILE"
	EnvWorkspacePaths = "WORKSPACE_FOLDER_PATHS"
)

// RegisterFlags adds the server's startup flags to fs with their
// defaults. Call Load after fs.Parse to resolve the final configuration.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("transport", string(TransportStdio), "transport to serve on: stdio or http")
	fs.Int("port", DefaultPort, "HTTP transport port (ignored for stdio transport)")
	fs.String("log-level", DefaultLogLevel, "minimum log severity: emergency, alert, critical, error, warning, notice, info, debug")
	fs.String("log-file", "", "path to write rotated log files to (HTTP transport only; stdio always logs to stderr)")
	fs.String("workspace", "", "comma-separated workspace folder paths; the first entry wins")
}

// Load resolves a ServerConfig from fs (already parsed) and the
// environment. A flag the caller set explicitly on the command line
// always wins; otherwise the matching environment variable is used;
// otherwise the flag's registered default applies.
func Load(fs *pflag.FlagSet, lookupEnv func(string) (string, bool)) (*ServerConfig, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	transport, err := fs.GetString("transport")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !fs.Changed("transport") {
		if v, ok := lookupEnv(EnvTransport); ok && v != "" {
			transport = v
		}
	}

	port, err := fs.GetInt("port")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !fs.Changed("port") {
		if v, ok := lookupEnv(EnvHTTPPort); ok && v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("config: %s=%q is not a valid port: %w", EnvHTTPPort, v, err)
			}
			port = p
		}
	}

	logLevel, err := fs.GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !fs.Changed("log-level") {
		if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
			logLevel = v
		}
	}

	logFile, err := fs.GetString("log-file")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !fs.Changed("log-file") {
		if v, ok := lookupEnv(EnvLogFile); ok && v != "" {
			logFile = v
		}
	}

	workspace, err := fs.GetString("workspace")
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !fs.Changed("workspace") {
		if v, ok := lookupEnv(EnvWorkspacePaths); ok && v != "" {
			workspace = v
		}
	}

	cfg := &ServerConfig{
		Transport:      Transport(strings.ToLower(transport)),
		Port:           port,
		LogLevel:       strings.ToLower(logLevel),
		LogFile:        logFile,
		WorkspacePaths: splitWorkspacePaths(workspace),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitWorkspacePaths splits WORKSPACE_FOLDER_PATHS-shaped input on
// commas, trimming whitespace and dropping empty entries.
func splitWorkspacePaths(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
