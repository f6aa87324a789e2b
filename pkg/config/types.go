package config

// Transport selects which MCP wire framing the server listens on at
// startup (§6.1).
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Defaults for flags left unset on both the command line and the
// environment (§6.1).
const (
	DefaultPort     = 3000
	DefaultLogLevel = "info"
)

// ServerConfig is the fully-resolved startup configuration for
// cmd/sf-mcp-server, built from CLI flags with environment-variable
// fallbacks in priority order CLI > env > default.
type ServerConfig struct {
	Transport      Transport
	Port           int
	LogLevel       string
	LogFile        string
	WorkspacePaths []string
}

// PrimaryWorkspace returns the first configured workspace path, or ""
// if none was configured. The initialization state machine falls back
// to roots/list and then cwd when this is empty (§4.2 Phase 2).
func (c *ServerConfig) PrimaryWorkspace() string {
	if len(c.WorkspacePaths) == 0 {
		return ""
	}
	return c.WorkspacePaths[0]
}
