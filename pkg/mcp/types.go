// Package mcp implements the server side of the Model Context Protocol:
// wire types, the stdio and streamable-HTTP transports, HTTP sessions,
// the resource store, and the tool dispatcher and registry.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/jsonrpc"
)

// Transport selects which framing the server listens on at startup.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// JSON-RPC 2.0 types, re-exported from pkg/jsonrpc.
type Request = jsonrpc.Request
type Response = jsonrpc.Response
type Error = jsonrpc.Error

const (
	ParseError     = jsonrpc.ParseError
	InvalidRequest = jsonrpc.InvalidRequest
	MethodNotFound = jsonrpc.MethodNotFound
	InvalidParams  = jsonrpc.InvalidParams
	InternalError  = jsonrpc.InternalError
)

// NewErrorResponse creates a JSON-RPC error response.
var NewErrorResponse = jsonrpc.NewErrorResponse

// NewSuccessResponse creates a JSON-RPC success response.
var NewSuccessResponse = jsonrpc.NewSuccessResponse

// MCPProtocolVersion is the protocol version this server speaks.
const MCPProtocolVersion = "2024-11-05"

// Timeouts named in spec §5.
const (
	ListRootsTimeout     = 4 * time.Second
	WorkspaceWaitTimeout = 5 * time.Second
	OrgWatchDebounce     = 5 * time.Second
	TempFileRetention    = 7 * 24 * time.Hour
	APICacheSweepPeriod  = time.Hour
)

// MaxRequestBodySize is the maximum accepted size for an incoming
// JSON-RPC request body on the HTTP transport (§4.1).
const MaxRequestBodySize = 1 * 1024 * 1024

// ServerInfo identifies this server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientInfo identifies the connecting MCP client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities describes what a peer (client or server) supports.
// Tools/Resources/Prompts/Logging are server capabilities; Roots/
// Sampling/Elicitation are client capabilities the server queries by
// name per §3 Client Descriptor.
type Capabilities struct {
	Tools        *ToolsCapability       `json:"tools,omitempty"`
	Resources    *ResourcesCapability   `json:"resources,omitempty"`
	Prompts      *PromptsCapability     `json:"prompts,omitempty"`
	Logging      *LoggingCapability     `json:"logging,omitempty"`
	Roots        *RootsCapability       `json:"roots,omitempty"`
	Sampling     *SamplingCapability    `json:"sampling,omitempty"`
	Elicitation  *ElicitationCapability `json:"elicitation,omitempty"`
	ResourceLink *ResourceLinkSupport   `json:"-"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type LoggingCapability struct{}

type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type SamplingCapability struct{}

type ElicitationCapability struct{}

// ResourceLinkSupport is not part of the wire capabilities object, and
// nothing in this module sets it: Capabilities.ResourceLink stays nil
// whatever the client declares. Kept as a separate marker
// because the spec (§4.5) treats resource_link support and resources
// support as two independently-checked client abilities.
type ResourceLinkSupport struct {
	Supported bool
}

// InitializeParams is the initialize request body.
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// InitializeResult is the initialize response body.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ToolAnnotations carries the behavioral hints §3/§4.4 dispatch on.
type ToolAnnotations struct {
	ReadOnlyHint    bool `json:"readOnlyHint,omitempty"`
	DestructiveHint bool `json:"destructiveHint,omitempty"`
	IdempotentHint  bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool `json:"openWorldHint,omitempty"`
}

// Tool is a static tool contract (§3, §6.4).
type Tool struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Annotations ToolAnnotations `json:"annotations,omitempty"`
}

// InputSchemaObject is a helper for building JSON Schema input schemas
// for the static tool table without hand-writing raw JSON.
type InputSchemaObject struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single property in an input schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// MustSchema marshals an InputSchemaObject to json.RawMessage, panicking
// on failure since every call site uses a compile-time-constant shape.
func MustSchema(obj InputSchemaObject) json.RawMessage {
	b, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	return b
}

// ToolsListResult is the tools/list response.
type ToolsListResult struct {
	Tools      []Tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// ToolCallParams is the tools/call request body.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the tools/call response. The dual-shape invariant
// (§4.4, §8) requires Content to be a non-empty array and
// StructuredContent to always be an object, never absent/null/array.
type ToolCallResult struct {
	Content           []Content      `json:"content"`
	StructuredContent map[string]any `json:"structuredContent"`
	IsError           bool           `json:"isError,omitempty"`
}

// Content is one item of a tool result's human-readable content array.
// Type is one of "text", "resource_link", or "resource" (§4.5).
type Content struct {
	Type        string           `json:"type"`
	Text        string           `json:"text,omitempty"`
	URI         string           `json:"uri,omitempty"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	MimeType    string           `json:"mimeType,omitempty"`
	Resource    *ResourceContent `json:"resource,omitempty"`
}

// ResourceContent is the embedded-resource payload for a "resource"
// content item (as opposed to a "resource_link" reference).
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// NewTextContent creates a text content item.
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// NewResourceLinkContent creates a resource_link content item.
func NewResourceLinkContent(res Resource) Content {
	return Content{
		Type:        "resource_link",
		URI:         res.URI,
		Name:        res.Name,
		Description: res.Description,
		MimeType:    res.MimeType,
	}
}

// NewResourceContent creates an embedded resource content item.
func NewResourceContent(res Resource) Content {
	return Content{
		Type: "resource",
		Resource: &ResourceContent{
			URI:      res.URI,
			MimeType: res.MimeType,
			Text:     res.Text,
		},
	}
}

// ResourceAnnotations carries optional resource metadata (§3).
type ResourceAnnotations struct {
	LastModified time.Time `json:"lastModified"`
	Audience     []string  `json:"audience,omitempty"`
}

// Resource is a named, cacheable artifact the client can read (§3, §4.5).
type Resource struct {
	URI         string              `json:"uri"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	MimeType    string              `json:"mimeType,omitempty"`
	Text        string              `json:"text"`
	Annotations ResourceAnnotations `json:"annotations"`
}

// ResourcesListResult is the resources/list response.
type ResourcesListResult struct {
	Resources []Resource `json:"resources"`
}

// ResourcesReadParams is the resources/read request body.
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourcesReadResult is the resources/read response.
type ResourcesReadResult struct {
	Contents []ResourceContent `json:"contents"`
}

// Prompt is a named, parameterized message template (§6.2).
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one substitution variable a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptsListResult is the prompts/list response.
type PromptsListResult struct {
	Prompts []Prompt `json:"prompts"`
}

// PromptsGetParams is the prompts/get request body.
type PromptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessage is one message in a rendered prompt.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// PromptsGetResult is the prompts/get response.
type PromptsGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// LoggingSetLevelParams is the logging/setLevel request body.
type LoggingSetLevelParams struct {
	Level string `json:"level"`
}

// LogMessageParams is the notifications/message payload the server
// emits for server-side log records the client's logging capability
// requested.
type LogMessageParams struct {
	Level  string `json:"level"`
	Logger string `json:"logger,omitempty"`
	Data   any    `json:"data"`
}

// ProgressParams is the notifications/progress payload.
type ProgressParams struct {
	ProgressToken any     `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// ElicitRequestParams is the server-initiated elicitation/create request
// used before destructive tool invocations (§4.4) when the client
// advertises the elicitation capability.
type ElicitRequestParams struct {
	Message         string         `json:"message"`
	RequestedSchema map[string]any `json:"requestedSchema"`
}

// ElicitResult is the client's response to an elicitation request.
type ElicitResult struct {
	Action  string         `json:"action"` // "accept", "decline", "cancel"
	Content map[string]any `json:"content,omitempty"`
}

// ListRootsResult is the client's response to a server-initiated
// roots/list request (§4.2 Phase 2).
type ListRootsResult struct {
	Roots []Root `json:"roots"`
}

// Root is one filesystem scope the client exposes to the server.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}
