package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// toolNamePattern is the name shape every registered tool must satisfy
// (§3 Tool Contract): a letter followed by letters, digits, or underscores.
var toolNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ToolHandler executes a tool call and returns its dual-shape result.
// Handlers receive the raw arguments map; schema validation beyond JSON
// decoding is the handler's responsibility.
type ToolHandler func(ctx context.Context, args map[string]any) (*ToolCallResult, error)

// ToolEntry binds a static contract to its handler.
type ToolEntry struct {
	Tool    Tool
	Handler ToolHandler
	// SkipGating exempts a tool from the initialization/permission
	// gate in Dispatch. Only salesforceContextUtils sets it (§4.4).
	SkipGating bool
}

// Registry is the static tool-contract table the dispatcher consults.
// Tools are registered at startup and never removed; reads and writes
// are guarded by an RWMutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]ToolEntry
	order   []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]ToolEntry)}
}

// Register adds a tool entry. It panics on a malformed name or a
// duplicate registration, since both indicate a programming error in
// the tool table rather than a runtime condition.
func (r *Registry) Register(entry ToolEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !toolNamePattern.MatchString(entry.Tool.Name) {
		panic(fmt.Sprintf("mcp: invalid tool name %q", entry.Tool.Name))
	}
	if _, exists := r.entries[entry.Tool.Name]; exists {
		panic(fmt.Sprintf("mcp: duplicate tool registration %q", entry.Tool.Name))
	}
	r.entries[entry.Tool.Name] = entry
	r.order = append(r.order, entry.Tool.Name)
}

// List returns the tool contracts in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Tool)
	}
	return out
}

// Lookup retrieves a tool entry by name.
func (r *Registry) Lookup(name string) (ToolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Elicitor requests confirmation from the client before a destructive
// tool call runs, when the client's capabilities advertised elicitation
// support. Returns false if the client declines or the request fails.
type Elicitor interface {
	Elicit(ctx context.Context, req ElicitRequestParams) (bool, error)
}

// Dispatcher wires the static registry to server state and enforces the
// initialization and permission gates, destructive-tool elicitation, and
// dual-shape result normalization described in §4.4. It does not
// sanitize handler results.
type Dispatcher struct {
	registry             *Registry
	state                *serverstate.State
	logger               *slog.Logger
	elicitor             Elicitor
	clientElicits        bool
	tracer               trace.Tracer
	bypassPermissionGate bool
}

// NewDispatcher creates a dispatcher over the given registry and state.
func NewDispatcher(registry *Registry, state *serverstate.State, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, state: state, logger: logger, tracer: noop.NewTracerProvider().Tracer("mcp")}
}

// SetBypassPermissionGate mirrors initialize.Options.BypassPermissionCheck
// (§4.2 Phase 4): when set, Dispatch no longer requires
// state.UserPermissionsValidated() in addition to InitializationComplete.
// Phase 5 always sets initializationComplete regardless of Phase 4's
// outcome, so without this gate a denied permission check would have no
// effect on tool calls at all.
func (d *Dispatcher) SetBypassPermissionGate(bypass bool) {
	d.bypassPermissionGate = bypass
}

// SetTracer installs the tracer each Dispatch call starts a span against.
func (d *Dispatcher) SetTracer(tracer trace.Tracer) {
	if tracer == nil {
		return
	}
	d.tracer = tracer
}

// SetElicitor installs the elicitation callback and records whether the
// connected client declared the elicitation capability. Call once during
// initialize handling.
func (d *Dispatcher) SetElicitor(e Elicitor, clientSupports bool) {
	d.elicitor = e
	d.clientElicits = clientSupports
}

// ListTools returns the static tool table, independent of initialization
// state: tools/list is always answerable so a client can show its user
// what the server offers before the handshake completes.
func (d *Dispatcher) ListTools() []Tool {
	return d.registry.List()
}

// Dispatch executes a tools/call request end to end: gate check,
// optional elicitation, handler invocation, error normalization.
func (d *Dispatcher) Dispatch(ctx context.Context, params ToolCallParams) (result *ToolCallResult, err error) {
	ctx, span := d.tracer.Start(ctx, "mcp.Dispatch", trace.WithAttributes(attribute.String("mcp.tool", params.Name)))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else if result != nil && result.IsError {
			span.SetStatus(codes.Error, "tool returned isError")
		}
		span.End()
	}()

	entry, ok := d.registry.Lookup(params.Name)
	if !ok {
		return nil, sferrors.Newf(sferrors.KindValidation, "unknown tool %q", params.Name)
	}

	if !entry.SkipGating && !d.state.InitializationComplete() {
		return nil, sferrors.New(sferrors.KindNotInitialized, "server initialization has not completed")
	}
	if !entry.SkipGating && !d.bypassPermissionGate && !d.state.UserPermissionsValidated() {
		return nil, sferrors.New(sferrors.KindAuth, "user lacks the required Salesforce_MCP_Server_Access permission set")
	}

	if entry.Tool.Annotations.DestructiveHint && d.clientElicits && d.elicitor != nil {
		confirmed, err := d.elicitor.Elicit(ctx, ElicitRequestParams{
			Message: fmt.Sprintf("Confirm running destructive tool %q?", entry.Tool.Name),
			RequestedSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"confirm": map[string]any{"type": "boolean"}},
			},
		})
		if err != nil {
			return nil, sferrors.Wrap(sferrors.KindInternal, err, "elicitation request failed")
		}
		if !confirmed {
			return toolErrorResult(sferrors.New(sferrors.KindCancelled, "user declined to confirm destructive tool call")), nil
		}
	}

	result, err = entry.Handler(ctx, params.Arguments)
	if err != nil {
		d.logger.Error("tool call failed", "tool", params.Name, "error", err)
		return toolErrorResult(err), nil
	}

	if result.StructuredContent == nil {
		result.StructuredContent = map[string]any{}
	}
	if len(result.Content) == 0 {
		result.Content = []Content{NewTextContent("")}
	}
	return result, nil
}

// toolErrorResult renders a Go error as a tool-level error result (§4.4):
// tool failures are reported via isError on a normal tools/call response,
// not as a JSON-RPC protocol-level error, so the client's agent loop can
// see and react to them.
func toolErrorResult(err error) *ToolCallResult {
	kind := sferrors.KindOf(err)
	return &ToolCallResult{
		Content:           []Content{NewTextContent(err.Error())},
		StructuredContent: map[string]any{"errorKind": kind.String()},
		IsError:           true,
	}
}

// DecodeArgs unmarshals a tool's raw JSON-RPC params into a typed struct,
// wrapping decode failures as a validation error.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(args)
	if err != nil {
		return out, sferrors.Wrap(sferrors.KindValidation, err, "encoding tool arguments")
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, sferrors.Wrap(sferrors.KindValidation, err, "decoding tool arguments")
	}
	return out, nil
}
