package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/initialize"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/prompts"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

// serverCapabilities is what every initialize response advertises: this
// server always offers tools, resources, prompts, and logging (§4.1,
// §6.2). Roots and elicitation are client capabilities and are not
// listed here.
var serverCapabilities = mcp.Capabilities{
	Tools:     &mcp.ToolsCapability{ListChanged: true},
	Resources: &mcp.ResourcesCapability{ListChanged: true},
	Prompts:   &mcp.PromptsCapability{ListChanged: true},
	Logging:   &mcp.LoggingCapability{},
}

// router wires every JSON-RPC method this server answers to its
// component. One router instance is shared by whichever transport the
// resolved config selects; stdio has exactly one implicit client, HTTP
// may juggle several sessions, but requesters holds only the requester
// of the session that most recently completed initialize.
type router struct {
	serverInfo mcp.ServerInfo
	dispatcher *mcp.Dispatcher
	resources  *mcp.ResourceStore
	prompts    *prompts.Store
	machine    *initialize.Machine
	state      *serverstate.State
	logger     *slog.Logger

	requesters   *requesterHolder
	bindClient   func(ctx context.Context) requester // builds this request's requester; differs per transport
	workspaceEnv string // resolved --workspace/WORKSPACE_FOLDER_PATHS value, passed straight to Phase 2

	bindMu   sync.Mutex
	lastBind *initialize.ClientBindParams // re-used by reidentify when the watcher detects a target-org change

	// runCtx outlives any individual request and is cancelled on
	// shutdown; the state machine's background Run must use it, not a
	// request context that dies when the HTTP response is written.
	runCtx context.Context
}

// handle implements mcp.MessageHandler.
func (rt *router) handle(ctx context.Context, req *mcp.Request) *mcp.Response {
	switch req.Method {
	case "initialize":
		return rt.handleInitialize(ctx, req)
	case "notifications/initialized":
		return nil
	case "notifications/roots/list_changed":
		rt.machine.OnRootsChanged(rt.runCtx)
		return nil
	case "tools/list":
		return successResponse(req.ID, mcp.ToolsListResult{Tools: rt.dispatcher.ListTools()})
	case "tools/call":
		return rt.handleToolsCall(ctx, req)
	case "resources/list":
		return successResponse(req.ID, mcp.ResourcesListResult{Resources: rt.resources.List()})
	case "resources/read":
		return rt.handleResourcesRead(req)
	case "prompts/list":
		return successResponse(req.ID, mcp.PromptsListResult{Prompts: rt.prompts.List()})
	case "prompts/get":
		return rt.handlePromptsGet(req)
	case "logging/setLevel":
		return rt.handleSetLevel(req)
	default:
		if req.ID == nil {
			rt.logger.Debug("ignoring unknown notification", "method", req.Method)
			return nil
		}
		return errorResponse(req.ID, mcp.MethodNotFound, "unknown method "+req.Method)
	}
}

func (rt *router) handleInitialize(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.InitializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, mcp.InvalidParams, "invalid initialize params: "+err.Error())
	}

	rt.dispatcher.SetElicitor(&elicitAdapter{holder: rt.requesters}, params.Capabilities.Elicitation != nil)
	rt.requesters.set(rt.bindClient(ctx))

	result := mcp.InitializeResult{
		ProtocolVersion: mcp.MCPProtocolVersion,
		ServerInfo:      rt.serverInfo,
		Capabilities:    serverCapabilities,
	}

	bind := initialize.ClientBindParams{
		ClientName:    params.ClientInfo.Name,
		ClientVersion: params.ClientInfo.Version,
		WorkspaceEnv:  rt.workspaceEnv,
	}
	rt.bindMu.Lock()
	rt.lastBind = &bind
	rt.bindMu.Unlock()

	go func() {
		if err := rt.machine.Run(rt.runCtx, bind); err != nil {
			rt.logger.Error("initialization sequence failed", "error", err)
		}
	}()

	return successResponse(req.ID, result)
}

// reidentify re-runs the state machine against the last bound client
// after the org watcher observes a target-org change (§4.6): phase 1/2
// are idempotent no-ops once handshake/workspace are already set, so
// this effectively re-runs phase 3 (org identity) through phase 5.
func (rt *router) reidentify(ctx context.Context) {
	rt.bindMu.Lock()
	bind := rt.lastBind
	rt.bindMu.Unlock()
	if bind == nil {
		return
	}
	if err := rt.machine.Run(ctx, *bind); err != nil {
		rt.logger.Error("re-identification after org change failed", "error", err)
	}
}

func (rt *router) handleToolsCall(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, mcp.InvalidParams, "invalid tools/call params: "+err.Error())
	}

	result, err := rt.dispatcher.Dispatch(ctx, params)
	if err != nil {
		return errorResponse(req.ID, jsonrpcCodeFor(sferrors.KindOf(err)), err.Error())
	}
	return successResponse(req.ID, result)
}

func (rt *router) handleResourcesRead(req *mcp.Request) *mcp.Response {
	var params mcp.ResourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, mcp.InvalidParams, "invalid resources/read params: "+err.Error())
	}
	res, ok := rt.resources.Get(params.URI)
	if !ok {
		return errorResponse(req.ID, mcp.InvalidParams, "unknown resource "+params.URI)
	}
	return successResponse(req.ID, mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{{URI: res.URI, MimeType: res.MimeType, Text: res.Text}},
	})
}

func (rt *router) handlePromptsGet(req *mcp.Request) *mcp.Response {
	var params mcp.PromptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, mcp.InvalidParams, "invalid prompts/get params: "+err.Error())
	}
	result, err := rt.prompts.Get(params)
	if err != nil {
		return errorResponse(req.ID, jsonrpcCodeFor(sferrors.KindOf(err)), err.Error())
	}
	return successResponse(req.ID, result)
}

func (rt *router) handleSetLevel(req *mcp.Request) *mcp.Response {
	var params mcp.LoggingSetLevelParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, mcp.InvalidParams, "invalid logging/setLevel params: "+err.Error())
	}
	rt.state.SetLogLevel(params.Level)
	return successResponse(req.ID, map[string]any{})
}

func successResponse(id *json.RawMessage, result any) *mcp.Response {
	resp := mcp.NewSuccessResponse(id, result)
	return &resp
}

func errorResponse(id *json.RawMessage, code int, message string) *mcp.Response {
	resp := mcp.NewErrorResponse(id, code, message)
	return &resp
}

// jsonrpcCodeFor maps a protocol-level (not tool-level) failure kind to
// a JSON-RPC error code. Tool execution failures never reach here: the
// dispatcher reports those as isError on a normal success envelope.
func jsonrpcCodeFor(kind sferrors.Kind) int {
	switch kind {
	case sferrors.KindValidation:
		return mcp.InvalidParams
	case sferrors.KindNotInitialized, sferrors.KindCancelled, sferrors.KindAuth:
		return mcp.InvalidRequest
	default:
		return mcp.InternalError
	}
}
