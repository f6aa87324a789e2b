package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
)

// requester is the subset of transport behavior the elicitation and
// roots adapters need: issue a server-initiated request and block for
// its reply. Both StdioTransport.SendRequest and HTTPTransport's
// per-session SendRequest (wrapped by httpRequester below) satisfy it.
type requester interface {
	SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// httpRequester binds HTTPTransport.SendRequest, which also needs a
// session id, to the requester shape the adapters expect.
type httpRequester struct {
	transport *mcp.HTTPTransport
	sessionID string
}

func (r httpRequester) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return r.transport.SendRequest(ctx, r.sessionID, method, params)
}

// requesterHolder lets the router swap in the requester bound to
// whichever session most recently completed initialize, since the
// server-wide initialization state machine runs once against the
// single active client regardless of transport.
type requesterHolder struct {
	mu sync.RWMutex
	r  requester
}

func (h *requesterHolder) set(r requester) {
	h.mu.Lock()
	h.r = r
	h.mu.Unlock()
}

func (h *requesterHolder) get() requester {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.r
}

// rootsAdapter implements initialize.RootsLister over whatever
// transport/session the holder currently points at.
type rootsAdapter struct {
	holder *requesterHolder
}

func (a *rootsAdapter) ListRoots(ctx context.Context) ([]string, error) {
	r := a.holder.get()
	if r == nil {
		return nil, fmt.Errorf("no connected client to query roots from")
	}
	raw, err := r.SendRequest(ctx, "roots/list", nil)
	if err != nil {
		return nil, err
	}
	var result mcp.ListRootsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding roots/list result: %w", err)
	}
	uris := make([]string, len(result.Roots))
	for i, root := range result.Roots {
		uris[i] = root.URI
	}
	return uris, nil
}

// elicitAdapter implements mcp.Elicitor over whatever transport/session
// the holder currently points at.
type elicitAdapter struct {
	holder *requesterHolder
}

func (a *elicitAdapter) Elicit(ctx context.Context, req mcp.ElicitRequestParams) (bool, error) {
	r := a.holder.get()
	if r == nil {
		return false, fmt.Errorf("no connected client to elicit from")
	}
	raw, err := r.SendRequest(ctx, "elicitation/create", req)
	if err != nil {
		return false, err
	}
	var result mcp.ElicitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return false, fmt.Errorf("decoding elicitation/create result: %w", err)
	}
	return result.Action == "accept", nil
}
