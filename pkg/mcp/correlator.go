package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Correlator matches server-initiated requests (elicitation/create,
// roots/list) against the client's eventual response. Both transports
// carry requests in both directions over the same connection, so a
// reply arriving on the read side has to be routed back to whichever
// goroutine is blocked waiting for it rather than passed to the normal
// request handler (§4.2 Phase 2, §4.4).
type Correlator struct {
	mu      sync.Mutex
	nextID  int64
	waiters map[string]chan *Response
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{waiters: make(map[string]chan *Response)}
}

// NewWaiter allocates a request id and registers a channel that will
// receive the matching response.
func (c *Correlator) NewWaiter() (json.RawMessage, chan *Response) {
	key := fmt.Sprintf("srv-%d", atomic.AddInt64(&c.nextID, 1))
	raw, _ := json.Marshal(key)
	ch := make(chan *Response, 1)

	c.mu.Lock()
	c.waiters[key] = ch
	c.mu.Unlock()

	return raw, ch
}

// Resolve delivers resp to its matching waiter, if one is registered.
// Returns false if resp's id does not correspond to any outstanding
// server-initiated request, meaning the caller should treat it as
// something else (most likely a malformed message).
func (c *Correlator) Resolve(resp *Response) bool {
	if resp.ID == nil {
		return false
	}
	var key string
	if err := json.Unmarshal(*resp.ID, &key); err != nil {
		return false
	}

	c.mu.Lock()
	ch, ok := c.waiters[key]
	if ok {
		delete(c.waiters, key)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	ch <- resp
	return true
}

// Cancel removes a waiter without delivering a response, used when a
// server-initiated request times out or its context is cancelled.
func (c *Correlator) Cancel(id json.RawMessage) {
	var key string
	if err := json.Unmarshal(id, &key); err != nil {
		return
	}
	c.mu.Lock()
	delete(c.waiters, key)
	c.mu.Unlock()
}

type sessionIDKey struct{}

// withSessionID attaches the HTTP transport's session id to ctx so a
// handler processing this request can address a server-initiated
// request (elicitation, roots/list) back to the right SSE stream.
func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext retrieves the session id set by withSessionID,
// or "" on the stdio transport (which has exactly one client and needs
// no session addressing).
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// looksLikeResponse reports whether a raw JSON-RPC line is a response
// (no "method" member) rather than a request or notification.
func looksLikeResponse(line []byte) bool {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	return probe.Method == nil
}
