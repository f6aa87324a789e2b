package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(handler MessageHandler) *HTTPTransport {
	return NewHTTPTransport(handler, nil, ServerInfo{Name: "sf-mcp-server", Version: "test"}, nil)
}

func TestHandlePostInitializeAssignsSessionID(t *testing.T) {
	handler := func(ctx context.Context, req *Request) *Response {
		resp := NewSuccessResponse(req.ID, InitializeResult{ProtocolVersion: MCPProtocolVersion})
		return &resp
	}
	tr := newTestTransport(handler)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(SessionIDHeader)
	assert.NotEmpty(t, sessionID)
	assert.NotNil(t, tr.sessions.Get(sessionID))
}

func TestHandlePostUnknownSessionRejected(t *testing.T) {
	handler := func(ctx context.Context, req *Request) *Response {
		resp := NewSuccessResponse(req.ID, nil)
		return &resp
	}
	tr := newTestTransport(handler)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set(SessionIDHeader, "bogus-session")
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
}

func TestHandlePostMissingSessionIDRejected(t *testing.T) {
	handler := func(ctx context.Context, req *Request) *Response {
		resp := NewSuccessResponse(req.ID, nil)
		return &resp
	}
	tr := newTestTransport(handler)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
}

func TestHandleSSEMissingSessionIDRejected(t *testing.T) {
	tr := newTestTransport(func(ctx context.Context, req *Request) *Response { return nil })

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSSEUnknownSessionRejected(t *testing.T) {
	tr := newTestTransport(func(ctx context.Context, req *Request) *Response { return nil })

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set(SessionIDHeader, "bogus-session")
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePostInvalidJSON(t *testing.T) {
	tr := newTestTransport(func(ctx context.Context, req *Request) *Response { return nil })

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ParseError, resp.Error.Code)
}

func TestHandleDeleteRemovesSession(t *testing.T) {
	handler := func(ctx context.Context, req *Request) *Response {
		resp := NewSuccessResponse(req.ID, nil)
		return &resp
	}
	tr := newTestTransport(handler)
	session := tr.sessions.Create(TransportHTTP, ClientInfo{})

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set(SessionIDHeader, session.ID)
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, tr.sessions.Get(session.ID))
}

func TestHandleHealthz(t *testing.T) {
	tr := newTestTransport(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatusIncludesUptimeAndSessions(t *testing.T) {
	tr := newTestTransport(nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	tr.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "uptime")
	assert.Contains(t, body, "sessions")
}
