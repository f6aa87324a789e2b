package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/output"
)

// SessionIDHeader is the header streamable-HTTP clients and servers use
// to correlate requests to a session (§4.1, §6.3).
const SessionIDHeader = "Mcp-Session-Id"

// maxPortProbeAttempts bounds how many consecutive ports the HTTP
// transport tries before giving up when its preferred port is busy
// (§8 port-busy scenario).
const maxPortProbeAttempts = 10

// pushSession tracks one HTTP client's SSE connection for server-
// initiated notifications (resources/prompts/tools list_changed,
// logging/message, progress) and server-initiated requests
// (elicitation/create, roots/list).
type pushSession struct {
	id        string
	w         http.ResponseWriter
	flusher   http.Flusher
	done      chan struct{}
	messageID atomic.Int64
}

// DashboardSnapshot supplies the dynamic content rendered at GET /.
type DashboardSnapshot struct {
	OrgAlias    string
	OrgUsername string
	Tools       []output.ToolSummary
	Sessions    []output.SessionSummary
}

// HTTPTransport serves the streamable-HTTP MCP transport: a single /mcp
// endpoint for POST (JSON-RPC request/response), GET (open an SSE
// stream for server push), and DELETE (end a session), plus /healthz,
// /status, and / for operational visibility (§4.1, §6.3).
//
// A reply to a server-initiated request (elicitation, roots/list)
// arrives as an ordinary POST to /mcp with no "method" member,
// indistinguishable from any other body except by inspection.
// correlator routes those replies back to the goroutine waiting on
// them instead of into the handler.
type HTTPTransport struct {
	handler    MessageHandler
	logger     *slog.Logger
	serverInfo ServerInfo

	sessions   *SessionManager
	correlator *Correlator

	mu   sync.RWMutex
	push map[string]*pushSession

	startedAt time.Time
	statusFn  func() map[string]any
	readyFn   func() bool
	dashboard func() DashboardSnapshot
}

// NewHTTPTransport creates an HTTP transport. statusFn, if non-nil,
// supplies additional body fields for GET /status (salesforce org
// info, the registered tool/resource lists).
func NewHTTPTransport(handler MessageHandler, logger *slog.Logger, info ServerInfo, statusFn func() map[string]any) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransport{
		handler:    handler,
		logger:     logger,
		serverInfo: info,
		sessions:   NewSessionManager(),
		correlator: NewCorrelator(),
		push:       make(map[string]*pushSession),
		startedAt:  time.Now(),
		statusFn:   statusFn,
	}
}

// SetReadyFn supplies a callback consulted by GET /healthz; when it
// returns false the endpoint reports 503 instead of 200.
func (t *HTTPTransport) SetReadyFn(fn func() bool) {
	t.readyFn = fn
}

// SetDashboardFn supplies the content rendered at GET /.
func (t *HTTPTransport) SetDashboardFn(fn func() DashboardSnapshot) {
	t.dashboard = fn
}

// Mux builds the http.ServeMux for this transport.
func (t *HTTPTransport) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", t.handleMCP)
	mux.HandleFunc("/healthz", t.handleHealthz)
	mux.HandleFunc("/status", t.handleStatus)
	mux.HandleFunc("/", t.handleRoot)
	return mux
}

// ListenAndServe binds to preferredPort, probing up to
// maxPortProbeAttempts consecutive ports upward if it is busy, and
// serves until ctx is cancelled. It returns the port actually bound.
func (t *HTTPTransport) ListenAndServe(ctx context.Context, host string, preferredPort int) (int, error) {
	var listener net.Listener
	var err error
	port := preferredPort

	for attempt := 0; attempt < maxPortProbeAttempts; attempt++ {
		addr := fmt.Sprintf("%s:%d", host, port)
		listener, err = net.Listen("tcp", addr)
		if err == nil {
			break
		}
		next := port + 1
		t.logger.Info(fmt.Sprintf("Port %d is occupied. Using port %d instead.", port, next))
		port = next
	}
	if err != nil {
		return 0, fmt.Errorf("no available port after %d attempts starting at %d: %w", maxPortProbeAttempts, preferredPort, err)
	}

	srv := &http.Server{Handler: t.Mux()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	t.logger.Info("http transport listening", "addr", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return port, err
	}
	return port, nil
}

func (t *HTTPTransport) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		t.handlePost(w, r)
	case http.MethodGet:
		t.handleSSE(w, r)
	case http.MethodDelete:
		t.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *HTTPTransport) handlePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, NewErrorResponse(nil, ParseError, "invalid JSON"))
		return
	}

	if looksLikeResponse(raw) {
		var resp Response
		if err := json.Unmarshal(raw, &resp); err == nil && t.correlator.Resolve(&resp) {
			w.WriteHeader(http.StatusAccepted)
			return
		}
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, NewErrorResponse(nil, ParseError, "invalid JSON"))
		return
	}

	sessionID := r.Header.Get(SessionIDHeader)
	if req.Method == "initialize" {
		session := t.sessions.Create(TransportHTTP, ClientInfo{})
		sessionID = session.ID
	} else if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, NewErrorResponse(req.ID, InvalidRequest, "missing Mcp-Session-Id header"))
		return
	} else if t.sessions.Get(sessionID) == nil {
		writeJSON(w, http.StatusBadRequest, NewErrorResponse(req.ID, InvalidRequest, "unknown session"))
		return
	} else {
		t.sessions.Touch(sessionID)
	}

	ctx := r.Context()
	if sessionID != "" {
		ctx = withSessionID(ctx, sessionID)
	}
	resp := t.handler(ctx, &req)

	if sessionID != "" {
		w.Header().Set(SessionIDHeader, sessionID)
	}

	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	t.pushAll("message", resp)
	writeJSON(w, http.StatusOK, *resp)
}

func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, NewErrorResponse(nil, InvalidRequest, "missing Mcp-Session-Id header"))
		return
	}
	if t.sessions.Get(sessionID) == nil {
		writeJSON(w, http.StatusBadRequest, NewErrorResponse(nil, InvalidRequest, "unknown session"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ps := &pushSession{id: sessionID, w: w, flusher: flusher, done: make(chan struct{})}
	t.mu.Lock()
	t.push[sessionID] = ps
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.push, sessionID)
		t.mu.Unlock()
		close(ps.done)
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func (t *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}
	t.sessions.Delete(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (t *HTTPTransport) pushAll(event string, data any) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ps := range t.push {
		t.pushOne(ps, event, data)
	}
}

func (t *HTTPTransport) pushOne(ps *pushSession, event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	id := ps.messageID.Add(1)
	fmt.Fprintf(ps.w, "id: %d\n", id)
	fmt.Fprintf(ps.w, "event: %s\n", event)
	fmt.Fprintf(ps.w, "data: %s\n\n", b)
	ps.flusher.Flush()
}

// Notify pushes a server-initiated JSON-RPC notification to every open
// SSE stream. Used for list_changed, logging/message, and progress.
func (t *HTTPTransport) Notify(method string, params any) {
	paramsBytes, _ := json.Marshal(params)
	notification := Request{JSONRPC: "2.0", Method: method, Params: paramsBytes}
	t.pushAll("message", notification)
}

// SendRequest issues a server-initiated request (elicitation/create,
// roots/list) to the client holding the open SSE stream for sessionID
// and blocks until the matching reply arrives via POST /mcp or ctx is
// cancelled.
func (t *HTTPTransport) SendRequest(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	t.mu.RLock()
	ps, ok := t.push[sessionID]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no open SSE stream for session %s", sessionID)
	}

	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	id, waiter := t.correlator.NewWaiter()
	req := Request{JSONRPC: "2.0", ID: (*json.RawMessage)(&id), Method: method, Params: paramsRaw}

	t.mu.RLock()
	t.pushOne(ps, "message", req)
	t.mu.RUnlock()

	select {
	case resp := <-waiter:
		if resp.Error != nil {
			return nil, fmt.Errorf("client returned error: %s", resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		t.correlator.Cancel(id)
		return nil, ctx.Err()
	}
}

func (t *HTTPTransport) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if t.readyFn != nil && !t.readyFn() {
		status = "initializing"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":         status,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"activeSessions": t.sessions.Count(),
		"serverType":     "sf-mcp-server",
		"version":        t.serverInfo.Version,
	})
}

func (t *HTTPTransport) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"server":   t.serverInfo,
		"uptime":   time.Since(t.startedAt).String(),
		"sessions": t.sessions.Count(),
		"environment": map[string]any{
			"os":   runtime.GOOS,
			"arch": runtime.GOARCH,
			"go":   runtime.Version(),
		},
	}
	if t.statusFn != nil {
		for k, v := range t.statusFn() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Name}} {{.Version}}</title>
<style>
body { background: #16161a; color: #fafaf9; font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 2rem; }
h1 { color: #0176d3; }
.muted { color: #969492; }
pre { background: #1f1f24; padding: 1rem; border-radius: 6px; overflow-x: auto; }
a { color: #0176d3; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p class="muted">version {{.Version}} &middot; uptime {{.Uptime}} &middot; org {{.OrgAlias}}</p>
<pre>{{.Body}}</pre>
<p><a href="/status">/status</a> &middot; <a href="/healthz">/healthz</a></p>
</body>
</html>
`))

func (t *HTTPTransport) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var snap DashboardSnapshot
	if t.dashboard != nil {
		snap = t.dashboard()
	}

	var buf bytes.Buffer
	printer := output.NewWithWriter(&buf)
	printer.Tools(snap.Tools)
	printer.Sessions(snap.Sessions)
	if buf.Len() == 0 {
		buf.WriteString("no active sessions or tools registered yet")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardTemplate.Execute(w, map[string]any{
		"Name":     t.serverInfo.Name,
		"Version":  t.serverInfo.Version,
		"Uptime":   time.Since(t.startedAt).String(),
		"OrgAlias": snap.OrgAlias,
		"Body":     buf.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
