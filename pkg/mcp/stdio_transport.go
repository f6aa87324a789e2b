package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// stdioMaxLineSize bounds a single JSON-RPC line on stdin so the
// scanner's buffer does not grow unbounded; a line over this size stops
// Run, which returns bufio.ErrTooLong.
const stdioMaxLineSize = 10 * 1024 * 1024

// StdioTransport serves JSON-RPC requests framed as newline-delimited
// JSON on stdin/stdout. All logging must go to stderr, since stdout is
// the wire (§4.1): a stray log line on stdout would corrupt the
// client's framing.
//
// The same stream also carries server-initiated requests (elicitation,
// roots/list): a reply to one of those arrives as an ordinary stdin
// line with no "method" member, indistinguishable from any other line
// except by inspection. correlator routes those replies back to the
// goroutine waiting on them instead of into the handler.
type StdioTransport struct {
	in      io.Reader
	out     io.Writer
	outMu   sync.Mutex
	logger  *slog.Logger
	handler MessageHandler

	correlator *Correlator
}

// MessageHandler processes one decoded JSON-RPC request and returns the
// response to write back, or nil for a notification (no id).
type MessageHandler func(ctx context.Context, req *Request) *Response

// NewStdioTransport creates a stdio transport over in/out.
func NewStdioTransport(in io.Reader, out io.Writer, logger *slog.Logger, handler MessageHandler) *StdioTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioTransport{in: in, out: out, logger: logger, handler: handler, correlator: NewCorrelator()}
}

// Run reads one JSON-RPC message per line until stdin is closed or ctx
// is cancelled. Each line is dispatched to its own goroutine so that a
// handler blocked waiting on a server-initiated request (whose reply
// arrives as a later line on this same stream) never deadlocks the
// read loop.
func (t *StdioTransport) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), stdioMaxLineSize)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		if looksLikeResponse([]byte(line)) {
			var resp Response
			if err := json.Unmarshal([]byte(line), &resp); err == nil && t.correlator.Resolve(&resp) {
				continue
			}
			// Not a reply to any outstanding server-initiated request;
			// fall through and let the handler reject it as malformed.
		}

		wg.Add(1)
		go func(line string) {
			defer wg.Done()
			t.handleLine(ctx, line)
		}(line)
	}
	return scanner.Err()
}

func (t *StdioTransport) handleLine(ctx context.Context, line string) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		t.writeResponse(NewErrorResponse(nil, ParseError, "invalid JSON"))
		return
	}

	resp := t.handler(ctx, &req)
	if resp == nil {
		return
	}
	t.writeResponse(*resp)
}

func (t *StdioTransport) writeResponse(resp Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		t.logger.Error("failed to marshal response", "error", err)
		return
	}
	t.outMu.Lock()
	_, err = fmt.Fprintln(t.out, string(b))
	t.outMu.Unlock()
	if err != nil {
		t.logger.Error("failed to write response", "error", err)
	}
}

// Notify writes a server-initiated JSON-RPC notification (no id) to
// stdout. Used for list_changed, logging/message, and progress.
func (t *StdioTransport) Notify(method string, params any) {
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		t.logger.Error("failed to marshal notification params", "error", err)
		return
	}
	notification := Request{JSONRPC: "2.0", Method: method, Params: paramsBytes}
	b, err := json.Marshal(notification)
	if err != nil {
		t.logger.Error("failed to marshal notification", "error", err)
		return
	}
	t.outMu.Lock()
	_, err = fmt.Fprintln(t.out, string(b))
	t.outMu.Unlock()
	if err != nil {
		t.logger.Error("failed to write notification", "error", err)
	}
}

// SendRequest issues a server-initiated request (elicitation/create,
// roots/list) to the client over stdout and blocks until the matching
// reply arrives on stdin or ctx is cancelled.
func (t *StdioTransport) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id, waiter := t.correlator.NewWaiter()

	paramsRaw, err := json.Marshal(params)
	if err != nil {
		t.correlator.Cancel(id)
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	req := Request{JSONRPC: "2.0", ID: (*json.RawMessage)(&id), Method: method, Params: paramsRaw}
	b, err := json.Marshal(req)
	if err != nil {
		t.correlator.Cancel(id)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	t.outMu.Lock()
	_, err = fmt.Fprintln(t.out, string(b))
	t.outMu.Unlock()
	if err != nil {
		t.correlator.Cancel(id)
		return nil, fmt.Errorf("write request: %w", err)
	}

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
