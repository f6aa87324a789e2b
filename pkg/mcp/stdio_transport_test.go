package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioTransportEchoesResponsePerLine(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	handler := func(ctx context.Context, req *Request) *Response {
		resp := NewSuccessResponse(req.ID, map[string]any{"pong": true})
		return &resp
	}

	transport := NewStdioTransport(in, &out, nil, handler)
	require.NoError(t, transport.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Nil(t, resp.Error)
}

func TestStdioTransportSkipsNotifications(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	var out bytes.Buffer

	handler := func(ctx context.Context, req *Request) *Response {
		return nil
	}

	transport := NewStdioTransport(in, &out, nil, handler)
	require.NoError(t, transport.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestStdioTransportInvalidJSONYieldsParseError(t *testing.T) {
	in := strings.NewReader("not json\n")
	var out bytes.Buffer

	handler := func(ctx context.Context, req *Request) *Response {
		t.Fatal("handler should not be called for invalid JSON")
		return nil
	}

	transport := NewStdioTransport(in, &out, nil, handler)
	require.NoError(t, transport.Run(context.Background()))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ParseError, resp.Error.Code)
}

func TestStdioTransportSkipsBlankLines(t *testing.T) {
	in := strings.NewReader("\n\n")
	var out bytes.Buffer

	calls := 0
	handler := func(ctx context.Context, req *Request) *Response {
		calls++
		return nil
	}

	transport := NewStdioTransport(in, &out, nil, handler)
	require.NoError(t, transport.Run(context.Background()))
	assert.Equal(t, 0, calls)
}
