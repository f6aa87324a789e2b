package tools

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSoqlQueryReturnsRecords(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{"records":[{"Id":"001xx1","Name":"Acme"}],"totalSize":1,"done":true}`))

	result, err := deps.executeSoqlQuery(context.Background(), map[string]any{"query": "SELECT Id, Name FROM Account"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, float64(1), result.StructuredContent["totalSize"])
	assert.Equal(t, true, result.StructuredContent["done"])
	records, ok := result.StructuredContent["records"].([]any)
	require.True(t, ok)
	assert.Len(t, records, 1)
}

func TestExecuteSoqlQueryRejectsEmptyQuery(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.executeSoqlQuery(context.Background(), map[string]any{"query": "   "})
	require.Error(t, err)
}

func TestExecuteSoqlQueryUsesToolingAPIEndpoint(t *testing.T) {
	var gotPath string
	deps, _ := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records":[],"totalSize":0,"done":true}`))
	})

	_, err := deps.executeSoqlQuery(context.Background(), map[string]any{
		"query":         "SELECT Id FROM ApexClass",
		"useToolingApi": true,
	})
	require.NoError(t, err)
	assert.Contains(t, gotPath, "/tooling/query")
}
