package tools

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextUtilsClearCache(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{"ok":true}`))

	_, err := deps.Gateway.Call(context.Background(), "GET", "REST", "/sobjects/Account", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, deps.Gateway.CacheSize())

	result, err := deps.salesforceContextUtils(context.Background(), map[string]any{"action": "clearCache"})
	require.NoError(t, err)
	assert.Equal(t, "success", result.StructuredContent["status"])
	assert.Equal(t, "clearCache", result.StructuredContent["action"])
	assert.Equal(t, 0, deps.Gateway.CacheSize())
}

func TestContextUtilsGetCurrentDatetime(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	result, err := deps.salesforceContextUtils(context.Background(), map[string]any{"action": "getCurrentDatetime"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.StructuredContent["datetimeUtc"])
}

func TestContextUtilsReportIssueRequiresMessage(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.salesforceContextUtils(context.Background(), map[string]any{"action": "reportIssue"})
	require.Error(t, err)
}

func TestContextUtilsUnknownAction(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.salesforceContextUtils(context.Background(), map[string]any{"action": "bogus"})
	require.Error(t, err)
}

func TestContextUtilsLoadRecordPrefixes(t *testing.T) {
	deps, _ := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sobjects":[{"name":"Account","keyPrefix":"001"},{"name":"Contact","keyPrefix":"003"}]}`))
	})

	result, err := deps.salesforceContextUtils(context.Background(), map[string]any{"action": "loadRecordPrefixesResource"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.StructuredContent["prefixCount"])

	res, ok := deps.Resources.Get("sf://record-prefixes")
	require.True(t, ok)
	assert.Contains(t, res.Text, "Account")
}

func TestContextUtilsIsExemptFromInitializationGate(t *testing.T) {
	entry := contextUtilsToolEntry(&Deps{})
	assert.True(t, entry.SkipGating)
}
