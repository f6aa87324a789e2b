package tools

import (
	"context"
	"net/http"
	"testing"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRecordReturnsFields(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{"Id":"001xx1","Name":"Acme"}`))
	result, err := deps.getRecord(context.Background(), map[string]any{"sObjectName": "Account", "recordId": "001xx1"})
	require.NoError(t, err)
	assert.Equal(t, "Account", result.StructuredContent["sObject"])
	assert.Equal(t, "001xx1", result.StructuredContent["id"])
}

func TestGetRecordRequiresArguments(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.getRecord(context.Background(), map[string]any{"sObjectName": "Account"})
	require.Error(t, err)
}

func TestGetRecentlyViewedRecords(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{"records":[{"Id":"001xx1"}],"totalSize":1,"done":true}`))
	result, err := deps.getRecentlyViewedRecords(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, float64(1), result.StructuredContent["totalSize"])
}

func TestGetSetupAuditTrailRequiresLastDays(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.getSetupAuditTrail(context.Background(), map[string]any{"lastDays": 0})
	require.Error(t, err)
}

func TestGetSetupAuditTrailFiltersByUser(t *testing.T) {
	var gotQuery string
	deps, _ := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records":[],"totalSize":0}`))
	})
	_, err := deps.getSetupAuditTrail(context.Background(), map[string]any{"lastDays": 7, "user": "o'brien@example.com"})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, `o\'brien@example.com`)
}

func TestExecuteAnonymousApexRequiresCode(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.executeAnonymousApex(context.Background(), map[string]any{"apexCode": ""})
	require.Error(t, err)
}

func TestDeployMetadataRequiresSourceDir(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.deployMetadata(context.Background(), map[string]any{"sourceDir": ""})
	require.Error(t, err)
}

func TestCreateMetadataRejectsUnsupportedType(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.createMetadata(context.Background(), map[string]any{"type": "CustomObject", "name": "X"})
	require.Error(t, err)
}

func TestCreateMetadataRequiresTriggerFieldsForApexTrigger(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.createMetadata(context.Background(), map[string]any{"type": "ApexTrigger", "name": "X"})
	require.Error(t, err)
}

func TestRunApexTestRequiresTarget(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.runApexTest(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestApexDebugLogsRejectsUnsupportedAction(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.apexDebugLogs(context.Background(), map[string]any{"action": "bogus"})
	require.Error(t, err)
}

func TestApexDebugLogsGetRequiresLogID(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.apexDebugLogs(context.Background(), map[string]any{"action": "get"})
	require.Error(t, err)
}

func TestInvokeApexRestResourceRejectsUnsupportedOperation(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.invokeApexRestResource(context.Background(), map[string]any{
		"apexClassOrRestResourceName": "MyResource",
		"operation":                   "TRACE",
	})
	require.Error(t, err)
}

func TestInvokeApexRestResourceBuildsApexEndpoint(t *testing.T) {
	var gotPath string
	deps, _ := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	_, err := deps.invokeApexRestResource(context.Background(), map[string]any{
		"apexClassOrRestResourceName": "MyResource",
		"operation":                   "GET",
	})
	require.NoError(t, err)
	assert.Equal(t, "/services/apexrest/MyResource", gotPath)
}

func TestRegisterWiresAllFourteenTools(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	reg := mcp.NewRegistry()
	Register(reg, deps)
	assert.Len(t, reg.List(), 14)
}
