// Package tools implements the fixed tool table (spec §4.8, §6.4): SOQL,
// describe, record access, DML, deploy, anonymous Apex, test runs,
// coverage, debug logs, REST invoke, and the diagnostic utility tool.
package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfcli"
)

// Deps bundles the collaborators every handler needs. A single instance
// is shared across all registered handlers.
type Deps struct {
	Gateway   *sfapi.Gateway
	CLI       *sfcli.Executor
	Resources *mcp.ResourceStore
	State     *serverstate.State
	Logger    *slog.Logger
}

// Register builds every tool contract in §6.4 and registers it against
// reg, bound to deps.
func Register(reg *mcp.Registry, deps *Deps) {
	reg.Register(soqlToolEntry(deps))
	reg.Register(describeToolEntry(deps))
	reg.Register(getRecordToolEntry(deps))
	reg.Register(recentlyViewedToolEntry(deps))
	reg.Register(setupAuditTrailToolEntry(deps))
	reg.Register(anonymousApexToolEntry(deps))
	reg.Register(dmlToolEntry(deps))
	reg.Register(deployMetadataToolEntry(deps))
	reg.Register(createMetadataToolEntry(deps))
	reg.Register(runApexTestToolEntry(deps))
	reg.Register(codeCoverageToolEntry(deps))
	reg.Register(apexDebugLogsToolEntry(deps))
	reg.Register(invokeApexRestToolEntry(deps))
	reg.Register(contextUtilsToolEntry(deps))
}

// textResult builds a single-content success result from a value that
// marshals cleanly into both a human summary and structuredContent.
func textResult(summary string, structured map[string]any) *mcp.ToolCallResult {
	if structured == nil {
		structured = map[string]any{}
	}
	return &mcp.ToolCallResult{
		Content:           []mcp.Content{mcp.NewTextContent(summary)},
		StructuredContent: structured,
	}
}

// toStructured round-trips v through JSON into a map[string]any so it
// can be used directly as a ToolCallResult.StructuredContent value.
func toStructured(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"marshalError": err.Error()}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"value": string(b)}
	}
	return m
}

// jsonString marshals v for use as a Resource's Text field, falling back
// to a best-effort error string rather than failing the caller.
func jsonString(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("could not marshal resource text: %v", err)
	}
	return string(b)
}
