package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type apexDebugLogsArgs struct {
	Action string `json:"action"`
	LogID  string `json:"logId,omitempty"`
}

func apexDebugLogsToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "apexDebugLogs",
			Title:       "Apex Debug Logs",
			Description: "Manages Apex debug log tracing for the current user and reads captured logs.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"action": {Type: "string", Enum: []string{"on", "off", "status", "list", "get"}},
					"logId":  {Type: "string", Description: "Required when action is \"get\"."},
				},
				Required: []string{"action"},
			}),
			Annotations: mcp.ToolAnnotations{IdempotentHint: true},
		},
		Handler: deps.apexDebugLogs,
	}
}

func (d *Deps) apexDebugLogs(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[apexDebugLogsArgs](raw)
	if err != nil {
		return nil, err
	}

	switch args.Action {
	case "on":
		return d.setDebugLogTracing(ctx, true)
	case "off":
		return d.setDebugLogTracing(ctx, false)
	case "status":
		return d.debugLogTracingStatus(ctx)
	case "list":
		return d.listDebugLogs(ctx)
	case "get":
		if args.LogID == "" {
			return nil, sferrors.New(sferrors.KindValidation, "logId is required for action \"get\"")
		}
		return d.getDebugLog(ctx, args.LogID)
	default:
		return nil, sferrors.Newf(sferrors.KindValidation, "unsupported action %q", args.Action)
	}
}

func (d *Deps) setDebugLogTracing(ctx context.Context, enabled bool) (*mcp.ToolCallResult, error) {
	org := d.State.Org()
	if org.User.ID == "" {
		return nil, sferrors.New(sferrors.KindNotInitialized, "user identity is not yet resolved")
	}

	if enabled {
		body := map[string]any{
			"TracedEntityId": org.User.ID,
			"DebugLevelId":   nil,
			"LogType":        "USER_DEBUG",
			"ExpirationDate": nil,
		}
		if _, err := d.Gateway.Call(ctx, sfapi.MethodPost, sfapi.APITooling, "/sobjects/TraceFlag", body, nil); err != nil {
			return nil, err
		}
		return textResult("Debug log tracing enabled.", map[string]any{"status": "on"}), nil
	}

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APITooling, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": "SELECT Id FROM TraceFlag WHERE TracedEntityId = '" + escapeSOQLLiteral(org.User.ID) + "'"},
	})
	if err != nil {
		return nil, err
	}
	result, _ := resp.JSON.(map[string]any)
	records, _ := result["records"].([]any)
	for _, r := range records {
		rec, _ := r.(map[string]any)
		id, _ := rec["Id"].(string)
		if id == "" {
			continue
		}
		if _, err := d.Gateway.Call(ctx, sfapi.MethodDelete, sfapi.APITooling, "/sobjects/TraceFlag/"+id, nil, nil); err != nil {
			d.Logger.Warn("could not remove trace flag", "id", id, "error", err)
		}
	}
	return textResult("Debug log tracing disabled.", map[string]any{"status": "off"}), nil
}

func (d *Deps) debugLogTracingStatus(ctx context.Context) (*mcp.ToolCallResult, error) {
	org := d.State.Org()
	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APITooling, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": "SELECT Id, ExpirationDate FROM TraceFlag WHERE TracedEntityId = '" + escapeSOQLLiteral(org.User.ID) + "'"},
	})
	if err != nil {
		return nil, err
	}
	result, _ := resp.JSON.(map[string]any)
	records, _ := result["records"].([]any)
	enabled := len(records) > 0
	summary := "Debug log tracing is off."
	if enabled {
		summary = "Debug log tracing is on."
	}
	return textResult(summary, map[string]any{"enabled": enabled, "traceFlags": records}), nil
}

func (d *Deps) listDebugLogs(ctx context.Context) (*mcp.ToolCallResult, error) {
	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APITooling, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": "SELECT Id, Operation, Status, LogLength, StartTime FROM ApexLog ORDER BY StartTime DESC LIMIT 50"},
	})
	if err != nil {
		return nil, err
	}
	result, _ := resp.JSON.(map[string]any)
	records, _ := result["records"].([]any)
	summary := fmt.Sprintf("Found %d debug log(s).", len(records))
	return textResult(summary, map[string]any{"logs": records}), nil
}

func (d *Deps) getDebugLog(ctx context.Context, logID string) (*mcp.ToolCallResult, error) {
	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APITooling, "/sobjects/ApexLog/"+logID+"/Body", nil, nil)
	if err != nil {
		return nil, err
	}
	body := resp.Text
	return textResult("Fetched debug log "+logID+".", map[string]any{"logId": logID, "body": body}), nil
}
