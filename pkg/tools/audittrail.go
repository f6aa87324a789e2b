package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type auditTrailArgs struct {
	LastDays int    `json:"lastDays"`
	User     string `json:"user,omitempty"`
}

func setupAuditTrailToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "getSetupAuditTrail",
			Title:       "Get Setup Audit Trail",
			Description: "Returns setup audit trail entries within a trailing window, optionally filtered by user.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"lastDays": {Type: "integer", Description: "Number of trailing days to include."},
					"user":     {Type: "string", Description: "Restrict to changes made by this username."},
				},
				Required: []string{"lastDays"},
			}),
			Annotations: mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
		},
		Handler: deps.getSetupAuditTrail,
	}
}

func (d *Deps) getSetupAuditTrail(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[auditTrailArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.LastDays <= 0 {
		return nil, sferrors.New(sferrors.KindValidation, "lastDays must be a positive number of days")
	}

	since := time.Now().AddDate(0, 0, -args.LastDays).UTC().Format("2006-01-02T15:04:05Z")
	soql := fmt.Sprintf("SELECT Id, Action, Section, CreatedDate, CreatedBy.Username, Display FROM SetupAuditTrail WHERE CreatedDate >= %s", since)
	if args.User != "" {
		soql += fmt.Sprintf(" AND CreatedBy.Username = '%s'", escapeSOQLLiteral(args.User))
	}
	soql += " ORDER BY CreatedDate DESC"

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APIREST, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": soql},
	})
	if err != nil {
		return nil, err
	}

	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "audit trail query response was not a JSON object")
	}

	records, _ := result["records"].([]any)
	summary := fmt.Sprintf("Found %v audit trail record(s) over the last %d day(s).", result["totalSize"], args.LastDays)
	return textResult(summary, map[string]any{
		"records":   records,
		"totalSize": result["totalSize"],
		"filter":    map[string]any{"lastDays": args.LastDays, "user": args.User},
	}), nil
}

func escapeSOQLLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
