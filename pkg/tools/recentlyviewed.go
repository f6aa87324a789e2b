package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

func recentlyViewedToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "getRecentlyViewedRecords",
			Title:       "Get Recently Viewed Records",
			Description: "Returns the records most recently viewed by the current user.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{Type: "object"}),
			Annotations: mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
		},
		Handler: deps.getRecentlyViewedRecords,
	}
}

func (d *Deps) getRecentlyViewedRecords(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APIREST, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": "SELECT Id, Name, Type, LastViewedDate FROM RecentlyViewed ORDER BY LastViewedDate DESC"},
	})
	if err != nil {
		return nil, err
	}

	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "recently viewed query response was not a JSON object")
	}

	records, _ := result["records"].([]any)
	summary := fmt.Sprintf("Found %v recently viewed record(s).", result["totalSize"])
	return textResult(summary, map[string]any{
		"records":   records,
		"totalSize": result["totalSize"],
		"done":      result["done"],
	}), nil
}
