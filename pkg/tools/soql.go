package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type soqlArgs struct {
	Query        string `json:"query"`
	UseToolingAPI bool   `json:"useToolingApi,omitempty"`
}

func soqlToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "executeSoqlQuery",
			Title:       "Execute SOQL Query",
			Description: "Runs a SOQL query against the org and returns its records.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"query":         {Type: "string", Description: "The SOQL query to execute."},
					"useToolingApi": {Type: "boolean", Description: "Run the query against the Tooling API instead of REST."},
				},
				Required: []string{"query"},
			}),
			Annotations: mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
		},
		Handler: deps.executeSoqlQuery,
	}
}

// executeSoqlQuery hands the query to the gateway unchanged as the "q"
// query parameter (§4.8); it does not escape quotes inside the query's
// string literals.
func (d *Deps) executeSoqlQuery(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[soqlArgs](raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, sferrors.New(sferrors.KindValidation, "query must not be empty")
	}

	apiType := sfapi.APIREST
	if args.UseToolingAPI {
		apiType = sfapi.APITooling
	}

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, apiType, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": args.Query},
	})
	if err != nil {
		return nil, err
	}

	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "query response was not a JSON object")
	}

	records, _ := result["records"].([]any)
	summary := fmt.Sprintf("Query returned %v record(s).", result["totalSize"])
	return textResult(summary, map[string]any{
		"records":   records,
		"totalSize": result["totalSize"],
		"done":      result["done"],
	}), nil
}
