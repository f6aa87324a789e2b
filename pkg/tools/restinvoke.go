package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type invokeApexRestArgs struct {
	ApexClassOrRestResourceName string            `json:"apexClassOrRestResourceName"`
	Operation                   string            `json:"operation"`
	Body                        any               `json:"body,omitempty"`
	URLParams                   map[string]string `json:"urlParams,omitempty"`
	Headers                     map[string]string `json:"headers,omitempty"`
}

var restOperationMethod = map[string]sfapi.Method{
	"GET":    sfapi.MethodGet,
	"POST":   sfapi.MethodPost,
	"PUT":    sfapi.MethodPut,
	"PATCH":  sfapi.MethodPatch,
	"DELETE": sfapi.MethodDelete,
}

func invokeApexRestToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "invokeApexRestResource",
			Title:       "Invoke Apex REST Resource",
			Description: "Calls a custom Apex REST resource (@RestResource) exposed by the org.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"apexClassOrRestResourceName": {Type: "string"},
					"operation":                   {Type: "string", Enum: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
					"body":                        {Type: "object"},
					"urlParams":                   {Type: "object"},
					"headers":                     {Type: "object"},
				},
				Required: []string{"apexClassOrRestResourceName", "operation"},
			}),
			// The target Apex REST resource may itself mutate the org;
			// the server cannot know from the contract alone, so the
			// tool is annotated destructive unconditionally and
			// elicitation is offered on every call, GET included.
			Annotations: mcp.ToolAnnotations{DestructiveHint: true},
		},
		Handler: deps.invokeApexRestResource,
	}
}

func (d *Deps) invokeApexRestResource(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[invokeApexRestArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ApexClassOrRestResourceName == "" {
		return nil, sferrors.New(sferrors.KindValidation, "apexClassOrRestResourceName is required")
	}
	method, ok := restOperationMethod[args.Operation]
	if !ok {
		return nil, sferrors.Newf(sferrors.KindValidation, "unsupported operation %q", args.Operation)
	}

	resp, err := d.Gateway.Call(ctx, method, sfapi.APIApex, args.ApexClassOrRestResourceName, args.Body, &sfapi.CallOptions{
		QueryParams: args.URLParams,
		Headers:     args.Headers,
	})
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Invoked %s %s.", args.Operation, args.ApexClassOrRestResourceName)
	return textResult(summary, map[string]any{
		"statusCode": resp.StatusCode,
		"body":       resp.JSON,
		"text":       resp.Text,
	}), nil
}
