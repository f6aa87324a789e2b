package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type getRecordArgs struct {
	SObjectName string `json:"sObjectName"`
	RecordID    string `json:"recordId"`
}

func getRecordToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "getRecord",
			Title:       "Get Record",
			Description: "Fetches a single record by sObject type and id.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"sObjectName": {Type: "string"},
					"recordId":    {Type: "string"},
				},
				Required: []string{"sObjectName", "recordId"},
			}),
			Annotations: mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
		},
		Handler: deps.getRecord,
	}
}

func (d *Deps) getRecord(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[getRecordArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.SObjectName == "" || args.RecordID == "" {
		return nil, sferrors.New(sferrors.KindValidation, "sObjectName and recordId are required")
	}

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APIREST, "/sobjects/"+args.SObjectName+"/"+args.RecordID, nil, nil)
	if err != nil {
		return nil, err
	}

	fields, _ := resp.JSON.(map[string]any)
	summary := fmt.Sprintf("Fetched %s %s.", args.SObjectName, args.RecordID)
	return textResult(summary, map[string]any{
		"id":      args.RecordID,
		"sObject": args.SObjectName,
		"fields":  fields,
	}), nil
}
