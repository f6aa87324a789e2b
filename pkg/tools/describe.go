package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type describeArgs struct {
	SObjectName           string `json:"sObjectName"`
	IncludeFields         bool   `json:"includeFields,omitempty"`
	IncludePicklistValues bool   `json:"includePicklistValues,omitempty"`
	UseToolingAPI         bool   `json:"useToolingApi,omitempty"`
}

func describeToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "describeObject",
			Title:       "Describe Object",
			Description: "Returns a normalized schema description of an sObject.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"sObjectName":           {Type: "string"},
					"includeFields":         {Type: "boolean"},
					"includePicklistValues": {Type: "boolean"},
					"useToolingApi":         {Type: "boolean"},
				},
				Required: []string{"sObjectName"},
			}),
			Annotations: mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
		},
		Handler: deps.describeObject,
	}
}

// describeObject stores each normalized, sanitized result in the
// resource store under sf://describe/<name> (§4.8), replacing the
// previous copy. Every call fetches the describe through the gateway;
// the stored copy is not read back to answer a repeated describe.
func (d *Deps) describeObject(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[describeArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.SObjectName == "" {
		return nil, sferrors.New(sferrors.KindValidation, "sObjectName is required")
	}

	apiType := sfapi.APIREST
	if args.UseToolingAPI {
		apiType = sfapi.APITooling
	}

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, apiType, "/sobjects/"+args.SObjectName+"/describe", nil, nil)
	if err != nil {
		return nil, err
	}

	raw2, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "describe response was not a JSON object")
	}

	normalized := normalizeDescribe(raw2, args.IncludeFields, args.IncludePicklistValues)

	uri := "sf://describe/" + args.SObjectName
	sanitized := mcp.SanitizeText(normalized)
	d.Resources.Put(mcp.Resource{
		URI:         uri,
		Name:        "Describe: " + args.SObjectName,
		Description: "Cached describe() result for " + args.SObjectName,
		MimeType:    "application/json",
		Text:        jsonString(sanitized),
	})

	summary := fmt.Sprintf("Described %s.", args.SObjectName)
	return textResult(summary, normalized), nil
}

// normalizeDescribe extracts the fields this server promises across both
// REST and Tooling API describe shapes (§4.8): name, label, keyPrefix,
// recordTypeInfos, childRelationships, and fields only when
// includeFields is set.
func normalizeDescribe(raw map[string]any, includeFields, includePicklistValues bool) map[string]any {
	out := map[string]any{
		"name":               raw["name"],
		"label":              raw["label"],
		"keyPrefix":          raw["keyPrefix"],
		"recordTypeInfos":    raw["recordTypeInfos"],
		"childRelationships": raw["childRelationships"],
	}

	if !includeFields {
		return out
	}

	fieldsRaw, _ := raw["fields"].([]any)
	fields := make([]any, 0, len(fieldsRaw))
	for _, f := range fieldsRaw {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		field := map[string]any{
			"name":     fm["name"],
			"label":    fm["label"],
			"type":     fm["type"],
			"nillable": fm["nillable"],
			"unique":   fm["unique"],
		}
		if includePicklistValues {
			field["picklistValues"] = fm["picklistValues"]
		}
		fields = append(fields, field)
	}
	out["fields"] = fields
	return out
}
