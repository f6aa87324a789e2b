package tools

import (
	"context"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type contextUtilsArgs struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

// contextUtilsToolEntry builds salesforceContextUtils, the diagnostic
// utility tool exempt from the permission guard (§4.8) because it is
// how a user inspects why the guard is failing.
func contextUtilsToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "salesforceContextUtils",
			Title:       "Salesforce Context Utilities",
			Description: "Multi-action diagnostic utility: getState, getOrgAndUserDetails, clearCache, loadRecordPrefixesResource, getCurrentDatetime, reportIssue.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"action": {
						Type: "string",
						Enum: []string{"getState", "getOrgAndUserDetails", "clearCache", "loadRecordPrefixesResource", "getCurrentDatetime", "reportIssue"},
					},
					"message": {Type: "string", Description: "Required when action is \"reportIssue\"."},
				},
				Required: []string{"action"},
			}),
		},
		Handler:    deps.salesforceContextUtils,
		SkipGating: true,
	}
}

func (d *Deps) salesforceContextUtils(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[contextUtilsArgs](raw)
	if err != nil {
		return nil, err
	}

	switch args.Action {
	case "getState":
		return d.utilGetState()
	case "getOrgAndUserDetails":
		return d.utilGetOrgAndUserDetails()
	case "clearCache":
		return d.utilClearCache()
	case "loadRecordPrefixesResource":
		return d.utilLoadRecordPrefixes(ctx)
	case "getCurrentDatetime":
		return d.utilGetCurrentDatetime()
	case "reportIssue":
		return d.utilReportIssue(args.Message)
	default:
		return nil, sferrors.Newf(sferrors.KindValidation, "unsupported action %q", args.Action)
	}
}

func (d *Deps) utilGetState() (*mcp.ToolCallResult, error) {
	snapshot := d.State.Snapshot()
	structured := toStructured(snapshot)
	structured["action"] = "getState"
	structured["apiCacheSize"] = d.Gateway.CacheSize()
	return textResult("Server state snapshot.", structured), nil
}

func (d *Deps) utilGetOrgAndUserDetails() (*mcp.ToolCallResult, error) {
	org := d.State.Org()
	sanitized := mcp.SanitizeText(map[string]any{
		"alias":          org.Alias,
		"username":       org.Username,
		"instanceUrl":    org.InstanceURL,
		"accessToken":    org.AccessToken,
		"apiVersion":     org.APIVersion,
		"id":             org.ID,
		"user":           org.User,
		"companyDetails": org.CompanyDetails,
	})
	structured, _ := sanitized.(map[string]any)
	structured["action"] = "getOrgAndUserDetails"
	return textResult("Org and user identity.", structured), nil
}

func (d *Deps) utilClearCache() (*mcp.ToolCallResult, error) {
	d.Gateway.ClearCache()
	return textResult("API cache cleared.", map[string]any{
		"status": "success",
		"action": "clearCache",
	}), nil
}

// utilLoadRecordPrefixes publishes a resource mapping each sObject's
// three-character key prefix to its name, built from the org's global
// describe, so a client can resolve an id's type without a round trip.
func (d *Deps) utilLoadRecordPrefixes(ctx context.Context) (*mcp.ToolCallResult, error) {
	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APIREST, "/sobjects", nil, nil)
	if err != nil {
		return nil, err
	}
	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "global describe response was not a JSON object")
	}
	sobjects, _ := result["sobjects"].([]any)

	prefixes := make(map[string]string)
	for _, s := range sobjects {
		sm, ok := s.(map[string]any)
		if !ok {
			continue
		}
		prefix, _ := sm["keyPrefix"].(string)
		name, _ := sm["name"].(string)
		if prefix != "" && name != "" {
			prefixes[prefix] = name
		}
	}

	const uri = "sf://record-prefixes"
	d.Resources.Put(mcp.Resource{
		URI:         uri,
		Name:        "Record ID Prefixes",
		Description: "Maps 3-character key prefixes to sObject names.",
		MimeType:    "application/json",
		Text:        jsonString(prefixes),
	})

	return textResult("Record prefixes resource published.", map[string]any{
		"action":       "loadRecordPrefixesResource",
		"resourceUri":  uri,
		"prefixCount":  len(prefixes),
	}), nil
}

func (d *Deps) utilGetCurrentDatetime() (*mcp.ToolCallResult, error) {
	now := time.Now().UTC()
	return textResult("Current datetime: "+now.Format(time.RFC3339)+".", map[string]any{
		"action":      "getCurrentDatetime",
		"datetimeUtc": now.Format(time.RFC3339),
	}), nil
}

// utilReportIssue logs a structured issue report. The concrete
// third-party webhook endpoint is an external collaborator outside this
// server's contract; this action records the report server-side so it
// is visible to an operator even when no webhook is configured.
func (d *Deps) utilReportIssue(message string) (*mcp.ToolCallResult, error) {
	if message == "" {
		return nil, sferrors.New(sferrors.KindValidation, "message is required for reportIssue")
	}
	d.Logger.Warn("issue reported via salesforceContextUtils", "message", message)
	return textResult("Issue report recorded.", map[string]any{
		"action": "reportIssue",
		"status": "recorded",
	}), nil
}
