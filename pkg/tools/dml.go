package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type dmlRecord map[string]any

type dmlOperations struct {
	Create []dmlRecord `json:"create,omitempty"`
	Update []dmlRecord `json:"update,omitempty"`
	Delete []string    `json:"delete,omitempty"`
}

type dmlArgs struct {
	Operations    dmlOperations `json:"operations"`
	AllOrNone     bool          `json:"allOrNone,omitempty"`
	UseToolingAPI bool          `json:"useToolingApi,omitempty"`
}

type dmlOutcome struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Errors  []any  `json:"errors,omitempty"`
}

func dmlToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "dmlOperation",
			Title:       "DML Operation",
			Description: "Runs create/update/delete operations against the org, one sObject API request per record.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"operations":    {Type: "object", Description: "{create?, update?, delete?} keyed record batches. Each delete entry is \"sObjectName/id\"."},
					"allOrNone":     {Type: "boolean"},
					"useToolingApi": {Type: "boolean"},
				},
				Required: []string{"operations"},
			}),
			Annotations: mcp.ToolAnnotations{DestructiveHint: true},
		},
		Handler: deps.dmlOperation,
	}
}

// dmlOperation runs create/update/delete as one sObject API request per
// record (no composite endpoint) and collates per-record outcomes
// (§4.8). Each sub-batch is
// independent; a failure in one does not block the others from running.
func (d *Deps) dmlOperation(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[dmlArgs](raw)
	if err != nil {
		return nil, err
	}
	if len(args.Operations.Create) == 0 && len(args.Operations.Update) == 0 && len(args.Operations.Delete) == 0 {
		return nil, sferrors.New(sferrors.KindValidation, "operations must contain at least one of create/update/delete")
	}

	apiType := sfapi.APIREST
	if args.UseToolingAPI {
		apiType = sfapi.APITooling
	}

	var successes, errorOutcomes []dmlOutcome

	for _, rec := range args.Operations.Create {
		sObject, _ := rec["sObjectName"].(string)
		outcome := d.dmlCreateOne(ctx, apiType, sObject, rec)
		if outcome.Success {
			successes = append(successes, outcome)
		} else {
			errorOutcomes = append(errorOutcomes, outcome)
			if args.AllOrNone {
				break
			}
		}
	}

	for _, rec := range args.Operations.Update {
		sObject, _ := rec["sObjectName"].(string)
		id, _ := rec["id"].(string)
		outcome := d.dmlUpdateOne(ctx, apiType, sObject, id, rec)
		if outcome.Success {
			successes = append(successes, outcome)
		} else {
			errorOutcomes = append(errorOutcomes, outcome)
			if args.AllOrNone {
				break
			}
		}
	}

	for _, id := range args.Operations.Delete {
		outcome := d.dmlDeleteOne(ctx, apiType, id)
		if outcome.Success {
			successes = append(successes, outcome)
		} else {
			errorOutcomes = append(errorOutcomes, outcome)
			if args.AllOrNone {
				break
			}
		}
	}

	outcome := "success"
	switch {
	case len(errorOutcomes) > 0 && len(successes) > 0:
		outcome = "partial"
	case len(errorOutcomes) > 0 && len(successes) == 0:
		outcome = "error"
	}

	summary := fmt.Sprintf("DML outcome: %s (%d succeeded, %d failed).", outcome, len(successes), len(errorOutcomes))
	return textResult(summary, map[string]any{
		"outcome": outcome,
		"statistics": map[string]any{
			"total":     len(successes) + len(errorOutcomes),
			"succeeded": len(successes),
			"failed":    len(errorOutcomes),
		},
		"successes": successes,
		"errors":    errorOutcomes,
	}), nil
}

func (d *Deps) dmlCreateOne(ctx context.Context, apiType sfapi.APIType, sObject string, rec dmlRecord) dmlOutcome {
	if sObject == "" {
		return dmlOutcome{Success: false, Errors: []any{"sObjectName is required for create"}}
	}
	body := cloneWithout(rec, "sObjectName")
	resp, err := d.Gateway.Call(ctx, sfapi.MethodPost, apiType, "/sobjects/"+sObject, body, nil)
	if err != nil {
		return dmlOutcome{Success: false, Errors: []any{err.Error()}}
	}
	result, _ := resp.JSON.(map[string]any)
	id, _ := result["id"].(string)
	success, _ := result["success"].(bool)
	return dmlOutcome{ID: id, Success: success, Errors: toAnySlice(result["errors"])}
}

func (d *Deps) dmlUpdateOne(ctx context.Context, apiType sfapi.APIType, sObject, id string, rec dmlRecord) dmlOutcome {
	if sObject == "" || id == "" {
		return dmlOutcome{Success: false, Errors: []any{"sObjectName and id are required for update"}}
	}
	body := cloneWithout(rec, "sObjectName", "id")
	_, err := d.Gateway.Call(ctx, sfapi.MethodPatch, apiType, "/sobjects/"+sObject+"/"+id, body, nil)
	if err != nil {
		return dmlOutcome{ID: id, Success: false, Errors: []any{err.Error()}}
	}
	return dmlOutcome{ID: id, Success: true}
}

func (d *Deps) dmlDeleteOne(ctx context.Context, apiType sfapi.APIType, sObjectAndID string) dmlOutcome {
	if sObjectAndID == "" {
		return dmlOutcome{Success: false, Errors: []any{"id is required for delete"}}
	}
	_, err := d.Gateway.Call(ctx, sfapi.MethodDelete, apiType, "/sobjects/"+sObjectAndID, nil, nil)
	if err != nil {
		return dmlOutcome{ID: sObjectAndID, Success: false, Errors: []any{err.Error()}}
	}
	return dmlOutcome{ID: sObjectAndID, Success: true}
}

func cloneWithout(rec dmlRecord, keys ...string) map[string]any {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if !skip[k] {
			out[k] = v
		}
	}
	return out
}

func toAnySlice(v any) []any {
	s, _ := v.([]any)
	return s
}
