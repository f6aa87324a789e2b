package tools

import (
	"context"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfcli"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type anonymousApexArgs struct {
	ApexCode  string `json:"apexCode"`
	MayModify bool   `json:"mayModify,omitempty"`
}

type apexRunEnvelope struct {
	Status int `json:"status"`
	Result struct {
		Success      bool   `json:"success"`
		CompileProblem string `json:"compileProblem"`
		Compiled     bool   `json:"compiled"`
		Logs         string `json:"logs"`
		ExceptionMessage string `json:"exceptionMessage"`
	} `json:"result"`
}

func anonymousApexToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "executeAnonymousApex",
			Title:       "Execute Anonymous Apex",
			Description: "Runs anonymous Apex through the CLI. Declare mayModify=true when the script writes data. The tool is annotated destructive, so a client that supports elicitation is asked to confirm every invocation, whatever mayModify says.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"apexCode":  {Type: "string"},
					"mayModify": {Type: "boolean", Description: "Set when the script performs DML or other org mutation."},
				},
				Required: []string{"apexCode", "mayModify"},
			}),
			// Annotated destructive: the static contract cannot see the
			// per-call mayModify flag, so the server conservatively
			// offers elicitation on every invocation (§4.4's "if the
			// client advertises elicitation" still gates whether a
			// prompt is actually shown).
			Annotations: mcp.ToolAnnotations{DestructiveHint: true},
		},
		Handler: deps.executeAnonymousApex,
	}
}

// executeAnonymousApex writes the script to a temp file under
// <workspace>/tmp/ and always removes it afterward, success or failure
// (§3 Temp File, §4.8).
func (d *Deps) executeAnonymousApex(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[anonymousApexArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.ApexCode == "" {
		return nil, sferrors.New(sferrors.KindValidation, "apexCode is required")
	}

	workspace := d.State.WorkspacePath()
	path, err := sfcli.WriteTempFile(workspace, "anon-apex-*.apex", args.ApexCode)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := sfcli.RemoveTempFile(path); rmErr != nil {
			d.Logger.Warn("could not remove anonymous apex temp file", "path", path, "error", rmErr)
		}
	}()

	var envelope apexRunEnvelope
	runErr := d.CLI.RunJSON(ctx, &envelope, "apex", "run", "--file", path)
	if runErr != nil {
		return nil, runErr
	}

	summary := "Anonymous Apex executed."
	if !envelope.Result.Success {
		summary = "Anonymous Apex failed: " + envelope.Result.ExceptionMessage
	}

	return &mcp.ToolCallResult{
		Content: []mcp.Content{mcp.NewTextContent(summary)},
		StructuredContent: map[string]any{
			"success":          envelope.Result.Success,
			"compiled":         envelope.Result.Compiled,
			"compileProblem":   envelope.Result.CompileProblem,
			"logs":             envelope.Result.Logs,
			"exceptionMessage": envelope.Result.ExceptionMessage,
			"mayModify":        args.MayModify,
		},
		IsError: !envelope.Result.Success,
	}, nil
}
