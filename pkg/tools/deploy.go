package tools

import (
	"context"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type deployMetadataArgs struct {
	SourceDir       string `json:"sourceDir"`
	ValidationOnly  bool   `json:"validationOnly,omitempty"`
}

type deployResultEnvelope struct {
	Status int            `json:"status"`
	Result map[string]any `json:"result"`
}

func deployMetadataToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "deployMetadata",
			Title:       "Deploy Metadata",
			Description: "Deploys or validates a local source directory against the org via the CLI.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"sourceDir":      {Type: "string"},
					"validationOnly": {Type: "boolean", Description: "Run as check-only; does not commit changes to the org."},
				},
				Required: []string{"sourceDir"},
			}),
			// destructiveHint is unconditional on the static contract;
			// the handler itself skips nothing extra for validationOnly
			// runs since check-only deploys still touch the deploy
			// queue and are worth confirming once elicitation is on.
			Annotations: mcp.ToolAnnotations{DestructiveHint: true},
		},
		Handler: deps.deployMetadata,
	}
}

// deployMetadata surfaces the CLI's deploy/validate result unchanged
// (§4.8) rather than reshaping it, since the CLI's component-result
// schema is already the most useful shape a client can act on.
func (d *Deps) deployMetadata(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[deployMetadataArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.SourceDir == "" {
		return nil, sferrors.New(sferrors.KindValidation, "sourceDir is required")
	}

	cliArgs := []string{"project", "deploy"}
	if args.ValidationOnly {
		cliArgs = append(cliArgs, "validate")
	} else {
		cliArgs = append(cliArgs, "start")
	}
	cliArgs = append(cliArgs, "--source-dir", args.SourceDir)

	var envelope deployResultEnvelope
	if err := d.CLI.RunJSON(ctx, &envelope, cliArgs...); err != nil {
		return nil, err
	}

	status, _ := envelope.Result["status"].(string)
	summary := "Deploy finished with status " + status + "."
	return textResult(summary, envelope.Result), nil
}
