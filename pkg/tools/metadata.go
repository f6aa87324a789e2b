package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type createMetadataArgs struct {
	Type            string `json:"type"`
	Name            string `json:"name"`
	OutputDir       string `json:"outputDir,omitempty"`
	TriggerSObject  string `json:"triggerSObject,omitempty"`
	TriggerEvent    string `json:"triggerEvent,omitempty"`
}

var metadataGeneratorCommand = map[string]string{
	"ApexClass":   "class",
	"ApexTrigger": "trigger",
	"LWC":         "lwc",
}

func createMetadataToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "createMetadata",
			Title:       "Create Metadata",
			Description: "Scaffolds a new metadata component (Apex class, Apex trigger, or LWC) via the CLI generators.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"type":           {Type: "string", Enum: []string{"ApexClass", "ApexTrigger", "LWC"}},
					"name":           {Type: "string"},
					"outputDir":      {Type: "string"},
					"triggerSObject": {Type: "string", Description: "Required when type is ApexTrigger."},
					"triggerEvent":   {Type: "string", Description: "Required when type is ApexTrigger, e.g. \"before insert\"."},
				},
				Required: []string{"type", "name"},
			}),
			Annotations: mcp.ToolAnnotations{DestructiveHint: true},
		},
		Handler: deps.createMetadata,
	}
}

func (d *Deps) createMetadata(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[createMetadataArgs](raw)
	if err != nil {
		return nil, err
	}
	if args.Name == "" {
		return nil, sferrors.New(sferrors.KindValidation, "name is required")
	}
	generator, ok := metadataGeneratorCommand[args.Type]
	if !ok {
		return nil, sferrors.Newf(sferrors.KindValidation, "unsupported metadata type %q", args.Type)
	}
	if args.Type == "ApexTrigger" && (args.TriggerSObject == "" || args.TriggerEvent == "") {
		return nil, sferrors.New(sferrors.KindValidation, "triggerSObject and triggerEvent are required for ApexTrigger")
	}

	cliArgs := []string{"apex", "generate", generator, "--name", args.Name}
	if args.Type == "LWC" {
		cliArgs = []string{"lightning", "generate", "component", "--name", args.Name}
	}
	if args.OutputDir != "" {
		cliArgs = append(cliArgs, "--output-dir", args.OutputDir)
	}
	if args.Type == "ApexTrigger" {
		cliArgs = append(cliArgs, "--sobject", args.TriggerSObject, "--event", args.TriggerEvent)
	}

	result, err := d.CLI.Run(ctx, cliArgs...)
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Generated %s %q.", args.Type, args.Name)
	return textResult(summary, map[string]any{
		"type":     args.Type,
		"name":     args.Name,
		"stdout":   result.Stdout,
		"exitCode": result.ExitCode,
	}), nil
}
