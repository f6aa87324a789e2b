package tools

import (
	"context"
	"fmt"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type runApexTestArgs struct {
	ClassNames   []string `json:"classNames,omitempty"`
	MethodNames  []string `json:"methodNames,omitempty"`
	SuiteNames   []string `json:"suiteNames,omitempty"`
	CodeCoverage bool     `json:"codeCoverage,omitempty"`
	Synchronous  bool     `json:"synchronous,omitempty"`
}

type runTestEnvelope struct {
	Status int `json:"status"`
	Result struct {
		TestRunID string `json:"testRunId"`
	} `json:"result"`
}

func runApexTestToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "runApexTest",
			Title:       "Run Apex Test",
			Description: "Runs Apex tests by class, method, or suite and returns the test run id.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"classNames":   {Type: "array", Items: &mcp.Property{Type: "string"}},
					"methodNames":  {Type: "array", Items: &mcp.Property{Type: "string"}},
					"suiteNames":   {Type: "array", Items: &mcp.Property{Type: "string"}},
					"codeCoverage": {Type: "boolean"},
					"synchronous":  {Type: "boolean"},
				},
			}),
			Annotations: mcp.ToolAnnotations{IdempotentHint: false},
		},
		Handler: deps.runApexTest,
	}
}

func (d *Deps) runApexTest(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[runApexTestArgs](raw)
	if err != nil {
		return nil, err
	}
	if len(args.ClassNames) == 0 && len(args.MethodNames) == 0 && len(args.SuiteNames) == 0 {
		return nil, sferrors.New(sferrors.KindValidation, "at least one of classNames, methodNames, or suiteNames is required")
	}

	cliArgs := []string{"apex", "run", "test"}
	for _, c := range args.ClassNames {
		cliArgs = append(cliArgs, "--class-names", c)
	}
	for _, m := range args.MethodNames {
		cliArgs = append(cliArgs, "--tests", m)
	}
	for _, s := range args.SuiteNames {
		cliArgs = append(cliArgs, "--suite-names", s)
	}
	if args.CodeCoverage {
		cliArgs = append(cliArgs, "--code-coverage")
	}
	if args.Synchronous {
		cliArgs = append(cliArgs, "--synchronous")
	}

	var envelope runTestEnvelope
	if err := d.CLI.RunJSON(ctx, &envelope, cliArgs...); err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Started Apex test run %s.", envelope.Result.TestRunID)
	return textResult(summary, map[string]any{"testRunId": envelope.Result.TestRunID}), nil
}
