package tools

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

type codeCoverageArgs struct {
	ClassNames []string `json:"classNames"`
}

type classCoverage struct {
	ClassName      string  `json:"className"`
	Covered        int     `json:"linesCovered"`
	Uncovered      int     `json:"linesUncovered"`
	PercentCovered float64 `json:"percentCovered"`
	HasData        bool    `json:"hasData"`
}

type methodCoverage struct {
	ClassName      string  `json:"className"`
	TestClassName  string  `json:"testClassName"`
	TestMethodName string  `json:"testMethodName"`
	Covered        int     `json:"linesCovered"`
	Uncovered      int     `json:"linesUncovered"`
	PercentCovered float64 `json:"percentCovered"`
}

func codeCoverageToolEntry(deps *Deps) mcp.ToolEntry {
	return mcp.ToolEntry{
		Tool: mcp.Tool{
			Name:        "getApexClassCodeCoverage",
			Title:       "Get Apex Class Code Coverage",
			Description: "Returns aggregate, per-class, and per-method Apex code coverage, worst coverage first.",
			InputSchema: mcp.MustSchema(mcp.InputSchemaObject{
				Type: "object",
				Properties: map[string]mcp.Property{
					"classNames": {Type: "array", Items: &mcp.Property{Type: "string"}},
				},
				Required: []string{"classNames"},
			}),
			Annotations: mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
		},
		Handler: deps.getApexClassCodeCoverage,
	}
}

// getApexClassCodeCoverage queries the Tooling API's aggregate and
// per-method coverage tables, normalizes to percentages, and orders
// aggregate results worst-coverage first with classes absent from the
// org's coverage data last (§4.8).
func (d *Deps) getApexClassCodeCoverage(ctx context.Context, raw map[string]any) (*mcp.ToolCallResult, error) {
	args, err := mcp.DecodeArgs[codeCoverageArgs](raw)
	if err != nil {
		return nil, err
	}
	if len(args.ClassNames) == 0 {
		return nil, sferrors.New(sferrors.KindValidation, "classNames must contain at least one class")
	}

	quoted := make([]string, len(args.ClassNames))
	for i, c := range args.ClassNames {
		quoted[i] = "'" + escapeSOQLLiteral(c) + "'"
	}
	soql := fmt.Sprintf(
		"SELECT ApexClassOrTrigger.Name, NumLinesCovered, NumLinesUncovered FROM ApexCodeCoverageAggregate WHERE ApexClassOrTrigger.Name IN (%s)",
		strings.Join(quoted, ","),
	)

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APITooling, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": soql},
	})
	if err != nil {
		return nil, err
	}

	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "coverage query response was not a JSON object")
	}
	records, _ := result["records"].([]any)

	byName := make(map[string]classCoverage, len(records))
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		classInfo, _ := rec["ApexClassOrTrigger"].(map[string]any)
		name, _ := classInfo["Name"].(string)
		covered := toInt(rec["NumLinesCovered"])
		uncovered := toInt(rec["NumLinesUncovered"])
		pct := 0.0
		if covered+uncovered > 0 {
			pct = float64(covered) / float64(covered+uncovered) * 100
		}
		byName[name] = classCoverage{ClassName: name, Covered: covered, Uncovered: uncovered, PercentCovered: pct, HasData: true}
	}

	coverages := make([]classCoverage, 0, len(args.ClassNames))
	for _, name := range args.ClassNames {
		if c, ok := byName[name]; ok {
			coverages = append(coverages, c)
		} else {
			coverages = append(coverages, classCoverage{ClassName: name, HasData: false})
		}
	}

	sort.SliceStable(coverages, func(i, j int) bool {
		if coverages[i].HasData != coverages[j].HasData {
			return coverages[i].HasData // classes with data sort before those without
		}
		if !coverages[i].HasData {
			return false
		}
		return coverages[i].PercentCovered < coverages[j].PercentCovered
	})

	var totalCovered, totalUncovered int
	for _, c := range coverages {
		totalCovered += c.Covered
		totalUncovered += c.Uncovered
	}
	aggregate := 0.0
	if totalCovered+totalUncovered > 0 {
		aggregate = float64(totalCovered) / float64(totalCovered+totalUncovered) * 100
	}

	methods, err := d.queryPerMethodCoverage(ctx, quoted)
	if err != nil {
		return nil, err
	}

	summary := renderCoverageTable(coverages, aggregate)
	return textResult(summary, map[string]any{
		"aggregatePercentCovered": aggregate,
		"classes":                 coverages,
		"perMethod":               methods,
	}), nil
}

// queryPerMethodCoverage queries the Tooling API's per-method coverage
// table, keyed by the covered class's own name so each ApexCodeCoverage
// row can be attributed to the test method that exercised it (§4.8,
// §6.4).
func (d *Deps) queryPerMethodCoverage(ctx context.Context, quotedClassNames []string) ([]methodCoverage, error) {
	soql := fmt.Sprintf(
		"SELECT ApexClassOrTrigger.Name, ApexTestClass.Name, TestMethodName, NumLinesCovered, NumLinesUncovered "+
			"FROM ApexCodeCoverage WHERE ApexClassOrTrigger.Name IN (%s)",
		strings.Join(quotedClassNames, ","),
	)

	resp, err := d.Gateway.Call(ctx, sfapi.MethodGet, sfapi.APITooling, "/query", nil, &sfapi.CallOptions{
		QueryParams: map[string]string{"q": soql},
	})
	if err != nil {
		return nil, err
	}

	result, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil, sferrors.New(sferrors.KindUpstream, "per-method coverage query response was not a JSON object")
	}
	records, _ := result["records"].([]any)

	methods := make([]methodCoverage, 0, len(records))
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		classInfo, _ := rec["ApexClassOrTrigger"].(map[string]any)
		className, _ := classInfo["Name"].(string)
		testClassInfo, _ := rec["ApexTestClass"].(map[string]any)
		testClassName, _ := testClassInfo["Name"].(string)
		testMethodName, _ := rec["TestMethodName"].(string)
		covered := toInt(rec["NumLinesCovered"])
		uncovered := toInt(rec["NumLinesUncovered"])
		pct := 0.0
		if covered+uncovered > 0 {
			pct = float64(covered) / float64(covered+uncovered) * 100
		}
		methods = append(methods, methodCoverage{
			ClassName:      className,
			TestClassName:  testClassName,
			TestMethodName: testMethodName,
			Covered:        covered,
			Uncovered:      uncovered,
			PercentCovered: pct,
		})
	}

	sort.SliceStable(methods, func(i, j int) bool {
		if methods[i].ClassName != methods[j].ClassName {
			return methods[i].ClassName < methods[j].ClassName
		}
		return methods[i].TestMethodName < methods[j].TestMethodName
	})

	return methods, nil
}

func renderCoverageTable(coverages []classCoverage, aggregate float64) string {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Class", "Covered", "Uncovered", "Percent"})
	for _, c := range coverages {
		if !c.HasData {
			t.AppendRow(table.Row{c.ClassName, "-", "-", "no data"})
			continue
		}
		t.AppendRow(table.Row{c.ClassName, c.Covered, c.Uncovered, fmt.Sprintf("%.1f%%", c.PercentCovered)})
	}
	t.Render()
	fmt.Fprintf(&buf, "\nAggregate coverage: %.1f%%\n", aggregate)
	return buf.String()
}

func toInt(v any) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}
