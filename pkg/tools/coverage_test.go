package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetApexClassCodeCoverageOrdersWorstFirstAndMissingLast(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{
		"records": [
			{"ApexClassOrTrigger": {"Name": "GoodClass"}, "NumLinesCovered": 90, "NumLinesUncovered": 10},
			{"ApexClassOrTrigger": {"Name": "BadClass"}, "NumLinesCovered": 10, "NumLinesUncovered": 90}
		]
	}`))

	result, err := deps.getApexClassCodeCoverage(context.Background(), map[string]any{
		"classNames": []any{"GoodClass", "BadClass", "MissingClass"},
	})
	require.NoError(t, err)

	classes, ok := result.StructuredContent["classes"].([]classCoverage)
	require.True(t, ok)
	require.Len(t, classes, 3)
	assert.Equal(t, "BadClass", classes[0].ClassName)
	assert.Equal(t, "GoodClass", classes[1].ClassName)
	assert.Equal(t, "MissingClass", classes[2].ClassName)
	assert.False(t, classes[2].HasData)
}

func TestGetApexClassCodeCoverageIncludesPerMethodBreakdown(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{
		"records": [
			{
				"ApexClassOrTrigger": {"Name": "GoodClass"},
				"ApexTestClass": {"Name": "GoodClassTest"},
				"TestMethodName": "testUpdate",
				"NumLinesCovered": 45,
				"NumLinesUncovered": 5
			},
			{
				"ApexClassOrTrigger": {"Name": "GoodClass"},
				"ApexTestClass": {"Name": "GoodClassTest"},
				"TestMethodName": "testInsert",
				"NumLinesCovered": 45,
				"NumLinesUncovered": 5
			}
		]
	}`))

	result, err := deps.getApexClassCodeCoverage(context.Background(), map[string]any{
		"classNames": []any{"GoodClass"},
	})
	require.NoError(t, err)

	methods, ok := result.StructuredContent["perMethod"].([]methodCoverage)
	require.True(t, ok)
	require.Len(t, methods, 2)
	assert.Equal(t, "GoodClass", methods[0].ClassName)
	assert.Equal(t, "GoodClassTest", methods[0].TestClassName)
	assert.Equal(t, "testInsert", methods[0].TestMethodName)
	assert.Equal(t, "testUpdate", methods[1].TestMethodName)
}

func TestGetApexClassCodeCoverageRejectsEmptyClassNames(t *testing.T) {
	deps, _ := newTestDeps(t, jsonHandler(`{}`))
	_, err := deps.getApexClassCodeCoverage(context.Background(), map[string]any{"classNames": []any{}})
	require.Error(t, err)
}
