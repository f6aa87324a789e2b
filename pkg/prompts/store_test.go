package prompts

import (
	"testing"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreListsAllThreePrompts(t *testing.T) {
	s := NewStore()
	prompts := s.List()
	require.Len(t, prompts, 3)

	names := make([]string, len(prompts))
	for i, p := range prompts {
		names[i] = p.Name
	}
	assert.Contains(t, names, "apex-run-script")
	assert.Contains(t, names, "tools-basic-run")
	assert.Contains(t, names, "orgOnboarding")
}

func TestGetApexRunScriptSubstitutesArguments(t *testing.T) {
	s := NewStore()
	result, err := s.Get(mcp.PromptsGetParams{
		Name: "apex-run-script",
		Arguments: map[string]string{
			"apexCode":  "System.debug('hi');",
			"mayModify": "true",
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)

	text := result.Messages[0].Content.Text
	assert.Contains(t, text, "System.debug('hi');")
	assert.Contains(t, text, "mayModify: true")
	assert.NotContains(t, text, "{{apexCode}}")
}

func TestGetApexRunScriptUsesDefaultForOptionalArgument(t *testing.T) {
	s := NewStore()
	result, err := s.Get(mcp.PromptsGetParams{
		Name:      "apex-run-script",
		Arguments: map[string]string{"apexCode": "1+1;"},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Messages[0].Content.Text, "mayModify: false")
}

func TestGetRequiresRequiredArgument(t *testing.T) {
	s := NewStore()
	_, err := s.Get(mcp.PromptsGetParams{Name: "apex-run-script", Arguments: map[string]string{}})
	require.Error(t, err)
}

func TestGetUnknownPromptErrors(t *testing.T) {
	s := NewStore()
	_, err := s.Get(mcp.PromptsGetParams{Name: "does-not-exist"})
	require.Error(t, err)
}

func TestGetOrgOnboardingWithoutFocusAreaHasNoPlaceholderLeft(t *testing.T) {
	s := NewStore()
	result, err := s.Get(mcp.PromptsGetParams{Name: "orgOnboarding"})
	require.NoError(t, err)
	assert.NotContains(t, result.Messages[0].Content.Text, "{{focusArea}}")
}
