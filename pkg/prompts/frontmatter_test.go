package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePromptMDValidFull(t *testing.T) {
	input := `---
name: example
description: An example prompt
arguments:
  - name: foo
    description: the foo argument
    required: true
---

Use {{foo}} here.
`
	doc, err := parsePromptMD([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "example", doc.Name)
	assert.Equal(t, "An example prompt", doc.Description)
	require.Len(t, doc.Arguments, 1)
	assert.Equal(t, "foo", doc.Arguments[0].Name)
	assert.True(t, doc.Arguments[0].Required)
	assert.Equal(t, "Use {{foo}} here.\n", doc.Body)
}

func TestParsePromptMDMissingFrontmatterErrors(t *testing.T) {
	_, err := parsePromptMD([]byte("just a body, no frontmatter"))
	require.Error(t, err)
}

func TestParsePromptMDUnclosedFrontmatterErrors(t *testing.T) {
	_, err := parsePromptMD([]byte("---\nname: x\n"))
	require.Error(t, err)
}

func TestParsePromptMDMissingNameErrors(t *testing.T) {
	_, err := parsePromptMD([]byte("---\ndescription: no name here\n---\nbody\n"))
	require.Error(t, err)
}
