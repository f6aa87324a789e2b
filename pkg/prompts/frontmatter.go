package prompts

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// promptDoc is the YAML frontmatter of a prompt markdown file, followed
// by its body as plain text.
type promptDoc struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Arguments   []promptArgumentDoc `yaml:"arguments,omitempty"`
	Body        string             `yaml:"-"`
}

type promptArgumentDoc struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
}

// parsePromptMD parses a prompt file's YAML frontmatter between `---`
// delimiters followed by a markdown body.
func parsePromptMD(data []byte) (*promptDoc, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	trimmed := strings.TrimLeft(content, " \t")
	if !strings.HasPrefix(trimmed, "---") {
		return nil, fmt.Errorf("prompt file has no frontmatter")
	}

	lines := strings.SplitAfter(content, "\n")
	openIdx, closeIdx := -1, -1
	for i, line := range lines {
		if strings.TrimSpace(strings.TrimRight(line, "\n")) == "---" {
			if openIdx == -1 {
				openIdx = i
			} else {
				closeIdx = i
				break
			}
		}
	}
	if closeIdx == -1 {
		return nil, fmt.Errorf("prompt file frontmatter is not closed")
	}

	var fmBuilder strings.Builder
	for i := openIdx + 1; i < closeIdx; i++ {
		fmBuilder.WriteString(lines[i])
	}

	var bodyBuilder strings.Builder
	for i := closeIdx + 1; i < len(lines); i++ {
		bodyBuilder.WriteString(lines[i])
	}
	body := strings.TrimPrefix(bodyBuilder.String(), "\n")

	var doc promptDoc
	if err := yaml.Unmarshal([]byte(fmBuilder.String()), &doc); err != nil {
		return nil, fmt.Errorf("parsing prompt frontmatter: %w", err)
	}
	doc.Body = body

	if doc.Name == "" {
		return nil, fmt.Errorf("prompt frontmatter missing name")
	}

	return &doc, nil
}
