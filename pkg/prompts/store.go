// Package prompts implements the three static prompts exposed over
// prompts/list and prompts/get (spec §6.2): apex-run-script,
// tools-basic-run, and orgOnboarding. Each is a markdown file with YAML
// frontmatter describing its name, description, and arguments; argument
// substitution is a literal `{{argName}}` replace, no template engine.
package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
)

//go:embed markdown/*.md
var markdownFS embed.FS

// Store holds the parsed prompt table, built once at construction from
// the embedded markdown files.
type Store struct {
	byName map[string]*promptDoc
	order  []string
}

// NewStore parses every embedded prompt file and returns a Store. It
// panics on a malformed embedded file, since that indicates a packaging
// error rather than a runtime condition.
func NewStore() *Store {
	entries, err := markdownFS.ReadDir("markdown")
	if err != nil {
		panic(fmt.Sprintf("prompts: reading embedded markdown: %v", err))
	}

	s := &Store{byName: make(map[string]*promptDoc)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := markdownFS.ReadFile("markdown/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("prompts: reading %s: %v", entry.Name(), err))
		}
		doc, err := parsePromptMD(data)
		if err != nil {
			panic(fmt.Sprintf("prompts: parsing %s: %v", entry.Name(), err))
		}
		if _, exists := s.byName[doc.Name]; exists {
			panic(fmt.Sprintf("prompts: duplicate prompt name %q", doc.Name))
		}
		s.byName[doc.Name] = doc
		s.order = append(s.order, doc.Name)
	}

	sort.Strings(s.order)
	return s
}

// List returns the prompt contracts in name order.
func (s *Store) List() []mcp.Prompt {
	out := make([]mcp.Prompt, 0, len(s.order))
	for _, name := range s.order {
		doc := s.byName[name]
		args := make([]mcp.PromptArgument, len(doc.Arguments))
		for i, a := range doc.Arguments {
			args[i] = mcp.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required}
		}
		out = append(out, mcp.Prompt{Name: doc.Name, Description: doc.Description, Arguments: args})
	}
	return out
}

// Get renders a prompt by name, substituting `{{argName}}` literals with
// the caller-supplied arguments (falling back to each argument's default,
// then erroring if a required argument is still missing).
func (s *Store) Get(params mcp.PromptsGetParams) (*mcp.PromptsGetResult, error) {
	doc, ok := s.byName[params.Name]
	if !ok {
		return nil, sferrors.Newf(sferrors.KindValidation, "unknown prompt %q", params.Name)
	}

	body := doc.Body
	for _, arg := range doc.Arguments {
		placeholder := "{{" + arg.Name + "}}"
		value, provided := params.Arguments[arg.Name]
		if !provided {
			if arg.Default != "" {
				value = arg.Default
			} else if arg.Required {
				return nil, sferrors.Newf(sferrors.KindValidation, "required argument %q not provided for prompt %q", arg.Name, doc.Name)
			}
		}
		body = strings.ReplaceAll(body, placeholder, value)
	}

	return &mcp.PromptsGetResult{
		Description: doc.Description,
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.NewTextContent(body)},
		},
	}, nil
}
