package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/ocmigrate/pkg/frontmatter"
)

func parseHeader(t *testing.T, yamlBlock string) *frontmatter.Map {
	t.Helper()
	doc, err := frontmatter.Parse("---\n" + yamlBlock + "\n---\n")
	require.NoError(t, err)
	return doc.Header
}

func TestTransformAgent(t *testing.T) {
	transformer := NewTransformer(DefaultWriteAgents...)

	tests := []struct {
		name     string
		header   string
		fallback string
		expected map[string]any
	}{
		{
			name:     "write agent with write tool gets allow",
			header:   "name: codebase-analyzer\ndescription: Analyzes code\ntools: [Read, Write]",
			fallback: "ignored",
			expected: map[string]any{
				"description": "Analyzes code",
				"mode":        "primary",
				"tools":       map[string]any{"read": true, "write": true},
				"permission":  map[string]any{"bash": map[string]any{"*": "allow"}},
			},
		},
		{
			name:     "generic agent without tools gets ask",
			header:   "name: generic-helper\ndescription: Helps",
			fallback: "generic-helper",
			expected: map[string]any{
				"description": "Helps",
				"mode":        "primary",
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
		{
			name:     "write agent without write tool gets no permission",
			header:   "name: planning-ci-cd\ndescription: CI\ntools:\n  - Read\n  - Grep",
			fallback: "planning-ci-cd",
			expected: map[string]any{
				"description": "CI",
				"mode":        "primary",
				"tools":       map[string]any{"read": true, "grep": true},
			},
		},
		{
			name:     "write agent without tools gets no permission",
			header:   "description: Docs",
			fallback: "planning-documentation",
			expected: map[string]any{
				"description": "Docs",
				"mode":        "primary",
			},
		},
		{
			name:     "fallback name is used when header has no name",
			header:   "tools: [Write]",
			fallback: "planning-implementation",
			expected: map[string]any{
				"description": "",
				"mode":        "primary",
				"tools":       map[string]any{"write": true},
				"permission":  map[string]any{"bash": map[string]any{"*": "allow"}},
			},
		},
		{
			name:     "null name does not fall back to a write-set file name",
			header:   "name:\ndescription: d\ntools: [Read, Write]",
			fallback: "codebase-analyzer",
			expected: map[string]any{
				"description": "d",
				"mode":        "primary",
				"tools":       map[string]any{"read": true, "write": true},
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
		{
			name:     "non-string name never matches the write set",
			header:   "name: [codebase-analyzer]\ntools: [Write]",
			fallback: "codebase-analyzer",
			expected: map[string]any{
				"description": "",
				"mode":        "primary",
				"tools":       map[string]any{"write": true},
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
		{
			name:     "comma separated tools string",
			header:   "name: helper\ntools: Read, Bash,  WebFetch",
			fallback: "helper",
			expected: map[string]any{
				"description": "",
				"mode":        "primary",
				"tools":       map[string]any{"read": true, "bash": true, "webfetch": true},
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
		{
			name:     "null tools still yields a tools map",
			header:   "name: helper\ntools:",
			fallback: "helper",
			expected: map[string]any{
				"description": "",
				"mode":        "primary",
				"tools":       map[string]any{},
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
		{
			name:     "null description is kept",
			header:   "name: helper\ndescription:",
			fallback: "helper",
			expected: map[string]any{
				"description": nil,
				"mode":        "primary",
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
		{
			name:     "unknown fields are dropped",
			header:   "name: helper\ncolor: blue\nmodel: opus",
			fallback: "helper",
			expected: map[string]any{
				"description": "",
				"mode":        "primary",
				"permission":  map[string]any{"bash": map[string]any{"*": "ask"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := transformer.TransformAgent(parseHeader(t, tt.header), tt.fallback)
			assert.Equal(t, tt.expected, out.Native())
		})
	}
}

func TestTransformAgentEmptyHeader(t *testing.T) {
	out := NewTransformer().TransformAgent(frontmatter.NewMap(), "anything")
	assert.Equal(t, []string{"description", "mode", "permission"}, out.Keys())
	assert.Equal(t, "", out.StringOr("description", "missing"))
	assert.Equal(t, AgentMode, out.StringOr("mode", ""))
}

func TestTransformAgentUsesInjectedWriteSet(t *testing.T) {
	header := parseHeader(t, "name: custom-writer\ntools: [Write]")

	withDefault := NewTransformer(DefaultWriteAgents...).TransformAgent(header, "custom-writer")
	assert.Equal(t, map[string]any{"bash": map[string]any{"*": "ask"}},
		withDefault.GetOr("permission", frontmatter.Null()).Native())

	custom := NewTransformer("custom-writer").TransformAgent(header, "custom-writer")
	assert.Equal(t, map[string]any{"bash": map[string]any{"*": "allow"}},
		custom.GetOr("permission", frontmatter.Null()).Native())
}

func TestTransformAgentShape(t *testing.T) {
	transformer := NewTransformer(DefaultWriteAgents...)
	headers := []string{
		"name: a",
		"name: a\ntools: [Read]",
		"name: codebase-analyzer\ntools: [Write]",
		"name: codebase-analyzer\ntools: [Read]",
		"description: only",
		"name: x\ndescription: y\nmodel: z\ntools: [A, B, C]\nextra: [1, 2]",
	}

	allowed := map[string]bool{"description": true, "mode": true, "tools": true, "permission": true}
	for _, h := range headers {
		in := parseHeader(t, h)
		out := transformer.TransformAgent(in, "fallback")

		assert.True(t, out.Has("description"), h)
		assert.True(t, out.Has("mode"), h)
		assert.Equal(t, in.Has("tools"), out.Has("tools"), h)
		for _, k := range out.Keys() {
			assert.True(t, allowed[k], "unexpected key %q for %q", k, h)
		}
	}
}

func TestTransformCommand(t *testing.T) {
	transformer := NewTransformer()
	expectedPermission := map[string]any{
		"bash": map[string]any{"git *": "allow", "mkdir *": "allow", "*": "ask"},
	}

	t.Run("copies description and model", func(t *testing.T) {
		out := transformer.TransformCommand(parseHeader(t, "description: Review code\nmodel: sonnet\nargument-hint: '[file]'"))
		assert.Equal(t, map[string]any{
			"description": "Review code",
			"model":       "sonnet",
			"permission":  expectedPermission,
		}, out.Native())
	})

	t.Run("omits absent fields", func(t *testing.T) {
		out := transformer.TransformCommand(frontmatter.NewMap())
		assert.Equal(t, []string{"permission"}, out.Keys())
		assert.Equal(t, expectedPermission, out.GetOr("permission", frontmatter.Null()).Native())
	})

	t.Run("permission is fixed regardless of input", func(t *testing.T) {
		out := transformer.TransformCommand(parseHeader(t, "permission:\n  bash:\n    '*': deny"))
		assert.Equal(t, expectedPermission, out.GetOr("permission", frontmatter.Null()).Native())
	})
}
