package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptCommandBody(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "use task tool directive",
			input:    "1. Use Task tool with subagent_type=\"reviewer\": check the diff\n",
			expected: "1. @reviewer check the diff\n",
		},
		{
			name:     "task call",
			input:    "Run Task(description=\"scan\", subagent_type=\"codebase-analyzer\", prompt=\"go\") now",
			expected: "Run @codebase-analyzer now",
		},
		{
			name:     "bare subagent type",
			input:    "Delegate with subagent_type=\"planning-ci-cd\" and wait.",
			expected: "Delegate with @planning-ci-cd and wait.",
		},
		{
			name:     "multiple mentions on one line",
			input:    "subagent_type=\"a\" then subagent_type=\"b\"",
			expected: "@a then @b",
		},
		{
			name:     "task call does not span lines",
			input:    "Task(\nsubagent_type=\"x\"\n)",
			expected: "Task(\n@x\n)",
		},
		{
			name:     "launch in parallel",
			input:    "Launch agents in parallel to speed things up.",
			expected: "Launch agents sequentially (OpenCode limitation) to speed things up.",
		},
		{
			name:     "run simultaneously",
			input:    "These checks run simultaneously.",
			expected: "These checks run sequentially.",
		},
		{
			name:     "parallel execution",
			input:    "Relies on parallel execution.",
			expected: "Relies on sequential execution.",
		},
		{
			name:     "literal phrases are case sensitive",
			input:    "launch agents in parallel. Parallel execution.",
			expected: "launch agents in parallel. Parallel execution.",
		},
		{
			name:     "code blocks are not special",
			input:    "```\nsubagent_type=\"inside-code\"\n```\n",
			expected: "```\n@inside-code\n```\n",
		},
		{
			name:     "unrelated text is untouched",
			input:    "# Title\n\nNothing to see.\n",
			expected: "# Title\n\nNothing to see.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AdaptCommandBody(tt.input))
		})
	}
}

func TestAdaptCommandBodyIsIdempotent(t *testing.T) {
	inputs := []string{
		"Launch agents in parallel. They run simultaneously using parallel execution.",
		"Use Task tool with subagent_type=\"reviewer\": go\nTask(subagent_type=\"x\")\n",
	}

	for _, input := range inputs {
		once := AdaptCommandBody(input)
		assert.Equal(t, once, AdaptCommandBody(once), input)
	}
}

func TestApplyRewritesOrder(t *testing.T) {
	rewrites := []Rewrite{
		LiteralRewrite{Old: "a", New: "b"},
		LiteralRewrite{Old: "b", New: "c"},
	}
	assert.Equal(t, "cc", ApplyRewrites("ab", rewrites))
	assert.Equal(t, "ab", ApplyRewrites("ab", nil))
}
