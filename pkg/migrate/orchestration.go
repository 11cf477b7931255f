package migrate

import (
	"regexp"
	"strings"
)

// Rewrite is a single body substitution
type Rewrite interface {
	Apply(body string) string
}

// PatternRewrite replaces every match of Pattern with Replacement, which may
// reference capture groups as ${1}.
type PatternRewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply implements Rewrite
func (r PatternRewrite) Apply(body string) string {
	return r.Pattern.ReplaceAllString(body, r.Replacement)
}

// LiteralRewrite replaces every exact, case-sensitive occurrence of Old with New
type LiteralRewrite struct {
	Old string
	New string
}

// Apply implements Rewrite
func (r LiteralRewrite) Apply(body string) string {
	return strings.ReplaceAll(body, r.Old, r.New)
}

// mention is the replacement for a captured agent name
const mention = "@${1}"

// CommandBodyRewrites turns Task tool delegation into @ mentions and drops
// claims of parallel execution. Order matters: the most specific Task form is
// rewritten first so the generic subagent_type rule only sees leftovers.
var CommandBodyRewrites = []Rewrite{
	PatternRewrite{
		Pattern:     regexp.MustCompile(`Use Task tool with subagent_type="([^"]+)":`),
		Replacement: mention,
	},
	PatternRewrite{
		Pattern:     regexp.MustCompile(`Task\(.*?subagent_type="([^"]+)".*?\)`),
		Replacement: mention,
	},
	PatternRewrite{
		Pattern:     regexp.MustCompile(`subagent_type="([^"]+)"`),
		Replacement: mention,
	},
	LiteralRewrite{
		Old: "Launch agents in parallel",
		New: "Launch agents sequentially (OpenCode limitation)",
	},
	LiteralRewrite{
		Old: "run simultaneously",
		New: "run sequentially",
	},
	LiteralRewrite{
		Old: "parallel execution",
		New: "sequential execution",
	},
}

// AdaptCommandBody applies CommandBodyRewrites in order. The body is treated
// as opaque text, so matches inside code blocks are rewritten too.
func AdaptCommandBody(body string) string {
	return ApplyRewrites(body, CommandBodyRewrites)
}

// ApplyRewrites feeds body through each rewrite in turn
func ApplyRewrites(body string, rewrites []Rewrite) string {
	for _, r := range rewrites {
		body = r.Apply(body)
	}
	return body
}
