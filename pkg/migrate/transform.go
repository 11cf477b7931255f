package migrate

import (
	"strings"

	"github.com/jingkaihe/ocmigrate/pkg/frontmatter"
)

// Permission policies understood by OpenCode
const (
	PermissionAllow = "allow"
	PermissionAsk   = "ask"
)

// AgentMode is the mode assigned to every migrated agent
const AgentMode = "primary"

// DefaultWriteAgents are the agents that create analysis artifacts and so
// need unrestricted bash when they declare the Write tool.
var DefaultWriteAgents = []string{
	"planning-implementation",
	"codebase-analyzer",
	"planning-quality-advisor",
	"planning-security-architect",
	"planning-testing-strategist",
	"planning-ci-cd",
	"planning-performance-architect",
	"planning-bug-prevention",
	"planning-documentation",
}

// Transformer maps Claude Code headers onto OpenCode headers
type Transformer struct {
	writeAgents map[string]struct{}
}

// NewTransformer creates a transformer that grants write access to the named agents
func NewTransformer(writeAgents ...string) *Transformer {
	set := make(map[string]struct{}, len(writeAgents))
	for _, name := range writeAgents {
		set[name] = struct{}{}
	}
	return &Transformer{writeAgents: set}
}

// NeedsWriteAccess reports whether name is in the write-access set
func (t *Transformer) NeedsWriteAccess(name string) bool {
	_, ok := t.writeAgents[name]
	return ok
}

// TransformAgent converts an agent header. fallbackName identifies the agent
// when the header has no name, normally the file name without extension.
//
// Agents in the write-access set only receive a permission block when their
// tools include write; without it they get no permission block at all.
func (t *Transformer) TransformAgent(header *frontmatter.Map, fallbackName string) *frontmatter.Map {
	agentName, named := resolveAgentName(header, fallbackName)

	out := frontmatter.NewMap()
	out.Set("description", header.GetOr("description", frontmatter.String("")))
	out.Set("mode", frontmatter.String(AgentMode))

	var tools *frontmatter.Map
	if v, ok := header.Get("tools"); ok {
		tools = toolsToMap(v)
		out.Set("tools", frontmatter.MapValue(tools))
	}

	if named && t.NeedsWriteAccess(agentName) {
		if tools.Has("write") {
			out.Set("permission", bashPermission(PermissionAllow))
		}
	} else {
		out.Set("permission", bashPermission(PermissionAsk))
	}

	return out
}

// resolveAgentName returns the header's name, or fallbackName when the header
// has none. A name that is present but not a string (null included) never
// identifies an agent, so named is false.
func resolveAgentName(header *frontmatter.Map, fallbackName string) (name string, named bool) {
	v, ok := header.Get("name")
	if !ok {
		return fallbackName, true
	}
	return v.AsString()
}

// TransformCommand converts a command header. description and model are
// carried over when present; the permission block is always the same.
func (t *Transformer) TransformCommand(header *frontmatter.Map) *frontmatter.Map {
	out := frontmatter.NewMap()

	if v, ok := header.Get("description"); ok {
		out.Set("description", v)
	}
	if v, ok := header.Get("model"); ok {
		out.Set("model", v)
	}

	out.Set("permission", CommandPermission())
	return out
}

// CommandPermission returns the bash policy given to every command
func CommandPermission() frontmatter.Value {
	bash := frontmatter.NewMap()
	bash.Set("git *", frontmatter.String(PermissionAllow))
	bash.Set("mkdir *", frontmatter.String(PermissionAllow))
	bash.Set("*", frontmatter.String(PermissionAsk))

	permission := frontmatter.NewMap()
	permission.Set("bash", frontmatter.MapValue(bash))
	return frontmatter.MapValue(permission)
}

func bashPermission(policy string) frontmatter.Value {
	bash := frontmatter.NewMap()
	bash.Set("*", frontmatter.String(policy))

	permission := frontmatter.NewMap()
	permission.Set("bash", frontmatter.MapValue(bash))
	return frontmatter.MapValue(permission)
}

// toolsToMap turns a tools declaration into a lower-cased name → true map.
// Lists are taken item by item; a plain string is read as a comma-separated
// list. Anything else yields an empty map.
func toolsToMap(v frontmatter.Value) *frontmatter.Map {
	tools := frontmatter.NewMap()
	for _, name := range toolNames(v) {
		tools.Set(strings.ToLower(name), frontmatter.Bool(true))
	}
	return tools
}

func toolNames(v frontmatter.Value) []string {
	if items, ok := v.AsList(); ok {
		names := make([]string, 0, len(items))
		for _, item := range items {
			if !item.IsScalar() || item.IsNull() {
				continue
			}
			names = append(names, item.Text())
		}
		return names
	}

	if s, ok := v.AsString(); ok {
		var names []string
		for _, part := range strings.Split(s, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		return names
	}

	return nil
}
