package span

import (
	"strings"
	"unicode"
)

// nativeName settles the event name to look up. The emit argument wins; when
// it is empty the name is recovered from the payload the way each agent
// labels its events.
func nativeName(source Source, arg string, p Payload) string {
	name := strings.TrimSpace(arg)
	switch source {
	case SourceClaudeCode:
		if name == "" {
			name, _ = p.String("hook_event_name")
		}
	case SourceOpenCode:
		if name == "" {
			name, _ = p.String("type", "event")
		}
	case SourceOpenClaw:
		// OpenClaw events are "type:action"; the payload carries both halves.
		if name == "" {
			name, _ = p.String("type")
		}
		if name != "" && !strings.Contains(name, ":") {
			if action, ok := p.String("action"); ok {
				name = name + ":" + action
			}
		}
	}
	return strings.TrimSpace(name)
}

// resolve maps a native name to its rule. Undeclared names produce a bare rule
// whose event type is the snake_case form of the native name.
func resolve(source Source, native string) (rule, bool) {
	if r, ok := lookup(source, native); ok {
		return r, true
	}
	snake := toSnake(native)
	if r, ok := lookup(source, snake); ok {
		return r, true
	}
	return rule{eventType: snake}, false
}

// toSnake lowercases s, splits PascalCase words, and turns separators into
// single underscores: "PostToolUse" and "tool.execute-after" become
// "post_tool_use" and "tool_execute_after".
func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(strings.TrimSpace(s))
	lastUnderscore := true
	for i, r := range runes {
		switch {
		case r == '.' || r == ':' || r == '-' || r == '_' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case unicode.IsUpper(r):
			if !lastUnderscore && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		default:
			b.WriteRune(r)
			lastUnderscore = false
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
