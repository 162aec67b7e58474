package assistants

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Directive is a tool call requested by the model in its reply text
type Directive struct {
	Tool string
	Args map[string]any
	// Raw is the JSON object the directive was parsed from
	Raw string
}

// DirectiveParser extracts a tool call from the model reply.
// The second return value is false when the reply is a final answer.
type DirectiveParser func(reply string) (*Directive, bool)

// ParseDirective parses the first JSON object in the reply that contains
// "tool". The reply is a final answer when that object is not valid JSON or
// has no non-empty string "tool" member at the top level. The "args" member
// is used only when it is an object; otherwise the directive has empty arguments.
// Text around the object, including code fences, is ignored.
func ParseDirective(reply string) (*Directive, bool) {
	for start := strings.IndexByte(reply, '{'); start >= 0; {
		end := matchBrace(reply, start)
		if end < 0 {
			return nil, false
		}
		candidate := reply[start : end+1]
		if strings.Contains(candidate, `"tool"`) {
			return directiveFromJSON(candidate)
		}

		next := strings.IndexByte(reply[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func directiveFromJSON(candidate string) (*Directive, bool) {
	if !strings.Contains(candidate, `"tool"`) || !gjson.Valid(candidate) {
		return nil, false
	}
	obj := gjson.Parse(candidate)
	tool := obj.Get("tool")
	if tool.Type != gjson.String || strings.TrimSpace(tool.Str) == "" {
		return nil, false
	}

	d := &Directive{
		Tool: strings.TrimSpace(tool.Str),
		Args: map[string]any{},
		Raw:  candidate,
	}
	if args := obj.Get("args"); args.IsObject() {
		if m, ok := args.Value().(map[string]any); ok {
			d.Args = m
		}
	}
	return d, true
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings, or -1 if it is not closed.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
