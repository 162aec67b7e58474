package tools

import (
	"github.com/cockroachdb/errors"
)

// LocalSet is a fixed collection of in-process tools,
// kept in registration order.
type LocalSet struct {
	tools  []ITool
	byName map[string]ITool
}

// NewLocalSet returns a set with the tools.
// It fails if a tool name is empty or registered twice.
func NewLocalSet(list ...ITool) (*LocalSet, error) {
	s := &LocalSet{
		byName: make(map[string]ITool, len(list)),
	}
	for _, tool := range list {
		name := tool.Name()
		if name == "" {
			return nil, errors.New("tool name is required")
		}
		if s.byName[name] != nil {
			return nil, errors.Newf("tool %q is already registered", name)
		}
		s.byName[name] = tool
		s.tools = append(s.tools, tool)
	}
	return s, nil
}

// Get returns the tool by name, or nil if not found.
func (s *LocalSet) Get(name string) ITool {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Tools returns the tools in registration order.
func (s *LocalSet) Tools() []ITool {
	if s == nil {
		return nil
	}
	return s.tools
}

// Len returns the number of tools.
func (s *LocalSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tools)
}
