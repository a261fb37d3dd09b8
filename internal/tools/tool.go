package tools

import (
	"context"
)

// Tool is one capability exposed by the demo tool host. Every tool takes a
// single text input; the host maps the MCP "text" argument onto it.
type Tool interface {
	Name() string
	Description() string
	InputHint() string // description of the "text" argument
	Execute(ctx context.Context, text string) (string, error)
}

// Registry manages the set of tools the host serves.
type Registry struct {
	Tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		Tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.Tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.Tools[name]
}
