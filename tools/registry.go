package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hubenschmidt/go-ragdesk/core"
)

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) GetMultiple(names []string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, core.NewError("registry.get", core.ErrNotFound, fmt.Errorf("tool %q", name))
		}
		result = append(result, t)
	}
	return result, nil
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the schemas of every registered tool.
func (r *Registry) Schemas() []core.ToolSchema {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]core.ToolSchema, len(names))
	for i, name := range names {
		schemas[i] = SchemaOf(r.tools[name])
	}
	return schemas
}
