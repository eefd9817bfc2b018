package pagetype

import (
	"strings"

	"github.com/rotisserie/eris"

	"nodecms/app/internal/content"
)

// Registry maps page type names to handlers, remembering registration order.
type Registry struct {
	handlers     map[string]Handler
	names        []string
	dependencies map[string][]string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given type name.
func (r *Registry) Register(name string, handler Handler) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return eris.New("page type name is required")
	}
	if _, exists := r.handlers[trimmed]; exists {
		return eris.Errorf("page type %s is already registered", trimmed)
	}
	if err := handler.validate(); err != nil {
		return eris.Wrapf(err, "registering page type %s", trimmed)
	}

	r.handlers[trimmed] = handler
	r.names = append(r.names, trimmed)
	return nil
}

// SetDependencies declares, per type, the types whose pages it reads. A nil
// map means no ordering constraints.
func (r *Registry) SetDependencies(deps map[string][]string) {
	r.dependencies = deps
}

// Dependencies returns the declared dependency map, which may be nil.
func (r *Registry) Dependencies() map[string][]string {
	return r.dependencies
}

// DependenciesOf returns the declared dependencies of one type.
func (r *Registry) DependenciesOf(name string) []string {
	if r.dependencies == nil {
		return nil
	}
	return r.dependencies[name]
}

// Get returns the handler for a type name.
func (r *Registry) Get(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

// Names returns type names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Template returns the template of a type, or nil when it is not registered.
func (r *Registry) Template(name string) content.Template {
	handler, ok := r.handlers[name]
	if !ok {
		return nil
	}
	return handler.Template
}
