package pagetype

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnresolvedDependencies matches every UnresolvedDependenciesError.
var ErrUnresolvedDependencies = eris.New("unresolved page type dependencies")

// UnresolvedDependenciesError lists the page types that could not be ordered,
// either because of a cycle or because they depend on an unknown type.
type UnresolvedDependenciesError struct {
	Types []string
}

func (e *UnresolvedDependenciesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedDependencies.Error(), strings.Join(e.Types, ", "))
}

// Is lets errors.Is and eris.Is match the sentinel.
func (e *UnresolvedDependenciesError) Is(target error) bool {
	return target == ErrUnresolvedDependencies
}

// ResolveOrder orders the registered page types so that every type comes
// after the types it depends on. Without a dependency map the registration
// order is returned.
func ResolveOrder(registry *Registry) ([]string, error) {
	names := registry.Names()
	deps := registry.Dependencies()
	if deps == nil {
		return names, nil
	}

	pending := names
	emitted := make(map[string]struct{}, len(names))
	ordered := make([]string, 0, len(names))

	for len(pending) > 0 {
		remaining := pending[:0:0]
		progress := 0

		for _, name := range pending {
			if dependenciesEmitted(deps[name], emitted) {
				emitted[name] = struct{}{}
				ordered = append(ordered, name)
				progress++
				continue
			}
			remaining = append(remaining, name)
		}

		pending = remaining
		if progress == 0 {
			break
		}
	}

	if len(pending) > 0 {
		return nil, &UnresolvedDependenciesError{Types: pending}
	}

	return ordered, nil
}

func dependenciesEmitted(deps []string, emitted map[string]struct{}) bool {
	for _, dep := range deps {
		if _, ok := emitted[dep]; !ok {
			return false
		}
	}
	return true
}
