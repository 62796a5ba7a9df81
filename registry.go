package pipeline

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Factory builds a Transform for a stage of a given name. Registered by the
// process that owns the concrete stage implementations (see the stages
// package); Pipeline never imports a concrete Transform directly, mirroring
// the loader boundary an external plugin loader occupies in the original
// design — resolving a name to a constructor without the orchestrator
// knowing what any particular stage actually does.
type Factory func() Transform

// Registry resolves stage names to Factories. The zero value is not usable;
// construct one with NewRegistry.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates name with factory, overwriting any prior registration
// under the same name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns every registered stage name in a stable, sorted order.
func (r *Registry) Names() []string {
	names := lo.Keys(r.factories)
	return lo.Uniq(sortStrings(names))
}

// Resolve validates name and looks up its Factory. Stage names must be
// non-empty and must not end in ".so" — the original loader used a bare
// filename as its stage identifier, and a name ending in .so most likely
// means the caller pasted the shared-object filename instead of the stage
// name it exports.
func (r *Registry) Resolve(name string) (Factory, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrStageNameEmpty
	}
	if strings.HasSuffix(trimmed, ".so") {
		return nil, ErrStageNameIsSo
	}
	factory, ok := r.factories[trimmed]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, trimmed)
	}
	return factory, nil
}

func sortStrings(in []string) []string {
	out := append([]string(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
