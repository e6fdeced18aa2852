package toolset

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Registry manages a collection of tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		order: make([]string, 0),
	}
}

// Register adds a tool. A tool with the same name is replaced in place.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[strings.ToLower(name)]
	return t, ok
}

// All returns all registered tools in registration order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, len(r.order))
	for i, name := range r.order {
		result[i] = r.tools[name]
	}
	return result
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// ForLanguage returns the tools supporting language, in registration order.
func (r *Registry) ForLanguage(language string) []Tool {
	var out []Tool
	for _, t := range r.All() {
		if t.Supports(language) {
			out = append(out, t)
		}
	}
	return out
}

// SupportedLanguages returns every language some tool supports, sorted.
func (r *Registry) SupportedLanguages() []string {
	seen := make(map[string]bool)
	for _, t := range r.All() {
		for _, l := range t.Languages() {
			seen[l] = true
		}
	}
	langs := make([]string, 0, len(seen))
	for l := range seen {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// constructors lists every adapter variant in its stable listing order.
var constructors = []func(Options) Tool{
	func(o Options) Tool { return NewPMD(o) },
	func(o Options) Tool { return NewMatlab(o) },
	func(o Options) Tool { return NewEstimator(o) },
}

// Builtin returns a registry holding a fresh instance of every adapter.
func Builtin(opts Options) *Registry {
	r := NewRegistry()
	for _, newTool := range constructors {
		r.Register(newTool(opts))
	}
	return r
}

// ListTools returns one freshly constructed instance of every adapter, in
// the order pmd, matlab, estimator. No tool is run and no manifest is read;
// an empty ToolsRoot is still resolved from the executable path.
func ListTools(opts Options) []Tool {
	return Builtin(opts).All()
}

// Lookup returns a fresh instance of the named adapter.
func Lookup(name string, opts Options) (Tool, error) {
	r := Builtin(opts)
	if t, ok := r.Get(name); ok {
		return t, nil
	}
	return nil, errors.WithHintf(
		errors.Newf("unknown tool %q", name),
		"available tools: %s", strings.Join(r.Names(), ", "))
}
