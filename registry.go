package mathpage

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// OutputHandler writes an engine payload into a formula's wrapper node.
// It replaces the default behavior of parsing the payload as the wrapper's
// inner markup.
type OutputHandler func(wrapper *html.Node, payload string) error

// Registry maps output kinds to optional DOM insertion handlers.
// Kinds keep registration order; the order decides which kind wins when
// several output flags are set.
type Registry struct {
	mu       sync.RWMutex
	kinds    []string
	handlers map[string]OutputHandler
}

// NewRegistry creates a registry holding only the built-in kinds.
func NewRegistry() *Registry {
	return &Registry{
		kinds:    []string{OutputMML, OutputHTML, OutputSVG},
		handlers: make(map[string]OutputHandler),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by converters that
// were not given their own via WithRegistry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterOutput registers kind on the process-wide registry.
func RegisterOutput(kind string, handler OutputHandler) error {
	return defaultRegistry.Register(kind, handler)
}

// Register adds kind to the known kinds if absent. A non-nil handler is
// stored for kind, replacing any previous one.
func (r *Registry) Register(kind string, handler OutputHandler) error {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return ErrEmptyOutputKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.knownLocked(kind) {
		r.kinds = append(r.kinds, kind)
	}
	if handler != nil {
		r.handlers[kind] = handler
	}
	return nil
}

// Kinds returns a copy of the known output kinds in registration order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, len(r.kinds))
	copy(kinds, r.kinds)
	return kinds
}

// Known reports whether kind has been registered.
func (r *Registry) Known(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knownLocked(kind)
}

// Lookup returns the registered spelling of kind, matching case-insensitively.
func (r *Registry) Lookup(kind string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.kinds {
		if strings.EqualFold(k, kind) {
			return k, true
		}
	}
	return "", false
}

// Handler returns the custom handler for kind, if any.
func (r *Registry) Handler(kind string) (OutputHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[kind]
	return h, ok
}

func (r *Registry) knownLocked(kind string) bool {
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}
