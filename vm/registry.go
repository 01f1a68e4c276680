package vm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/opaline-labs/mintchain/core"
)

// Handler is the function signature every contract endpoint must implement.
type Handler func(ctx *Context, payload json.RawMessage) error

// CallbackHandler receives the result of a resolved async system call. It
// runs inside the resolution transaction, so its effects are atomic with the
// system primitive's own.
type CallbackHandler func(ctx *Context, job *Job, res AsyncResult) error

// Registry maps TxTypes to Handlers and callback names to CallbackHandlers.
// Thread-safe for concurrent registration.
type Registry struct {
	mu        sync.RWMutex
	handlers  map[core.TxType]Handler
	callbacks map[string]CallbackHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:  make(map[core.TxType]Handler),
		callbacks: make(map[string]CallbackHandler),
	}
}

// Register associates typ with h. Panics on duplicate registration.
func (r *Registry) Register(typ core.TxType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[typ]; exists {
		panic(fmt.Sprintf("vm: handler already registered for TxType %q", typ))
	}
	r.handlers[typ] = h
}

// RegisterCallback associates name with cb. Panics on duplicate registration.
func (r *Registry) RegisterCallback(name string, cb CallbackHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[name]; exists {
		panic(fmt.Sprintf("vm: callback already registered for %q", name))
	}
	r.callbacks[name] = cb
}

// Execute dispatches payload to the handler registered for typ.
func (r *Registry) Execute(typ core.TxType, ctx *Context, payload json.RawMessage) error {
	r.mu.RLock()
	h, ok := r.handlers[typ]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("vm: no handler registered for TxType %q", typ)
	}
	return h(ctx, payload)
}

func (r *Registry) callback(name string) (CallbackHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.callbacks[name]
	return cb, ok
}

// globalRegistry is the package-level singleton that modules register into.
var globalRegistry = NewRegistry()

// Register adds a handler to the global registry.
// Module init() functions call this to self-register.
func Register(typ core.TxType, h Handler) {
	globalRegistry.Register(typ, h)
}

// RegisterCallback adds an async-result callback to the global registry.
func RegisterCallback(name string, cb CallbackHandler) {
	globalRegistry.RegisterCallback(name, cb)
}
