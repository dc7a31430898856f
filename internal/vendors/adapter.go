// Package vendors translates normalized task requests into vendor wire
// protocols. Three strategies cover every vendor: create-then-poll,
// streaming chat-completion, and plain synchronous request/response;
// per-vendor differences live in small profile tables, not in types.
package vendors

import (
	"context"

	"mediacore/internal/domain"
)

// Adapter launches a generation task against a resolved vendor context and
// returns a normalized result. No vendor field name leaks past an adapter
// except inside the result's raw diagnostic bag.
type Adapter interface {
	Vendor() string
	Launch(ctx context.Context, vc domain.VendorContext, req domain.TaskRequest) (*domain.TaskResult, error)
}

// Poller is implemented by adapters for asynchronous protocols.
type Poller interface {
	Poll(ctx context.Context, vc domain.VendorContext, taskID string, kind domain.TaskKind) (*domain.TaskResult, error)
}

type registryKey struct {
	vendor string
	kind   domain.TaskKind
}

// Registry selects the adapter for a (vendor, task kind) pair.
type Registry struct {
	adapters map[registryKey]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[registryKey]Adapter)}
}

// Register binds an adapter to a vendor for the given task kinds.
func (r *Registry) Register(adapter Adapter, kinds ...domain.TaskKind) {
	for _, kind := range kinds {
		r.adapters[registryKey{vendor: adapter.Vendor(), kind: kind}] = adapter
	}
}

// Lookup returns the adapter for a vendor/kind pair.
func (r *Registry) Lookup(vendor string, kind domain.TaskKind) (Adapter, bool) {
	a, ok := r.adapters[registryKey{vendor: Canonical(vendor), kind: kind}]
	return a, ok
}

// Kinds returns the task kinds a vendor is registered for.
func (r *Registry) Kinds(vendor string) []domain.TaskKind {
	vendor = Canonical(vendor)
	var kinds []domain.TaskKind
	for key := range r.adapters {
		if key.vendor == vendor {
			kinds = append(kinds, key.kind)
		}
	}
	return kinds
}
