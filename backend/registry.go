package backend

import (
	"sync"
)

// ProviderFactory builds a fresh Provider. Factories run under the
// registry lock and must not block.
type ProviderFactory func() Provider

var (
	registryMu sync.RWMutex
	providers  = make(map[string]ProviderFactory)

	// Selection order when the caller names no backend. A windowed
	// surface needs the native backend, so it outranks the headless
	// pure-Go one whenever both are linked in.
	providerPriority = []string{NameWebGPU, NameGoGPU}
)

// Register makes a provider selectable under name, replacing any
// earlier registration. Backend packages call this from init, so a
// blank import is all it takes to enable one.
func Register(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[name] = factory
}

// Unregister removes a registration. Tests use it to clean up
// providers they registered under throwaway names.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(providers, name)
}

// Available returns the names of every registered provider.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether name has a registered provider.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := providers[name]
	return ok
}

// Get builds the provider registered under name, or nil when the
// name is unknown.
func Get(name string) Provider {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := providers[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default builds the highest-priority registered provider. Providers
// registered outside the priority list are considered last, in no
// particular order. Returns nil when nothing is registered.
func Default() Provider {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range providerPriority {
		if factory, ok := providers[name]; ok {
			if p := factory(); p != nil {
				return p
			}
		}
	}
	for _, factory := range providers {
		if p := factory(); p != nil {
			return p
		}
	}
	return nil
}

// MustDefault is Default, panicking when no backend is linked in.
func MustDefault() Provider {
	p := Default()
	if p == nil {
		panic("backend: no backend available")
	}
	return p
}
