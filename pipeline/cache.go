package pipeline

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// ModuleCache deduplicates shader-module compilation per device.
// Variant switches that return to a previously compiled source reuse
// the module instead of recompiling. Keys are FNV-1a hashes of the
// WGSL source.
//
// Cached modules are owned by the cache, not by any Resources
// generation; Purge releases them.
type ModuleCache struct {
	dev gpu.Device

	mu      sync.Mutex
	modules map[uint64]gpu.ShaderModuleID

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewModuleCache creates an empty cache for dev.
func NewModuleCache(dev gpu.Device) *ModuleCache {
	return &ModuleCache{dev: dev, modules: make(map[uint64]gpu.ShaderModuleID)}
}

func sourceHash(wgsl string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(wgsl)) // fnv.Write never returns an error
	return h.Sum64()
}

// Get returns the module for wgsl, compiling it on first use.
func (c *ModuleCache) Get(label, wgsl string) (gpu.ShaderModuleID, error) {
	key := sourceHash(wgsl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.modules[key]; ok {
		c.hits.Add(1)
		return id, nil
	}
	id, err := c.dev.CreateShaderModule(&gpu.ShaderModuleDescriptor{Label: label, WGSL: wgsl})
	if err != nil {
		return gpu.InvalidID, err
	}
	c.modules[key] = id
	c.misses.Add(1)
	return id, nil
}

// Len returns the number of cached modules.
func (c *ModuleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

// Stats returns hit and miss counts.
func (c *ModuleCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge destroys every cached module. The cache remains usable.
func (c *ModuleCache) Purge() {
	c.mu.Lock()
	modules := c.modules
	c.modules = make(map[uint64]gpu.ShaderModuleID)
	c.mu.Unlock()
	for _, id := range modules {
		c.dev.DestroyShaderModule(id)
	}
}
