package applier

// BindGroupKey identifies a bind group by its layout slot and the identity
// of the resource set bound into it. Rebinding different resources (e.g. a
// reloaded texture) means a different Identity.
type BindGroupKey struct {
	Group    uint32
	Identity string
}

// BindGroupCache builds bind groups lazily and caches them by resource
// identity. A build that fails because a referenced resource is not yet
// resident returns the error uncached; the caller skips binding for the
// frame and the same request retries next frame.
type BindGroupCache struct {
	cache *memoCache[BindGroupKey, BindGroup]
}

func NewBindGroupCache() *BindGroupCache {
	return &BindGroupCache{
		cache: newMemoCache[BindGroupKey, BindGroup](),
	}
}

func (c *BindGroupCache) GetOrBuild(key BindGroupKey, build func() (BindGroup, error)) (BindGroup, error) {
	return c.cache.GetOrBuild(key, build)
}

// Invalidate drops a cached bind group so the next GetOrBuild rebuilds it.
// Needed when an underlying resource changes after first build, e.g. a
// texture reloaded mid-run.
func (c *BindGroupCache) Invalidate(key BindGroupKey) {
	c.cache.Invalidate(key)
}

func (c *BindGroupCache) Len() int {
	return c.cache.Len()
}
