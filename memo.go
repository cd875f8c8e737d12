package applier

// memoCache is a get-or-compute cache. A value is built at most once per
// key; a failed build caches nothing, so the next lookup retries.
type memoCache[K comparable, V any] struct {
	entries map[K]V
}

func newMemoCache[K comparable, V any]() *memoCache[K, V] {
	return &memoCache[K, V]{
		entries: make(map[K]V),
	}
}

func (c *memoCache[K, V]) GetOrBuild(key K, build func() (V, error)) (V, error) {
	if v, ok := c.entries[key]; ok {
		return v, nil
	}

	v, err := build()
	if err != nil {
		var zero V
		return zero, err
	}

	c.entries[key] = v
	return v, nil
}

func (c *memoCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *memoCache[K, V]) Invalidate(key K) {
	delete(c.entries, key)
}

func (c *memoCache[K, V]) Len() int {
	return len(c.entries)
}
