package applier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindGroupCache_NotReadyIsNotCached(t *testing.T) {
	cache := NewBindGroupCache()
	key := BindGroupKey{Group: 0, Identity: "material"}

	builds := 0
	ready := false
	build := func() (BindGroup, error) {
		builds++
		if !ready {
			return nil, ErrNotReady
		}
		return &fakeBindGroup{}, nil
	}

	// Resource not resident yet: every request retries the build.
	_, err := cache.GetOrBuild(key, build)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
	_, err = cache.GetOrBuild(key, build)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
	if builds != 2 {
		t.Errorf("Expected 2 build attempts while unready, got %d", builds)
	}

	// Resource became resident: built once, then served from cache.
	ready = true
	bg, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)
	require.NotNil(t, bg)

	again, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)
	if bg != again {
		t.Errorf("Expected the cached bind group on the second request")
	}
	if builds != 3 {
		t.Errorf("Expected 3 total builds, got %d", builds)
	}
}

func TestBindGroupCache_DistinctKeys(t *testing.T) {
	cache := NewBindGroupCache()

	build := func() (BindGroup, error) { return &fakeBindGroup{}, nil }

	a, err := cache.GetOrBuild(BindGroupKey{Group: 0, Identity: "material"}, build)
	require.NoError(t, err)
	b, err := cache.GetOrBuild(BindGroupKey{Group: 1, Identity: "camera"}, build)
	require.NoError(t, err)

	if a == b {
		t.Errorf("Expected different bind groups for different keys")
	}
	if cache.Len() != 2 {
		t.Errorf("Expected 2 cached entries, got %d", cache.Len())
	}
}

func TestBindGroupCache_InvalidateRebuilds(t *testing.T) {
	cache := NewBindGroupCache()
	key := BindGroupKey{Group: 0, Identity: "material"}

	builds := 0
	build := func() (BindGroup, error) {
		builds++
		return &fakeBindGroup{}, nil
	}

	first, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)

	cache.Invalidate(key)

	second, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)

	if first == second {
		t.Errorf("Expected a fresh bind group after invalidation")
	}
	if builds != 2 {
		t.Errorf("Expected 2 builds, got %d", builds)
	}
}

func TestBindGroupCache_ReplacedTextureIdentity(t *testing.T) {
	// A replaced texture flows through the same cache key; invalidation
	// is what forces the rebuild against the new device copy.
	dev := &fakeDevice{}
	assets := NewAssetServer()
	handle := assets.CreateTexture(CheckerTexels(8), 8, 8, TextureFormatRGBA8Unorm)
	require.NoError(t, assets.UploadTexture(handle, dev))

	cache := NewBindGroupCache()
	key := BindGroupKey{Group: 0, Identity: string(handle)}
	build := func() (BindGroup, error) {
		tx, err := assets.DeviceTexture(handle)
		if err != nil {
			return nil, err
		}
		return dev.CreateBindGroup(&fakeLayout{}, []BindingEntry{
			{Binding: 0, TextureView: tx.View()},
		})
	}

	_, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)

	require.NoError(t, assets.ReplaceTexture(handle, CheckerTexels(16), 16, 16))
	cache.Invalidate(key)

	// Not resident again until the next upload.
	_, err = cache.GetOrBuild(key, build)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady after texture replacement, got %v", err)
	}

	require.NoError(t, assets.UploadTexture(handle, dev))
	_, err = cache.GetOrBuild(key, build)
	require.NoError(t, err)

	if dev.bindGroupsBuilt != 2 {
		t.Errorf("Expected 2 bind group builds, got %d", dev.bindGroupsBuilt)
	}
}
