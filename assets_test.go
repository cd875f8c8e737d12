package applier

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssetServer_MeshRoundTrip(t *testing.T) {
	server := NewAssetServer()
	handle := server.AddMesh(PentagonVertices, PentagonIndices)

	mesh, ok := server.Mesh(handle)
	require.True(t, ok)
	require.Len(t, mesh.Vertices, 5)
	require.Len(t, mesh.Indices, 9)

	_, ok = server.Mesh(MeshHandle("missing"))
	if ok {
		t.Errorf("Expected a missing mesh to report false")
	}
}

func TestAssetServer_DistinctHandles(t *testing.T) {
	server := NewAssetServer()
	a := server.AddMesh(PentagonVertices, PentagonIndices)
	b := server.AddMesh(PentagonVertices, PentagonIndices)
	if a == b {
		t.Errorf("Expected distinct handles for separately added meshes")
	}
}

func TestAssetServer_LoadMeshOBJ(t *testing.T) {
	server := NewAssetServer()

	handle, err := server.LoadMeshOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	mesh, ok := server.Mesh(handle)
	require.True(t, ok)
	require.Len(t, mesh.Indices, 6)
}

func TestAssetServer_LoadMeshOBJFailure(t *testing.T) {
	server := NewAssetServer()
	_, err := server.LoadMeshOBJ(strings.NewReader("not an obj"))
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Expected ErrLoadFailed, got %v", err)
	}
}

func TestAssetServer_TextureResidency(t *testing.T) {
	dev := &fakeDevice{}
	server := NewAssetServer()
	handle := server.CreateTexture(CheckerTexels(8), 8, 8, TextureFormatRGBA8Unorm)

	if server.TextureResident(handle) {
		t.Errorf("Expected a fresh texture to be non-resident")
	}
	_, err := server.DeviceTexture(handle)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before upload, got %v", err)
	}

	require.NoError(t, server.UploadTexture(handle, dev))
	require.True(t, server.TextureResident(handle))

	tx, err := server.DeviceTexture(handle)
	require.NoError(t, err)
	require.NotNil(t, tx.View())
}

func TestAssetServer_UploadTextureIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	server := NewAssetServer()
	handle := server.CreateTexture(CheckerTexels(8), 8, 8, TextureFormatRGBA8Unorm)

	require.NoError(t, server.UploadTexture(handle, dev))
	require.NoError(t, server.UploadTexture(handle, dev))

	if dev.texturesCreated != 1 {
		t.Errorf("Expected 1 device texture across repeated uploads, got %d", dev.texturesCreated)
	}
}

func TestAssetServer_UploadUnknownTexture(t *testing.T) {
	dev := &fakeDevice{}
	server := NewAssetServer()
	err := server.UploadTexture(TextureHandle("missing"), dev)
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Expected ErrLoadFailed for an unknown texture, got %v", err)
	}
}

func TestAssetServer_ReplaceTextureClearsResidency(t *testing.T) {
	dev := &fakeDevice{}
	server := NewAssetServer()
	handle := server.CreateTexture(CheckerTexels(8), 8, 8, TextureFormatRGBA8Unorm)
	require.NoError(t, server.UploadTexture(handle, dev))

	require.NoError(t, server.ReplaceTexture(handle, CheckerTexels(16), 16, 16))

	if server.TextureResident(handle) {
		t.Errorf("Expected replacement to clear residency")
	}

	require.NoError(t, server.UploadTexture(handle, dev))
	if dev.texturesCreated != 2 {
		t.Errorf("Expected a second device texture after replacement, got %d", dev.texturesCreated)
	}
}

func TestAssetServer_LoadTexturePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	server := NewAssetServer()
	handle, err := server.LoadTexturePNG(&buf)
	require.NoError(t, err)

	tx, ok := server.Texture(handle)
	require.True(t, ok)
	if tx.Width != 4 || tx.Height != 2 {
		t.Errorf("Expected a 4x2 texture, got %dx%d", tx.Width, tx.Height)
	}
	if len(tx.Texels) != 4*2*4 {
		t.Errorf("Expected %d RGBA bytes, got %d", 4*2*4, len(tx.Texels))
	}
	if tx.Texels[0] != 255 || tx.Texels[3] != 255 {
		t.Errorf("Expected the first texel to stay red and opaque, got %v", tx.Texels[:4])
	}
}

func TestAssetServer_LoadTexturePNGFailure(t *testing.T) {
	server := NewAssetServer()
	_, err := server.LoadTexturePNG(strings.NewReader("not a png"))
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Expected ErrLoadFailed for garbage input, got %v", err)
	}
}

func TestAssetServer_Samplers(t *testing.T) {
	server := NewAssetServer()
	handle := server.CreateSampler("nearest", "clamp")

	desc, ok := server.SamplerDesc(handle)
	require.True(t, ok)
	if desc.Filter != "nearest" || desc.WrapMode != "clamp" {
		t.Errorf("Unexpected sampler descriptor: %+v", desc)
	}
}

func TestCheckerTexels(t *testing.T) {
	texels := CheckerTexels(16)
	if len(texels) != 16*16*4 {
		t.Errorf("Expected %d bytes, got %d", 16*16*4, len(texels))
	}
	for i := 3; i < len(texels); i += 4 {
		if texels[i] != 0xFF {
			t.Fatalf("Expected opaque alpha at byte %d", i)
		}
	}
	// The two tones must both appear.
	if texels[0] == texels[8*4] {
		t.Errorf("Expected the checker pattern to alternate across a cell boundary")
	}
}
