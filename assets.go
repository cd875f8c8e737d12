package applier

import (
	"image"
	"image/png"
	"io"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

type MeshHandle string

type TextureHandle string

type SamplerHandle string

// Vertex is the fixed-layout mesh record. The struct tags drive the vertex
// buffer layout derivation; stride and offsets must match the pipeline's
// vertex-input declaration exactly.
type Vertex struct {
	Position [3]float32 `applier:"layout" format:"float3" location:"0"`
	TexCoord [2]float32 `applier:"layout" format:"float2" location:"1"`
}

// MeshAsset is immutable once loaded.
type MeshAsset struct {
	Vertices []Vertex
	Indices  []uint32
}

// TextureAsset holds CPU texels. resident flips once the texels have been
// mirrored to the device; bind groups referencing the texture report
// ErrNotReady until then, modeling an asynchronous asset load.
type TextureAsset struct {
	Texels   []uint8
	Width    uint32
	Height   uint32
	Format   TextureFormat
	resident bool
	device   Texture
}

// AssetServer owns mesh, texture and sampler assets, referenced everywhere
// else by stable handles.
type AssetServer struct {
	meshes   map[MeshHandle]MeshAsset
	textures map[TextureHandle]*TextureAsset
	samplers map[SamplerHandle]SamplerDescriptor
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewAssetServer())
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		meshes:   make(map[MeshHandle]MeshAsset),
		textures: make(map[TextureHandle]*TextureAsset),
		samplers: make(map[SamplerHandle]SamplerDescriptor),
	}
}

// AddMesh registers pre-built vertex data and returns its handle.
func (server *AssetServer) AddMesh(vertices []Vertex, indices []uint32) MeshHandle {
	id := MeshHandle(uuid.NewString())
	server.meshes[id] = MeshAsset{
		Vertices: vertices,
		Indices:  indices,
	}
	return id
}

// LoadMeshOBJ parses a triangulated OBJ stream and registers the first
// object found. Any parse error or missing geometry yields ErrLoadFailed.
func (server *AssetServer) LoadMeshOBJ(r io.Reader) (MeshHandle, error) {
	mesh, err := decodeOBJ(r)
	if err != nil {
		return "", err
	}
	return server.AddMesh(mesh.Vertices, mesh.Indices), nil
}

func (server *AssetServer) Mesh(h MeshHandle) (MeshAsset, bool) {
	mesh, ok := server.meshes[h]
	return mesh, ok
}

// CreateTexture registers raw texels.
func (server *AssetServer) CreateTexture(texels []uint8, width, height uint32, format TextureFormat) TextureHandle {
	id := TextureHandle(uuid.NewString())
	server.textures[id] = &TextureAsset{
		Texels: texels,
		Width:  width,
		Height: height,
		Format: format,
	}
	return id
}

// LoadTexturePNG decodes a PNG stream into an RGBA texture asset.
func (server *AssetServer) LoadTexturePNG(r io.Reader) (TextureHandle, error) {
	img, err := png.Decode(r)
	if err != nil {
		return "", loadFailed("png decode: %v", err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}

	return server.CreateTexture(
		rgba.Pix,
		uint32(bounds.Dx()),
		uint32(bounds.Dy()),
		TextureFormatRGBA8Unorm,
	), nil
}

func (server *AssetServer) Texture(h TextureHandle) (*TextureAsset, bool) {
	tx, ok := server.textures[h]
	return tx, ok
}

// TextureResident reports whether the texture's device copy exists.
func (server *AssetServer) TextureResident(h TextureHandle) bool {
	tx, ok := server.textures[h]
	return ok && tx.resident
}

// DeviceTexture returns the device-side texture, or ErrNotReady while the
// asset has not been uploaded.
func (server *AssetServer) DeviceTexture(h TextureHandle) (Texture, error) {
	tx, ok := server.textures[h]
	if !ok || !tx.resident {
		return nil, ErrNotReady
	}
	return tx.device, nil
}

// UploadTexture mirrors the texels to the device and marks the asset
// resident. Uploading an already-resident texture is a no-op.
func (server *AssetServer) UploadTexture(h TextureHandle, dev Device) error {
	tx, ok := server.textures[h]
	if !ok {
		return loadFailed("unknown texture %q", h)
	}
	if tx.resident {
		return nil
	}
	device, err := dev.CreateTexture(&TextureDescriptor{
		Label:  string(h),
		Width:  tx.Width,
		Height: tx.Height,
		Format: tx.Format,
	}, tx.Texels)
	if err != nil {
		return err
	}
	tx.device = device
	tx.resident = true
	return nil
}

// ReplaceTexture swaps the texels of an existing texture, clearing its
// residency. Bind groups built against the old device copy must be
// invalidated by the caller.
func (server *AssetServer) ReplaceTexture(h TextureHandle, texels []uint8, width, height uint32) error {
	tx, ok := server.textures[h]
	if !ok {
		return loadFailed("unknown texture %q", h)
	}
	tx.Texels = texels
	tx.Width = width
	tx.Height = height
	tx.resident = false
	tx.device = nil
	return nil
}

func (server *AssetServer) CreateSampler(filter, wrapMode string) SamplerHandle {
	id := SamplerHandle(uuid.NewString())
	server.samplers[id] = SamplerDescriptor{
		Filter:   filter,
		WrapMode: wrapMode,
	}
	return id
}

func (server *AssetServer) SamplerDesc(h SamplerHandle) (SamplerDescriptor, bool) {
	desc, ok := server.samplers[h]
	return desc, ok
}

// CheckerTexels generates a procedural two-tone checkerboard, the fallback
// material for demos without a PNG on disk.
func CheckerTexels(size uint32) []uint8 {
	texels := make([]uint8, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			i := (y*size + x) * 4
			if (x/8+y/8)%2 == 0 {
				texels[i+0] = 0xE0
				texels[i+1] = 0xE0
				texels[i+2] = 0xE0
			} else {
				texels[i+0] = 0x30
				texels[i+1] = 0x30
				texels[i+2] = 0x60
			}
			texels[i+3] = 0xFF
		}
	}
	return texels
}
