package applier

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrLoadFailed is the single failure mode of the asset loader boundary:
// any parse error, malformed stream or missing geometry collapses into it.
// There is no partial-success mode.
var ErrLoadFailed = errors.New("asset load failed")

func loadFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLoadFailed, fmt.Sprintf(format, args...))
}

// decodeOBJ reads a triangulated Wavefront OBJ stream into positions and
// texture coordinates plus a triangle index list. Only the first object is
// used; normals and materials are ignored.
func decodeOBJ(r io.Reader) (MeshAsset, error) {
	var positions [][3]float32
	var texcoords [][2]float32

	var vertices []Vertex
	var indices []uint32
	// Deduplicate vertices by their v/vt index pair.
	corners := make(map[[2]int]uint32)

	objectsSeen := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "o", "g":
			objectsSeen++
			if objectsSeen > 1 && len(indices) > 0 {
				// First sub-mesh only.
				return MeshAsset{Vertices: vertices, Indices: indices}, nil
			}

		case "v":
			if len(fields) < 4 {
				return MeshAsset{}, loadFailed("short vertex line %q", scanner.Text())
			}
			var p [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return MeshAsset{}, loadFailed("bad vertex coordinate %q", fields[i+1])
				}
				p[i] = float32(f)
			}
			positions = append(positions, p)

		case "vt":
			if len(fields) < 3 {
				return MeshAsset{}, loadFailed("short texcoord line %q", scanner.Text())
			}
			var t [2]float32
			for i := 0; i < 2; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return MeshAsset{}, loadFailed("bad texcoord %q", fields[i+1])
				}
				t[i] = float32(f)
			}
			texcoords = append(texcoords, t)

		case "f":
			if len(fields) != 4 {
				return MeshAsset{}, loadFailed("face with %d corners; mesh must be triangulated", len(fields)-1)
			}
			for _, corner := range fields[1:] {
				vi, ti, err := parseOBJCorner(corner, len(positions), len(texcoords))
				if err != nil {
					return MeshAsset{}, err
				}
				key := [2]int{vi, ti}
				idx, ok := corners[key]
				if !ok {
					v := Vertex{Position: positions[vi]}
					if ti >= 0 {
						v.TexCoord = texcoords[ti]
					}
					idx = uint32(len(vertices))
					vertices = append(vertices, v)
					corners[key] = idx
				}
				indices = append(indices, idx)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return MeshAsset{}, loadFailed("read: %v", err)
	}

	if len(vertices) == 0 || len(indices) == 0 {
		return MeshAsset{}, loadFailed("no geometry in stream")
	}

	return MeshAsset{Vertices: vertices, Indices: indices}, nil
}

// parseOBJCorner resolves one "v", "v/vt" or "v/vt/vn" face corner into
// zero-based position and texcoord indices (-1 when no texcoord).
func parseOBJCorner(corner string, numPositions, numTexcoords int) (int, int, error) {
	parts := strings.Split(corner, "/")

	vi, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, loadFailed("bad face index %q", corner)
	}
	vi = resolveOBJIndex(vi, numPositions)
	if vi < 0 || vi >= numPositions {
		return 0, 0, loadFailed("face index %q out of range", corner)
	}

	ti := -1
	if len(parts) > 1 && parts[1] != "" {
		t, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, loadFailed("bad texcoord index %q", corner)
		}
		ti = resolveOBJIndex(t, numTexcoords)
		if ti < 0 || ti >= numTexcoords {
			return 0, 0, loadFailed("texcoord index %q out of range", corner)
		}
	}

	return vi, ti, nil
}

// OBJ indices are one-based; negative indices count back from the end.
func resolveOBJIndex(idx, count int) int {
	if idx < 0 {
		return count + idx
	}
	return idx - 1
}

// PentagonVertices and PentagonIndices are the built-in demo mesh used when
// no model asset is supplied.
var PentagonVertices = []Vertex{
	{Position: [3]float32{-0.0868241, 0.49240386, 0.0}, TexCoord: [2]float32{0.4131759, 0.00759614}},
	{Position: [3]float32{-0.49513406, 0.06958647, 0.0}, TexCoord: [2]float32{0.0048659444, 0.43041354}},
	{Position: [3]float32{-0.21918549, -0.44939706, 0.0}, TexCoord: [2]float32{0.28081453, 0.949397}},
	{Position: [3]float32{0.35966998, -0.3473291, 0.0}, TexCoord: [2]float32{0.85967, 0.84732914}},
	{Position: [3]float32{0.44147372, 0.2347359, 0.0}, TexCoord: [2]float32{0.9414737, 0.2652641}},
}

var PentagonIndices = []uint32{0, 1, 4, 1, 2, 4, 2, 3, 4}
