package applier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"unsafe"
)

// VertexLayoutOf derives a vertex buffer layout from struct tags:
//
//	type Vertex struct {
//	    Position [3]float32 `applier:"layout" format:"float3" location:"0"`
//	    TexCoord [2]float32 `applier:"layout" format:"float2" location:"1"`
//	}
//
// A "float4x4" field expands to four float4 attributes at consecutive
// locations, which is how a per-instance model matrix is declared.
func VertexLayoutOf(vertexType any, step VertexStepMode) VertexBufferLayout {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		panic("Vertex must be a struct")
	}

	var attributes []VertexAttribute
	var offset uint64 = 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if "layout" == field.Tag.Get("applier") {
			location, err := strconv.Atoi(field.Tag.Get("location"))
			if nil != err {
				panic(err)
			}

			format := field.Tag.Get("format")
			if format == "float4x4" {
				for col := uint64(0); col < 4; col++ {
					attributes = append(attributes, VertexAttribute{
						ShaderLocation: uint32(location) + uint32(col),
						Offset:         offset + col*16,
						Format:         VertexFormatFloat32x4,
					})
				}
			} else {
				attributes = append(attributes, VertexAttribute{
					ShaderLocation: uint32(location),
					Offset:         offset,
					Format:         parseVertexFormat(format),
				})
			}
		}

		offset += uint64(field.Type.Size())
	}

	return VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    step,
		Attributes:  attributes,
	}
}

func parseVertexFormat(name string) VertexFormat {
	switch name {
	case "float2":
		return VertexFormatFloat32x2
	case "float3":
		return VertexFormatFloat32x3
	case "float4":
		return VertexFormatFloat32x4
	default:
		panic("unsupported vertex layout format: " + name)
	}
}

// sliceBytes reinterprets a slice of fixed-layout records as its raw bytes.
// The element type must not contain pointers.
func sliceBytes[T any](src []T) []byte {
	if len(src) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*size)
}

// uniformBytes serializes a uniform struct field by field in little-endian
// order, recursing through nested structs, arrays and slices.
func uniformBytes(data any) []byte {
	val := reflect.ValueOf(data)
	buf := new(bytes.Buffer)
	writeUniformValue(val, buf)
	return buf.Bytes()
}

func writeUniformValue(field reflect.Value, buf *bytes.Buffer) {
	switch field.Kind() {
	case reflect.Pointer:
		writeUniformValue(field.Elem(), buf)

	case reflect.Slice, reflect.Array:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if elem.Kind() == reflect.Struct {
				writeUniformValue(elem, buf)
			} else {
				if err := binary.Write(buf, binary.LittleEndian, elem.Interface()); err != nil {
					panic(fmt.Errorf("failed to write slice element: %w", err))
				}
			}
		}

	case reflect.Struct:
		for i := 0; i < field.NumField(); i++ {
			writeUniformValue(field.Field(i), buf)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Float32:
		if err := binary.Write(buf, binary.LittleEndian, field.Interface()); err != nil {
			panic(fmt.Errorf("failed to write scalar field: %w", err))
		}

	default:
		panic(fmt.Errorf("unsupported uniform type: %v", field))
	}
}
