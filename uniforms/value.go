// Package uniforms turns loosely typed option values into typed uniform
// values, using the schema derived from a shader source.
package uniforms

import "github.com/richinsley/goshadertexture/shader"

// NoImage is the payload that clears an image uniform.
const NoImage = "data:image/png;base64"

// Value is a typed uniform value. The concrete types are Scalar, Integer,
// Boolean, Vector, VectorArray, ScalarArray, IntegerArray and ImageRef.
type Value interface {
	isValue()
}

type (
	Scalar       float64
	Integer      int64
	Boolean      bool
	Vector       []float32
	VectorArray  []Vector
	ScalarArray  []float64
	IntegerArray []int64
)

// ImageRef names an image payload to be decoded into a texture. The zero
// value, or a ref holding NoImage, means no image is bound.
type ImageRef struct {
	Payload string
}

// None reports whether the ref clears the slot.
func (r ImageRef) None() bool {
	return r.Payload == "" || r.Payload == NoImage
}

func (Scalar) isValue()       {}
func (Integer) isValue()      {}
func (Boolean) isValue()      {}
func (Vector) isValue()       {}
func (VectorArray) isValue()  {}
func (ScalarArray) isValue()  {}
func (IntegerArray) isValue() {}
func (ImageRef) isValue()     {}

// Binding pairs a schema entry with the value to upload for it.
type Binding struct {
	Descriptor shader.UniformDescriptor
	Value      Value
}

// Name is the uniform name of the binding.
func (b Binding) Name() string {
	return b.Descriptor.Name
}

// ResolutionName is the implicit vec2 uniform that carries the pixel size of
// the image bound to the sampler called name.
func ResolutionName(name string) string {
	return name + "_resolution"
}

// Flatten returns the float32 components of v for upload through a *fv
// call. Images and integer values return nil.
func Flatten(v Value) []float32 {
	switch v := v.(type) {
	case Scalar:
		return []float32{float32(v)}
	case Vector:
		return []float32(v)
	case VectorArray:
		var out []float32
		for _, vec := range v {
			out = append(out, vec...)
		}
		return out
	case ScalarArray:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out
	}
	return nil
}
