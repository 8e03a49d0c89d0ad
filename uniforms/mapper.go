package uniforms

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/richinsley/goshadertexture/shader"
)

// ErrInvalidValue is wrapped by every per-option error returned from Map.
var ErrInvalidValue = errors.New("invalid uniform value")

// Map coerces options into typed values following the declared GLSL type of
// each schema entry. Entries missing from options, or set to nil, produce no
// binding. Values that cannot be coerced are dropped and reported in the
// joined error; the remaining bindings are still returned.
func Map(schema []shader.UniformDescriptor, options map[string]any) ([]Binding, error) {
	var (
		out  []Binding
		errs []error
	)
	for _, d := range schema {
		raw, ok := options[d.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := Coerce(d, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("option %q (%s): %w", d.Name, typeLabel(d), err))
			continue
		}
		out = append(out, Binding{Descriptor: d, Value: v})
	}
	return out, errors.Join(errs...)
}

func typeLabel(d shader.UniformDescriptor) string {
	if d.IsArray() {
		return fmt.Sprintf("%s[%d]", d.Type, d.ArrayLength)
	}
	return d.Type.String()
}

// Coerce converts a single raw option value for d.
func Coerce(d shader.UniformDescriptor, raw any) (Value, error) {
	if d.IsArray() {
		return coerceArray(d, raw)
	}
	switch d.Type {
	case shader.Float:
		f, ok := Number(raw)
		if !ok {
			return nil, invalid(raw, "want a number")
		}
		return Scalar(f), nil
	case shader.Int:
		f, ok := Number(raw)
		if !ok {
			return nil, invalid(raw, "want a number")
		}
		return Integer(math.Trunc(f)), nil
	case shader.Bool:
		return coerceBool(raw)
	case shader.Vec2, shader.Vec3, shader.Vec4:
		return coerceVector(d.Type.Components(), raw)
	case shader.Sampler2D:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(raw, "want an image payload string")
		}
		return ImageRef{Payload: s}, nil
	}
	return nil, invalid(raw, "unsupported type")
}

func coerceArray(d shader.UniformDescriptor, raw any) (Value, error) {
	items, ok := toSlice(raw)
	if !ok {
		return nil, invalid(raw, "want a list")
	}
	if len(items) > d.ArrayLength {
		return nil, invalid(raw, fmt.Sprintf("%d elements exceed declared length %d", len(items), d.ArrayLength))
	}
	switch d.Type {
	case shader.Vec2, shader.Vec3, shader.Vec4:
		out := make(VectorArray, len(items))
		for i, item := range items {
			v, err := coerceVector(d.Type.Components(), item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v.(Vector)
		}
		return out, nil
	case shader.Float:
		out := make(ScalarArray, len(items))
		for i, item := range items {
			f, ok := Number(item)
			if !ok {
				return nil, fmt.Errorf("element %d: %w", i, invalid(item, "want a number"))
			}
			out[i] = f
		}
		return out, nil
	case shader.Int, shader.Bool:
		out := make(IntegerArray, len(items))
		for i, item := range items {
			if b, ok := item.(bool); ok {
				if b {
					out[i] = 1
				}
				continue
			}
			f, ok := Number(item)
			if !ok {
				return nil, fmt.Errorf("element %d: %w", i, invalid(item, "want a number"))
			}
			out[i] = int64(math.Trunc(f))
		}
		return out, nil
	}
	return nil, invalid(raw, "arrays of this type are not supported")
}

func coerceBool(raw any) (Value, error) {
	if b, ok := raw.(bool); ok {
		return Boolean(b), nil
	}
	if f, ok := Number(raw); ok {
		return Boolean(f != 0), nil
	}
	if s, ok := raw.(string); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return Boolean(b), nil
		}
	}
	return nil, invalid(raw, "want a boolean")
}

// coerceVector accepts a hex color string or a list of exactly n numbers.
func coerceVector(n int, raw any) (Value, error) {
	if s, ok := raw.(string); ok {
		if n < 3 {
			return nil, invalid(raw, "hex colors need vec3 or vec4")
		}
		c, err := ParseHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return c.Vector(n), nil
	}
	items, ok := toSlice(raw)
	if !ok || len(items) != n {
		return nil, invalid(raw, fmt.Sprintf("want a hex color or %d numbers", n))
	}
	out := make(Vector, n)
	for i, item := range items {
		f, ok := Number(item)
		if !ok {
			return nil, invalid(raw, fmt.Sprintf("want a hex color or %d numbers", n))
		}
		out[i] = float32(f)
	}
	return out, nil
}

func invalid(raw any, why string) error {
	return fmt.Errorf("%w %v: %s", ErrInvalidValue, raw, why)
}

// Number converts any Go numeric type, json.Number or numeric string to
// float64.
func Number(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	switch v := v.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	case []float32:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case Vector:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}
