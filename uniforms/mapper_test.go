package uniforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadertexture/shader"
)

const mapperSource = `#version 300 es
uniform float u_size;
uniform int u_octaves;
uniform bool u_invert;
uniform vec2 u_offset;
uniform vec3 u_color;
uniform vec4 u_tint;
uniform vec4 u_palette[4];
uniform vec3 u_stops[3];
uniform float u_weights[3];
uniform sampler2D u_image;
`

func schema(t *testing.T) []shader.UniformDescriptor {
	t.Helper()
	s := shader.Analyze(mapperSource)
	require.Len(t, s, 10)
	return s
}

func valueOf(t *testing.T, bindings []Binding, name string) Value {
	t.Helper()
	for _, b := range bindings {
		if b.Name() == name {
			return b.Value
		}
	}
	t.Fatalf("no binding for %s", name)
	return nil
}

func TestMapScalarAndColor(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{
		"u_size":  0.5,
		"u_color": "#FF0000",
	})
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, Scalar(0.5), valueOf(t, bindings, "u_size"))
	assert.Equal(t, Vector{1, 0, 0}, valueOf(t, bindings, "u_color"))
}

func TestMapIntTruncates(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{"u_octaves": 3.9})
	require.NoError(t, err)
	assert.Equal(t, Integer(3), valueOf(t, bindings, "u_octaves"))

	bindings, err = Map(schema(t), map[string]any{"u_octaves": -2.7})
	require.NoError(t, err)
	assert.Equal(t, Integer(-2), valueOf(t, bindings, "u_octaves"))
}

func TestMapBoolTruthiness(t *testing.T) {
	for in, want := range map[any]Boolean{true: true, false: false, 1: true, 0.0: false, 0.25: true} {
		bindings, err := Map(schema(t), map[string]any{"u_invert": in})
		require.NoError(t, err)
		assert.Equal(t, want, valueOf(t, bindings, "u_invert"), "%v", in)
	}
}

func TestMapVectors(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{
		"u_offset": []any{0.25, 0.75},
		"u_tint":   "#abc",
	})
	require.NoError(t, err)
	assert.Equal(t, Vector{0.25, 0.75}, valueOf(t, bindings, "u_offset"))

	tint := valueOf(t, bindings, "u_tint").(Vector)
	require.Len(t, tint, 4)
	assert.InDelta(t, float32(0xaa)/255, tint[0], 1e-6)
	assert.InDelta(t, float32(0xbb)/255, tint[1], 1e-6)
	assert.InDelta(t, float32(0xcc)/255, tint[2], 1e-6)
	assert.Equal(t, float32(1), tint[3])
}

func TestMapVectorArrayUsesDeclaredElementSize(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{
		"u_palette": []any{"#ff0000", "#00ff0080"},
		"u_stops":   []string{"#0000ff80", "#fff"},
	})
	require.NoError(t, err)

	palette := valueOf(t, bindings, "u_palette").(VectorArray)
	require.Len(t, palette, 2)
	assert.Equal(t, Vector{1, 0, 0, 1}, palette[0])
	assert.Len(t, palette[1], 4)
	assert.InDelta(t, 128.0/255, palette[1][3], 1e-6)

	stops := valueOf(t, bindings, "u_stops").(VectorArray)
	require.Len(t, stops, 2)
	assert.Equal(t, Vector{0, 0, 1}, stops[0])
	assert.Equal(t, Vector{1, 1, 1}, stops[1])
}

func TestMapScalarArray(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{"u_weights": []float64{0.1, 0.2, 0.7}})
	require.NoError(t, err)
	assert.Equal(t, ScalarArray{0.1, 0.2, 0.7}, valueOf(t, bindings, "u_weights"))
}

func TestMapImage(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{"u_image": NoImage})
	require.NoError(t, err)
	ref := valueOf(t, bindings, "u_image").(ImageRef)
	assert.True(t, ref.None())

	bindings, err = Map(schema(t), map[string]any{"u_image": "data:image/png;base64,iVBORw0KGgo="})
	require.NoError(t, err)
	ref = valueOf(t, bindings, "u_image").(ImageRef)
	assert.False(t, ref.None())
	assert.Equal(t, "u_image_resolution", ResolutionName("u_image"))
}

func TestMapAbsentAndUnknownLeftUnbound(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{
		"u_size":      nil,
		"u_not_there": 3,
	})
	require.NoError(t, err)
	assert.Empty(t, bindings)
}

func TestMapInvalidValuesReported(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{
		"u_size":    "large",
		"u_color":   "#12",
		"u_palette": []any{"#000", "#111", "#222", "#333", "#444"},
		"u_octaves": 4,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorContains(t, err, `"u_size"`)
	assert.ErrorContains(t, err, `"u_color"`)
	assert.ErrorContains(t, err, `"u_palette"`)
	require.Len(t, bindings, 1)
	assert.Equal(t, Integer(4), bindings[0].Value)
}

func TestMapFollowsSchemaOrder(t *testing.T) {
	bindings, err := Map(schema(t), map[string]any{
		"u_color":   "#000",
		"u_size":    1,
		"u_octaves": 2,
	})
	require.NoError(t, err)
	require.Len(t, bindings, 3)
	assert.Equal(t, "u_size", bindings[0].Name())
	assert.Equal(t, "u_octaves", bindings[1].Name())
	assert.Equal(t, "u_color", bindings[2].Name())
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, []float32{0.5}, Flatten(Scalar(0.5)))
	assert.Equal(t, []float32{1, 0, 0, 0, 1, 0}, Flatten(VectorArray{{1, 0, 0}, {0, 1, 0}}))
	assert.Nil(t, Flatten(ImageRef{}))
}
