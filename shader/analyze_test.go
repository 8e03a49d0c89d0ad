package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allTypesSource = `#version 300 es
precision highp float;

uniform vec2 u_resolution;
uniform float u_time;
uniform float u_size; // min:0, max:1, step:0.01
uniform int u_octaves;
uniform bool u_invert; // label:Invert colors, default:false
uniform vec2 u_offset;
uniform vec3 u_color;
uniform highp vec4 u_tint;
uniform sampler2D u_image;
uniform vec4 u_palette[4]; // palette:true
uniform mat4 u_internal;
// uniform float u_commented_out;
/* uniform float u_block_commented; */

out vec4 outColor;
void main() { outColor = vec4(u_color, 1.0); }
`

func TestAnalyzeAllTypes(t *testing.T) {
	schema := Analyze(allTypesSource)
	require.Len(t, schema, 8)

	want := []struct {
		name  string
		typ   GLSLType
		array int
	}{
		{"u_size", Float, 0},
		{"u_octaves", Int, 0},
		{"u_invert", Bool, 0},
		{"u_offset", Vec2, 0},
		{"u_color", Vec3, 0},
		{"u_tint", Vec4, 0},
		{"u_image", Sampler2D, 0},
		{"u_palette", Vec4, 4},
	}
	for i, w := range want {
		assert.Equal(t, w.name, schema[i].Name)
		assert.Equal(t, w.typ, schema[i].Type, w.name)
		assert.Equal(t, w.array, schema[i].ArrayLength, w.name)
	}
	assert.True(t, schema[7].IsArray())
	assert.False(t, schema[0].IsArray())
}

func TestAnalyzeCRLF(t *testing.T) {
	crlf := strings.ReplaceAll(allTypesSource, "\n", "\r\n")
	assert.Equal(t, Analyze(allTypesSource), Analyze(crlf))
	assert.Len(t, ParseDeclarations(crlf), len(ParseDeclarations(allTypesSource)))
}

func TestAnalyzeMetadata(t *testing.T) {
	schema := Analyze(allTypesSource)

	size, ok := Lookup(schema, "u_size")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"min": 0.0, "max": 1.0, "step": 0.01}, size.Metadata)

	invert, ok := Lookup(schema, "u_invert")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"label": "Invert colors", "default": false}, invert.Metadata)

	color, ok := Lookup(schema, "u_color")
	require.True(t, ok)
	assert.Empty(t, color.Metadata)
}

func TestAnalyzeIdempotent(t *testing.T) {
	assert.Equal(t, Analyze(allTypesSource), Analyze(allTypesSource))
}

func TestAnalyzeSkipsReservedAndUnsupported(t *testing.T) {
	schema := Analyze(allTypesSource)
	for _, d := range schema {
		assert.False(t, IsReserved(d.Name), d.Name)
		assert.NotEqual(t, "u_internal", d.Name)
	}

	decls := ParseDeclarations(allTypesSource)
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	assert.Contains(t, names, "u_internal")
	assert.Contains(t, names, "u_time")
	assert.NotContains(t, names, "u_commented_out")
	assert.NotContains(t, names, "u_block_commented")
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]any
	}{
		{"", map[string]any{}},
		{"// min:-2, max:2.5", map[string]any{"min": -2.0, "max": 2.5}},
		{"hidden:true", map[string]any{"hidden": true}},
		{"unit:px, broken, a:b:c", map[string]any{"unit": "px"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMetadata(tt.in), tt.in)
	}
}

func TestParseRenderConfig(t *testing.T) {
	src := `#version 300 es
//description: Rippled water
//Camera-FOV: 45
//antialias:true
//mesh-position: [0, 1.5, 0]
//geometry: sphere
// not-a-key: 12
void main() {}
`
	cfg := ParseRenderConfig(src)
	assert.Equal(t, "Rippled water", cfg["description"])
	assert.Equal(t, 45.0, cfg["camera-fov"])
	assert.Equal(t, true, cfg["antialias"])
	assert.Equal(t, []any{0.0, 1.5, 0.0}, cfg["mesh-position"])
	assert.Equal(t, "sphere", cfg["geometry"])
	assert.NotContains(t, cfg, "not-a-key")

	assert.True(t, cfg.Bool("antialias", false))
	assert.Equal(t, 45.0, cfg.Float("camera-fov", 60))
	assert.Equal(t, 0.1, cfg.Float("camera-near", 0.1))
	assert.Equal(t, "sphere", cfg.String("geometry", "plane"))
}

func TestGLSLTypeComponents(t *testing.T) {
	assert.Equal(t, 1, Float.Components())
	assert.Equal(t, 1, Int.Components())
	assert.Equal(t, 3, Vec3.Components())
	assert.Equal(t, 4, Vec4.Components())
	assert.Equal(t, 0, Sampler2D.Components())
	assert.Equal(t, "sampler2D", Sampler2D.String())

	_, ok := ParseType("mat3")
	assert.False(t, ok)
}
