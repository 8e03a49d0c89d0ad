package shader

import (
	"fmt"
	"strings"
	"text/template"
)

// Sources are written against WebGL2 (GLSL ES 3.00). The OpenGL backend
// translates them to desktop GLSL before compiling.

// Vertex attribute names of the full-screen quad.
const (
	AttribPosition = "a_position"
	AttribTexCoord = "a_tex_coord"
)

// QuadPositions and QuadTexCoords describe the full-screen quad drawn as a
// 4-vertex triangle strip.
var (
	QuadPositions = []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	QuadTexCoords = []float32{0, 0, 1, 0, 0, 1, 1, 1}
)

const defaultVertexSource = `#version 300 es
in vec2 a_position;
in vec2 a_tex_coord;
out vec2 v_tex_coord;

void main() {
    v_tex_coord = a_tex_coord;
    gl_Position = vec4(a_position, 0.0, 1.0);
}
`

const defaultFragmentSource = `#version 300 es
#pragma kernel passthrough
precision highp float;

uniform vec2 u_resolution;
uniform float u_time;
uniform vec4 u_mouse;
uniform sampler2D u_texture;
uniform bool u_has_texture;

in vec2 v_tex_coord;
out vec4 outColor;

void main() {
    if (u_has_texture) {
        outColor = texture(u_texture, v_tex_coord);
    } else {
        outColor = vec4(0.0);
    }
}
`

// DefaultVertexSource returns the vertex shader shared by every pass.
func DefaultVertexSource() string {
	return defaultVertexSource
}

// DefaultFragmentSource returns a single pass that shows the media texture,
// or transparent black when none is bound.
func DefaultFragmentSource() string {
	return defaultFragmentSource
}

// KernelName returns the argument of a "#pragma kernel <name>" line, or ""
// when src has none.
func KernelName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[0] == "#pragma" && fields[1] == "kernel" {
			return fields[2]
		}
	}
	return ""
}

// Expand executes a text/template over data. Shader variants are generated
// this way instead of by string concatenation at call sites.
func Expand(name, text string, data any) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return b.String(), nil
}
