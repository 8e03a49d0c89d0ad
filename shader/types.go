package shader

import "fmt"

// GLSLType is a uniform type the engine knows how to bind.
type GLSLType int

const (
	Float GLSLType = iota
	Int
	Bool
	Vec2
	Vec3
	Vec4
	Sampler2D
)

var glslTypeNames = map[string]GLSLType{
	"float":     Float,
	"int":       Int,
	"bool":      Bool,
	"vec2":      Vec2,
	"vec3":      Vec3,
	"vec4":      Vec4,
	"sampler2D": Sampler2D,
}

// ParseType maps a GLSL type keyword to a GLSLType. The second return is
// false for types the engine does not expose (mat4, ivec2, samplerCube...).
func ParseType(s string) (GLSLType, bool) {
	t, ok := glslTypeNames[s]
	return t, ok
}

func (t GLSLType) String() string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Vec4:
		return "vec4"
	case Sampler2D:
		return "sampler2D"
	}
	return fmt.Sprintf("GLSLType(%d)", int(t))
}

// Components returns the number of float components of a vector type, 1 for
// scalars and 0 for samplers.
func (t GLSLType) Components() int {
	switch t {
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4:
		return 4
	case Sampler2D:
		return 0
	}
	return 1
}

// IsVector reports whether t is vec2, vec3 or vec4.
func (t GLSLType) IsVector() bool {
	return t == Vec2 || t == Vec3 || t == Vec4
}
