package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Built-in uniform names. They are bound by the renderer on every frame and
// never show up in a schema returned by Analyze.
const (
	UniformResolution = "u_resolution"
	UniformTime       = "u_time"
	UniformMouse      = "u_mouse"
	UniformTexture    = "u_texture"
	UniformHasTexture = "u_has_texture"
)

var reservedNames = []string{
	UniformResolution,
	UniformTime,
	UniformMouse,
	UniformTexture,
	UniformHasTexture,
}

// IsReserved reports whether name is one of the built-in uniforms.
func IsReserved(name string) bool {
	return slices.Contains(reservedNames, name)
}

// Declaration is a raw top-level uniform declaration as written in source.
type Declaration struct {
	Type        string
	Name        string
	ArrayLength int    // 0 when not an array
	Comment     string // trailing // comment without the slashes
}

// UniformDescriptor is one entry of the schema derived from a shader.
type UniformDescriptor struct {
	Name        string
	Type        GLSLType
	ArrayLength int // 0 when not an array
	Metadata    map[string]any
}

// IsArray reports whether the uniform was declared with an array suffix.
func (d UniformDescriptor) IsArray() bool {
	return d.ArrayLength > 0
}

var (
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)
	uniformRE      = regexp.MustCompile(`(?m)^[ \t]*uniform[ \t]+(?:(?:lowp|mediump|highp)[ \t]+)?(\w+)[ \t]+(\w+)[ \t]*(?:\[[ \t]*(\d+)[ \t]*\])?[ \t]*;[ \t]*(?://(.*))?$`)
)

// stripBlockComments blanks out /* */ comments, keeping line breaks so that
// line-anchored patterns still see the surrounding lines.
func stripBlockComments(src string) string {
	return blockCommentRE.ReplaceAllStringFunc(src, func(c string) string {
		return strings.Repeat("\n", strings.Count(c, "\n"))
	})
}

// ParseDeclarations returns every top-level uniform declaration in src, in
// source order, regardless of type.
func ParseDeclarations(src string) []Declaration {
	src = stripBlockComments(strings.ReplaceAll(src, "\r\n", "\n"))
	var decls []Declaration
	for _, m := range uniformRE.FindAllStringSubmatch(src, -1) {
		d := Declaration{
			Type:    m[1],
			Name:    m[2],
			Comment: strings.TrimSpace(m[4]),
		}
		if m[3] != "" {
			d.ArrayLength, _ = strconv.Atoi(m[3])
		}
		decls = append(decls, d)
	}
	return decls
}

// Analyze derives the user-facing uniform schema of a shader source.
// Built-in uniforms and unsupported types are left out.
func Analyze(src string) []UniformDescriptor {
	var out []UniformDescriptor
	for _, d := range ParseDeclarations(src) {
		if IsReserved(d.Name) {
			continue
		}
		t, ok := ParseType(d.Type)
		if !ok {
			continue
		}
		out = append(out, UniformDescriptor{
			Name:        d.Name,
			Type:        t,
			ArrayLength: d.ArrayLength,
			Metadata:    ParseMetadata(d.Comment),
		})
	}
	return out
}

// Lookup finds a descriptor by name.
func Lookup(schema []UniformDescriptor, name string) (UniformDescriptor, bool) {
	for _, d := range schema {
		if d.Name == name {
			return d, true
		}
	}
	return UniformDescriptor{}, false
}

// ParseMetadata decodes a "key:value, key2:value2" hint list. Numbers become
// float64, true/false become bool and anything else stays a trimmed string.
// Parts that do not split into exactly one key and one value are ignored.
func ParseMetadata(comment string) map[string]any {
	meta := map[string]any{}
	comment = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "//"))
	if comment == "" {
		return meta
	}
	for _, part := range strings.Split(comment, ",") {
		kv := strings.Split(part, ":")
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		meta[key] = parseMetaValue(strings.TrimSpace(kv[1]))
	}
	return meta
}

func parseMetaValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
