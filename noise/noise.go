// Package noise is the built-in library of procedural patterns. Every
// pattern is a fragment shader expanded from embedded templates, paired
// with a CPU kernel of the same name so backend/soft can draw it too.
package noise

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"text/template"

	"github.com/richinsley/goshadertexture/shader"
)

//go:embed glsl/*.frag
var templateDir embed.FS

//go:embed glsl/include/*.glsl
var includeDir embed.FS

var templates = template.Must(template.New("noise").Option("missingkey=error").ParseFS(templateDir, "glsl/*.frag"))

// Pattern describes one pattern kind.
type Pattern struct {
	Name  string
	Label string
	// Periodic patterns repeat every TileableSize pixels, so a tile is
	// cropped to a whole number of repeats. Other patterns repeat over the
	// full canvas.
	Periodic bool
	// Defaults are the designer-level options of the pattern.
	Defaults map[string]any
	// Source is a template body for patterns registered at runtime. It may
	// use the "header" and "antialias" templates. Built-in patterns leave
	// it empty and use the embedded <Name>.frag.
	Source string

	tmpl *template.Template
}

// Shapes lists the cell shapes of the random pattern.
var Shapes = []string{"square", "circle", "triangle", "diamond", "line", "image"}

var (
	mu       sync.RWMutex
	patterns = map[string]*Pattern{}
	order    []string
)

// Register adds p, replacing any pattern with the same name.
func Register(p Pattern) error {
	if p.Name == "" {
		return fmt.Errorf("noise: pattern has no name")
	}
	if p.Source != "" {
		t, err := templates.Clone()
		if err != nil {
			return err
		}
		if p.tmpl, err = t.New(p.Name).Parse(p.Source); err != nil {
			return fmt.Errorf("noise: parse pattern %s: %w", p.Name, err)
		}
	} else {
		p.tmpl = templates.Lookup(p.Name + ".frag")
		if p.tmpl == nil {
			return fmt.Errorf("noise: no template for pattern %s", p.Name)
		}
	}
	p.Defaults = cloneOptions(p.Defaults)

	mu.Lock()
	defer mu.Unlock()
	if _, ok := patterns[p.Name]; !ok {
		order = append(order, p.Name)
	}
	patterns[p.Name] = &p
	return nil
}

// Lookup returns the pattern called name.
func Lookup(name string) (Pattern, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := patterns[name]
	if !ok {
		return Pattern{}, false
	}
	out := *p
	out.Defaults = cloneOptions(p.Defaults)
	return out, true
}

// Kinds lists pattern names in registration order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Clone(order)
}

// KernelName is the "#pragma kernel" name of a pattern. Only the random
// pattern varies by shape.
func KernelName(kind, shape string) string {
	if kind == "random" {
		return "noise.random." + shape
	}
	return "noise." + kind
}

// FragmentSource expands the fragment shader of a pattern. opts supplies
// template-time choices, currently the "shape" of the random pattern.
// Includes are resolved against shader.Includes.
func FragmentSource(kind string, opts map[string]any) (string, error) {
	mu.RLock()
	p, ok := patterns[kind]
	mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("noise: unknown pattern %q", kind)
	}

	shape := "square"
	if s, ok := opts["shape"].(string); ok && s != "" {
		shape = s
	}
	if kind == "random" && !slices.Contains(Shapes, shape) {
		return "", fmt.Errorf("noise: unknown shape %q", shape)
	}

	data := struct {
		Kernel string
		Shape  string
	}{KernelName(kind, shape), shape}

	var b bytes.Buffer
	if err := p.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("noise: expand %s: %w", kind, err)
	}
	src, err := shader.Includes.Resolve(b.String())
	if err != nil {
		return "", fmt.Errorf("noise: %s: %w", kind, err)
	}
	return src, nil
}

// IsPeriodic reports whether kind is a periodic pattern.
func IsPeriodic(kind string) bool {
	p, ok := Lookup(kind)
	return ok && p.Periodic
}

func cloneOptions(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func registerIncludes() {
	entries, err := fs.ReadDir(includeDir, "glsl/include")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		body, err := fs.ReadFile(includeDir, path.Join("glsl/include", e.Name()))
		if err != nil {
			panic(err)
		}
		shader.Includes.Register("noise/"+strings.TrimSuffix(e.Name(), ".glsl"), string(body))
	}
}

func init() {
	registerIncludes()
	for _, p := range builtins {
		if err := Register(p); err != nil {
			panic(err)
		}
	}
}
