package noise

import (
	"math"

	"github.com/richinsley/goshadertexture/uniforms"
)

const (
	DefaultResolution = 1024
	DefaultAAPasses   = 2
	DefaultColor      = "#FF0000"
)

var builtins = []Pattern{
	{Name: "random", Label: "Random", Periodic: true, Defaults: map[string]any{
		"size": 1.0 / 2048, "amount": 0.25, "rotation": 0.0, "vignette": 0.0,
		"multicolor": false, "randomRotation": false, "randomOpacity": true,
		"image": uniforms.NoImage, "shape": "square",
	}},
	{Name: "perlin", Label: "Perlin", Defaults: map[string]any{
		"size": 0.25, "octaves": 1.0, "phase": 0.0, "gain": 0.4, "lacunarity": 1.0, "factor": 1.0,
	}},
	{Name: "voronoi", Label: "Voronoi", Defaults: map[string]any{
		"size": 0.25, "octaves": 1.0, "phase": 0.0, "gain": 1.2, "lacunarity": 1.0, "jitter": 1.0, "factor": 0.0,
	}},
	{Name: "wave", Label: "Waves", Defaults: map[string]any{
		"size": 0.25, "smoothness": 0.0, "gain": 0.75, "interpolate": 0.0, "width": 0.25,
	}},
	{Name: "stairs", Label: "Stairs", Defaults: map[string]any{
		"size": 0.25, "smoothness": 0.0, "distance": 0.0, "width": 0.25,
	}},
	{Name: "value", Label: "Value", Defaults: map[string]any{
		"size": 0.25, "octaves": 1.0, "phase": 0.0, "gain": 1.2, "lacunarity": 1.0, "factor": 0.0,
	}},
}

// TileableSize converts a normalized pattern size to the pixel size of one
// repeat on a canvas of the given resolution.
func TileableSize(size float64, resolution int) float64 {
	return math.Ceil(math.Max(size*float64(resolution)/16, 1))
}

// DefaultOptions returns a copy of the default options of kind.
func DefaultOptions(kind string) (map[string]any, bool) {
	p, ok := Lookup(kind)
	if !ok {
		return nil, false
	}
	return p.Defaults, true
}

// Settings carries the canvas-level inputs of ToOptions.
type Settings struct {
	Resolution int
	AAPasses   int
	Seed       float64
}

// renames maps designer option names copied verbatim to their uniform.
var renames = map[string]string{
	"amount":         "u_distribution",
	"randomOpacity":  "u_randomize",
	"randomRotation": "u_random_rotation",
	"gain":           "u_gain",
	"octaves":        "u_octaves",
	"lacunarity":     "u_lacunarity",
	"offset":         "u_offset",
	"multiplier":     "u_multiplier",
	"multicolor":     "u_multicolor",
	"phase":          "u_phase",
	"count":          "u_count",
	"interpolate":    "u_interpolate",
	"smoothness":     "u_smoothness",
	"distance":       "u_distance",
	"width":          "u_width",
	"jitter":         "u_jitter",
	"factor":         "u_factor",
	"strength":       "u_strength",
	"vignette":       "u_vignette",
}

// ToOptions translates designer options of kind, layered over its
// defaults, into the uniform option map consumed by uniforms.Map. Options
// that are absent or nil produce no entry.
func ToOptions(kind string, opts map[string]any, s Settings) map[string]any {
	merged, _ := DefaultOptions(kind)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range opts {
		merged[k] = v
	}
	if s.Resolution <= 0 {
		s.Resolution = DefaultResolution
	}
	if s.AAPasses <= 0 {
		s.AAPasses = DefaultAAPasses
	}

	out := map[string]any{
		"u_color":       DefaultColor,
		"u_aa_passes":   float64(s.AAPasses),
		"u_random_seed": s.Seed,
	}
	if c, ok := merged["color"].(string); ok && c != "" {
		out["u_color"] = c
	}
	if size, ok := uniforms.Number(merged["size"]); ok {
		out["u_size"] = TileableSize(size, s.Resolution)
	}
	if rot, ok := uniforms.Number(merged["rotation"]); ok {
		out["u_rotation"] = rot / 360
	}
	shape, _ := merged["shape"].(string)
	out["u_use_image"] = shape == "image"
	for from, to := range renames {
		if v, ok := merged[from]; ok && v != nil {
			out[to] = v
		}
	}
	if img, ok := merged["image"].(string); ok && img != "" {
		out["u_image"] = img
	}
	return out
}
