package shader

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RenderConfig holds the render-state hints a shader author embedded as
// "//key:value" comments. Values are decoded as JSON when possible.
type RenderConfig map[string]any

// RenderConfigKeys is the recognized vocabulary, lower case.
var RenderConfigKeys = []string{
	"description",
	"prompt",
	"geometry",
	"orbitcontrols",
	"mesh-position",
	"mesh-scale",
	"shader-wireframe",
	"shader-wireframe-linewidth",
	"geometry-args",
	"camera-position",
	"camera-fov",
	"camera-near",
	"camera-far",
	"mesh-rotation",
	"antialias",
}

var renderConfigRE = regexp.MustCompile(`(?im)//[ \t]*(` + strings.Join(quoteAll(RenderConfigKeys), "|") + `)[ \t]*:(.+)$`)

func quoteAll(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = regexp.QuoteMeta(k)
	}
	return out
}

// ParseRenderConfig extracts render configuration comments from anywhere in
// src. Later occurrences of a key override earlier ones.
func ParseRenderConfig(src string) RenderConfig {
	cfg := RenderConfig{}
	for _, m := range renderConfigRE.FindAllStringSubmatch(src, -1) {
		key := strings.ToLower(m[1])
		raw := strings.TrimRight(m[2], "\r")
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			cfg[key] = v
			continue
		}
		cfg[key] = strings.TrimSpace(raw)
	}
	return cfg
}

// Bool returns the value of key as a boolean, or def when it is missing or
// not a boolean.
func (c RenderConfig) Bool(key string, def bool) bool {
	if b, ok := c[key].(bool); ok {
		return b
	}
	return def
}

// Float returns the value of key as a number, or def.
func (c RenderConfig) Float(key string, def float64) float64 {
	if f, ok := c[key].(float64); ok {
		return f
	}
	return def
}

// String returns the value of key as a string, or def.
func (c RenderConfig) String(key string, def string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return def
}
