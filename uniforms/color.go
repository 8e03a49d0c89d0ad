package uniforms

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an RGBA color with 8-bit color channels and a unit alpha.
type Color struct {
	R, G, B uint8
	A       float64
}

// ParseHex decodes "#RGB", "#RGBA", "#RRGGBB" or "#RRGGBBAA", with or
// without the leading '#'. Short forms double each nibble. Alpha defaults
// to 1.
func ParseHex(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4:
		var long strings.Builder
		for _, c := range hex {
			long.WriteRune(c)
			long.WriteRune(c)
		}
		hex = long.String()
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}

	var ch [4]uint8
	for i := 0; i < len(hex)/2; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		ch[i] = uint8(v)
	}
	c := Color{R: ch[0], G: ch[1], B: ch[2], A: 1}
	if len(hex) == 8 {
		c.A = float64(ch[3]) / 255
	}
	return c, nil
}

// Vec3 returns the color as normalized RGB.
func (c Color) Vec3() Vector {
	return Vector{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

// Vec4 returns the color as normalized RGBA.
func (c Color) Vec4() Vector {
	return append(c.Vec3(), float32(c.A))
}

// Vector returns the first n normalized channels (n is 2, 3 or 4).
func (c Color) Vector(n int) Vector {
	return c.Vec4()[:n]
}

// EncodeHex renders a 3 or 4 component vector as "#rrggbb" or "#rrggbbaa".
// Components are clamped to [0, 1].
func EncodeHex(v Vector) string {
	var b strings.Builder
	b.WriteByte('#')
	for i, f := range v {
		if i == 4 {
			break
		}
		fmt.Fprintf(&b, "%02x", unitToByte(f))
	}
	return b.String()
}

func unitToByte(f float32) uint8 {
	x := math.Round(float64(f) * 255)
	return uint8(math.Max(0, math.Min(255, x)))
}
