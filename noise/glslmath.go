package noise

import "github.com/chewxy/math32"

type vec2 = [2]float32

const (
	pi    = math32.Pi
	twoPi = 2 * math32.Pi
)

func fract(x float32) float32 { return x - math32.Floor(x) }

func mod(x, y float32) float32 { return x - y*math32.Floor(x/y) }

func mix(a, b, t float32) float32 { return a + (b-a)*t }

func clamp(x, lo, hi float32) float32 { return min(max(x, lo), hi) }

func step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

func sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func smoothstep(e0, e1, x float32) float32 {
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func length(v vec2) float32 { return math32.Hypot(v[0], v[1]) }

func dot(a, b vec2) float32 { return a[0]*b[0] + a[1]*b[1] }

func sub(a, b vec2) vec2 { return vec2{a[0] - b[0], a[1] - b[1]} }

func scale(v vec2, s float32) vec2 { return vec2{v[0] * s, v[1] * s} }

func floor2(v vec2) vec2 { return vec2{math32.Floor(v[0]), math32.Floor(v[1])} }

func fract2(v vec2) vec2 { return vec2{fract(v[0]), fract(v[1])} }

func mod2(v, p vec2) vec2 { return vec2{mod(v[0], p[0]), mod(v[1], p[1])} }

func abs2(v vec2) vec2 { return vec2{math32.Abs(v[0]), math32.Abs(v[1])} }

func hash12(p vec2) float32 {
	p3 := [3]float32{fract(p[0] * 0.1031), fract(p[1] * 0.1031), fract(p[0] * 0.1031)}
	d := p3[0]*(p3[1]+33.33) + p3[1]*(p3[2]+33.33) + p3[2]*(p3[0]+33.33)
	for i := range p3 {
		p3[i] += d
	}
	return fract((p3[0] + p3[1]) * p3[2])
}

func hash22(p vec2) vec2 {
	p3 := [3]float32{fract(p[0] * 0.1031), fract(p[1] * 0.1030), fract(p[0] * 0.0973)}
	d := p3[0]*(p3[1]+33.33) + p3[1]*(p3[2]+33.33) + p3[2]*(p3[0]+33.33)
	for i := range p3 {
		p3[i] += d
	}
	return vec2{fract((p3[0] + p3[1]) * p3[2]), fract((p3[0] + p3[2]) * p3[1])}
}

func hash32(p vec2) [3]float32 {
	p3 := [3]float32{fract(p[0] * 0.1031), fract(p[1] * 0.1030), fract(p[0] * 0.0973)}
	d := p3[0]*(p3[1]+33.33) + p3[1]*(p3[0]+33.33) + p3[2]*(p3[2]+33.33)
	for i := range p3 {
		p3[i] += d
	}
	return [3]float32{
		fract((p3[0] + p3[1]) * p3[2]),
		fract((p3[0] + p3[2]) * p3[1]),
		fract((p3[1] + p3[2]) * p3[0]),
	}
}

func rand(co vec2) float32 {
	dt := dot(co, vec2{12.9898, 78.233})
	return fract(math32.Sin(mod(dt, 3.14)) * 43758.5453)
}

func rotate2D(st vec2, angle float32) vec2 {
	st = sub(st, vec2{0.5, 0.5})
	c, s := math32.Cos(angle), math32.Sin(angle)
	// GLSL mat2 is column-major: mat2(c, -s, s, c) * v.
	return vec2{c*st[0] + s*st[1] + 0.5, -s*st[0] + c*st[1] + 0.5}
}
