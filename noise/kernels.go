package noise

import (
	"github.com/chewxy/math32"

	"github.com/richinsley/goshadertexture/backend/soft"
	"github.com/richinsley/goshadertexture/shader"
)

const maxOctaves = 8

// field holds the per-draw inputs shared by the tiled patterns.
type field struct {
	resX  float32
	scale vec2
	color [3]float32
}

func newField(in *soft.Inputs) field {
	res := in.Vec(shader.UniformResolution, 2)
	size := in.Float("u_size")
	if size <= 0 {
		size = 1
	}
	resX := max(res[0], 1)
	s := max(math32.Floor(resX/size), 1)
	var c [3]float32
	copy(c[:], in.Vec("u_color", 3))
	return field{resX: resX, scale: vec2{s, s}, color: c}
}

// point returns the position of fragCoord within the unit tile.
func (f field) point(fragCoord vec2) vec2 {
	return fract2(scale(fragCoord, 1/f.resX))
}

func (f field) shade(value float32) soft.Vec4 {
	return soft.Vec4{f.color[0], f.color[1], f.color[2], value}
}

// antialias supersamples color on an u_aa_passes x u_aa_passes grid.
func antialias(in *soft.Inputs, color func(fragCoord vec2) soft.Vec4) soft.ShadeFunc {
	passes := max(in.Float("u_aa_passes"), 1)
	s := 1 / passes
	return func(fragCoord, _ soft.Vec2) soft.Vec4 {
		var acc soft.Vec4
		for x := float32(-0.5); x < 0.5; x += s {
			for y := float32(-0.5); y < 0.5; y += s {
				c := color(vec2{fragCoord[0] + x, fragCoord[1] + y})
				for i := range acc {
					acc[i] += min(c[i], 1)
				}
			}
		}
		for i := range acc {
			acc[i] /= passes * passes
		}
		return acc
	}
}

type octaveParams struct {
	octaves    int
	phase      float32
	gain       float32
	lacunarity float32
	factor     float32
}

func newOctaveParams(in *soft.Inputs) octaveParams {
	return octaveParams{
		octaves:    min(in.Int("u_octaves"), maxOctaves),
		phase:      in.Float("u_phase"),
		gain:       in.Float("u_gain"),
		lacunarity: max(math32.Floor(in.Float("u_lacunarity")), 1),
		factor:     in.Float("u_factor"),
	}
}

func octaveWeight(i int, factor float32) float32 {
	return math32.Pow(float32(i+1), -factor)
}

// fbm sums octaves of noise, weighting octave i by weight(i).
func fbm(p, base vec2, o octaveParams, weight func(i int) float32, noise func(pos, period vec2, phase float32) float32) float32 {
	var sum, norm float32
	amp := float32(1)
	period := base
	for i := 0; i < o.octaves; i++ {
		w := amp * weight(i)
		sum += w * noise(vec2{p[0] * period[0], p[1] * period[1]}, period, o.phase*float32(i+1))
		norm += w
		amp *= o.gain
		period = scale(period, o.lacunarity)
	}
	return sum / max(norm, 1e-4)
}

func corner(k int) vec2 { return vec2{float32(k & 1), float32(k >> 1)} }

func perlinNoise(pos, period vec2, phase float32) float32 {
	i, f := floor2(pos), fract2(pos)
	u := vec2{quintic(f[0]), quintic(f[1])}
	var n [4]float32
	for k := range n {
		o := corner(k)
		a := hash12(mod2(vec2{i[0] + o[0], i[1] + o[1]}, period))*twoPi + phase
		n[k] = dot(vec2{math32.Cos(a), math32.Sin(a)}, sub(f, o))
	}
	return mix(mix(n[0], n[1], u[0]), mix(n[2], n[3], u[0]), u[1])
}

func quintic(t float32) float32 { return t * t * t * (t*(t*6-15) + 10) }

func valueNoise(pos, period vec2, phase float32) float32 {
	i, f := floor2(pos), fract2(pos)
	u := vec2{f[0] * f[0] * (3 - 2*f[0]), f[1] * f[1] * (3 - 2*f[1])}
	var n [4]float32
	for k := range n {
		o := corner(k)
		n[k] = 0.5 + 0.5*math32.Sin(hash12(mod2(vec2{i[0] + o[0], i[1] + o[1]}, period))*twoPi+phase)
	}
	return mix(mix(n[0], n[1], u[0]), mix(n[2], n[3], u[0]), u[1])
}

func voronoiNoise(pos, period vec2, phase, jitter float32) float32 {
	i, f := floor2(pos), fract2(pos)
	best := float32(8)
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			o := vec2{float32(x), float32(y)}
			h := hash22(mod2(vec2{i[0] + o[0], i[1] + o[1]}, period))
			pt := vec2{
				o[0] + 0.5 + 0.5*jitter*math32.Sin(h[0]*twoPi+phase),
				o[1] + 0.5 + 0.5*jitter*math32.Sin(h[1]*twoPi+phase),
			}
			best = min(best, length(sub(pt, f)))
		}
	}
	return clamp(best, 0, 1)
}

func perlinKernel(in *soft.Inputs) soft.ShadeFunc {
	f, o := newField(in), newOctaveParams(in)
	flat := func(int) float32 { return 1 }
	return antialias(in, func(fragCoord vec2) soft.Vec4 {
		v := clamp(fbm(f.point(fragCoord), f.scale, o, flat, perlinNoise)+0.5, 0, 1)
		return f.shade(math32.Pow(v, max(o.factor, 1e-3)))
	})
}

func valueKernel(in *soft.Inputs) soft.ShadeFunc {
	f, o := newField(in), newOctaveParams(in)
	weight := func(i int) float32 { return octaveWeight(i, o.factor) }
	return antialias(in, func(fragCoord vec2) soft.Vec4 {
		return f.shade(clamp(fbm(f.point(fragCoord), f.scale, o, weight, valueNoise), 0, 1))
	})
}

func voronoiKernel(in *soft.Inputs) soft.ShadeFunc {
	f, o := newField(in), newOctaveParams(in)
	jitter := in.Float("u_jitter")
	weight := func(i int) float32 { return octaveWeight(i, o.factor) }
	noise := func(pos, period vec2, phase float32) float32 { return voronoiNoise(pos, period, phase, jitter) }
	return antialias(in, func(fragCoord vec2) soft.Vec4 {
		return f.shade(clamp(fbm(f.point(fragCoord), f.scale, o, weight, noise), 0, 1))
	})
}

func band(d, width, smoothness float32) float32 {
	edge := smoothness * 0.5
	return 1 - smoothstep(width-edge, width+edge+1e-4, d)
}

func waveKernel(in *soft.Inputs) soft.ShadeFunc {
	f := newField(in)
	width, smooth := in.Float("u_width"), in.Float("u_smoothness")
	gain, interp := in.Float("u_gain"), in.Float("u_interpolate")
	return antialias(in, func(fragCoord vec2) soft.Vec4 {
		p := f.point(fragCoord)
		c := vec2{p[0] * f.scale[0], p[1] * f.scale[1]}
		s := math32.Sin(c[0] * twoPi)
		t := math32.Abs(fract(c[0])-0.5)*4 - 1
		offset := mix(s, t, interp) * gain * 0.5
		d := math32.Abs(fract(c[1]+offset)-0.5) * 2
		return f.shade(band(d, width, smooth))
	})
}

func stairsKernel(in *soft.Inputs) soft.ShadeFunc {
	f := newField(in)
	width, smooth, shift := in.Float("u_width"), in.Float("u_smoothness"), in.Float("u_distance")
	return antialias(in, func(fragCoord vec2) soft.Vec4 {
		p := f.point(fragCoord)
		c := vec2{p[0] * f.scale[0], p[1] * f.scale[1]}
		t := fract(c[0] + math32.Floor(c[1])*shift + fract(c[1]))
		d := math32.Abs(t-0.5) * 2
		return f.shade(band(d, width, smooth))
	})
}

func init() {
	soft.RegisterKernel(KernelName("perlin", ""), perlinKernel)
	soft.RegisterKernel(KernelName("value", ""), valueKernel)
	soft.RegisterKernel(KernelName("voronoi", ""), voronoiKernel)
	soft.RegisterKernel(KernelName("wave", ""), waveKernel)
	soft.RegisterKernel(KernelName("stairs", ""), stairsKernel)
	for _, shape := range Shapes {
		soft.RegisterKernel(KernelName("random", shape), randomKernel(shape))
	}
}
