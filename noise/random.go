package noise

import (
	"github.com/chewxy/math32"

	"github.com/richinsley/goshadertexture/backend/soft"
	"github.com/richinsley/goshadertexture/shader"
)

func blur(d, amount float32) float32 { return smoothstep(0, amount, d) }

func sdCircle(p vec2, r float32) float32 { return length(p) - r }

func sdRhombus(p, b vec2) float32 {
	p = abs2(p)
	ndot := (b[0]-2*p[0])*b[0] - (b[1]-2*p[1])*b[1]
	h := clamp(ndot/dot(b, b), -1, 1)
	d := length(sub(p, vec2{0.5 * b[0] * (1 - h), 0.5 * b[1] * (1 + h)}))
	return d * sign(p[0]*b[1]+p[1]*b[0]-b[0]*b[1])
}

func sdTriangleIsosceles(p, q vec2) float32 {
	p[0] = math32.Abs(p[0])
	a := sub(p, scale(q, clamp(dot(p, q)/dot(q, q), 0, 1)))
	b := sub(p, vec2{q[0] * clamp(p[0]/q[0], 0, 1), q[1]})
	s := -sign(q[1])
	d := vec2{
		min(dot(a, a), dot(b, b)),
		min(s*(p[0]*q[1]-p[1]*q[0]), s*(p[1]-q[1])),
	}
	return -math32.Sqrt(d[0]) * sign(d[1])
}

func diagonal(st vec2, pct, thickness, feather float32) float32 {
	return smoothstep(pct-feather, pct, st[1]+thickness) - smoothstep(pct, pct+feather, st[1]-thickness)
}

// aspectScale fits an image of resolution res into the unit square,
// adjusting st, and reports 1 inside the image.
func aspectScale(st *vec2, res vec2) float32 {
	if res[0] <= 0 || res[1] <= 0 {
		return 0
	}
	aspect := res[0] / res[1]
	if aspect > 1 {
		st[1] = st[1]*aspect + (1-aspect)/2
	} else {
		inv := res[1] / res[0]
		st[0] = st[0]*inv + (1-inv)/2
	}
	return step(0, st[0]) * (1 - step(1, st[0])) * step(0, st[1]) * (1 - step(1, st[1]))
}

// randomKernel scatters cells of u_size pixels, each shown with probability
// u_distribution.
func randomKernel(shape string) soft.Kernel {
	return func(in *soft.Inputs) soft.ShadeFunc {
		res := in.Vec(shader.UniformResolution, 2)
		size := in.Float("u_size")
		if size <= 0 {
			size = 1
		}
		var color [3]float32
		copy(color[:], in.Vec("u_color", 3))
		rotation := in.Float("u_rotation")
		randomRotation := in.Bool("u_random_rotation")
		randomize := in.Bool("u_randomize")
		seed := in.Float("u_random_seed")
		multicolor := in.Bool("u_multicolor")
		distribution := in.Float("u_distribution")
		vignette := in.Float("u_vignette")
		img := in.Sampler("u_image")
		var imgRes vec2
		copy(imgRes[:], in.Vec("u_image_resolution", 2))
		blurAmount := res[0] / size * 0.001
		center := vec2{res[0]/size*0.5 - 0.5, res[1]/size*0.5 - 0.5}

		return func(fragCoord, _ soft.Vec2) soft.Vec4 {
			st := scale(fragCoord, 1/size)
			ipos := floor2(st)
			st = fract2(st)

			rot := rotation
			if randomRotation {
				rot = rand(ipos)
			}
			st = rotate2D(st, pi*rot)

			opacity := float32(1)
			if randomize {
				opacity = rand(scale(ipos, seed))
			}
			h := hash32(ipos)
			amt := hash32(vec2{h[0], h[1]})[0]

			if vignette != 0 && center[0] > 0 {
				v := clamp(1-length(sub(ipos, center))/center[0]*vignette, 0, 1)
				opacity *= math32.Pow(v, 20)
			}

			c := color
			if multicolor {
				c = h
			}
			visible := step(1-distribution, amt) * opacity

			var alpha float32
			switch shape {
			case "image":
				inside := aspectScale(&st, imgRes)
				px := img.Sample(st)
				return soft.Vec4{px[0], px[1], px[2], px[3] * visible * inside}
			case "line":
				alpha = visible * diagonal(st, st[0], 0.02, blurAmount)
			case "circle":
				alpha = visible * (1 - blur(sdCircle(scale(sub(st, vec2{0.5, 0.5}), 1.2+blurAmount), 0.5), blurAmount))
			case "triangle":
				p := scale(sub(st, vec2{0.5, 1 - blurAmount}), 1.2+blurAmount)
				alpha = visible * (1 - blur(sdTriangleIsosceles(p, vec2{0.5 - blurAmount, -1 + blurAmount}), blurAmount))
			case "diamond":
				p := scale(sub(st, vec2{0.5 + blurAmount, 0.5 + blurAmount}), 1.2+blurAmount)
				alpha = visible * (1 - blur(sdRhombus(p, vec2{0.5 - blurAmount, 0.5 + blurAmount}), blurAmount))
			default:
				alpha = visible
			}
			return soft.Vec4{c[0], c[1], c[2], alpha}
		}
	}
}
