package renderer

import "github.com/chewxy/math32"

// Pointer tracks the u_mouse vector: xy is the current position and zw the
// last press position, both normalized to [0, 1] with the origin at the
// bottom left. zw is negated while the button is released, so shaders can
// tell "pressed here" from "released after pressing here". Before the first
// press zw is zero.
type Pointer struct {
	state [4]float32
	down  bool
}

// Move records the current position.
func (p *Pointer) Move(x, y float32) {
	p.state[0], p.state[1] = x, y
}

// Down records a press at (x, y).
func (p *Pointer) Down(x, y float32) {
	p.down = true
	p.state[0], p.state[1] = x, y
	p.state[2], p.state[3] = x, y
}

// Up records the release of the button.
func (p *Pointer) Up(x, y float32) {
	p.down = false
	p.state[0], p.state[1] = x, y
	p.state[2], p.state[3] = -math32.Abs(p.state[2]), -math32.Abs(p.state[3])
}

// Pressed reports whether the button is held.
func (p *Pointer) Pressed() bool { return p.down }

// State returns the u_mouse vector.
func (p *Pointer) State() [4]float32 { return p.state }
