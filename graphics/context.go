package graphics

// Context is an OpenGL context together with the surface it presents to.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the surface and processes pending window events.
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
	// Visible reports whether the surface is currently shown.
	Visible() bool
	SetEvents(ev Events)
}

// Events receives input and surface changes from a Context. Pointer
// coordinates are normalized to [0, 1] with the origin at the bottom-left
// corner of the surface. Nil callbacks are skipped.
type Events struct {
	PointerMove func(x, y float32)
	PointerDown func(x, y float32)
	PointerUp   func(x, y float32)
	Visibility  func(visible bool)
	Resize      func(width, height int)
	Close       func()
}

// NormalizePointer converts a cursor position in window coordinates (origin
// top-left) into the normalized bottom-left space used by Events.
func NormalizePointer(cursorX, cursorY float64, winWidth, winHeight int) (float32, float32) {
	if winWidth <= 0 || winHeight <= 0 {
		return 0, 0
	}
	x := cursorX / float64(winWidth)
	y := 1 - cursorY/float64(winHeight)
	return float32(x), float32(y)
}
