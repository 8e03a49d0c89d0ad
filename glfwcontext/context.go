package glfwcontext

import (
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/goshadertexture/graphics"
	"github.com/richinsley/goshadertexture/logging"
)

// Options configures the window backing a Context.
type Options struct {
	Width   int
	Height  int
	Title   string
	Visible bool
}

// Context is a glfw window with an OpenGL 4.1 core context.
type Context struct {
	window    *glfw.Window
	events    graphics.Events
	iconified bool
	visible   bool
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

var _ graphics.Context = (*Context)(nil)

// New creates a window and its context. InitGraphics must have been called
// on the main thread.
func New(opts Options) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	if opts.Visible {
		glfw.WindowHint(glfw.Visible, glfw.True)
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	title := opts.Title
	if title == "" {
		title = "goshadertexture"
	}
	win, err := glfw.CreateWindow(opts.Width, opts.Height, title, nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		visible:      opts.Visible,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(c.cursorPosCallback)
	win.SetMouseButtonCallback(c.mouseButtonCallback)
	win.SetIconifyCallback(c.iconifyCallback)
	win.SetFramebufferSizeCallback(c.framebufferSizeCallback)
	win.SetCloseCallback(func(*glfw.Window) {
		if c.events.Close != nil {
			c.events.Close()
		}
	})
	return c, nil
}

// RegisterKeyCallback registers f to run when key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

func (c *Context) pointer() (float32, float32) {
	cursorX, cursorY := c.window.GetCursorPos()
	winWidth, winHeight := c.window.GetSize()
	return graphics.NormalizePointer(cursorX, cursorY, winWidth, winHeight)
}

func (c *Context) cursorPosCallback(_ *glfw.Window, _, _ float64) {
	if c.events.PointerMove == nil {
		return
	}
	c.events.PointerMove(c.pointer())
}

func (c *Context) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	x, y := c.pointer()
	switch action {
	case glfw.Press:
		if c.events.PointerDown != nil {
			c.events.PointerDown(x, y)
		}
	case glfw.Release:
		if c.events.PointerUp != nil {
			c.events.PointerUp(x, y)
		}
	}
}

func (c *Context) iconifyCallback(_ *glfw.Window, iconified bool) {
	c.iconified = iconified
	if c.events.Visibility != nil {
		c.events.Visibility(c.Visible())
	}
}

func (c *Context) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	if c.events.Resize != nil {
		c.events.Resize(width, height)
	}
}

// SetEvents replaces the event callbacks.
func (c *Context) SetEvents(ev graphics.Events) {
	c.events = ev
}

// Visible is false for hidden and iconified windows.
func (c *Context) Visible() bool {
	return c.visible && !c.iconified
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	if c.visible {
		c.window.SwapBuffers()
	}
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	logging.Logger().Info("glfw initialized")
	return nil
}

// TerminateGraphics shuts GLFW down. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	logging.Logger().Info("glfw terminated")
}
