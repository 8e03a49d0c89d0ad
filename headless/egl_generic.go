//go:build !linux

package headless

import (
	"fmt"

	"github.com/richinsley/goshadertexture/graphics"
)

// Context is unavailable off Linux.
type Context struct {
	graphics.Context
}

// New always fails on this platform.
func New(width, height int) (*Context, error) {
	return nil, fmt.Errorf("EGL headless rendering is not supported on this platform")
}
