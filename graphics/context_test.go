package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePointer(t *testing.T) {
	x, y := NormalizePointer(0, 0, 200, 100)
	assert.Equal(t, float32(0), x)
	assert.Equal(t, float32(1), y)

	x, y = NormalizePointer(50, 75, 200, 100)
	assert.Equal(t, float32(0.25), x)
	assert.Equal(t, float32(0.25), y)

	x, y = NormalizePointer(10, 10, 0, 0)
	assert.Zero(t, x)
	assert.Zero(t, y)
}
