// Package translator holds the process-wide WebGL2 to desktop GLSL
// translator.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// GetTranslator returns the shared translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
		if initErr != nil {
			initErr = fmt.Errorf("create shader translator: %w", initErr)
		}
	})
	return translator, initErr
}

// Stage names accepted by Translate.
const (
	StageVertex   = "vertex"
	StageFragment = "fragment"
)

// Translate converts a GLSL ES 3.00 source to GLSL 4.10 core. The returned
// map resolves source uniform and attribute names to their translated names.
func Translate(src, stage string) (string, map[string]string, error) {
	t, err := GetTranslator()
	if err != nil {
		return "", nil, err
	}
	out, err := t.TranslateShader(src, stage, gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return "", nil, err
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return out.Code, names, nil
}
