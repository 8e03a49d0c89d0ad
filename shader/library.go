package shader

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Library is an in-memory registry of include bodies addressed as
// "<library>/<name>", e.g. `#include "noise/hash.glsl"`.
type Library struct {
	mu     sync.RWMutex
	chunks map[string]string
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{chunks: make(map[string]string)}
}

// Includes is the process-wide library. Packages that ship GLSL helpers
// register them here from init.
var Includes = NewLibrary()

func includeKey(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"<>;`)
	return strings.TrimSuffix(path, ".glsl")
}

// Register adds or replaces the body for path.
func (l *Library) Register(path, body string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chunks[includeKey(path)] = body
}

// Lookup returns the body registered for path.
func (l *Library) Lookup(path string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	body, ok := l.chunks[includeKey(path)]
	return body, ok
}

// Paths lists every registered include path in sorted order.
func (l *Library) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	paths := make([]string, 0, len(l.chunks))
	for p := range l.chunks {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Resolve splices registered bodies in place of #include lines. Includes are
// expanded recursively and each path is emitted at most once. An include
// that is not registered is an error.
func (l *Library) Resolve(src string) (string, error) {
	var b strings.Builder
	if err := l.resolve(&b, src, map[string]bool{}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (l *Library) resolve(b *strings.Builder, src string, seen map[string]bool) error {
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#include") {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		key := includeKey(strings.TrimPrefix(trimmed, "#include"))
		if seen[key] {
			continue
		}
		body, ok := l.Lookup(key)
		if !ok {
			return fmt.Errorf("unresolved include %q", key)
		}
		seen[key] = true
		if err := l.resolve(b, body, seen); err != nil {
			return fmt.Errorf("in %q: %w", key, err)
		}
	}
	return nil
}
