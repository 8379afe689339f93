package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/atlas/engine/assets"
)

// stubContext runs scheduled work inline; enough for synchronous loads,
// which never leave the calling goroutine.
type stubContext struct{}

func (stubContext) Schedule(fn func() bool) { fn() }
func (stubContext) TargetFPS() float64     { return 60 }

func newTestManager(t *testing.T) *assets.Manager {
	t.Helper()
	m, err := assets.NewManager(stubContext{})
	require.NoError(t, err)
	t.Cleanup(m.Dispose)
	return m
}

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeBytes(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func parseDirectory(t *testing.T, doc string) *assets.Directory {
	t.Helper()
	dir, err := assets.ParseDirectory(strings.NewReader(doc))
	require.NoError(t, err)
	return dir
}

func tempRoot(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func join(root string, elem ...string) string {
	return filepath.Join(append([]string{root}, elem...)...)
}
