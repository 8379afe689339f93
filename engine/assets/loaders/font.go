// Package loaders provides the concrete per-asset-type loaders that ship
// with the engine. Each builds on assets.TypedLoader and only supplies
// the parsing (worker thread) and materialization (owner thread) hooks;
// new asset types are added the same way, without touching the manager.
package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fzipp/bmfont"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/spaghettifunk/atlas/engine/assets"
	"github.com/spaghettifunk/atlas/engine/core"
)

// FontTypeName identifies fonts in the manager registry.
const FontTypeName = "font"

const defaultFontSize = 12

// Font is a loaded typeface: either a vector face sized at load time or a
// pre-rendered bitmap font. Ready is set during materialization, the
// stand-in for the glyph-atlas build that needs the graphics context.
type Font struct {
	Name   string
	Size   int
	Face   font.Face
	Bitmap *bmfont.BitmapFont
	Handle core.InstanceID
	Ready  bool
}

// FontLoader loads "fonts" directory entries. Entry fields: "file" (the
// source, .ttf/.otf/.fnt) and "size" (vector fonts only, default 12).
type FontLoader struct {
	*assets.TypedLoader[*Font]
	root string
}

// NewFontLoader creates a font loader resolving sources against root.
// Fonts default to priority 0: scene graphs and widgets depend on them.
func NewFontLoader(root string) *FontLoader {
	fl := &FontLoader{
		TypedLoader: assets.NewTypedLoader[*Font](FontTypeName, "fonts", 0),
		root:        root,
	}
	fl.Prepare = fl.prepare
	fl.Finalize = fl.finalize
	return fl
}

func (fl *FontLoader) prepare(key, source string, entry *assets.Entry) (*Font, error) {
	size := defaultFontSize
	if entry != nil {
		size = entry.Int("size", defaultFontSize)
	}
	if source == "" {
		return nil, fmt.Errorf("font '%s' has no source file", key)
	}
	path := filepath.Join(fl.root, source)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".fnt":
		bmp, err := bmfont.Load(path)
		if err != nil {
			return nil, err
		}
		return &Font{
			Name:   key,
			Size:   bmp.Descriptor.Info.Size,
			Bitmap: bmp,
		}, nil

	case ".ttf", ".otf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("unable to parse font '%s': %w", key, err)
		}
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, err
		}
		return &Font{
			Name: key,
			Size: size,
			Face: face,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported font format '%s'", filepath.Ext(path))
	}
}

// finalize stands in for the atlas build: it runs on the owner thread and
// marks the font usable.
func (fl *FontLoader) finalize(key string, f *Font) error {
	f.Handle = core.NewInstanceID()
	f.Ready = true
	return nil
}
