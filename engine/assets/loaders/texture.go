package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"

	"github.com/spaghettifunk/atlas/engine/assets"
	"github.com/spaghettifunk/atlas/engine/core"
)

// TextureTypeName identifies textures in the manager registry.
const TextureTypeName = "texture"

// Texture is a decoded image plus the handle assigned when the pixels are
// handed to the renderer. Decoding happens on a worker; the upload stands
// in for the GL call and runs on the owner thread.
type Texture struct {
	Name     string
	Image    image.Image
	Width    int
	Height   int
	Handle   core.InstanceID
	Uploaded bool
}

// TextureLoader loads "textures" directory entries. Entry field: "file".
// Supported formats: PNG, JPEG, TGA and WebP.
type TextureLoader struct {
	*assets.TypedLoader[*Texture]
	root string
}

// NewTextureLoader creates a texture loader resolving sources against
// root. Textures default to priority 0: scene graphs depend on them.
func NewTextureLoader(root string) *TextureLoader {
	tl := &TextureLoader{
		TypedLoader: assets.NewTypedLoader[*Texture](TextureTypeName, "textures", 0),
		root:        root,
	}
	tl.Prepare = tl.prepare
	tl.Finalize = tl.finalize
	return tl
}

func (tl *TextureLoader) prepare(key, source string, entry *assets.Entry) (*Texture, error) {
	if source == "" {
		return nil, fmt.Errorf("texture '%s' has no source file", key)
	}
	path := filepath.Join(tl.root, source)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tga":
		img, err = tga.Decode(f)
	case ".webp":
		img, err = webp.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to decode texture '%s': %w", key, err)
	}

	bounds := img.Bounds()
	return &Texture{
		Name:   key,
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func (tl *TextureLoader) finalize(key string, t *Texture) error {
	t.Handle = core.NewInstanceID()
	t.Uploaded = true
	return nil
}
