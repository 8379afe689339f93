package loaders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/atlas/engine/assets"
)

// JsonTypeName identifies generic JSON assets in the manager registry.
const JsonTypeName = "json"

// JsonLoader loads "jsons" directory entries: arbitrary non-directory
// JSON files kept around as plain trees (game balance tables, level
// metadata and the like). Entry field: "file".
//
// JSON assets carry priority 1 by default so they land after textures and
// fonts but before the scene graphs that may refer to them.
type JsonLoader struct {
	*assets.TypedLoader[map[string]interface{}]
	root string
}

func NewJsonLoader(root string) *JsonLoader {
	jl := &JsonLoader{
		TypedLoader: assets.NewTypedLoader[map[string]interface{}](JsonTypeName, "jsons", 1),
		root:        root,
	}
	jl.Prepare = jl.prepare
	return jl
}

func (jl *JsonLoader) prepare(key, source string, entry *assets.Entry) (map[string]interface{}, error) {
	if source == "" {
		return nil, fmt.Errorf("json asset '%s' has no source file", key)
	}
	data, err := os.ReadFile(filepath.Join(jl.root, source))
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("unable to parse json asset '%s': %w", key, err)
	}
	return tree, nil
}
