package loaders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/atlas/engine/assets"
)

// WidgetTypeName identifies widget templates in the manager registry.
const WidgetTypeName = "widget"

// Widget is a reusable scene-graph fragment template. The widget file
// declares variables, each naming a path into the contents tree; scene
// nodes instantiate the widget with per-use values for those variables.
type Widget struct {
	Name      string
	Variables map[string][]string
	Contents  map[string]interface{}
}

// Substitute returns a copy of the contents tree with each provided
// variable replaced along its declared path. Unknown variable names are
// ignored.
func (w *Widget) Substitute(values map[string]interface{}) map[string]interface{} {
	contents := deepCopy(w.Contents)
	for name, value := range values {
		path, ok := w.Variables[name]
		if !ok || len(path) == 0 {
			continue
		}
		node := contents
		for _, step := range path[:len(path)-1] {
			child, ok := node[step].(map[string]interface{})
			if !ok {
				node = nil
				break
			}
			node = child
		}
		if node != nil {
			node[path[len(path)-1]] = value
		}
	}
	return contents
}

func deepCopy(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if child, ok := v.(map[string]interface{}); ok {
			out[k] = deepCopy(child)
		} else {
			out[k] = v
		}
	}
	return out
}

// WidgetLoader loads "widgets" directory entries. Entry field: "file",
// pointing at a JSON document with "variables" and "contents" sections.
// Widgets carry priority 1: scene graphs instantiate them, so they must
// be resident before scenes load.
type WidgetLoader struct {
	*assets.TypedLoader[*Widget]
	root string
}

func NewWidgetLoader(root string) *WidgetLoader {
	wl := &WidgetLoader{
		TypedLoader: assets.NewTypedLoader[*Widget](WidgetTypeName, "widgets", 1),
		root:        root,
	}
	wl.Prepare = wl.prepare
	return wl
}

func (wl *WidgetLoader) prepare(key, source string, entry *assets.Entry) (*Widget, error) {
	if source == "" {
		return nil, fmt.Errorf("widget '%s' has no source file", key)
	}
	data, err := os.ReadFile(filepath.Join(wl.root, source))
	if err != nil {
		return nil, err
	}

	var file struct {
		Variables map[string][]string    `json:"variables"`
		Contents  map[string]interface{} `json:"contents"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse widget '%s': %w", key, err)
	}
	if file.Contents == nil {
		return nil, fmt.Errorf("widget '%s' has no contents section", key)
	}

	return &Widget{
		Name:      key,
		Variables: file.Variables,
		Contents:  file.Contents,
	}, nil
}
