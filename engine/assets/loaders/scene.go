package loaders

import (
	"fmt"

	"github.com/spaghettifunk/atlas/engine/assets"
)

// SceneTypeName identifies scene graphs in the manager registry.
const SceneTypeName = "scene2"

// SceneNode is one node of a loaded 2d scene graph. References to
// textures, fonts and widgets are resolved against the manager at load
// time, which is why scene graphs carry a lower priority than the assets
// they point at.
type SceneNode struct {
	Key      string
	Type     string
	Texture  *Texture
	Font     *Font
	Contents map[string]interface{}
	Data     map[string]interface{}
	Children []*SceneNode
}

// SceneLoader loads "scene2s" directory entries. A scene entry is an
// inline node tree: "type", optional "texture"/"font"/"widget" asset
// references, optional "variables" for widget instantiation, and
// "children" with nested nodes.
//
// Scenes default to priority 3. The manager's rank barriers guarantee
// every texture, font and widget is materialized before any scene
// resolves them.
type SceneLoader struct {
	*assets.TypedLoader[*SceneNode]
	manager *assets.Manager
}

func NewSceneLoader(manager *assets.Manager) *SceneLoader {
	sl := &SceneLoader{
		TypedLoader: assets.NewTypedLoader[*SceneNode](SceneTypeName, "scene2s", 3),
		manager:     manager,
	}
	sl.Prepare = sl.prepare
	return sl
}

func (sl *SceneLoader) prepare(key, source string, entry *assets.Entry) (*SceneNode, error) {
	if entry == nil {
		return nil, fmt.Errorf("scene '%s' must be loaded from a directory entry", key)
	}
	return sl.buildNode(entry)
}

func (sl *SceneLoader) buildNode(entry *assets.Entry) (*SceneNode, error) {
	node := &SceneNode{
		Key:  entry.Key,
		Type: entry.String("type", "node"),
		Data: entry.Fields,
	}

	if ref := entry.String("texture", ""); ref != "" {
		texture, ok := assets.Fetch[*Texture](sl.manager, TextureTypeName, ref)
		if !ok {
			return nil, fmt.Errorf("scene node '%s' references unloaded texture '%s'", entry.Key, ref)
		}
		node.Texture = texture
	}
	if ref := entry.String("font", ""); ref != "" {
		f, ok := assets.Fetch[*Font](sl.manager, FontTypeName, ref)
		if !ok {
			return nil, fmt.Errorf("scene node '%s' references unloaded font '%s'", entry.Key, ref)
		}
		node.Font = f
	}
	if ref := entry.String("widget", ""); ref != "" {
		widget, ok := assets.Fetch[*Widget](sl.manager, WidgetTypeName, ref)
		if !ok {
			return nil, fmt.Errorf("scene node '%s' references unloaded widget '%s'", entry.Key, ref)
		}
		variables, _ := entry.Fields["variables"].(map[string]interface{})
		node.Contents = widget.Substitute(variables)
	}

	for _, child := range entry.Entries("children") {
		built, err := sl.buildNode(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, built)
	}
	return node, nil
}

// PurgeEntry removes the scene and, recursively, any children that were
// materialized under their own keys. Unload ordering is unconstrained;
// children first is just the natural traversal.
func (sl *SceneLoader) PurgeEntry(entry *assets.Entry) bool {
	if entry == nil {
		return false
	}
	for _, child := range entry.Entries("children") {
		sl.PurgeEntry(child)
	}
	return sl.PurgeKey(entry.Key)
}
