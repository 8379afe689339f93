package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectoryPreservesCategoryOrder(t *testing.T) {
	doc := `{
		"scene2s": { "menu": { "type": "node" } },
		"fonts":   { "arial": { "file": "arial.ttf" } },
		"textures": { "logo": { "file": "logo.png" } }
	}`
	dir, err := ParseDirectory(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 3, dir.Len())

	var keys []string
	for _, cat := range dir.Categories {
		keys = append(keys, cat.Key)
	}
	assert.Equal(t, []string{"scene2s", "fonts", "textures"}, keys)
}

func TestParseDirectoryObjectForm(t *testing.T) {
	doc := `{
		"fonts": {
			"arial": { "file": "fonts/arial.ttf", "size": 24 },
			"felt":  { "file": "fonts/felt.fnt" }
		}
	}`
	dir, err := ParseDirectory(strings.NewReader(doc))
	require.NoError(t, err)

	cat := dir.Category("fonts")
	require.NotNil(t, cat)
	require.Len(t, cat.Entries, 2)

	assert.Equal(t, "arial", cat.Entries[0].Key)
	assert.Equal(t, "fonts/arial.ttf", cat.Entries[0].Source())
	assert.Equal(t, 24, cat.Entries[0].Int("size", 12))
	assert.Equal(t, "felt", cat.Entries[1].Key)
	assert.Equal(t, 12, cat.Entries[1].Int("size", 12))
}

func TestParseDirectoryArrayForm(t *testing.T) {
	doc := `{
		"textures": [
			{ "key": "logo", "file": "images/logo.png" },
			{ "key": "bg",   "file": "images/bg.jpg" }
		]
	}`
	dir, err := ParseDirectory(strings.NewReader(doc))
	require.NoError(t, err)

	cat := dir.Category("textures")
	require.NotNil(t, cat)
	require.Len(t, cat.Entries, 2)
	assert.Equal(t, "logo", cat.Entries[0].Key)
	assert.Equal(t, "images/logo.png", cat.Entries[0].Source())
	// The key field is consumed, not kept as entry data.
	assert.NotContains(t, cat.Entries[0].Fields, "key")
}

func TestParseDirectoryArrayEntryWithoutKey(t *testing.T) {
	doc := `{ "textures": [ { "file": "images/logo.png" } ] }`
	_, err := ParseDirectory(strings.NewReader(doc))
	require.ErrorContains(t, err, "key")
}

func TestParseDirectoryStringShorthand(t *testing.T) {
	doc := `{ "jsons": { "levels": "data/levels.json" } }`
	dir, err := ParseDirectory(strings.NewReader(doc))
	require.NoError(t, err)

	cat := dir.Category("jsons")
	require.Len(t, cat.Entries, 1)
	assert.Equal(t, "data/levels.json", cat.Entries[0].Source())
}

func TestParseDirectoryRejectsNonObjectRoot(t *testing.T) {
	_, err := ParseDirectory(strings.NewReader(`[1, 2, 3]`))
	require.Error(t, err)

	_, err = ParseDirectory(strings.NewReader(`{ "fonts": 42 }`))
	require.Error(t, err)

	_, err = ParseDirectory(strings.NewReader(`{ "fonts": {`))
	require.Error(t, err)
}

func TestEntryAccessors(t *testing.T) {
	e := &Entry{Key: "k", Fields: map[string]interface{}{
		"file":  "a.png",
		"size":  float64(18),
		"scale": 1.5,
		"wrap":  true,
	}}
	assert.Equal(t, "a.png", e.String("file", ""))
	assert.Equal(t, "none", e.String("missing", "none"))
	assert.Equal(t, 18, e.Int("size", 0))
	assert.Equal(t, 1.5, e.Float("scale", 0))
	assert.True(t, e.Bool("wrap", false))
	assert.False(t, e.Bool("missing", false))
}

func TestEntryNestedEntries(t *testing.T) {
	doc := `{
		"scene2s": {
			"menu": {
				"type": "node",
				"children": {
					"title":  { "type": "label", "font": "arial" },
					"button": { "type": "sprite", "texture": "logo" }
				}
			}
		}
	}`
	dir, err := ParseDirectory(strings.NewReader(doc))
	require.NoError(t, err)

	entry := dir.Category("scene2s").Entries[0]
	children := entry.Entries("children")
	require.Len(t, children, 2)

	byKey := map[string]*Entry{}
	for _, c := range children {
		byKey[c.Key] = c
	}
	require.Contains(t, byKey, "title")
	assert.Equal(t, "arial", byKey["title"].String("font", ""))

	// Array form nests too, with explicit key fields.
	arr := &Entry{Key: "menu", Fields: map[string]interface{}{
		"children": []interface{}{
			map[string]interface{}{"key": "a", "type": "node"},
			map[string]interface{}{"key": "b", "type": "node"},
		},
	}}
	ordered := arr.Entries("children")
	require.Len(t, ordered, 2)
	assert.Equal(t, "a", ordered[0].Key)
	assert.Equal(t, "b", ordered[1].Key)
}
