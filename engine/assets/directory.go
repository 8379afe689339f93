package assets

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Entry is one asset record inside a directory category: the asset key
// plus whatever loader-specific fields the directory author supplied.
type Entry struct {
	Key    string
	Fields map[string]interface{}
}

// Source returns the backing file of the entry, checking the field names
// the bundled loaders agree on.
func (e *Entry) Source() string {
	return e.String("file", e.String("src", e.String("path", "")))
}

func (e *Entry) String(field, fallback string) string {
	if v, ok := e.Fields[field].(string); ok {
		return v
	}
	return fallback
}

func (e *Entry) Int(field string, fallback int) int {
	if v, ok := e.Fields[field].(float64); ok {
		return int(v)
	}
	return fallback
}

func (e *Entry) Float(field string, fallback float64) float64 {
	if v, ok := e.Fields[field].(float64); ok {
		return v
	}
	return fallback
}

func (e *Entry) Bool(field string, fallback bool) bool {
	if v, ok := e.Fields[field].(bool); ok {
		return v
	}
	return fallback
}

// Entries interprets a field as a nested list of entries, supporting both
// the array form (elements carry a "key" field) and the object form
// (field names are the keys). Scene graphs use this for child nodes.
func (e *Entry) Entries(field string) []*Entry {
	var out []*Entry
	switch v := e.Fields[field].(type) {
	case []interface{}:
		for _, raw := range v {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			child, err := entryFromValue(stringField(m, "key"), m)
			if err == nil {
				delete(child.Fields, "key")
				out = append(out, child)
			}
		}
	case map[string]interface{}:
		for key, raw := range v {
			child, err := entryFromValue(key, raw)
			if err == nil {
				out = append(out, child)
			}
		}
	}
	return out
}

// Category is a named group of directory entries handled by one loader.
// Entry order follows the JSON document.
type Category struct {
	Key     string
	Entries []*Entry
}

// Directory is the parsed JSON manifest describing which assets to load,
// grouped by category. Category order follows the JSON document; the
// manager dispatches same-rank categories in this order.
type Directory struct {
	Categories []*Category
}

func (d *Directory) Len() int {
	return len(d.Categories)
}

// Category returns the named category, or nil.
func (d *Directory) Category(key string) *Category {
	for _, c := range d.Categories {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// ReadDirectory parses the asset directory at the given path.
func ReadDirectory(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDirectory(f)
}

// ParseDirectory decodes an asset directory, preserving the document
// order of categories and entries. Two category shapes are accepted:
//
//	"fonts": { "arial": { "file": "arial.ttf", "size": 12 } }
//	"fonts": [ { "key": "arial", "file": "arial.ttf", "size": 12 } ]
//
// In the object form the entry key is its own JSON key; in the array form
// every element must name its key explicitly.
func ParseDirectory(r io.Reader) (*Directory, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset directory: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("asset directory must be a JSON object, got %v", tok)
	}

	dir := &Directory{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse asset directory: %w", err)
		}
		key := keyTok.(string)

		cat, err := parseCategory(dec, key)
		if err != nil {
			return nil, err
		}
		dir.Categories = append(dir.Categories, cat)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse asset directory: %w", err)
	}
	return dir, nil
}

func parseCategory(dec *json.Decoder, key string) (*Category, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse category '%s': %w", key, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("category '%s' must be a JSON object or array", key)
	}

	cat := &Category{Key: key}
	switch delim {
	case '{':
		for dec.More() {
			entryTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to parse category '%s': %w", key, err)
			}
			entryKey := entryTok.(string)
			var value interface{}
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("failed to parse entry '%s' of '%s': %w", entryKey, key, err)
			}
			entry, err := entryFromValue(entryKey, value)
			if err != nil {
				return nil, fmt.Errorf("category '%s': %w", key, err)
			}
			cat.Entries = append(cat.Entries, entry)
		}
	case '[':
		for dec.More() {
			var value map[string]interface{}
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("failed to parse category '%s': %w", key, err)
			}
			entryKey := stringField(value, "key")
			if entryKey == "" {
				return nil, fmt.Errorf("category '%s': array entries must carry a 'key' field", key)
			}
			entry, _ := entryFromValue(entryKey, value)
			delete(entry.Fields, "key")
			cat.Entries = append(cat.Entries, entry)
		}
	default:
		return nil, fmt.Errorf("category '%s' must be a JSON object or array", key)
	}

	// Consume the closing delimiter.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse category '%s': %w", key, err)
	}
	return cat, nil
}

func entryFromValue(key string, value interface{}) (*Entry, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return &Entry{Key: key, Fields: v}, nil
	case string:
		// Shorthand: the entry value is just the source path.
		return &Entry{Key: key, Fields: map[string]interface{}{"file": v}}, nil
	default:
		return nil, fmt.Errorf("entry '%s' must be a JSON object or string", key)
	}
}

func stringField(m map[string]interface{}, field string) string {
	s, _ := m[field].(string)
	return s
}
