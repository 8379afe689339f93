package assets

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/atlas/engine/core"
)

// Watcher hot-reloads directory-loaded assets whose source files change
// on disk. Tracked entries are re-read asynchronously through their
// loader; listeners observe the reload on the manager's event bus.
type Watcher struct {
	manager  *Manager
	fsnotify *fsnotify.Watcher

	mu       sync.Mutex
	index    map[string]watchRef
	isClosed bool

	done chan struct{}
}

type watchRef struct {
	category string
	entry    *Entry
}

func NewWatcher(manager *Manager) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		manager:  manager,
		fsnotify: fsWatch,
		index:    make(map[string]watchRef),
		done:     make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Track indexes every entry of the directory that names a source file and
// watches the containing directories. root is prepended to entry sources,
// matching what the loaders were configured with.
func (w *Watcher) Track(dir *Directory, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return fsnotify.ErrClosed
	}

	for _, cat := range dir.Categories {
		if w.manager.LoaderForCategory(cat.Key) == nil {
			continue
		}
		for _, entry := range cat.Entries {
			source := entry.Source()
			if source == "" {
				continue
			}
			path, err := filepath.Abs(filepath.Join(root, source))
			if err != nil {
				continue
			}
			w.index[path] = watchRef{category: cat.Key, entry: entry}
			if err := w.fsnotify.Add(filepath.Dir(path)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Watcher) start() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.handleFileEvent(e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// handleFileEvent re-reads the asset behind a changed source file.
func (w *Watcher) handleFileEvent(name string) {
	path, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	ref, tracked := w.index[path]
	w.mu.Unlock()
	if !tracked {
		return
	}

	loader := w.manager.LoaderForCategory(ref.category)
	if loader == nil {
		return
	}

	// Purge first; ReadEntry refuses keys that are already loaded.
	loader.PurgeEntry(ref.entry)
	category := ref.category
	loader.ReadEntry(ref.entry, func(key string, success bool) {
		if success {
			core.LogDebug("reloaded asset '%s' from '%s'", key, name)
		}
		w.manager.Events().Fire(core.EVENT_CODE_ASSET_RELOADED, w, core.EventContext{
			Category: category,
			Key:      key,
			Path:     name,
			Success:  success,
		})
	}, true)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	close(w.done)
	return nil
}
