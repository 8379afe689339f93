package assets

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/atlas/engine/core"
	"github.com/spaghettifunk/atlas/engine/jobs"
)

// Manager coordinates every attached loader: it maps directory categories
// to loaders, assigns execution ranks, and drives priority-ordered loads
// of whole JSON asset directories, synchronously or asynchronously.
//
// The manager runs a single auxiliary worker. Confining background loads
// to one worker keeps them strictly FIFO, which is what makes the
// priority barriers correct: a barrier task queued after the loads of one
// rank blocks the worker until those loads have materialized, so the
// loads of the next rank (queued behind the barrier) cannot start early.
//
// Managers are not singletons; create one per player mode or test and
// pass it around explicitly.
type Manager struct {
	id  core.InstanceID
	ctx Context

	mu       sync.RWMutex
	handlers map[uint64]Loader
	jsonKeys map[string]uint64
	priority map[string]uint32

	workers *jobs.Pool
	events  *core.EventBus

	// Set while an asynchronous whole-directory load is still parsing its
	// backing file; counts as one extra pending unit so progress never
	// reads 100% before the directory itself has been read.
	preload atomic.Bool
}

// NewManager creates an asset manager bound to the given owner-thread
// context. No loaders are attached; it is ready to accept them.
func NewManager(ctx Context) (*Manager, error) {
	if ctx == nil {
		return nil, fmt.Errorf("asset manager requires a scheduling context")
	}
	workers, err := jobs.NewPool(1)
	if err != nil {
		return nil, err
	}
	return &Manager{
		id:       core.NewInstanceID(),
		ctx:      ctx,
		handlers: make(map[uint64]Loader),
		jsonKeys: make(map[string]uint64),
		priority: make(map[string]uint32),
		workers:  workers,
		events:   core.NewEventBus(),
	}, nil
}

// Events exposes the pipeline event bus (asset loaded/failed/unloaded,
// directory complete).
func (m *Manager) Events() *core.EventBus {
	return m.events
}

// Attach registers a loader under its type hash, directory key and
// priority. At most one loader per type hash; the loader's JSONKey and
// Priority must not change afterwards.
func (m *Manager) Attach(loader Loader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := loader.TypeHash()
	if _, exists := m.handlers[hash]; exists {
		return core.ErrLoaderAttached
	}
	if other, exists := m.jsonKeys[loader.JSONKey()]; exists && other != hash {
		return fmt.Errorf("directory key '%s' is already handled by another loader", loader.JSONKey())
	}
	if err := loader.Bind(m.ctx, m.workers, m.events); err != nil {
		return err
	}

	m.handlers[hash] = loader
	m.jsonKeys[loader.JSONKey()] = hash
	m.priority[loader.JSONKey()] = loader.Priority()
	return nil
}

// Detach disposes and removes the loader with the given type hash.
func (m *Manager) Detach(hash uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	loader, ok := m.handlers[hash]
	if !ok {
		return false
	}
	loader.Dispose()
	delete(m.handlers, hash)
	for key, h := range m.jsonKeys {
		if h == hash {
			delete(m.jsonKeys, key)
			delete(m.priority, key)
		}
	}
	return true
}

// DetachAll disposes and removes every attached loader.
func (m *Manager) DetachAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, loader := range m.handlers {
		loader.Dispose()
		delete(m.handlers, hash)
	}
	m.jsonKeys = make(map[string]uint64)
	m.priority = make(map[string]uint32)
}

// Dispose detaches all loaders and stops the worker. The manager must be
// reinitialized to be used again.
func (m *Manager) Dispose() {
	m.DetachAll()
	m.workers.Shutdown()
}

// Lookup returns the loader registered under the type hash, or nil.
func (m *Manager) Lookup(hash uint64) Loader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handlers[hash]
}

// LoaderForCategory returns the loader handling a directory key, or nil.
func (m *Manager) LoaderForCategory(key string) Loader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, ok := m.jsonKeys[key]
	if !ok {
		return nil
	}
	return m.handlers[hash]
}

type table[T any] interface {
	Get(key string) (T, bool)
}

// Fetch retrieves a loaded asset through the manager: the loader is
// resolved by type name, the asset by key.
func Fetch[T any](m *Manager, typeName, key string) (T, bool) {
	var zero T
	loader := m.Lookup(TypeHash(typeName))
	if loader == nil {
		return zero, false
	}
	typed, ok := loader.(table[T])
	if !ok {
		return zero, false
	}
	return typed.Get(key)
}

// pendingCategory is one directory category resolved against the loader
// tables, tracked across the priority sweeps of a single directory load.
type pendingCategory struct {
	category *Category
	loader   Loader
	rank     uint32
	done     bool
}

// resolve maps every category to its loader and rank in a single pass.
// Unknown categories are logged and reported exactly once; they can
// never be processed, so they are excluded from the sweep loop entirely.
// For asynchronous loads the callback receives one failure per unknown
// category, keyed by the category name. A registered directory key whose
// loader or rank is missing means the registration tables are corrupted,
// which is a programming error, not a data error.
func (m *Manager) resolve(dir *Directory, callback Callback, async bool) ([]*pendingCategory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	success := true
	pending := make([]*pendingCategory, 0, len(dir.Categories))
	for _, cat := range dir.Categories {
		hash, known := m.jsonKeys[cat.Key]
		if !known {
			core.LogError("Unknown asset category '%s'", cat.Key)
			success = false
			if async && callback != nil {
				key := cat.Key
				m.ctx.Schedule(func() bool {
					callback(key, false)
					return false
				})
			}
			continue
		}
		rank, ok := m.priority[cat.Key]
		if !ok {
			panic(fmt.Sprintf("asset directory loaders are corrupted: no priority for '%s'", cat.Key))
		}
		loader := m.handlers[hash]
		if loader == nil {
			panic(fmt.Sprintf("asset directory loaders are corrupted: no loader for hash %d", hash))
		}
		pending = append(pending, &pendingCategory{category: cat, loader: loader, rank: rank})
	}
	return pending, success
}

// reserveAll estimates, per category, how many assets are not already
// loaded and reserves that count on the loader. Runs in one pass over the
// whole directory before any load begins, so progress monitoring sees the
// full denominator up front.
func (m *Manager) reserveAll(dir *Directory) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cat := range dir.Categories {
		hash, ok := m.jsonKeys[cat.Key]
		if !ok {
			continue
		}
		loader := m.handlers[hash]
		amount := 0
		for _, entry := range cat.Entries {
			if !loader.Contains(entry.Key) {
				amount++
			}
		}
		loader.Reserve(amount)
	}
}

// readCategory synchronously loads every entry of one category.
func (m *Manager) readCategory(loader Loader, cat *Category) bool {
	success := true
	for _, entry := range cat.Entries {
		success = loader.ReadEntry(entry, nil, false) && success
	}
	return success
}

// readCategoryAsync queues background loads for every entry of one
// category.
func (m *Manager) readCategoryAsync(loader Loader, cat *Category, callback Callback) {
	for _, entry := range cat.Entries {
		loader.ReadEntry(entry, callback, true)
	}
}

// purgeCategory unloads every entry of one category.
func (m *Manager) purgeCategory(loader Loader, cat *Category) bool {
	success := true
	for _, entry := range cat.Entries {
		success = loader.PurgeEntry(entry) && success
	}
	return success
}

// LoadDirectory synchronously loads all assets in the given directory.
//
// Categories are processed in priority order: every category at the
// current rank is dispatched (in directory order) before the numerically
// next rank is discovered and processed. Ranks need not be contiguous.
// The method loads as much of the directory as it can; a missing loader
// or failed asset contributes false to the result without aborting the
// remaining categories.
func (m *Manager) LoadDirectory(dir *Directory) bool {
	if dir == nil {
		return false
	}

	// First, estimate the number of things to load
	m.reserveAll(dir)

	pending, success := m.resolve(dir, nil, false)

	// Process categories by priority rank
	var curr, next uint32
	remaining := len(pending)
	for remaining > 0 {
		for _, pc := range pending {
			if pc.done {
				continue
			}
			if pc.rank == curr {
				success = m.readCategory(pc.loader, pc.category) && success
				pc.done = true
				remaining--
			} else if pc.rank > curr {
				// We are looking for the NEXT available rank
				if next == curr || pc.rank < next {
					next = pc.rank
				}
			}
		}
		curr = next
	}
	return success
}

// LoadDirectoryFile synchronously loads the JSON asset directory at the
// given path.
func (m *Manager) LoadDirectoryFile(path string) bool {
	dir, err := ReadDirectory(path)
	if err != nil {
		core.LogError("No asset directory located at '%s': %v", path, err)
		return false
	}
	return m.LoadDirectory(dir)
}

// LoadDirectoryAsync loads all assets in the given directory without
// blocking the owner thread. File I/O and data assembly run on the
// manager's worker; materialization is marshaled back through the
// context's schedule hook. The optional callback fires once per asset
// (and once per unknown category, keyed by the category name).
//
// Lower-priority categories may depend on assets from higher-priority
// ones, so after each rank the worker queue carries a barrier that polls
// the dispatched loaders until none have work in flight, sleeping one
// frame interval between polls. A final barrier covering all loaders
// fires the directory-complete event.
func (m *Manager) LoadDirectoryAsync(dir *Directory, callback Callback) {
	if dir == nil {
		if callback != nil {
			m.ctx.Schedule(func() bool {
				callback("", false)
				return false
			})
		}
		return
	}

	// First, estimate the number of things to load
	m.reserveAll(dir)

	pending, _ := m.resolve(dir, callback, true)

	// Process categories by priority rank
	var curr, next uint32
	var dispatched []Loader
	remaining := len(pending)
	for remaining > 0 {
		for _, pc := range pending {
			if pc.done {
				continue
			}
			if pc.rank == curr {
				m.readCategoryAsync(pc.loader, pc.category, callback)
				dispatched = append(dispatched, pc.loader)
				pc.done = true
				remaining--
			} else if pc.rank > curr {
				// We are looking for the NEXT available rank
				if next == curr || pc.rank < next {
					next = pc.rank
				}
			}
		}
		if remaining > 0 {
			curr = next
			m.sync(dispatched)
		}
	}

	// One last barrier so callers can detect true completion.
	m.finish()
}

// LoadDirectoryFileAsync asynchronously reads, parses and loads the JSON
// asset directory at the given path. If the file cannot be opened or
// parsed the callback is invoked once with an empty key and failure, and
// nothing is dispatched.
func (m *Manager) LoadDirectoryFileAsync(path string, callback Callback) {
	m.preload.Store(true)
	m.workers.AddTask(func() {
		dir, err := ReadDirectory(path)
		if err != nil {
			core.LogError("No asset directory located at '%s': %v", path, err)
			m.preload.Store(false)
			if callback != nil {
				m.ctx.Schedule(func() bool {
					callback("", false)
					return false
				})
			}
			return
		}
		m.LoadDirectoryAsync(dir, callback)
		m.preload.Store(false)
	})
}

// sync inserts a barrier task on the single-worker queue: it blocks the
// worker until every loader dispatched so far has zero work in flight.
// Tasks already queued before the barrier still run (the worker is what
// runs them); tasks queued after it cannot start until it returns.
func (m *Manager) sync(loaders []Loader) {
	snapshot := make([]Loader, len(loaders))
	copy(snapshot, loaders)
	m.workers.AddTask(func() {
		m.awaitQuiescence(snapshot)
	})
}

// finish queues the trailing barrier of a directory load: wait for every
// attached loader, then fire the directory-complete event on the owner
// thread.
func (m *Manager) finish() {
	m.workers.AddTask(func() {
		m.awaitQuiescence(m.allLoaders())
		m.ctx.Schedule(func() bool {
			m.events.Fire(core.EVENT_CODE_DIRECTORY_COMPLETE, m, core.EventContext{Success: true})
			return false
		})
	})
}

// awaitQuiescence polls the given loaders until none report in-flight
// work, sleeping roughly one display frame between polls. Polling trades
// a little latency for not needing any extra synchronization primitives;
// materialization drains on the owner thread once per frame anyway.
func (m *Manager) awaitQuiescence(loaders []Loader) {
	delay := int(1000 / m.ctx.TargetFPS())
	if delay < 1 {
		delay = 1
	}
	for {
		complete := true
		for _, l := range loaders {
			if l.InFlight() > 0 {
				complete = false
				break
			}
		}
		if complete {
			return
		}
		jobs.Sleep(delay)
	}
}

func (m *Manager) allLoaders() []Loader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Loader, 0, len(m.handlers))
	for _, l := range m.handlers {
		out = append(out, l)
	}
	return out
}

// UnloadDirectory unloads all assets named by the given directory in a
// single pass; unloading has no dependency ordering requirement.
// Categories without a registered loader are reported as errors and force
// an overall false without aborting the remaining categories. Assets
// still referenced elsewhere stay alive; only the loader references are
// dropped.
func (m *Manager) UnloadDirectory(dir *Directory) bool {
	if dir == nil {
		return false
	}
	success := true
	for _, cat := range dir.Categories {
		loader := m.LoaderForCategory(cat.Key)
		if loader == nil {
			core.LogError("Unknown asset category '%s'", cat.Key)
			success = false
			continue
		}
		success = m.purgeCategory(loader, cat) && success
	}
	return success
}

// UnloadDirectoryFile unloads the assets of the JSON asset directory at
// the given path.
func (m *Manager) UnloadDirectoryFile(path string) bool {
	dir, err := ReadDirectory(path)
	if err != nil {
		core.LogError("No asset directory located at '%s': %v", path, err)
		return false
	}
	return m.UnloadDirectory(dir)
}

// LoadCount is the total number of assets currently loaded, summed over
// every attached loader. Each asset counts as one regardless of size.
func (m *Manager) LoadCount() int {
	result := 0
	for _, l := range m.allLoaders() {
		result += l.LoadCount()
	}
	return result
}

// WaitCount is the total number of assets still pending, summed over
// every attached loader, plus one while an asynchronous directory load is
// still parsing its backing file.
func (m *Manager) WaitCount() int {
	result := 0
	for _, l := range m.allLoaders() {
		result += l.WaitCount()
	}
	if m.preload.Load() {
		result++
	}
	return result
}

// Complete reports whether no asset work is pending anywhere.
func (m *Manager) Complete() bool {
	return m.WaitCount() == 0
}

// Progress is loaded/(loaded+waiting) across all loaders, 0 when both
// are 0.
func (m *Manager) Progress() float64 {
	loaded := m.LoadCount()
	total := loaded + m.WaitCount()
	if total == 0 {
		return 0
	}
	return float64(loaded) / float64(total)
}
