package assets

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/spaghettifunk/atlas/engine/core"
	"github.com/spaghettifunk/atlas/engine/jobs"
)

// PrepareFunc assembles the asset data for a key. It runs on a worker
// goroutine for asynchronous loads, so it must not touch anything owned
// by the graphics context. entry is nil for key+source reads.
type PrepareFunc[T any] func(key, source string, entry *Entry) (T, error)

// FinalizeFunc completes an asset on the owner thread (the materialization
// step: GL uploads, atlas builds, cross-loader resolution).
type FinalizeFunc[T any] func(key string, asset T) error

// TypedLoader is the generic storage layer beneath every concrete loader:
// the key→asset table, the in-flight key set and the reservation counter,
// plus the whole sync/async read pipeline. Concrete loaders embed it and
// supply Prepare and (optionally) Finalize.
//
// The asset table is only written during materialization, which runs on
// the owner thread (or the calling thread for synchronous reads). The
// pending set and reserved counter are touched from worker goroutines as
// well, so all counter state shares one mutex.
type TypedLoader[T any] struct {
	mu       sync.Mutex
	assets   map[string]T
	queue    map[string]struct{}
	reserved int

	typeName string
	hash     uint64
	jsonKey  string
	priority uint32

	ctx    Context
	pool   *jobs.Pool
	events *core.EventBus

	// Prepare assembles asset data; required before the first Read.
	Prepare PrepareFunc[T]
	// Finalize materializes the prepared asset on the owner thread; may
	// be nil when no owner-thread work is needed.
	Finalize FinalizeFunc[T]
}

// NewTypedLoader creates the storage layer for one asset type. typeName
// identifies the type in the manager's registry (see TypeHash); jsonKey
// is the directory category this loader consumes; priority is its
// execution rank (lower loads first).
func NewTypedLoader[T any](typeName, jsonKey string, priority uint32) *TypedLoader[T] {
	return &TypedLoader[T]{
		assets:   make(map[string]T),
		queue:    make(map[string]struct{}),
		typeName: typeName,
		hash:     TypeHash(typeName),
		jsonKey:  jsonKey,
		priority: priority,
	}
}

// Bind attaches the loader to its scheduling context. The manager calls
// this during Attach; binding twice without a Dispose in between fails.
func (l *TypedLoader[T]) Bind(ctx Context, pool *jobs.Pool, events *core.EventBus) error {
	if ctx == nil {
		return core.ErrLoaderUnbound
	}
	if l.ctx != nil {
		return fmt.Errorf("loader '%s' is already bound", l.typeName)
	}
	l.ctx = ctx
	l.pool = pool
	l.events = events
	return nil
}

// Dispose releases every asset and detaches the loader from its context.
func (l *TypedLoader[T]) Dispose() {
	l.UnloadAll()
	l.mu.Lock()
	l.queue = make(map[string]struct{})
	l.reserved = 0
	l.mu.Unlock()
	l.ctx = nil
	l.pool = nil
	l.events = nil
}

// Get returns the loaded asset for the key.
func (l *TypedLoader[T]) Get(key string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, ok := l.assets[key]
	return asset, ok
}

func (l *TypedLoader[T]) Contains(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.assets[key]
	return ok
}

func (l *TypedLoader[T]) Verify(key string) bool {
	return l.Contains(key)
}

func (l *TypedLoader[T]) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Keys(l.assets)
}

func (l *TypedLoader[T]) LoadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.assets)
}

func (l *TypedLoader[T]) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// WaitCount is the number of assets known to be coming but not yet
// materialized: reservations plus in-flight keys.
func (l *TypedLoader[T]) WaitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved + len(l.queue)
}

func (l *TypedLoader[T]) Complete() bool {
	return l.WaitCount() == 0
}

// Progress is loaded/(loaded+waiting), or 0 when nothing is loaded or
// waiting. Monotonically non-decreasing over a single directory load.
func (l *TypedLoader[T]) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := len(l.assets) + l.reserved + len(l.queue)
	if total == 0 {
		return 0
	}
	return float64(len(l.assets)) / float64(total)
}

// Reserve adds amount to the reserved counter. The manager calls this
// during the directory pre-scan so progress consumers see a stable
// denominator before any work is queued.
func (l *TypedLoader[T]) Reserve(amount int) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	l.reserved += amount
	l.mu.Unlock()
}

func (l *TypedLoader[T]) JSONKey() string { return l.jsonKey }

// SetJSONKey changes the directory category. Unsafe after the loader has
// been attached to a manager.
func (l *TypedLoader[T]) SetJSONKey(key string) { l.jsonKey = key }

func (l *TypedLoader[T]) Priority() uint32 { return l.priority }

// SetPriority changes the execution rank. Unsafe after the loader has
// been attached to a manager.
func (l *TypedLoader[T]) SetPriority(priority uint32) { l.priority = priority }

func (l *TypedLoader[T]) TypeHash() uint64 { return l.hash }

func (l *TypedLoader[T]) TypeName() string { return l.typeName }

// enqueue marks a key as in flight, consuming one reservation if any are
// outstanding. Returns false when the key is already loaded or in flight,
// which is the idempotence guard for double reads.
func (l *TypedLoader[T]) enqueue(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, loaded := l.assets[key]; loaded {
		return false
	}
	if _, pending := l.queue[key]; pending {
		return false
	}
	l.queue[key] = struct{}{}
	if l.reserved > 0 {
		l.reserved--
	}
	return true
}

// materialize finishes a load on the calling thread: runs Finalize,
// stores the asset on success, and removes the in-flight entry whether or
// not the load succeeded.
func (l *TypedLoader[T]) materialize(key string, asset T, prepErr error, callback Callback) bool {
	err := prepErr
	if err == nil && l.Finalize != nil {
		err = l.Finalize(key, asset)
	}

	success := err == nil
	l.mu.Lock()
	if success {
		l.assets[key] = asset
	}
	delete(l.queue, key)
	l.mu.Unlock()

	if err != nil {
		core.LogError("failed to load %s asset '%s': %v", l.typeName, key, err)
	}
	if l.events != nil {
		code := core.EVENT_CODE_ASSET_LOADED
		if !success {
			code = core.EVENT_CODE_ASSET_FAILED
		}
		l.events.Fire(code, l, core.EventContext{
			Category: l.jsonKey,
			Key:      key,
			Success:  success,
		})
	}
	if callback != nil {
		callback(key, success)
	}
	return success
}

// Read implements the Loader contract. The load is split into Prepare
// (worker goroutine) and materialize (owner thread) for asynchronous
// reads; synchronous reads run both on the calling thread.
func (l *TypedLoader[T]) Read(key, source string, callback Callback, async bool) bool {
	return l.read(key, source, nil, callback, async)
}

// ReadEntry implements the Loader contract for directory entries.
func (l *TypedLoader[T]) ReadEntry(entry *Entry, callback Callback, async bool) bool {
	if entry == nil {
		return false
	}
	return l.read(entry.Key, entry.Source(), entry, callback, async)
}

func (l *TypedLoader[T]) read(key, source string, entry *Entry, callback Callback, async bool) bool {
	if key == "" || l.Prepare == nil {
		return false
	}
	if !l.enqueue(key) {
		return false
	}

	ctx, pool := l.ctx, l.pool
	if !async || pool == nil || ctx == nil {
		asset, err := l.Prepare(key, source, entry)
		return l.materialize(key, asset, err, callback)
	}

	pool.AddTask(func() {
		asset, err := l.Prepare(key, source, entry)
		ctx.Schedule(func() bool {
			l.materialize(key, asset, err, callback)
			return false
		})
	})
	return true
}

// Load blocks until the asset under key is loaded from source.
func (l *TypedLoader[T]) Load(key, source string) bool {
	return l.Read(key, source, nil, false)
}

// LoadEntry blocks until the directory entry's asset is loaded.
func (l *TypedLoader[T]) LoadEntry(entry *Entry) bool {
	return l.ReadEntry(entry, nil, false)
}

// LoadAsync queues a background load; the result arrives via callback.
func (l *TypedLoader[T]) LoadAsync(key, source string, callback Callback) bool {
	return l.Read(key, source, callback, true)
}

// LoadEntryAsync queues a background load of a directory entry.
func (l *TypedLoader[T]) LoadEntryAsync(entry *Entry, callback Callback) bool {
	return l.ReadEntry(entry, callback, true)
}

// Unload removes the asset under key, keeping shared references alive.
func (l *TypedLoader[T]) Unload(key string) bool {
	return l.PurgeKey(key)
}

// UnloadEntry removes the asset of a directory entry.
func (l *TypedLoader[T]) UnloadEntry(entry *Entry) bool {
	return l.PurgeEntry(entry)
}

func (l *TypedLoader[T]) PurgeKey(key string) bool {
	l.mu.Lock()
	_, ok := l.assets[key]
	if ok {
		delete(l.assets, key)
	}
	l.mu.Unlock()

	if ok && l.events != nil {
		l.events.Fire(core.EVENT_CODE_ASSET_UNLOADED, l, core.EventContext{
			Category: l.jsonKey,
			Key:      key,
			Success:  true,
		})
	}
	return ok
}

func (l *TypedLoader[T]) PurgeEntry(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return l.PurgeKey(entry.Key)
}

func (l *TypedLoader[T]) UnloadAll() {
	l.mu.Lock()
	l.assets = make(map[string]T)
	l.mu.Unlock()
}
