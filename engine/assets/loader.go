// Package assets implements the engine's asset pipeline: a registry of
// typed loaders coordinated by priority, each capable of synchronous or
// asynchronous loading, unloading and progress reporting, driven by a
// JSON asset directory.
//
// The design has three layers. Loader is the polymorphic contract the
// manager schedules against. TypedLoader is the generic middle layer that
// owns the asset table, the pending set and the reservation counter.
// Concrete loaders (package loaders) supply only the type-specific
// preparation and materialization hooks.
package assets

import (
	"github.com/cespare/xxhash/v2"

	"github.com/spaghettifunk/atlas/engine/core"
	"github.com/spaghettifunk/atlas/engine/jobs"
)

// Callback reports the outcome of loading one asset. For asynchronous
// loads it runs on the owner thread after materialization. A nil callback
// is valid and means fire-and-forget.
type Callback func(key string, success bool)

// Context supplies the owner-thread services the pipeline needs: a
// scheduling hook whose closures are drained once per frame on the thread
// owning the graphics context, and the frame rate used to pace completion
// polling. platform.RunLoop implements it.
type Context interface {
	// Schedule queues a closure for the next owner-thread tick. A closure
	// returning false is deregistered after the run.
	Schedule(fn func() bool)
	TargetFPS() float64
}

// TypeHash returns the registry hash for an asset type name. The manager
// admits at most one loader per hash.
func TypeHash(typeName string) uint64 {
	return xxhash.Sum64String(typeName)
}

// Loader is the scheduler-facing contract every typed loader supports.
// Implementations are built on TypedLoader; the manager treats all asset
// types uniformly through this interface.
type Loader interface {
	// Read loads a single asset under the given key from the given source
	// path. It returns false immediately, without mutating state, if the
	// key is already loaded or already in flight. With async false the
	// call blocks until the asset is fully usable and reports the result;
	// with async true it returns right after queueing background work and
	// the result is delivered only through the callback.
	Read(key, source string, callback Callback, async bool) bool

	// ReadEntry is Read for a directory entry; the entry's own key is the
	// asset key and its fields configure the load.
	ReadEntry(entry *Entry, callback Callback, async bool) bool

	// PurgeKey removes the asset from the loader's table, returning false
	// if the key was not present. The asset value itself is shared;
	// removal only drops the loader's reference.
	PurgeKey(key string) bool

	// PurgeEntry is PurgeKey for a directory entry.
	PurgeEntry(entry *Entry) bool

	// Verify reports whether the asset for the key is loaded and usable.
	Verify(key string) bool

	// UnloadAll clears every loaded asset unconditionally.
	UnloadAll()

	Keys() []string
	Contains(key string) bool

	// Reserve adds amount to the reserved-but-not-yet-queued counter.
	// Each subsequent successful enqueue decrements it by one; it never
	// goes negative. Reservations stabilize the progress denominator
	// before asynchronous work has actually been queued.
	Reserve(amount int)

	LoadCount() int
	InFlight() int
	WaitCount() int
	Complete() bool
	Progress() float64

	// JSONKey is the top-level directory key this loader handles.
	// Mutating it after the loader is attached to a manager is unsafe:
	// the manager's category tables are built at attach time.
	JSONKey() string
	SetJSONKey(key string)

	// Priority is the execution rank for directory loads; lower values
	// load first. Mutating it after attach is unsafe, as with SetJSONKey.
	Priority() uint32
	SetPriority(priority uint32)

	TypeHash() uint64

	// Bind hands the loader its scheduling context, worker pool and event
	// bus. Called by the manager during attach.
	Bind(ctx Context, pool *jobs.Pool, events *core.EventBus) error

	// Dispose releases all assets and detaches the loader from its
	// context. Called by the manager during detach.
	Dispose()
}
