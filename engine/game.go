package engine

import (
	"github.com/spaghettifunk/atlas/engine/config"
)

// Game is what an application hands to the engine: configuration, opaque
// game state, and the lifecycle hooks the run loop drives. All hooks run
// on the owner thread.
type Game struct {
	Config *config.Config
	State  interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnShutdown   Shutdown
}

type Initialize func(app *Application) error
type Update func(app *Application, deltaTime float64) error
type Shutdown func() error
