package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/atlas/engine/assets"
	"github.com/spaghettifunk/atlas/engine/assets/loaders"
	"github.com/spaghettifunk/atlas/engine/config"
	"github.com/spaghettifunk/atlas/engine/core"
	"github.com/spaghettifunk/atlas/engine/platform"
)

// Application owns the run loop, the platform window and the asset
// manager. New wires everything from the game's configuration; Run drives
// frames on the calling thread until the window closes or Shutdown is
// requested.
type Application struct {
	game *Game
	cfg  *config.Config

	loop     *platform.RunLoop
	platform *platform.Platform
	assets   *assets.Manager
	watcher  *assets.Watcher

	clock   *core.Clock
	metrics *core.Metrics

	isRunning    bool
	shutdownOnce sync.Once
}

func New(g *Game) (*Application, error) {
	if g == nil {
		return nil, fmt.Errorf("engine requires a game")
	}
	cfg := g.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.Logging.Level)

	return &Application{
		game:    g,
		cfg:     cfg,
		loop:    platform.NewRunLoop(cfg.Application.TargetFPS),
		clock:   core.NewClock(),
		metrics: core.NewMetrics(),
	}, nil
}

// Initialize creates the window (unless headless), the asset manager with
// the stock loaders, and kicks off the startup asset directory. Must be
// called from the thread that will call Run.
func (a *Application) Initialize() error {
	ac := a.cfg.Application

	if !ac.Headless {
		p, err := platform.New(a.loop)
		if err != nil {
			return err
		}
		if err := p.Startup(ac.Name, ac.StartPosX, ac.StartPosY, ac.StartWidth, ac.StartHeight); err != nil {
			return err
		}
		a.platform = p
	}

	manager, err := assets.NewManager(a.loop)
	if err != nil {
		return err
	}
	a.assets = manager

	root := a.cfg.Assets.Root
	for _, l := range []assets.Loader{
		loaders.NewFontLoader(root),
		loaders.NewTextureLoader(root),
		loaders.NewJsonLoader(root),
		loaders.NewWidgetLoader(root),
		loaders.NewSceneLoader(manager),
	} {
		if err := manager.Attach(l); err != nil {
			return err
		}
	}

	if path := a.cfg.Assets.Directory; path != "" {
		dir, err := assets.ReadDirectory(path)
		if err != nil {
			return fmt.Errorf("unable to read asset directory %s: %w", path, err)
		}
		manager.LoadDirectoryAsync(dir, nil)

		if a.cfg.Assets.WatchFiles {
			watcher, err := assets.NewWatcher(manager)
			if err != nil {
				return err
			}
			if err := watcher.Track(dir, root); err != nil {
				watcher.Close()
				return err
			}
			a.watcher = watcher
		}
	}

	if a.game.FnInitialize != nil {
		if err := a.game.FnInitialize(a); err != nil {
			return err
		}
	}

	a.isRunning = true
	return nil
}

// Run drives the frame loop: pump window events and scheduled main-thread
// work, tick the game, then sleep out the rest of the frame budget.
func (a *Application) Run() error {
	a.clock.Start()
	a.clock.Update()
	lastTime := a.clock.Elapsed()

	for a.isRunning {
		if a.platform != nil {
			if !a.platform.PumpMessages() {
				break
			}
		} else {
			a.loop.Pump()
		}

		frameStart := time.Now()
		a.clock.Update()
		current := a.clock.Elapsed()
		delta := current - lastTime
		lastTime = current

		if a.game.FnUpdate != nil {
			if err := a.game.FnUpdate(a, delta); err != nil {
				core.LogError("update failed: %s", err)
				break
			}
		}

		frameElapsed := time.Since(frameStart)
		a.metrics.Update(frameElapsed.Seconds())

		if remaining := a.loop.FrameInterval() - frameElapsed; remaining > 0 {
			time.Sleep(remaining)
		}
	}

	return a.Shutdown()
}

// Shutdown tears everything down in reverse order of Initialize. Safe to
// call more than once and from a signal handler goroutine.
func (a *Application) Shutdown() error {
	var err error
	a.shutdownOnce.Do(func() {
		a.isRunning = false

		if a.game.FnShutdown != nil {
			err = a.game.FnShutdown()
		}
		if a.watcher != nil {
			a.watcher.Close()
		}
		if a.assets != nil {
			a.assets.Dispose()
		}
		if a.platform != nil {
			err = a.platform.Shutdown()
		}
		a.clock.Stop()
	})
	return err
}

func (a *Application) Assets() *assets.Manager {
	return a.assets
}

func (a *Application) Events() *core.EventBus {
	return a.assets.Events()
}

func (a *Application) Loop() *platform.RunLoop {
	return a.loop
}

func (a *Application) Metrics() *core.Metrics {
	return a.metrics
}

func (a *Application) Config() *config.Config {
	return a.cfg
}
