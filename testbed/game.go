/*
Package testbed is an example application exercising the engine: it loads
an asset directory, reports loading progress every second, and fetches a
few assets once the pipeline completes.
*/
package testbed

import (
	"github.com/spaghettifunk/atlas/engine"
	"github.com/spaghettifunk/atlas/engine/assets"
	"github.com/spaghettifunk/atlas/engine/assets/loaders"
	"github.com/spaghettifunk/atlas/engine/config"
	"github.com/spaghettifunk/atlas/engine/core"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	reportTimer float64
	ready       bool
}

func NewTestGame() *TestGame {
	cfg := config.Default()
	cfg.Application.Name = "Atlas Testbed"
	cfg.Application.Headless = true
	cfg.Assets.Root = "testbed/assets"
	cfg.Assets.Directory = "testbed/assets/directory.json"
	cfg.Logging.Level = "debug"

	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State:  &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (tg *TestGame) Initialize(app *engine.Application) error {
	app.Events().Register(core.EVENT_CODE_DIRECTORY_COMPLETE, tg, tg.onDirectoryComplete)
	app.Events().Register(core.EVENT_CODE_ASSET_FAILED, tg, tg.onAssetFailed)
	return nil
}

func (tg *TestGame) Update(app *engine.Application, deltaTime float64) error {
	state := tg.State.(*gameState)

	state.reportTimer += deltaTime
	if state.reportTimer >= 1.0 {
		state.reportTimer = 0
		fps, frameTime := app.Metrics().Frame()
		core.LogInfo("loading %.0f%% (%d assets resident, %.1f fps, %.2fms/frame)",
			app.Assets().Progress()*100, app.Assets().LoadCount(), fps, frameTime)
	}

	if !state.ready && app.Assets().Complete() {
		state.ready = true
		if hud, ok := assets.Fetch[*loaders.SceneNode](app.Assets(), loaders.SceneTypeName, "hud"); ok {
			core.LogInfo("scene '%s' loaded with %d children", hud.Key, len(hud.Children))
		}
		if balance, ok := assets.Fetch[map[string]interface{}](app.Assets(), loaders.JsonTypeName, "balance"); ok {
			core.LogInfo("balance table loaded with %d fields", len(balance))
		}
	}
	return nil
}

func (tg *TestGame) Shutdown() error {
	core.LogInfo("testbed shutting down")
	return nil
}

func (tg *TestGame) onDirectoryComplete(code core.EventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogInfo("asset directory fully loaded")
	return false
}

func (tg *TestGame) onAssetFailed(code core.EventCode, sender, listener interface{}, data core.EventContext) bool {
	core.LogWarn("asset '%s' in category '%s' failed to load", data.Key, data.Category)
	return false
}
