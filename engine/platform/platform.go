package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/atlas/engine/core"
)

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform wraps the native window. The thread that calls Startup owns the
// graphics context; it is the same thread that must pump the run loop.
type Platform struct {
	Window *glfw.Window
	Loop   *RunLoop
}

func New(loop *RunLoop) (*Platform, error) {
	return &Platform{
		Window: nil,
		Loop:   loop,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// PumpMessages processes window events and drains the main-thread work
// queue once. Returns false when the window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	p.Loop.Pump()
	return !p.Window.ShouldClose()
}

func GetAbsoluteTime() float64 {
	return glfw.GetTime() - startTime
}
