/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/atlas/engine"
	"github.com/spaghettifunk/atlas/testbed"
)

func main() {
	tb := testbed.NewTestGame()

	app, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}

	if err := app.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = app.Shutdown()
	}()

	// run engine
	if err := app.Run(); err != nil {
		panic(err)
	}
}
