package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"usatt/cmd/usatt/commands"
)

// signalContext returns a context that will live until Ctrl+C is pressed
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}

func main() {
	commands.ExecuteContext(signalContext())
}
