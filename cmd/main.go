package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gungnir/internal/common"
	"gungnir/internal/engine"
	"gungnir/internal/net"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the TCP server and the matching engine.
	eng := engine.New(common.Equities)
	srv := net.New("0.0.0.0", 9001, eng)
	eng.SetReporter(srv)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
