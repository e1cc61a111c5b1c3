// Command memgate runs an MCP memory server backed by a pooled, refcounted
// memory client. It speaks stdio or SSE depending on TRANSPORT.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"memgate/config"
	"memgate/memstore/factory"
	"memgate/pool"
	"memgate/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	f, err := factory.New(cfg)
	if err != nil {
		return err
	}

	mgr := pool.New(f,
		pool.WithCreateTimeout(cfg.CreateTimeout),
		pool.WithIdleTimeout(cfg.IdleTimeout),
		pool.WithMaxLifetime(cfg.MaxLifetime),
		pool.WithMaxPoolSize(cfg.MaxPoolSize),
	)
	mgr.StartPeriodicCleanup(cfg.CleanupInterval, cfg.IdleTimeout)
	defer mgr.CleanupAll()
	defer mgr.StopPeriodicCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the shared client up front so the first tool call does not pay
	// the construction cost, and pin it for the life of the process.
	if _, err := mgr.Get(ctx, server.ClientKey); err != nil {
		return err
	}
	defer mgr.Release(server.ClientKey)

	return server.New(mgr, cfg).Run(ctx)
}
