// Package main is the entrypoint of the logscan CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/huangsam/logscan/cmd"
	"github.com/huangsam/logscan/internal/iocache"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute(ctx)
	stop()
	iocache.CloseCaching()
	if err != nil {
		log.Error("logscan failed", "err", err)
		os.Exit(1)
	}
}
