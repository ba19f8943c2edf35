// Command cachectl inspects and edits FileCache snapshots.
//
//	cachectl --file ~/.cache/tools.json set greeting '"hello"'
//	cachectl --file ~/.cache/tools.json list --values
//	cachectl --config toolcache.yaml health
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
