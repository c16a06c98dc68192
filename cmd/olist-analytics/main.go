package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"olistdw/internal/config"

	_ "olistdw/internal/storage/all"
)

// main reads the warehouse through the read contract, prints the delivery
// summary and exports the rows as parquet.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Stdout)
	stop()
	os.Exit(code)
}
