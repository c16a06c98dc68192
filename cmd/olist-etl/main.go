package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"olistdw/internal/config"

	// register all backends with the storage factory.
	_ "olistdw/internal/storage/all"
)

// main loads the configuration, validates it and runs the warehouse load.
// The exit status is 0 on success and 1 on any failure.
func main() {
	validateOnly := flag.Bool("validate", false, "validate the configuration and exit")

	cfg, err := config.Load()
	if err != nil {
		fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, *validateOnly, os.Stdout)
	stop()
	os.Exit(code)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
