// Package main provides the entry point for the ftsync CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aman-CERP/ftsync/cmd/ftsync/cmd"
	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprint(os.Stderr, ftserr.FormatForCLI(err))
		stop()
		os.Exit(1)
	}
}
