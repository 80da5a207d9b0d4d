package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/alejandrodnm/updownbot/internal/adapters/notify"
	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/portfolio"
	"github.com/alejandrodnm/updownbot/internal/ports"
)

// runReport prints the persisted ledger without touching any API.
func runReport(ctx context.Context, store ports.StateStore, manager *portfolio.Manager, console *notify.Console) {
	st, err := store.LoadState(ctx)
	switch {
	case errors.Is(err, domain.ErrNoSavedState):
		slog.Info("no saved state yet")
		return
	case err != nil:
		slog.Error("failed to load state", "err", err)
		os.Exit(1)
	}
	if !manager.Restore(st) {
		slog.Error("saved state is malformed")
		os.Exit(1)
	}
	console.PrintReport(manager.Stats(nil))
}
