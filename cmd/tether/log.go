package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/tether"
)

// hookLogging routes property lifecycle signals to a structured logger when
// --verbose is set.
func hookLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	capitan.Hook(tether.PropertyStarted, func(_ context.Context, e *capitan.Event) {
		path, _ := tether.KeyPath.From(e)
		target, _ := tether.KeyTarget.From(e)
		logger.Info("property started", "path", path, "target", target)
	})
	capitan.Hook(tether.PropertyStateChanged, func(_ context.Context, e *capitan.Event) {
		path, _ := tether.KeyPath.From(e)
		from, _ := tether.KeyOldState.From(e)
		to, _ := tether.KeyNewState.From(e)
		logger.Info("property state changed", "path", path, "from", from, "to", to)
	})
	capitan.Hook(tether.PropertyValueWritten, func(_ context.Context, e *capitan.Event) {
		path, _ := tether.KeyPath.From(e)
		logger.Info("value written", "path", path)
	})
	capitan.Hook(tether.PropertyContractViolated, func(_ context.Context, e *capitan.Event) {
		path, _ := tether.KeyPath.From(e)
		msg, _ := tether.KeyError.From(e)
		logger.Error("notifier failed", "path", path, "error", msg)
	})
	capitan.Hook(tether.PropertyEnded, func(_ context.Context, e *capitan.Event) {
		path, _ := tether.KeyPath.From(e)
		logger.Info("property ended", "path", path)
	})
}
