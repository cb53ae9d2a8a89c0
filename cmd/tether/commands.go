package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zoobzio/tether"
	"github.com/zoobzio/tether/pkg/file"
	"gopkg.in/yaml.v3"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file> <path>",
	Short: "Stream an attribute's value as JSON lines until the file is removed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hookLogging(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		prop, err := open(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for v := range prop.Producer(ctx) {
			if err := enc.Encode(v); err != nil {
				return fmt.Errorf("failed to encode value: %w", err)
			}
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <file> <path>",
	Short: "Print an attribute's current value as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hookLogging(cmd)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		prop, err := open(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		v, err := prop.Value(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <file> <path> <value>",
	Short: "Write an attribute; the value is parsed as YAML",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		hookLogging(cmd)

		var v any
		if err := yaml.Unmarshal([]byte(args[2]), &v); err != nil {
			return fmt.Errorf("failed to parse value: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		prop, err := open(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return prop.SetValue(ctx, v)
	},
}

// open observes attr in the document at path. A document that does not exist
// yields an already ended property, which is reported as an error here.
func open(ctx context.Context, path, attr string) (*tether.Property, error) {
	prop, err := tether.New(ctx, file.New(path), attr)
	if err != nil {
		return nil, err
	}
	if prop.State() == tether.StateEnded {
		return nil, fmt.Errorf("%s: %w", path, tether.ErrReleased)
	}
	return prop, nil
}
