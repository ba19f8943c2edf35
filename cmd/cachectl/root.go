package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcache/cache"
	"github.com/jonwraymond/toolcache/config"
)

var errNotFound = errors.New("key not found")

type app struct {
	file     string
	cfgPath  string
	logLevel string

	cfg      *config.File
	store    cache.Store[json.RawMessage]
	closer   io.Closer
	shutdown func(context.Context) error
}

// run executes cachectl with args and releases the store afterwards.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.command()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close(ctx))
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and edit a toolcache snapshot file",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.file, "file", "f", "", "snapshot file (overrides store.path)")
	flags.StringVarP(&a.cfgPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newClearCmd(a),
		newListCmd(a),
		newSizeCmd(a),
		newHealthCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.cfgPath != "" {
		loaded, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.file != "" {
		cfg.Store.Kind = config.KindFile
		cfg.Store.Path = a.file
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cfg.Store.Kind != config.KindFile {
		return fmt.Errorf("%w: cachectl needs a file store, set --file or store.kind: file", cache.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	opts, shutdown, err := cfg.CacheOptions(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	store, closer, err := config.Build[json.RawMessage](ctx, cfg.Store, opts...)
	if err != nil {
		return errors.Join(err, shutdown(ctx))
	}

	a.cfg = cfg
	a.store = store
	a.closer = closer
	a.shutdown = shutdown
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
		a.closer = nil
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	return errors.Join(errs...)
}

// snapshot returns every live entry. FileCache always supports it.
func (a *app) snapshot(ctx context.Context) map[string]json.RawMessage {
	if s, ok := a.store.(cache.Snapshotter[json.RawMessage]); ok {
		return s.Snapshot(ctx)
	}
	return nil
}

// encodeValue stores valid JSON as-is and anything else as a JSON string.
func encodeValue(raw string) (json.RawMessage, error) {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil
	}
	return json.Marshal(raw)
}
