package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcache/config"
	"github.com/jonwraymond/toolcache/health"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the JSON value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := a.store.Get(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("%w: %s", errNotFound, args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), string(v))
			return err
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY; non-JSON values are stored as strings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := encodeValue(args[1])
			if err != nil {
				return err
			}
			return a.store.Set(cmd.Context(), args[0], v)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY",
		Aliases: []string{"rm"},
		Short:   "Remove KEY",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: %s", errNotFound, args[0])
			}
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.store.Clear(cmd.Context())
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var values bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys in sorted order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := a.snapshot(cmd.Context())
			keys := make([]string, 0, len(snap))
			for k := range snap {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				var err error
				if values {
					_, err = fmt.Fprintf(out, "%s\t%s\n", k, snap[k])
				} else {
					_, err = fmt.Fprintln(out, k)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&values, "values", false, "print values next to keys")
	return cmd
}

func newSizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print the number of live entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.store.Size(cmd.Context()))
			return err
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the store and its snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			capacity := 0
			if a.cfg.Store.Backend == config.KindSliding {
				capacity = a.cfg.Store.Size
			}
			report, err := health.Run(cmd.Context(), timeout,
				health.NewStoreChecker("store", a.store, capacity),
				health.NewFileChecker("snapshot", a.cfg.Store.Path),
			)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-check timeout")
	return cmd
}
