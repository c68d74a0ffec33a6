package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/iyhunko/inventory-sync/internal/config"
	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/logger"
	"github.com/iyhunko/inventory-sync/internal/repository/file"
	"github.com/iyhunko/inventory-sync/internal/service"
	"github.com/spf13/cobra"
)

type options struct {
	storePath     string
	fetchTimeout  time.Duration
	retentionDays int
	keepMinimum   int
	debug         bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "inventoryctl",
		Short:         "Manage the inventory store from the command line",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), level))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storePath, "store", envOr(config.InventoryPathEnv, config.DefaultInventoryPath), "inventory store file")
	flags.DurationVar(&opts.fetchTimeout, "timeout", config.DefaultFetchTimeout, "remote fetch timeout")
	flags.IntVar(&opts.retentionDays, "retention-days", config.DefaultBackupRetentionDays, "backup retention window in days")
	flags.IntVar(&opts.keepMinimum, "keep", config.DefaultBackupKeepMinimum, "newest backups always kept")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newSeedCmd(opts),
		newSyncCmd(opts),
		newDiffCmd(opts),
		newBackupCmd(opts),
		newSweepCmd(opts),
		newExportCmd(opts),
	)
	return root
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Replace the store with a local .json, .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			outcome, err := opts.service().Upload(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printJSON(cmd, outcome.Summary)
		},
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <url>",
		Short: "Fetch a remote inventory and commit it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := opts.service().Sync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, outcome)
		},
	}
}

func newDiffCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <url>",
		Short: "Show what a sync from url would change without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, err := opts.service().Preview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"source":       preview.Source,
				"totalChanges": preview.TotalChanges,
				"diff":         preview.Diff,
			})
		},
	}
}

func newBackupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backup, err := opts.service().Backup(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, backup)
		},
	}
}

func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete backups outside the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := opts.service().SweepBackups(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the store to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.service().Export(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), args[0])
			return nil
		},
	}
}

// service wires the file store only. Sync history, cache and notifications
// belong to the running service.
func (o *options) service() *service.InventoryService {
	store := file.NewStore(o.storePath)
	backups := file.NewBackupManager(store)
	return service.NewInventoryService(service.InventoryDeps{
		Store:   store,
		Commits: file.NewTransactionalRepository(store, backups),
		Backups: backups,
		Fetcher: inventory.NewFetcher(o.fetchTimeout),
		Policy: service.BackupPolicy{
			RetentionDays: o.retentionDays,
			KeepMinimum:   o.keepMinimum,
		},
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
