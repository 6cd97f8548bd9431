package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/database"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/kafka"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/phenopacket"
	"github.com/synaptica-ai/erker2phenopackets/pkg/pipeline"
	"github.com/synaptica-ai/erker2phenopackets/pkg/storage"
)

func main() {
	logger.Init()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "erker2phenopackets",
		Short:        "Map ERKER MC4R registry exports to GA4GH phenopackets",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			trace, _ := cmd.Flags().GetBool("trace")
			if level := logLevel(debug, trace); level != "" {
				logger.SetLevel(level)
			}
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")
	rootCmd.PersistentFlags().Bool("trace", false, "Log at trace level, one line per mapped row")
	rootCmd.MarkFlagsMutuallyExclusive("debug", "trace")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(exportCmd())
	return rootCmd
}

// logLevel returns the level the verbosity flags ask for, or "" to keep the
// LOG_LEVEL default.
func logLevel(debug, trace bool) string {
	switch {
	case trace:
		return "trace"
	case debug:
		return "debug"
	default:
		return ""
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <data_path> [out_dir_name]",
		Short: "Map a registry export and write one phenopacket per row",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := pipeline.Options{DataPath: args[0]}
			if len(args) == 2 {
				opts.OutDirName = args[1]
			}
			opts.Publish, _ = flags.GetBool("publish")
			opts.Validate, _ = flags.GetBool("validate")
			opts.Sequential, _ = flags.GetBool("sequential")
			opts.SkipInvalid, _ = flags.GetBool("skip-invalid")
			opts.Workers, _ = flags.GetInt("workers")
			store, _ := flags.GetBool("store")
			events, _ := flags.GetBool("events")

			cfg := config.Load()
			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if store {
				db, err := database.OpenPostgres(cfg)
				if err != nil {
					return fmt.Errorf("failed to connect to postgres: %w", err)
				}
				defer database.ClosePostgres(db)
				repo := storage.NewRepository(db)
				if err := repo.AutoMigrate(); err != nil {
					return fmt.Errorf("failed to migrate phenopackets table: %w", err)
				}
				p.Store = repo

				rdb, err := database.OpenRedis(ctx, cfg)
				if err != nil {
					return fmt.Errorf("failed to connect to redis: %w", err)
				}
				defer rdb.Close()
				p.Runs = storage.NewRunStore(rdb, cfg.RunRecordTTL)
			}
			if events {
				producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
				defer producer.Close()
				p.Events = producer
			}

			report, err := p.Run(ctx, opts)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.InvalidFiles > 0 {
				return fmt.Errorf("%d phenopackets failed validation", report.InvalidFiles)
			}
			return nil
		},
	}
	cmd.Flags().Bool("publish", false, "Write below PHENOPACKETS_OUT instead of the test output root")
	cmd.Flags().Bool("validate", false, "Validate the written phenopackets with phenopacket-tools")
	cmd.Flags().Bool("sequential", false, "Map on a single goroutine")
	cmd.Flags().Bool("skip-invalid", false, "Drop rows that fail to parse or map and report them")
	cmd.Flags().Int("workers", 0, "Number of mapping workers (default WORKERS or the CPU count)")
	cmd.Flags().Bool("store", false, "Archive documents in Postgres and record the run in Redis")
	cmd.Flags().Bool("events", false, "Publish phenopacket.created and run.completed events to Kafka")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a phenopacket file or directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			last, _ := cmd.Flags().GetBool("last")
			cfg := config.Load()
			path, err := validateTarget(args, last, cfg)
			if err != nil {
				return err
			}

			v := phenopacket.NewValidator(cfg.ValidatorJar, cfg.ValidatorCommand)
			results, err := v.Validate(cmd.Context(), path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				status := "valid"
				if !r.Valid {
					status = "INVALID"
				}
				fmt.Fprintf(out, "%-8s %s\n", status, r.Path)
				if !r.Valid && r.Message != "" {
					fmt.Fprintln(out, r.Message)
				}
			}
			if invalid := phenopacket.Invalid(results); len(invalid) > 0 {
				return fmt.Errorf("%d of %d phenopackets failed validation", len(invalid), len(results))
			}
			fmt.Fprintf(out, "All %d phenopackets are valid.\n", len(results))
			return nil
		},
	}
	cmd.Flags().Bool("last", false, "Validate the most recent output directory")
	return cmd
}

// validateTarget picks the path to validate: the argument, or the newest
// output directory below either output root when last is set.
func validateTarget(args []string, last bool, cfg *config.Config) (string, error) {
	switch {
	case len(args) == 1 && last:
		return "", errors.New("pass either a path or --last")
	case len(args) == 1:
		return args[0], nil
	case last:
		return phenopacket.LastOutputDir(cfg.PhenopacketsOut, cfg.TestPhenopacketsOut)
	default:
		return "", errors.New("a path or --last is required")
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the phenopackets archive table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.OpenPostgres(config.Load())
			if err != nil {
				return err
			}
			defer database.ClosePostgres(db)
			if err := storage.NewRepository(db).AutoMigrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "phenopackets table is up to date.")
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [run_id]",
		Short: "Show a recorded run, the latest one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			rdb, err := database.OpenRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			report, err := findRun(cmd.Context(), storage.NewRunStore(rdb, cfg.RunRecordTTL), args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

// findRun returns the run named by args, or the latest one.
func findRun(ctx context.Context, runs pipeline.RunReader, args []string) (*models.RunReport, error) {
	if len(args) == 1 {
		return runs.Get(ctx, args[0])
	}
	return runs.Last(ctx)
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <run_id> <dir>",
		Short: "Write the archived phenopackets of a run back to files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.OpenPostgres(config.Load())
			if err != nil {
				return err
			}
			defer database.ClosePostgres(db)

			docs, err := storage.NewRepository(db).FindByRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return fmt.Errorf("no archived phenopackets for run %s", args[0])
			}
			paths, err := phenopacket.WriteFiles(docs, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d phenopackets to %s.\n", len(paths), args[1])
			return nil
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(content))
	return err
}
