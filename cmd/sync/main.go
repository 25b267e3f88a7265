package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/logger"
	"yt-creators/internal/pipeline"
	"yt-creators/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

type runFunc func(ctx context.Context, cfg *config.Config, out io.Writer) error

func main() {
	v, err := config.NewViper()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yt-creators:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(v, runSync).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "yt-creators:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper, run runFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "yt-creators",
		Short:         "Discover the top channels of a YouTube category and store their social links",
		Version:       CommitSHA,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), config.FromViper(v), cmd.OutOrStdout())
		},
	}

	flags := root.PersistentFlags()
	flags.String("category", "", "category title to sync (env CATEGORY_NAME, default Gaming)")
	flags.Int("cap", 0, "maximum number of channels (env DISCOVERY_CAP, default 1000)")
	flags.String("strategy", "", "link strategy: latest-video or description (env LINK_STRATEGY)")
	flags.String("persist-mode", "", "batch or per-channel (env PERSIST_MODE)")
	flags.String("out", "", "export path, .xlsx writes a workbook (env EXPORT_PATH)")
	flags.Int("max-pages", 0, "chart pages to scan (env DISCOVERY_MAX_PAGES, default 2)")
	flags.Bool("sort", true, "order channels by subscriber count (env SORT_BY_SUBSCRIBERS)")
	flags.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	for flag, key := range map[string]string{
		"category":     config.KeyCategoryName,
		"cap":          config.KeyCap,
		"strategy":     config.KeyLinkStrategy,
		"persist-mode": config.KeyPersistMode,
		"out":          config.KeyExportPath,
		"max-pages":    config.KeyMaxPages,
		"sort":         config.KeySortBySubscribers,
		"log-level":    config.KeyLogLevel,
	} {
		// Lookup cannot fail for flags registered above.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newEnqueueCmd(v))
	return root
}

func newEnqueueCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue",
		Short: "Hand a sync run to the worker instead of running it here",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromViper(v)
			client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer client.Close()

			info, err := tasks.EnqueueSyncCategory(client, payloadFromFlags(cmd, cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s task %s on queue %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
}

// payloadFromFlags only carries what was set on the command line; the worker
// fills in the rest from its own configuration.
func payloadFromFlags(cmd *cobra.Command, cfg *config.Config) tasks.SyncCategoryTaskPayload {
	var p tasks.SyncCategoryTaskPayload
	flags := cmd.Flags()
	if flags.Changed("category") {
		p.Category = cfg.CategoryName
	}
	if flags.Changed("cap") {
		p.Cap = cfg.Cap
	}
	if flags.Changed("strategy") {
		p.Strategy = cfg.LinkStrategy
	}
	return p
}

func runSync(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer log.Sync()

	p, closeStore, err := pipeline.Open(ctx, cfg, log)
	if err != nil {
		log.Error("could not start sync", zap.Error(err))
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	report, err := p.Run(ctx)
	if err != nil {
		log.Error("sync failed", zap.Error(err))
		return err
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, r *pipeline.Report) {
	fmt.Fprintf(out, "category %s: %d channels (%d new, %d updated)\n", r.CategoryID, r.Discovered, r.Inserted, r.Updated)
	for _, f := range r.PartialFailures {
		fmt.Fprintf(out, "  links unavailable for %s: %v\n", f.ChannelID, f.Err)
	}
	for _, f := range r.FailedChannels {
		fmt.Fprintf(out, "  not persisted %s: %v\n", f.ChannelID, f.Err)
	}
	fmt.Fprintf(out, "export written to %s\n", r.ExportPath)
}
