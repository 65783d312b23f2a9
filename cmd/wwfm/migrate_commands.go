package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wwfm/internal/config"
	"wwfm/internal/logging"
	"wwfm/internal/migrate"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/migrate/legacy"
	"wwfm/internal/notifications"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
)

type migrateFlags struct {
	dryRun    bool
	limit     int
	threshold float64
	verbose   bool
	jsonOut   bool
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move content from the legacy Craft database into Cosmic",
		Long: `Migration jobs copy legacy Craft content into the Cosmic bucket.

Every record a job touches is written to the ledger in the data directory, so
jobs can be re-run safely: records already migrated are skipped. Use --dry-run
to preview a job without writing to Cosmic or the ledger.

Run order matters: hosts, then episodes (which link their hosts), then genres
and images. "wwfm migrate all" runs them in that order.`,
	}

	short := map[string]string{
		migrate.JobHosts:    "Create regular-host objects from legacy host entries",
		migrate.JobEpisodes: "Create episode objects from legacy episode entries",
		migrate.JobGenres:   "Map legacy genre labels onto canonical genres and tag episodes",
		migrate.JobImages:   "Attach legacy artwork to episodes and hosts that lack an image",
	}
	for _, job := range migrate.Jobs() {
		migrateCmd.AddCommand(newMigrateJobCommand(ctx, job, short[job]))
	}
	migrateCmd.AddCommand(newMigrateJobCommand(ctx, "all", "Run every job in order"))
	migrateCmd.AddCommand(newMigrateStatusCommand(ctx))
	migrateCmd.AddCommand(newMigrateReviewCommand(ctx))
	migrateCmd.AddCommand(newMigrateResetCommand(ctx))

	return migrateCmd
}

func newMigrateJobCommand(ctx *commandContext, job, short string) *cobra.Command {
	var flags migrateFlags

	cmd := &cobra.Command{
		Use:   job,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !flags.dryRun && !cfg.CanWrite() {
				return services.Wrap(services.ErrConfiguration, "migrate", "run", "cosmic.write_key (or COSMIC_WRITE_KEY) is required unless --dry-run is set", nil)
			}
			if flags.limit < 0 {
				return errors.New("--limit must not be negative")
			}
			if flags.threshold < 0 || flags.threshold > 1 {
				return errors.New("--threshold must be between 0 and 1")
			}
			logger, err := ctx.toolLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return withMigrator(cmd.Context(), cfg, logger, func(m *migrate.Migrator) error {
				jobs := []string{job}
				if job == "all" {
					jobs = migrate.Jobs()
				}
				opts := migrate.Options{DryRun: flags.dryRun, Limit: flags.limit, Threshold: flags.threshold}
				if opts.Threshold == 0 {
					opts.Threshold = cfg.Legacy.MatchThreshold
				}

				notifier := notifications.NewService(cfg)
				var reports []*migrate.Report
				for _, name := range jobs {
					report, err := m.Run(cmd.Context(), name, opts)
					if report != nil {
						reports = append(reports, report)
					}
					if err != nil {
						if !opts.DryRun {
							if notifyErr := notifier.NotifyError(cmd.Context(), err, "migrate "+name); notifyErr != nil {
								logger.Warn("migration alert failed", logging.Error(notifyErr))
							}
						}
						if !flags.jsonOut {
							printReports(cmd, reports, flags.verbose)
						}
						return fmt.Errorf("%s job: %w", name, err)
					}
					if !opts.DryRun {
						notifyFinished(cmd.Context(), notifier, logger, report)
					}
				}
				if flags.jsonOut {
					return writeJSON(cmd, reports)
				}
				printReports(cmd, reports, flags.verbose)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report what would change without writing to Cosmic or the ledger")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Stop after acting on this many records (0 = no limit)")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", 0, "Minimum similarity for fuzzy matches (default legacy.match_threshold)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Include skipped records in the report")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Output the reports as JSON")
	return cmd
}

// withMigrator opens the legacy database, Cosmic client and ledger, runs fn
// and closes them again.
func withMigrator(ctx context.Context, cfg *config.Config, logger *slog.Logger, fn func(*migrate.Migrator) error) error {
	src, err := legacy.Open(cfg.Legacy.Driver, cfg.Legacy.DSN, cfg.Legacy.TablePrefix, cfg.Legacy.AssetBaseURL)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := src.Ping(ctx); err != nil {
		return fmt.Errorf("legacy database: %w", err)
	}

	cms, err := cosmic.New(cosmic.Config{
		BucketSlug: cfg.Cosmic.BucketSlug,
		ReadKey:    cfg.Cosmic.ReadKey,
		WriteKey:   cfg.Cosmic.WriteKey,
		BaseURL:    cfg.Cosmic.BaseURL,
		MediaURL:   cfg.Cosmic.MediaURL,
	})
	if err != nil {
		return fmt.Errorf("cosmic client: %w", err)
	}

	book, err := ledger.OpenFromConfig(cfg)
	if err != nil {
		return err
	}
	defer book.Close()

	m, err := migrate.New(migrate.Deps{
		Legacy:  src,
		CMS:     cms,
		Ledger:  book,
		Fetcher: migrate.NewHTTPFetcher(nil),
		Logger:  logger,
	}, migrate.Settings{
		LockPath:     cfg.LockPath(),
		Location:     cfg.Location(),
		AssetBaseURL: cfg.Legacy.AssetBaseURL,
	})
	if err != nil {
		return err
	}
	return fn(m)
}

func notifyFinished(ctx context.Context, notifier notifications.Service, logger *slog.Logger, report *migrate.Report) {
	counts := report.Counts()
	err := notifier.NotifyMigrationFinished(ctx, report.Job, report.Summary(), counts[ledger.StatusReview], counts[ledger.StatusFailed])
	if err != nil {
		logger.Warn("migration alert failed", logging.String("job", report.Job), logging.Error(err))
	}
}

func printReports(cmd *cobra.Command, reports []*migrate.Report, verbose bool) {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)
	for _, report := range reports {
		title := fmt.Sprintf("== %s: %s ==", report.Job, report.Summary())
		fmt.Fprintln(out, title)

		var rows [][]string
		for _, row := range report.Rows {
			if row.Status == ledger.StatusSkipped && !verbose {
				continue
			}
			score := ""
			if row.Score > 0 {
				score = strconv.FormatFloat(row.Score, 'f', 2, 64)
			}
			rows = append(rows, []string{
				row.Kind,
				row.LegacyID,
				row.Title,
				row.Target,
				score,
				colorize(color, statusColor(row.Status), string(row.Status)),
				row.Detail,
			})
		}
		if len(rows) > 0 {
			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Legacy ID", "Title", "Target", "Score", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
			))
		}
		fmt.Fprintln(out)
	}
}

func statusColor(status ledger.Status) string {
	switch status {
	case ledger.StatusMigrated:
		return ansiGreen
	case ledger.StatusReview:
		return ansiYellow
	case ledger.StatusFailed:
		return ansiRed
	default:
		return ""
	}
}

func newMigrateStatusCommand(ctx *commandContext) *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the migration ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			book, err := ledger.OpenFromConfig(cfg)
			if err != nil {
				return err
			}
			defer book.Close()

			statuses := []ledger.Status{ledger.StatusMigrated, ledger.StatusSkipped, ledger.StatusReview, ledger.StatusFailed}
			var rows [][]string
			for _, kind := range migrate.Kinds() {
				counts, err := book.Counts(cmd.Context(), kind)
				if err != nil {
					return err
				}
				row := []string{kind}
				for _, status := range statuses {
					row = append(row, strconv.Itoa(counts[status]))
				}
				rows = append(rows, row)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ledger: %s\n", book.Path())
			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Migrated", "Skipped", "Review", "Failed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))

			recent, err := book.Runs(cmd.Context(), runs)
			if err != nil {
				return err
			}
			if len(recent) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			runRows := make([][]string, 0, len(recent))
			for _, run := range recent {
				finished := "running"
				if !run.FinishedAt.IsZero() {
					finished = run.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				runRows = append(runRows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					finished,
					run.Job,
					run.Summary,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Started", "Finished", "Job", "Summary"}, runRows, nil))
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 10, "Number of recent runs to show")
	return cmd
}

func newMigrateReviewCommand(ctx *commandContext) *cobra.Command {
	var failed bool

	cmd := &cobra.Command{
		Use:   "review [kind]",
		Short: "List ledger records that need a person to look at them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := migrate.Kinds()
			if len(args) == 1 {
				if !slices.Contains(kinds, args[0]) {
					return fmt.Errorf("unknown kind %q (expected one of %s)", args[0], strings.Join(kinds, ", "))
				}
				kinds = args[:1]
			}
			status := ledger.StatusReview
			if failed {
				status = ledger.StatusFailed
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			book, err := ledger.OpenFromConfig(cfg)
			if err != nil {
				return err
			}
			defer book.Close()

			var rows [][]string
			for _, kind := range kinds {
				records, err := book.List(cmd.Context(), kind, status)
				if err != nil {
					return err
				}
				for _, rec := range records {
					rows = append(rows, []string{rec.Kind, rec.LegacyID, rec.CosmicID, rec.Detail})
				}
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No records with status %s\n", status)
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Kind", "Legacy ID", "Cosmic ID", "Detail"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "List failed records instead of review records")
	return cmd
}

func newMigrateResetCommand(ctx *commandContext) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset <kind>",
		Short: "Forget ledger records of one kind so the job reprocesses them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !slices.Contains(migrate.Kinds(), kind) {
				return fmt.Errorf("unknown kind %q (expected one of %s)", kind, strings.Join(migrate.Kinds(), ", "))
			}
			if !confirm {
				return errors.New("reset can create duplicates in Cosmic if objects were already created; pass --yes to confirm")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			book, err := ledger.OpenFromConfig(cfg)
			if err != nil {
				return err
			}
			defer book.Close()

			removed, err := book.Reset(cmd.Context(), kind)
			if err != nil {
				return err
			}
			logger, err := ctx.toolLogger(cfg)
			if err == nil {
				logger.Info("ledger reset", logging.String("kind", kind), logging.Int64("removed", removed))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s records\n", removed, kind)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm the reset")
	return cmd
}
