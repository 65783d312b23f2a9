package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wwfm/internal/logging"
	"wwfm/internal/schedule"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var at string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the broadcast schedule for the coming days",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.toolLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			now := time.Now()
			if at != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, at, cfg.Location())
				if err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
				now = parsed
			}

			st, err := buildSite(cfg, logger)
			if err != nil {
				return err
			}
			week, err := st.schedule.Week(cmd.Context(), now)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, struct {
					Start   time.Time      `json:"start"`
					End     time.Time      `json:"end"`
					Partial bool           `json:"partial"`
					Days    []schedule.Day `json:"days"`
				}{week.Window.Start, week.Window.End, week.Partial, week.Days})
			}

			out := cmd.OutOrStdout()
			if week.Partial {
				fmt.Fprintln(out, "Warning: a schedule source failed; some shows may be missing")
			}
			fmt.Fprint(out, renderWeek(week, now, cfg.Location(), shouldColorize(out)))
			logger.Debug("schedule printed", logging.Int("entries", len(week.Entries)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	cmd.Flags().StringVar(&at, "from", "", "First day of the window (YYYY-MM-DD, station time)")
	return cmd
}

func renderWeek(week schedule.Week, now time.Time, loc *time.Location, color bool) string {
	var b strings.Builder
	for _, day := range week.Days {
		fmt.Fprintf(&b, "%s\n", day.Date.Format("Monday 2 January"))
		if len(day.Entries) == 0 {
			b.WriteString("  (nothing scheduled)\n\n")
			continue
		}
		rows := make([][]string, 0, len(day.Entries))
		for _, entry := range day.Entries {
			slot := entry.Start.In(loc).Format("15:04") + "-" + entry.End.In(loc).Format("15:04")
			title := entry.Title
			if entry.Live(now) {
				title = colorize(color, ansiRed, "LIVE ") + title
			}
			rows = append(rows, []string{slot, title, strings.Join(entry.Hosts, ", "), string(entry.Source)})
		}
		b.WriteString(renderTable([]string{"Time", "Show", "Hosts", "Source"}, rows, nil))
		b.WriteString("\n\n")
	}
	return b.String()
}

func newLiveCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Show what is on air",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.toolLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			st, err := buildSite(cfg, logger)
			if err != nil {
				return err
			}
			if st.radio == nil {
				return errors.New("radiocult is not configured (set radiocult.station_id and RADIOCULT_API_KEY)")
			}
			status, err := st.radio.Live(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			if !status.OnAir() {
				fmt.Fprintf(out, "%s (%s)\n", colorize(color, ansiYellow, "Off air"), status.Status)
				return nil
			}
			loc := cfg.Location()
			fmt.Fprintf(out, "%s %s\n", colorize(color, ansiGreen, "On air:"), status.Title)
			if status.Artist != "" {
				fmt.Fprintf(out, "Artist: %s\n", status.Artist)
			}
			if !status.Start.IsZero() && !status.End.IsZero() {
				fmt.Fprintf(out, "Slot:   %s-%s\n", status.Start.In(loc).Format("15:04"), status.End.In(loc).Format("15:04"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
