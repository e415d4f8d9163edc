package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/query-coordinator/internal/cache"
	"github.com/danielpatrickdp/query-coordinator/internal/history"
	"github.com/danielpatrickdp/query-coordinator/internal/logging"
	"github.com/danielpatrickdp/query-coordinator/internal/store"
)

// #region inspect-cmd

func inspectCmd(opts *rootOptions) *cobra.Command {
	var (
		last       int
		runID      string
		purgeCache bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show recent coordination runs and learned outcome stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Database == "" {
				return fmt.Errorf("inspect: no database configured")
			}
			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			if purgeCache {
				return runPurge(st)
			}
			if runID != "" {
				return runDetail(st, runID, opts.jsonOut)
			}
			return runList(st, last, opts.jsonOut)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	cmd.Flags().StringVar(&runID, "run", "", "show the event log of one run")
	cmd.Flags().BoolVar(&purgeCache, "purge-cache", false, "delete expired segmentation cache rows")
	return cmd
}

// #endregion inspect-cmd

// #region list-mode

func runList(st *store.Store, last int, jsonOut bool) error {
	if err := logging.EnsureSchema(st.DB()); err != nil {
		return err
	}
	runs, err := logging.RecentRuns(st.DB(), last)
	if err != nil {
		return err
	}
	mem, err := history.NewOutcomeMemory(st.DB())
	if err != nil {
		return err
	}
	stats, err := mem.Stats()
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(struct {
			Runs  []logging.RunSummary `json:"runs"`
			Stats []history.TypeStats  `json:"outcome_stats"`
		}{runs, stats})
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
	} else {
		fmt.Printf("%-36s %-7s %-9s %-6s %-9s %-20s %s\n",
			"RUN", "STARTED", "COMPLETED", "FAILED", "ESCALATED", "FIRST EVENT", "DURATION")
		for _, r := range runs {
			fmt.Printf("%-36s %-7d %-9d %-6d %-9d %-20s %s\n",
				r.RunID, r.Started, r.Completed, r.Failed, r.Escalated,
				r.FirstEvent.Format(time.DateTime), r.LastEvent.Sub(r.FirstEvent).Round(time.Millisecond))
		}
	}

	if len(stats) > 0 {
		fmt.Printf("\n%-11s %-6s %-7s %-9s %-8s %s\n", "TYPE", "TIER", "SAMPLES", "MEAN CONF", "SUCCESS", "ESCALATED")
		for _, s := range stats {
			fmt.Printf("%-11s %-6s %-7d %-9.2f %-8.2f %.2f\n",
				s.Type, s.Tier, s.Samples, s.MeanConfidence, s.SuccessRate, s.EscalationRate)
		}
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetail(st *store.Store, runID string, jsonOut bool) error {
	if err := logging.EnsureSchema(st.DB()); err != nil {
		return err
	}
	events, err := logging.RunEvents(st.DB(), runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	if jsonOut {
		return printJSON(events)
	}

	start := events[0].CreatedAt
	for _, ev := range events {
		fmt.Printf("+%-8s stage=%d %-10s %-18s conf=%.2f %s\n",
			ev.CreatedAt.Sub(start).Round(time.Millisecond), ev.Stage, ev.SegmentID, ev.Kind, ev.Confidence, ev.Detail)
	}
	return nil
}

// #endregion detail-mode

func runPurge(st *store.Store) error {
	l2, err := cache.NewSQLiteStore(st.DB())
	if err != nil {
		return err
	}
	n, err := l2.Purge(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("purged %d expired cache entries\n", n)
	return nil
}
