// Command segmenter segments queries into dependency-ordered plans and
// coordinates their execution against a remote model service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/query-coordinator/internal/cache"
	"github.com/danielpatrickdp/query-coordinator/internal/codec"
	"github.com/danielpatrickdp/query-coordinator/internal/config"
	"github.com/danielpatrickdp/query-coordinator/internal/engine"
	"github.com/danielpatrickdp/query-coordinator/internal/history"
	"github.com/danielpatrickdp/query-coordinator/internal/logging"
	"github.com/danielpatrickdp/query-coordinator/internal/metrics"
	"github.com/danielpatrickdp/query-coordinator/internal/store"
	"github.com/danielpatrickdp/query-coordinator/internal/websearch"
)

// #region main

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	dbPath     string
	modelAddr  string
	jsonOut    bool
	quiet      bool
}

func rootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "segmenter",
		Short: "Segment queries and coordinate their execution",
		Long: `segmenter decomposes a query into typed segments, orders them into
parallel stages and runs each segment against a model service, passing
confident findings forward to the segments that depend on them.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.quiet {
				log.SetOutput(io.Discard)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database (overrides config)")
	pf.StringVar(&opts.modelAddr, "model-addr", "", "model service address (overrides config)")
	pf.BoolVar(&opts.jsonOut, "json", false, "output as JSON")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress log output")

	cmd.AddCommand(segmentCmd(&opts), runCmd(&opts), inspectCmd(&opts))
	return cmd
}

// #endregion main

// #region wiring

// app holds everything a command opened; close releases it.
type app struct {
	cfg     config.Config
	store   *store.Store
	client  *codec.ModelClient
	reg     *prometheus.Registry
	metrics *metrics.Collectors
	engine  *engine.Engine
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.dbPath != "" {
		cfg.Database = opts.dbPath
	}
	if opts.modelAddr != "" {
		cfg.ModelAddr = opts.modelAddr
	}
	return cfg, nil
}

func openApp(opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, reg: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.reg)

	var engineOpts []engine.Option
	engineOpts = append(engineOpts, engine.WithMetrics(a.metrics))

	if cfg.Database != "" {
		if a.store, err = store.Open(cfg.Database); err != nil {
			return nil, err
		}
		db := a.store.DB()

		sink, err := logging.NewSink(db)
		if err != nil {
			a.close()
			return nil, err
		}
		engineOpts = append(engineOpts, engine.WithEventSink(sink))

		if cfg.Cache.Persistent {
			l2, err := cache.NewSQLiteStore(db)
			if err != nil {
				a.close()
				return nil, err
			}
			engineOpts = append(engineOpts, engine.WithCache(cache.NewLayered(cache.NewMemory(), l2)))
		}
		if cfg.History {
			mem, err := history.NewOutcomeMemory(db)
			if err != nil {
				a.close()
				return nil, err
			}
			engineOpts = append(engineOpts, engine.WithHistory(mem))
		}
	}

	if a.client, err = codec.NewModelClient(cfg.ModelAddr); err != nil {
		a.close()
		return nil, err
	}
	if a.engine, err = engine.New(cfg, a.client, engineOpts...); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion wiring

// #region segment-cmd

func segmentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "segment <query>",
		Short: "Segment a query and print its execution plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			sr, err := a.engine.Segment(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(sr)
			}
			printPlan(sr)
			return nil
		},
	}
}

func printPlan(sr engine.SegmentationResult) {
	cached := ""
	if sr.Cached {
		cached = " (cached)"
	}
	fmt.Printf("Query:    %s%s\n", sr.Query, cached)
	fmt.Printf("Strategy: %s | Segments: %d | Stages: %d | Est: %d tokens, %dms\n\n",
		sr.Strategy, len(sr.Segments), sr.Plan.TotalStages(), sr.EstimatedTokens, sr.EstimatedTimeMs)

	byID := make(map[string]int, len(sr.Segments))
	for i, s := range sr.Segments {
		byID[s.ID] = i
	}
	for _, stage := range sr.Plan.Stages {
		fmt.Printf("Stage %d (%dms)\n", stage.Index, stage.EstimatedDuration.Milliseconds())
		for _, id := range stage.SegmentIDs {
			s := sr.Segments[byID[id]]
			deps := "-"
			if len(s.Dependencies) > 0 {
				deps = strings.Join(s.Dependencies, ",")
			}
			fmt.Printf("  %-8s %-11s %-6s deps=%-16s %s\n", s.ID, s.Type, s.RecommendedTier, deps, s.Text)
		}
	}
}

// #endregion segment-cmd

// #region run-cmd

func runCmd(opts *rootOptions) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Segment a query and coordinate its execution",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			sr, res, err := a.engine.Search(ctx, strings.Join(args, " "))
			if err != nil && !errors.Is(err, engine.ErrAllFailed) {
				return err
			}

			if opts.jsonOut {
				if perr := printJSON(struct {
					Segmentation engine.SegmentationResult      `json:"segmentation"`
					Result       engine.CoordinatedSearchResult `json:"result"`
				}{sr, res}); perr != nil {
					return perr
				}
			} else {
				printRun(res)
			}
			if showMetrics {
				printMetrics(a.reg)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print collected metrics after the run")
	return cmd
}

func printRun(res engine.CoordinatedSearchResult) {
	fmt.Println(res.SynthesizedResponse)
	if len(res.FinalResults) > 0 {
		fmt.Print(websearch.Format(res.FinalResults))
	}

	fmt.Printf("%-10s %-11s %-3s %-6s %-7s %-6s %-8s %s\n",
		"SEGMENT", "TYPE", "STG", "TIER", "OK", "CONF", "TOKENS", "NOTE")
	for _, row := range res.SegmentBreakdown {
		note := row.Error
		if row.SupersededBy != "" {
			note = "superseded by " + row.SupersededBy
		} else if row.EscalationReason != "" {
			note = "escalation: " + string(row.EscalationReason)
		}
		fmt.Printf("%-10s %-11s %-3d %-6s %-7t %-6.2f %-8d %s\n",
			row.SegmentID, row.Type, row.Stage, row.Tier, row.Success, row.Confidence, row.TokensUsed, note)
	}

	q := res.Quality
	fmt.Printf("\nRun %s | %d tokens | %s | escalations=%d\n", res.RunID, res.TotalTokens, res.TotalTime, res.Escalations)
	fmt.Printf("Quality: completeness=%.2f accuracy=%.2f coherence=%.2f overall=%.2f (%s)\n",
		q.Completeness, q.Accuracy, q.Coherence, q.Overall, q.Reason)
}

// printMetrics dumps every non-zero counter and histogram count.
func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Printf("[CLI] gather metrics: %v", err)
		return
	}
	fmt.Println("\nMetrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			if value == 0 {
				continue
			}
			fmt.Printf("  %s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}

// #endregion run-cmd
