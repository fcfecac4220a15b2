// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/provider-verify/internal/decision"
	"github.com/pdiddy/provider-verify/internal/insights"
	"github.com/pdiddy/provider-verify/internal/intake"
	"github.com/pdiddy/provider-verify/internal/metrics"
	"github.com/pdiddy/provider-verify/internal/pipeline"
	"github.com/pdiddy/provider-verify/internal/routing"
	"github.com/pdiddy/provider-verify/internal/sources"
	"github.com/pdiddy/provider-verify/internal/store"
	"github.com/pdiddy/provider-verify/pkg/types"
)

var assessCmd = &cobra.Command{
	Use:   "assess <batch.yaml>",
	Short: "Assess a batch of provider records",
	Long: `Assess reads a batch file of provider records, queries every configured
source for each record, scores and routes the results, and saves the run to
the results database.

Sources with an endpoint under sources.endpoints are queried over HTTP; the
rest are answered from the outcomes recorded in the batch file. Records that
score high enough are auto-updated; the rest get review tickets.

Press Ctrl-C to stop after the current batch. Records gathered so far are
still scored and saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().Bool("dry-run", false, "score only: create no tickets or field updates and save nothing")
	assessCmd.Flags().Bool("json", false, "print the full batch report as JSON")
	assessCmd.Flags().Bool("insights", false, "print a quality analysis of the batch")
	assessCmd.Flags().Int("batch-size", 0, "records in flight at once (default 50)")
	assessCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the run")

	_ = viper.BindPFlag("pipeline.batch_size", assessCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("metrics.textfile", assessCmd.Flags().Lookup("metrics-file"))

	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	showInsights, _ := cmd.Flags().GetBool("insights")

	batch, err := intake.Read(args[0])
	if err != nil {
		return err
	}
	srcs, err := sources.Build(cfg.Sources, batch, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	}

	var st *store.Store
	if !dryRun {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, pipeline.WithActor(routing.NewDispatcher(st,
			routing.WithNotifier(routing.LogNotifier{Logger: logger}),
			routing.WithLogger(logger),
			routing.WithMetrics(m),
		)))
	}

	orch, err := pipeline.New(decision.New(cfg.Scoring), srcs, cfg.Pipeline, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := orch.Run(ctx, batch.Records(), pipeline.LogProgress(logger))

	if st != nil {
		// The run context may be cancelled; saving uses its own.
		saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := st.SaveRun(saveCtx, rep); err != nil {
			return err
		}
		logger.Info("run saved", "run_id", rep.ID, "db", cfg.Store.Path)
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics not written", "error", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := writeJSON(out, rep); err != nil {
			return err
		}
	} else {
		printReport(out, rep)
	}

	if showInsights {
		ins, err := insights.Analyze(rep.Results)
		switch {
		case errors.Is(err, insights.ErrNoResults):
			fmt.Fprintln(out, "No results to analyze.")
		case err != nil:
			return err
		case jsonOutput:
			if err := writeJSON(out, ins); err != nil {
				return err
			}
		default:
			printInsights(out, ins)
		}
	}

	if rep.Partial() {
		return fmt.Errorf("run %s incomplete: %d of %d records processed", rep.ID, rep.Processed, rep.Total)
	}
	return nil
}

func printReport(w io.Writer, rep *types.BatchReport) {
	fmt.Fprintf(w, "Run %s: %d of %d records in %s\n\n", rep.ID, rep.Processed, rep.Total, rep.Duration.Round(time.Millisecond))

	rows := [][]string{
		{"Auto-approved", itoa(rep.AutoUpdated)},
		{"Needs review", itoa(rep.NeedsReview)},
		{"Urgent", itoa(rep.Urgent)},
		{"Errors", itoa(rep.ErrorCount)},
		{"Average confidence", pct(rep.AverageConfidence)},
		{"Tickets created", itoa(rep.Actions.TicketsCreated)},
		{"Field updates", itoa(rep.Actions.FieldUpdates)},
	}
	fmt.Fprintln(w, renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(rep.DiscrepancyCounts) > 0 {
		typs := make([]types.DiscrepancyType, 0, len(rep.DiscrepancyCounts))
		for t := range rep.DiscrepancyCounts {
			typs = append(typs, t)
		}
		sort.Slice(typs, func(i, j int) bool {
			ci, cj := rep.DiscrepancyCounts[typs[i]], rep.DiscrepancyCounts[typs[j]]
			if ci != cj {
				return ci > cj
			}
			return typs[i] < typs[j]
		})
		rows = rows[:0]
		for _, t := range typs {
			rows = append(rows, []string{insights.TypeLabel(t), itoa(rep.DiscrepancyCounts[t])})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Discrepancy", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	if len(rep.Errors) > 0 {
		fmt.Fprintln(w)
		for _, e := range rep.Errors {
			fmt.Fprintf(w, "stage %s failed: %s\n", e.Stage, e.Message)
		}
	}
	if rep.Cancelled {
		fmt.Fprintln(w, "\nRun was cancelled before all records were gathered.")
	}
}

func printInsights(w io.Writer, ins insights.Report) {
	fmt.Fprintln(w)
	rows := [][]string{
		{"Average", pct(ins.Confidence.Average)},
		{"Minimum", pct(ins.Confidence.Min)},
		{"Maximum", pct(ins.Confidence.Max)},
		{"Std dev", fmt.Sprintf("%.2f", ins.Confidence.StdDev)},
		{"High (>=80)", itoa(ins.Distribution.High)},
		{"Medium (60-79)", itoa(ins.Distribution.Medium)},
		{"Low (<60)", itoa(ins.Distribution.Low)},
	}
	fmt.Fprintln(w, renderTable([]string{"Confidence", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(ins.Sources) > 0 {
		srcs := make([]types.Source, 0, len(ins.Sources))
		for s := range ins.Sources {
			srcs = append(srcs, s)
		}
		sort.Slice(srcs, func(i, j int) bool { return srcs[i] < srcs[j] })
		rows = rows[:0]
		for _, s := range srcs {
			r := ins.Sources[s]
			rows = append(rows, []string{string(s), itoa(r.Checks), pct(r.SuccessRate), pct(r.AverageConfidence)})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Source", "Checks", "Success", "Avg confidence"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
	}

	if len(ins.Messages) > 0 {
		fmt.Fprintln(w)
		for _, msg := range ins.Messages {
			fmt.Fprintln(w, "- "+msg)
		}
	}
}
