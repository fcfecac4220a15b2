// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/provider-verify/internal/aggregate"
	"github.com/pdiddy/provider-verify/internal/decision"
	"github.com/pdiddy/provider-verify/internal/insights"
	"github.com/pdiddy/provider-verify/internal/resolve"
	"github.com/pdiddy/provider-verify/internal/store"
	"github.com/pdiddy/provider-verify/pkg/types"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect saved runs, results and review tickets",
	Long: `Results reads the results database written by assess. Use subcommands
to list results, explain one record's score, list runs, or work the ticket
queue.`,
}

// --- list subcommand ---

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assessment results",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := resultFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		results, err := st.ListResults(cmd.Context(), f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return writeJSON(out, results)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		color := shouldColorize(out)
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.RecordID, statusCell(r.Status, color), pct(r.Confidence), itoa(r.TotalDiscrepancies),
				stamp(r.ValidatedAt), truncate(r.Summary, 60),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Record", "Status", "Confidence", "Issues", "Validated", "Summary"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}))
		fmt.Fprintf(out, "\n%d results\n", len(results))
		return nil
	},
}

// --- show subcommand ---

var resultsShowCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Explain the latest result for a record",
	Long: `Show prints the latest result for a record with a per-source breakdown
of its confidence score, the weight of its discrepancies, how far the sources
agree on each reported field, and any field updates applied to it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := st.LatestResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		updates, err := st.FieldUpdates(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return printDetail(cmd.OutOrStdout(), res, updates, jsonOutput)
	},
}

// resultDetail is the JSON form of show.
type resultDetail struct {
	Result    types.AggregateResult      `json:"result"`
	Breakdown aggregate.Breakdown        `json:"breakdown"`
	Impact    resolve.ImpactReport       `json:"impact"`
	Agreement []aggregate.FieldAgreement `json:"agreement"`
	Updates   []types.FieldUpdate        `json:"field_updates"`
}

func printDetail(w io.Writer, res types.AggregateResult, updates []types.FieldUpdate, jsonOutput bool) error {
	// Freshness is judged as of the assessment, not as of today.
	engine := decision.New(cfg.Scoring).WithClock(func() time.Time { return res.ValidatedAt })
	d := resultDetail{
		Result:    res,
		Breakdown: engine.Aggregator().Explain(res.Outcomes),
		Impact:    resolve.Impact(res.Discrepancies),
		Updates:   updates,
	}
	for _, field := range reportedFields(res.Outcomes) {
		d.Agreement = append(d.Agreement, aggregate.Agreement(res.Outcomes, field))
	}

	if jsonOutput {
		return writeJSON(w, d)
	}

	fmt.Fprintf(w, "%s\n\n", res.Summary)

	rows := make([][]string, 0, len(d.Breakdown.Sources))
	for _, s := range d.Breakdown.Sources {
		status := "ok"
		if !s.Success {
			status = "failed"
		}
		rows = append(rows, []string{
			string(s.Source), status, pct(s.RawConfidence), fmt.Sprintf("%.2f", s.Weight),
			fmt.Sprintf("%.2f", s.FreshnessFactor), itoa(s.DiscrepanciesFound),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Source", "Status", "Confidence", "Weight", "Freshness", "Issues"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}))
	fmt.Fprintf(w, "Final score: %s\n", pct(d.Breakdown.FinalScore))

	if len(res.Discrepancies) > 0 {
		rows = rows[:0]
		for _, dis := range res.Discrepancies {
			state := "open"
			if dis.Resolution.Resolved {
				state = "resolved"
			}
			rows = append(rows, []string{
				dis.ID, insights.TypeLabel(dis.Type), string(dis.Priority),
				truncate(dis.CurrentValue, 30), truncate(dis.ValidatedValue, 30), string(dis.Source), state,
			})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"ID", "Type", "Priority", "Current", "Validated", "Source", "State"}, rows, nil))
		fmt.Fprintf(w, "Impact: %d (high %d, medium %d, low %d)\n",
			d.Impact.TotalImpact, d.Impact.High, d.Impact.Medium, d.Impact.Low)
	}

	if len(d.Agreement) > 0 {
		rows = rows[:0]
		for _, a := range d.Agreement {
			consensus := "no"
			if a.Consensus {
				consensus = "yes"
			}
			rows = append(rows, []string{a.Field, itoa(a.SourcesChecked), pct(a.AgreementRate), consensus})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Field", "Sources", "Agreement", "Consensus"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
	}

	if len(updates) > 0 {
		rows = rows[:0]
		for _, u := range updates {
			rows = append(rows, []string{u.Field, truncate(u.OldValue, 30), truncate(u.NewValue, 30), string(u.Source), stamp(u.AppliedAt)})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Field", "Old", "New", "Source", "Applied"}, rows, nil))
	}
	return nil
}

// reportedFields lists, sorted, every field any successful outcome asserted.
func reportedFields(outcomes []types.SourceOutcome) []string {
	seen := map[string]bool{}
	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		for f := range o.Data {
			seen[f] = true
		}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// --- runs subcommand ---

var resultsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent assessment runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return writeJSON(out, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs found.")
			return nil
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			state := "complete"
			switch {
			case r.Cancelled:
				state = "cancelled"
			case len(r.Errors) > 0:
				state = "partial"
			}
			rows = append(rows, []string{
				r.ID, stamp(r.StartedAt), fmt.Sprintf("%d/%d", r.Processed, r.Total),
				itoa(r.AutoUpdated), itoa(r.NeedsReview), itoa(r.Urgent), itoa(r.ErrorCount),
				pct(r.AverageConfidence), state,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Run", "Started", "Processed", "Auto", "Review", "Urgent", "Errors", "Avg", "State"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}))
		return nil
	},
}

// --- tickets subcommand ---

var resultsTicketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "List review tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		status, _ := cmd.Flags().GetString("status")
		priority, _ := cmd.Flags().GetString("priority")
		record, _ := cmd.Flags().GetString("record")
		f := store.TicketFilter{RecordID: record}
		if err := f.Status.UnmarshalText([]byte(status)); err != nil {
			return err
		}
		if err := f.Priority.UnmarshalText([]byte(priority)); err != nil {
			return err
		}

		ctx := cmd.Context()
		tickets, err := st.Tickets(ctx, f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return writeJSON(out, tickets)
		}
		if len(tickets) == 0 {
			fmt.Fprintln(out, "No tickets found.")
		} else {
			rows := make([][]string, 0, len(tickets))
			for _, t := range tickets {
				rows = append(rows, []string{
					t.ID, t.RecordID, string(t.Priority), string(t.Status),
					itoa(len(t.Discrepancies)), t.AssignedTo, stamp(t.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Ticket", "Record", "Priority", "Status", "Issues", "Assigned", "Created"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
		}
		return printTicketStats(ctx, out, st)
	},
}

func printTicketStats(ctx context.Context, w io.Writer, st *store.Store) error {
	stats, err := st.TicketStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nOpen: %d (urgent %d), resolved: %d\n", stats.Open, stats.UrgentOpen, stats.Resolved)
	return nil
}

// --- insights subcommand ---

var resultsInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Analyze the quality of saved results",
	Long: `Insights computes confidence statistics, discrepancy hot spots and
per-source reliability over saved results. Defaults to the latest run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		f, err := resultFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		if f.RunID == "" && f.RecordID == "" {
			runs, err := st.Runs(ctx, 1)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return fmt.Errorf("no runs in %s", cfg.Store.Path)
			}
			f.RunID = runs[0].ID
		}

		results, err := st.ListResults(ctx, f)
		if err != nil {
			return err
		}
		ins, err := insights.Analyze(results)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return writeJSON(out, ins)
		}
		printInsights(out, ins)
		return nil
	},
}

// --- shared helpers ---

func resultFilterFromFlags(cmd *cobra.Command) (store.ResultFilter, error) {
	runID, _ := cmd.Flags().GetString("run")
	record, _ := cmd.Flags().GetString("record")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	f := store.ResultFilter{RunID: runID, RecordID: record, Limit: limit}
	if status != "" {
		f.Status = types.Status(status)
		if !f.Status.Valid() {
			return f, fmt.Errorf("unknown status %q", status)
		}
	}
	return f, nil
}

func init() {
	resultsCmd.PersistentFlags().Bool("json", false, "output as JSON")

	for _, c := range []*cobra.Command{resultsListCmd, resultsInsightsCmd} {
		c.Flags().String("run", "", "filter by run ID")
		c.Flags().String("record", "", "filter by record ID")
		c.Flags().String("status", "", "filter by status: validated, needs_review, urgent, error")
		c.Flags().Int("limit", 0, "maximum results (0 = all)")
	}

	resultsRunsCmd.Flags().Int("limit", 10, "maximum runs to list")

	resultsTicketsCmd.Flags().String("status", "", "filter by status: open, in_progress, resolved")
	resultsTicketsCmd.Flags().String("priority", "", "filter by priority: high, medium, low")
	resultsTicketsCmd.Flags().String("record", "", "filter by record ID")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsRunsCmd)
	resultsCmd.AddCommand(resultsTicketsCmd)
	resultsCmd.AddCommand(resultsInsightsCmd)

	rootCmd.AddCommand(resultsCmd)
}
