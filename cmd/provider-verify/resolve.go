// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/provider-verify/internal/store"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve review tickets and discrepancies",
	Long: `Resolve closes review work. Resolving a ticket marks every discrepancy
on it as resolved by the same reviewer; a single discrepancy can also be
resolved on its own. Assign claims a ticket without closing it.`,
}

var resolveTicketCmd = &cobra.Command{
	Use:   "ticket <ticket-id>",
	Short: "Resolve a ticket and all of its discrepancies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, notes, err := reviewerFlags(cmd)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		t, err := st.ResolveTicket(cmd.Context(), args[0], by, notes, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Resolved ticket %s (%d discrepancies) for record %s\n",
			t.ID, len(t.Discrepancies), t.RecordID)
		return nil
	},
}

var resolveDiscrepancyCmd = &cobra.Command{
	Use:   "discrepancy <discrepancy-id>",
	Short: "Resolve a single discrepancy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, notes, err := reviewerFlags(cmd)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ResolveDiscrepancy(cmd.Context(), args[0], by, notes, time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Resolved discrepancy %s\n", args[0])
		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <ticket-id> <reviewer>",
	Short: "Assign a ticket to a reviewer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.AssignTicket(cmd.Context(), args[0], args[1], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assigned ticket %s to %s\n", args[0], args[1])
		return nil
	},
}

// reviewerFlags returns --by (defaulting to the current OS user) and --notes.
func reviewerFlags(cmd *cobra.Command) (string, string, error) {
	by, _ := cmd.Flags().GetString("by")
	notes, _ := cmd.Flags().GetString("notes")
	if by == "" {
		if u, err := user.Current(); err == nil {
			by = u.Username
		}
	}
	if by == "" {
		return "", "", errors.New("reviewer required: pass --by")
	}
	return by, notes, nil
}

func init() {
	resolveCmd.PersistentFlags().String("by", "", "reviewer name (default: current user)")
	resolveCmd.PersistentFlags().String("notes", "", "resolution notes")

	resolveCmd.AddCommand(resolveTicketCmd)
	resolveCmd.AddCommand(resolveDiscrepancyCmd)
	resolveCmd.AddCommand(assignCmd)

	rootCmd.AddCommand(resolveCmd)
}
