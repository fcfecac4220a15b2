// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/provider-verify/internal/store"
)

const defaultExportPath = "reports/export.yaml"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export results and tickets to YAML or JSON",
	Long: `Export writes saved results (or a filtered subset) together with the
tickets raised for them. The format follows the output file extension unless
--format is given. Use --output - to write to stdout.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	f, err := resultFilterFromFlags(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	fmtFlag := store.Format(format)
	if output == "-" {
		return st.WriteExport(cmd.Context(), cmd.OutOrStdout(), fmtFlag, f)
	}
	if fmtFlag == "" {
		fmtFlag = store.FormatFromPath(output)
	}

	switch fmtFlag {
	case store.FormatYAML:
		err = st.ExportYAML(cmd.Context(), output, f)
	case store.FormatJSON:
		err = st.ExportJSON(cmd.Context(), output, f)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
	return nil
}

func init() {
	exportCmd.Flags().StringP("output", "o", defaultExportPath, "output file, or - for stdout")
	exportCmd.Flags().String("format", "", "export format: yaml or json (default: from extension)")
	exportCmd.Flags().String("run", "", "export only this run")
	exportCmd.Flags().String("record", "", "export only this record")
	exportCmd.Flags().String("status", "", "export only results with this status")
	exportCmd.Flags().Int("limit", 0, "maximum results to export (0 = all)")

	rootCmd.AddCommand(exportCmd)
}
