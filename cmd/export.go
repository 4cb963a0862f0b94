package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nextier/outreach-cli/internal/pipeline"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <campaign-id>",
	Short: "Export a campaign's qualified leads as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "list leads for %s", args[0])
		}

		out := pipeline.ExportLeadsCSV(leads)
		if exportOut == "" {
			fmt.Print(out)
			return nil
		}
		return eris.Wrapf(os.WriteFile(exportOut, []byte(out), 0o644), "write %s", exportOut)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
