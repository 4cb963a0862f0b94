package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nextier/outreach-cli/internal/dispatch"
	"github.com/nextier/outreach-cli/internal/template"
	"github.com/nextier/outreach-cli/pkg/signalhouse"
)

var (
	dispatchSector string
	dispatchStage  string
	dispatchLink   string
	dispatchDryRun bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <campaign-id>",
	Short: "Send campaign messages to qualified leads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		campaign, err := st.GetCampaign(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get campaign %s", args[0])
		}

		smsClient := signalhouse.NewClient(cfg.SignalHouse.Key, signalhouse.WithBaseURL(cfg.SignalHouse.BaseURL))
		matcher := template.NewMatcher(cfg.Templates)

		d := dispatch.New(smsClient, matcher, cfg.Pricing)
		result, err := d.Run(ctx, campaign, dispatch.Options{
			Sector: dispatchSector,
			Stage:  template.Stage(dispatchStage),
			Link:   dispatchLink,
			DryRun: dispatchDryRun,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchSector, "sector", "", "industry sector for template matching")
	dispatchCmd.Flags().StringVar(&dispatchStage, "stage", string(template.StageOpener), "funnel stage (opener|nudge|value|close)")
	dispatchCmd.Flags().StringVar(&dispatchLink, "link", "", "booking link substituted into templates")
	dispatchCmd.Flags().BoolVar(&dispatchDryRun, "dry-run", false, "render without sending")
	_ = dispatchCmd.MarkFlagRequired("sector")
	rootCmd.AddCommand(dispatchCmd)
}
