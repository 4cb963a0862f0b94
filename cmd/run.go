package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nextier/outreach-cli/internal/ingest"
	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/internal/pipeline"
	"github.com/nextier/outreach-cli/pkg/signalhouse"
	"github.com/nextier/outreach-cli/pkg/tracerfy"
	"github.com/nextier/outreach-cli/pkg/trestle"
)

var (
	runFile string
	runName string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the enrichment pipeline over a lead file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := ingest.ReadFile(ctx, runFile, ingest.Options{})
		if err != nil {
			return eris.Wrapf(err, "read %s", runFile)
		}

		name := runName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(runFile), filepath.Ext(runFile))
		}

		tracerfyClient := tracerfy.NewClient(cfg.Tracerfy.Key, tracerfy.WithBaseURL(cfg.Tracerfy.BaseURL))
		trestleClient := trestle.NewClient(cfg.Trestle.Key, trestle.WithBaseURL(cfg.Trestle.BaseURL))
		smsClient := signalhouse.NewClient(cfg.SignalHouse.Key, signalhouse.WithBaseURL(cfg.SignalHouse.BaseURL))

		hooks := pipeline.Hooks{
			OnBlockStart: func(block model.ExecutionBlock) {
				zap.L().Info("block started", zap.String("block", block.ID), zap.Int("records", len(block.Records)))
			},
			OnProgress: func(processed, total int) {
				zap.L().Info("progress", zap.Int("processed", processed), zap.Int("total", total))
			},
		}

		p := pipeline.New(cfg, st,
			pipeline.NewTracerfyProvider(tracerfyClient, cfg.Tracerfy),
			pipeline.NewTrestleProvider(trestleClient, cfg.Trestle),
			smsClient,
			hooks,
		)

		if _, err := p.Ingest(ctx, records, name, runFile); err != nil {
			return err
		}
		campaign, err := p.ProcessAllBlocks(ctx)
		if err != nil {
			return err
		}

		summary := struct {
			CampaignID string               `json:"campaign_id"`
			Status     model.CampaignStatus `json:"status"`
			Stats      model.CampaignStats  `json:"stats"`
			Costs      model.CampaignCosts  `json:"costs"`
			TotalCost  float64              `json:"total_cost"`
			Blocks     int                  `json:"blocks"`
		}{
			CampaignID: campaign.ID,
			Status:     campaign.Status,
			Stats:      campaign.Stats,
			Costs:      campaign.Costs,
			TotalCost:  campaign.Costs.Total(),
			Blocks:     len(campaign.Blocks),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "lead file to ingest (.csv, .txt, or .xlsx)")
	runCmd.Flags().StringVar(&runName, "name", "", "campaign name (default: file name)")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}
