package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/internal/store"
)

var (
	campaignsStatus string
	campaignsLimit  int
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		campaigns, err := st.ListCampaigns(ctx, store.CampaignFilter{
			Status: model.CampaignStatus(campaignsStatus),
			Limit:  campaignsLimit,
		})
		if err != nil {
			return err
		}

		type row struct {
			ID        string               `json:"id"`
			Name      string               `json:"name"`
			Status    model.CampaignStatus `json:"status"`
			Records   int                  `json:"records"`
			Qualified int                  `json:"qualified"`
			Cost      float64              `json:"cost"`
		}
		rows := make([]row, 0, len(campaigns))
		for _, c := range campaigns {
			rows = append(rows, row{
				ID:        c.ID,
				Name:      c.Name,
				Status:    c.Status,
				Records:   c.Stats.TotalRecords,
				Qualified: c.Stats.Qualified,
				Cost:      c.Costs.Total(),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}

func init() {
	campaignsCmd.Flags().StringVar(&campaignsStatus, "status", "", "filter by status")
	campaignsCmd.Flags().IntVar(&campaignsLimit, "limit", 0, "max campaigns to list")
	rootCmd.AddCommand(campaignsCmd)
}
