package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	campaignsLimit    int
	campaignsStatsID  string
	cleanupOlderThan  time.Duration
	cleanupConfirmRun bool
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List campaigns and their lead counts",
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

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if campaignsStatsID != "" {
			stats, err := st.GetCampaignStats(ctx, campaignsStatsID)
			if err != nil {
				return eris.Wrap(err, "campaign stats")
			}
			return enc.Encode(stats)
		}

		campaigns, err := st.ListCampaigns(ctx, campaignsLimit)
		if err != nil {
			return eris.Wrap(err, "list campaigns")
		}
		return enc.Encode(campaigns)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete campaigns (and their leads) older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !cleanupConfirmRun {
			return eris.New("refusing to delete without --yes")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		cutoff := time.Now().Add(-cleanupOlderThan)
		n, err := st.DeleteCampaignsBefore(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "delete campaigns")
		}

		zap.L().Info("campaigns deleted",
			zap.Int("count", n),
			zap.Time("cutoff", cutoff),
		)
		return nil
	},
}

func init() {
	campaignsCmd.Flags().IntVar(&campaignsLimit, "limit", 0, "max campaigns to list (default 50)")
	campaignsCmd.Flags().StringVar(&campaignsStatsID, "stats", "", "show detailed stats for one campaign ID")
	rootCmd.AddCommand(campaignsCmd)

	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 90*24*time.Hour, "delete campaigns created before now minus this duration")
	cleanupCmd.Flags().BoolVar(&cleanupConfirmRun, "yes", false, "confirm deletion")
	rootCmd.AddCommand(cleanupCmd)
}
