package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/export"
)

var (
	exportCampaignID string
	exportFormat     string
	exportDir        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a campaign's leads to CSV or XLSX",
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

		campaign, err := st.GetCampaign(ctx, exportCampaignID)
		if err != nil {
			return eris.Wrap(err, "load campaign")
		}
		leads, err := st.GetLeadsByCampaign(ctx, exportCampaignID, "")
		if err != nil {
			return eris.Wrap(err, "load leads")
		}

		exportCfg := cfg.Export
		if exportDir != "" {
			exportCfg.Directory = exportDir
		}

		path, err := export.New(exportCfg).Export(campaign, leads, exportFormat)
		if err != nil {
			return err
		}

		zap.L().Info("campaign exported",
			zap.String("campaign_id", campaign.ID),
			zap.Int("leads", len(leads)),
			zap.String("path", path),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCampaignID, "campaign", "", "campaign ID to export (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or xlsx (default from config)")
	exportCmd.Flags().StringVar(&exportDir, "output-dir", "", "output directory (default from config)")
	_ = exportCmd.MarkFlagRequired("campaign")
	rootCmd.AddCommand(exportCmd)
}
