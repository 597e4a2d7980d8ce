package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen/internal/pipeline"
)

var (
	generateQuery       string
	generateLocation    string
	generateMax         int
	generateName        string
	generateFrom        string
	generateResearch    bool
	generatePersonalize bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run lead generation for one query and wait for the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runID, err := env.Orchestrator.Start(ctx, pipeline.GenerateRequest{
			Query:                  generateQuery,
			Location:               generateLocation,
			MaxLeads:               generateMax,
			CampaignName:           generateName,
			FromEmail:              generateFrom,
			IncludeResearch:        &generateResearch,
			IncludePersonalization: &generatePersonalize,
		})
		if err != nil {
			return eris.Wrap(err, "start run")
		}

		zap.L().Info("run started",
			zap.String("run_id", runID),
			zap.String("query", generateQuery),
			zap.String("location", generateLocation),
		)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Deleting the registry entry cancels the run.
				_ = env.Registry.Delete(runID)
				return ctx.Err()
			case <-ticker.C:
			}

			run, err := env.Registry.Get(runID)
			if err != nil {
				return eris.Wrap(err, "poll run")
			}
			if !run.Status.Terminal() {
				continue
			}

			zap.L().Info("run finished",
				zap.String("run_id", runID),
				zap.String("status", string(run.Status)),
			)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateQuery, "query", "", "business search query, e.g. \"dentists\" (required)")
	generateCmd.Flags().StringVar(&generateLocation, "location", "", "target location, e.g. \"Austin, TX\"")
	generateCmd.Flags().IntVar(&generateMax, "max-leads", 0, "maximum leads to collect (default 20)")
	generateCmd.Flags().StringVar(&generateName, "campaign-name", "", "campaign name (default derived from query)")
	generateCmd.Flags().StringVar(&generateFrom, "from-email", "", "sender address for campaign submission")
	generateCmd.Flags().BoolVar(&generateResearch, "research", true, "run the research stage")
	generateCmd.Flags().BoolVar(&generatePersonalize, "personalize", true, "run the personalization stage")
	_ = generateCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(generateCmd)
}
