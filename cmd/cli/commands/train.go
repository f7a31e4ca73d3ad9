package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type trainOptions struct {
	dataFile string
}

// NewTrainCmd creates the train command.
func NewTrainCmd() *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train both forecasting models and publish a new artifact generation",
		Long: `Train loads the arrivals dataset, aggregates it to the monthly series,
fits the gradient-boosted tree and the sequence model, and publishes the
trained artifacts as a new generation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataFile, "data", "", "arrivals CSV file (defaults to the configured path)")
	return cmd
}

func runTrain(cmd *cobra.Command, opts *trainOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	records, err := loadRecords(opts.dataFile, cfg, logger)
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := p.Train(ctx, records)
	if err != nil {
		return err
	}

	fmt.Printf("Published generation %s\n", result.GenerationID)
	if result.TreeMetrics != nil {
		fmt.Printf("Tree model      train RMSE %.2f  test RMSE %.2f\n",
			result.TreeMetrics.TrainRMSE, result.TreeMetrics.TestRMSE)
	}
	if result.SeqMetrics != nil {
		fmt.Printf("Sequence model  train RMSE %.2f  test RMSE %.2f\n",
			result.SeqMetrics.TrainRMSE, result.SeqMetrics.TestRMSE)
	}
	if len(result.Importances) > 0 {
		fmt.Println("Top features:")
		limit := len(result.Importances)
		if limit > 5 {
			limit = 5
		}
		for _, fi := range result.Importances[:limit] {
			fmt.Printf("  %-16s %.4f\n", fi.Feature, fi.Importance)
		}
	}
	return nil
}
