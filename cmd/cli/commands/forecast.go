package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type forecastOptions struct {
	dataFile    string
	monthsAhead int
}

// NewForecastCmd creates the forecast command.
func NewForecastCmd() *cobra.Command {
	opts := &forecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Generate and persist a multi-month arrivals forecast",
		Long: `Forecast reloads the current trained artifact generation, rolls both
models forward over the requested horizon and writes the forecast table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataFile, "data", "", "arrivals CSV file (defaults to the configured path)")
	cmd.Flags().IntVar(&opts.monthsAhead, "months", 0, "forecast horizon in months (defaults to the configured horizon)")
	return cmd
}

func runForecast(cmd *cobra.Command, opts *forecastOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	months := opts.monthsAhead
	if months == 0 {
		months = cfg.Forecast.MonthsAhead
	}

	records, err := loadRecords(opts.dataFile, cfg, logger)
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	rows, err := p.Forecast(ctx, records, months)
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %12s %12s %12s\n", "month", "tree", "lstm", "ensemble")
	for _, row := range rows {
		fmt.Printf("%-10s %12s %12s %12s\n",
			row.Date.Format("2006-01"),
			formatValue(row.TreeForecast),
			formatValue(row.LSTMForecast),
			formatValue(row.EnsembleForecast))
	}
	return nil
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}
