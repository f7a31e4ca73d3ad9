package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lankastats/tourcast/internal/analytics"
)

type analyzeOptions struct {
	dataFile string
	year     int
	top      int
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print summary analytics for the arrivals dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataFile, "data", "", "arrivals CSV file (defaults to the configured path)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "restrict top countries to one year")
	cmd.Flags().IntVar(&opts.top, "top", 10, "number of top countries to show")
	return cmd
}

func runAnalyze(opts *analyzeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	records, err := loadRecords(opts.dataFile, cfg, logger)
	if err != nil {
		return err
	}

	overview, err := analytics.ComputeOverview(records, opts.top)
	if err != nil {
		return err
	}

	fmt.Printf("Observations: %s to %s\n",
		overview.DateRange.Start.Format("2006-01"), overview.DateRange.End.Format("2006-01"))
	fmt.Printf("Total arrivals:        %.0f\n", overview.TotalArrivals)
	fmt.Printf("Average monthly:       %.0f\n", overview.AvgMonthlyArrivals)
	fmt.Printf("Recent six months:     %.0f\n", overview.RecentSixMonths)

	fmt.Println("\nTop source countries:")
	for _, c := range analytics.TopCountries(records, opts.top, opts.year) {
		fmt.Printf("  %-20s %12.0f  (%s)\n", c.Country, c.Arrivals, analytics.RegionOf(c.Country))
	}

	fmt.Println("\nYear-over-year growth:")
	for _, g := range analytics.GrowthRates(records) {
		fmt.Printf("  %d  %12.0f  %+.1f%%\n", g.Year, g.Arrivals, g.YoYGrowth)
	}
	return nil
}
