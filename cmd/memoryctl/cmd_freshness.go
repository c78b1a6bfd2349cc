package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

var (
	freshnessCollection string
	freshnessGroupID    string
)

var freshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Inspect and rescan file-backed memory drift tiers",
}

var freshnessScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Classify file-backed memories into fresh/aging/stale/expired tiers",
	RunE:  runFreshnessScan,
}

func runFreshnessScan(cmd *cobra.Command, args []string) error {
	if freshnessGroupID == "" {
		return fmt.Errorf("--group-id is required")
	}
	collections := []model.Collection{model.Collection(freshnessCollection)}
	if freshnessCollection == "" {
		collections = model.AllCollections
	}

	ctx := context.Background()
	for _, collection := range collections {
		report, err := current.Freshness.Scan(ctx, collection, freshnessGroupID)
		if err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		fmt.Printf("%s: fresh=%d aging=%d stale=%d expired=%d unknown=%d\n",
			collection,
			report.Counts[model.TierFresh],
			report.Counts[model.TierAging],
			report.Counts[model.TierStale],
			report.Counts[model.TierExpired],
			report.Counts[model.TierUnknown],
		)
		for _, a := range report.Actionable {
			fmt.Printf("  [%s] %s (%s)\n", a.Tier, a.Point.FilePath, a.Point.ID)
		}
	}
	return nil
}

func init() {
	freshnessScanCmd.Flags().StringVar(&freshnessCollection, "collection", "", "Restrict to one collection (default: all)")
	freshnessScanCmd.Flags().StringVar(&freshnessGroupID, "group-id", "", "Project/group to scan (required)")
	freshnessCmd.AddCommand(freshnessScanCmd)
}
