package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
)

var (
	backfillCollection string
	backfillGroupID    string
)

var embeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Inspect and repair embedding state",
}

var embeddingBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-embed points left pending by a prior embedding-service outage",
	RunE:  runEmbeddingBackfill,
}

func runEmbeddingBackfill(cmd *cobra.Command, args []string) error {
	if backfillGroupID == "" {
		return fmt.Errorf("--group-id is required")
	}
	if !current.Embed.IsHealthy(context.Background()) {
		fmt.Println("embedding service is still unhealthy, nothing to backfill")
		return nil
	}

	collections := []model.Collection{model.Collection(backfillCollection)}
	if backfillCollection == "" {
		collections = model.AllCollections
	}

	ctx := context.Background()
	for _, collection := range collections {
		attempted, succeeded, err := current.Storage.Backfill(ctx, collection, backfillGroupID)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", collection, err)
		}
		fmt.Printf("%s: attempted=%d succeeded=%d\n", collection, attempted, succeeded)
	}
	return nil
}

func init() {
	embeddingBackfillCmd.Flags().StringVar(&backfillCollection, "collection", "", "Restrict to one collection (default: all)")
	embeddingBackfillCmd.Flags().StringVar(&backfillGroupID, "group-id", "", "Project/group to backfill (required)")
	embeddingCmd.AddCommand(embeddingBackfillCmd)
}
