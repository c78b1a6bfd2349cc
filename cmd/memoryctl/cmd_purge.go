package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hidden-History/ai-memory-sub002/internal/model"
	"github.com/Hidden-History/ai-memory-sub002/internal/purge"
)

var (
	purgeOlderThanDays int
	purgeCollection    string
	purgeGroupID       string
	purgeConfirm       bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete memories older than a cutoff (dry run unless --confirm is set)",
	RunE:  runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	if purgeGroupID == "" {
		return fmt.Errorf("--group-id is required")
	}
	req := purge.Request{
		OlderThan:  time.Now().AddDate(0, 0, -purgeOlderThanDays),
		Collection: model.Collection(purgeCollection),
		GroupID:    purgeGroupID,
		Confirm:    purgeConfirm,
	}
	result, err := current.Purge.Purge(context.Background(), req)
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Println("dry run — nothing deleted, pass --confirm to apply")
	}
	for _, cr := range result.Results {
		fmt.Printf("%-14s matched=%-6d deleted=%d\n", cr.Collection, cr.Matched, cr.Deleted)
	}
	return nil
}

func init() {
	purgeCmd.Flags().IntVar(&purgeOlderThanDays, "older-than-days", 90, "Delete memories stored more than this many days ago")
	purgeCmd.Flags().StringVar(&purgeCollection, "collection", "", "Restrict to one collection (default: all)")
	purgeCmd.Flags().StringVar(&purgeGroupID, "group-id", "", "Project/group to purge (required)")
	purgeCmd.Flags().BoolVar(&purgeConfirm, "confirm", false, "Actually delete (default is dry run)")
}
