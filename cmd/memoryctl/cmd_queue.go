package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hidden-History/ai-memory-sub002/internal/queue"
	"github.com/Hidden-History/ai-memory-sub002/internal/storage"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and replay the durable pending-write queue",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the number of pending and dead-lettered entries",
	RunE:  runQueueStatus,
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Attempt every pending entry once against the capture pipeline",
	RunE:  runQueueDrain,
}

var queueRequeueCmd = &cobra.Command{
	Use:   "requeue <entry-id>",
	Short: "Move one dead-lettered entry back onto the pending queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRequeue,
}

func runQueueStatus(cmd *cobra.Command, args []string) error {
	pending, err := current.Queue.Len()
	if err != nil {
		return err
	}
	dead, err := current.Queue.DeadLettered()
	if err != nil {
		return err
	}
	fmt.Printf("pending=%d dead-lettered=%d\n", pending, len(dead))
	return nil
}

func runQueueDrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	succeeded, retried, deadLettered, err := current.Queue.Drain(ctx, attemptEntry)
	if err != nil {
		return err
	}
	fmt.Printf("succeeded=%d retried=%d dead-lettered=%d\n", succeeded, retried, deadLettered)
	return nil
}

func runQueueRequeue(cmd *cobra.Command, args []string) error {
	return current.Queue.RequeueDeadLetter(args[0])
}

// attemptEntry is the queue.Attemptor the drain command runs each pending
// entry through: a direct re-submission to the capture pipeline, the same
// path the hook dispatcher's background capture actions use.
func attemptEntry(ctx context.Context, e queue.Entry) error {
	result := current.Storage.Store(ctx, storage.Request{
		Content:     e.Content,
		Collection:  e.Collection,
		Type:        e.Type,
		GroupID:     e.GroupID,
		FilePath:    e.FilePath,
		SourceHook:  e.SourceHook,
		IdentityKey: e.IdentityKey,
		Metadata:    e.Metadata,
	})
	if result.Status == storage.StatusFailed {
		return result.Err
	}
	return nil
}

func init() {
	queueCmd.AddCommand(queueStatusCmd, queueDrainCmd, queueRequeueCmd)
}
