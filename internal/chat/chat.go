// Package chat opens a conversation between an employer and the worker they
// just assigned.
package chat

import (
	"context"
	"log/slog"
)

type Opener interface {
	OpenConversation(ctx context.Context, taskID, employerID, workerID string) error
}

// LogOpener only records that a conversation would have been opened. It is
// used when no messaging backend is configured.
type LogOpener struct{}

func (LogOpener) OpenConversation(ctx context.Context, taskID, employerID, workerID string) error {
	slog.InfoContext(ctx, "chat conversation requested", "task_id", taskID, "employer_id", employerID, "worker_id", workerID)
	return nil
}
