package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/partnerdesk/jobs"
)

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// queueInspector is the part of *asynq.Inspector used here.
type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

func inspectQueue(inspector queueInspector) (QueueStats, error) {
	info, err := inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

func printQueueStats(_ context.Context, redisOpts asynq.RedisClientOpt, out io.Writer) error {
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	stats, err := inspectQueue(inspector)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return err
}
