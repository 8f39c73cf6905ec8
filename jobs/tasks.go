package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/partnerdesk/internal/collection"
	jobmetrics "github.com/odyssey-erp/partnerdesk/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecordChanged is emitted after every committed record mutation.
	TaskRecordChanged = "partners:record_changed"
)

// NewRecordChangedTask wraps a change event in an asynq task.
func NewRecordChangedTask(event collection.ChangeEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordChanged, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// RecordChangedJob writes an audit line per change and counts it.
type RecordChangedJob struct {
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewRecordChangedJob constructs the handler. metrics may be nil.
func NewRecordChangedJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *RecordChangedJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordChangedJob{logger: logger, metrics: metrics}
}

// Handle processes TaskRecordChanged tasks.
func (j *RecordChangedJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("record_changed")
	var event collection.ChangeEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		_ = tracker.End(err)
		return fmt.Errorf("decode record change: %v: %w", err, asynq.SkipRetry)
	}
	if event.Kind == "" || event.Action == "" || event.ID <= 0 {
		err := fmt.Errorf("incomplete record change %+v", event)
		_ = tracker.End(err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	j.logger.InfoContext(ctx, "record changed",
		slog.String("kind", string(event.Kind)),
		slog.String("action", event.Action),
		slog.Int64("id", event.ID),
		slog.Time("at", event.At),
	)
	j.metrics.AddChange(string(event.Kind), event.Action)
	return tracker.End(nil)
}
