package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/partnerdesk/internal/collection"
	jobmetrics "github.com/odyssey-erp/partnerdesk/internal/jobs"
	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	err    error
	closed bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error {
	f.closed = true
	return nil
}

var sampleEvent = collection.ChangeEvent{
	Kind:   partners.KindSupplier,
	Action: collection.ActionUpdated,
	ID:     4,
	At:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
}

func TestClientPublishChange(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.PublishChange(context.Background(), sampleEvent))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskRecordChanged, enq.tasks[0].Type())

	var decoded collection.ChangeEvent
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &decoded))
	assert.Equal(t, sampleEvent, decoded)

	require.NoError(t, client.Close())
	assert.True(t, enq.closed)
}

func TestClientPublishChangeError(t *testing.T) {
	boom := errors.New("redis down")
	client := NewClientWith(&fakeEnqueuer{err: boom})
	assert.ErrorIs(t, client.PublishChange(context.Background(), sampleEvent), boom)
}

func TestRecordChangedJobHandle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	job := NewRecordChangedJob(logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewRecordChangedTask(sampleEvent)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "record changed", line["msg"])
	assert.Equal(t, "supplier", line["kind"])
	assert.Equal(t, "updated", line["action"])
	assert.Equal(t, 4.0, line["id"])
}

func TestRecordChangedJobSkipsBadPayloads(t *testing.T) {
	job := NewRecordChangedJob(slog.New(slog.DiscardHandler), nil)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "malformed", payload: []byte(`{"kind":`)},
		{name: "missing kind", payload: []byte(`{"action":"created","id":1}`)},
		{name: "zero id", payload: []byte(`{"kind":"customer","action":"created","id":0}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := job.Handle(context.Background(), asynq.NewTask(TaskRecordChanged, tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}
	_, err := NewWorker(WorkerConfig{RedisOpts: opts})
	assert.Error(t, err)

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{{Type: TaskRecordChanged}}})
	assert.Error(t, err, "a handler without a func is skipped")
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		inspector QueueInspector
		code      int
		body      string
	}{
		{"no inspector", nil, http.StatusOK, `{"queue":"default","pending":0,"active":0,"retry":0}`},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Active: 1, Retry: 2}}, http.StatusOK, `{"queue":"default","pending":4,"active":1,"retry":2}`},
		{"redis down", stubInspector{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tt.inspector, slog.New(slog.DiscardHandler)).MountRoutes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}
