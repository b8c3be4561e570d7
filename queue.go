/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package passbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jerry-enebeli/passbook/config"
	redis_db "github.com/jerry-enebeli/passbook/internal/redis-db"
	"github.com/sirupsen/logrus"
)

// Queue represents a queue for handling ingestion and webhook tasks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// IngestTask is the unit of background work created by an upload.
// The document travels with the task because raw bytes are never persisted.
type IngestTask struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	Filename string `json:"filename"`
	Document []byte `json:"document"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	redisOption, err := redis_db.ParseRedisURL(redis_db.SplitAddresses(conf.Redis.Dns)[0], conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %w", err)
	}

	queueOptions := redis_db.AsynqClientOpt(redisOption)
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
	}, nil
}

// EnqueueIngest schedules document processing. The job id doubles as the task
// id, so a job that is already queued is not queued twice.
func (q *Queue) EnqueueIngest(ctx context.Context, task IngestTask) error {
	ctx, span := tracer.Start(ctx, "Adding Document To Ingest Queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	taskOptions := []asynq.Option{
		asynq.TaskID(task.JobID),
		asynq.Queue(cfg.Queue.IngestQueue),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
		asynq.Timeout(cfg.Ingest.StuckJobThreshold()),
		asynq.Retention(24 * time.Hour),
	}
	info, err := q.Client.EnqueueContext(ctx, asynq.NewTask(cfg.Queue.IngestQueue, payload), taskOptions...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.Infof("ingest task for job %s is already queued", task.JobID)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	logrus.Infof(" [*] Successfully enqueued document %s for job %s on %s", task.Filename, task.JobID, info.Queue)
	return nil
}

// EnqueueWebhook schedules delivery of a webhook event.
func (q *Queue) EnqueueWebhook(ctx context.Context, hook NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(cfg.Queue.WebhookQueue, payload, asynq.Queue(cfg.Queue.WebhookQueue), asynq.MaxRetry(cfg.Queue.MaxRetryAttempts))
	_, err = q.Client.EnqueueContext(ctx, task)
	return err
}

// IngestTaskState returns the queue state of a job's ingest task, or false when
// the queue no longer knows about it.
func (q *Queue) IngestTaskState(jobID string) (asynq.TaskState, bool) {
	cfg, err := config.Fetch()
	if err != nil {
		return 0, false
	}
	info, err := q.Inspector.GetTaskInfo(cfg.Queue.IngestQueue, jobID)
	if err != nil || info == nil {
		return 0, false
	}
	return info.State, true
}

func (q *Queue) Close() error {
	if err := q.Client.Close(); err != nil {
		return err
	}
	return q.Inspector.Close()
}
