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
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/internal/request"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/sirupsen/logrus"
)

const (
	EventJobReview    = "job.review"
	EventJobFailed    = "job.failed"
	EventJobCommitted = "job.committed"
)

// NewWebhook represents the structure of a webhook notification.
// It includes an event type and associated payload data.
type NewWebhook struct {
	Event   string      `json:"event"` // The event type that triggered the webhook.
	Payload interface{} `json:"data"`  // The data associated with the event.
}

// getEventFromStatus maps a job status to the webhook event announcing it.
// Statuses nobody subscribes to map to an empty event.
func getEventFromStatus(status model.JobStatus) string {
	switch status {
	case model.JobReview:
		return EventJobReview
	case model.JobFailed:
		return EventJobFailed
	case model.JobCommitted:
		return EventJobCommitted
	default:
		return ""
	}
}

// SendWebhook enqueues a webhook notification task. It is a no-op when no webhook url is configured.
func (p *Passbook) SendWebhook(ctx context.Context, hook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}
	return p.queue.EnqueueWebhook(ctx, hook)
}

// notifyJob announces a job status change. Delivery problems are logged, never returned.
func (p *Passbook) notifyJob(ctx context.Context, job *model.Job) {
	event := getEventFromStatus(job.Status)
	if event == "" {
		return
	}
	if err := p.SendWebhook(ctx, NewWebhook{Event: event, Payload: job}); err != nil {
		logrus.WithError(err).WithField("job_id", job.JobID).Errorf("failed to enqueue %s webhook", event)
	}
}

// processHTTP posts the webhook to the configured endpoint. Client errors are
// not retried since sending the same body again cannot succeed.
func processHTTP(ctx context.Context, data NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := request.ToJsonReq(data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	_, err = request.CallWithClient(&http.Client{Timeout: 15 * time.Second}, req, nil)
	var statusErr *request.StatusError
	if errors.As(err, &statusErr) && !statusErr.Retryable() {
		return fmt.Errorf("webhook %s rejected: %v: %w", data.Event, statusErr, asynq.SkipRetry)
	}
	return err
}

// ProcessWebhook processes a webhook notification task from the queue.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("Error unmarshaling task payload: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logrus.Infof("Processing webhook: %s", payload.Event)
	return processHTTP(ctx, payload)
}
