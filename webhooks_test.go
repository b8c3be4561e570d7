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
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookURL = "https://hooks.example.com/passbook"

func withWebhook(cnf *config.Configuration) {
	cnf.Notification.Webhook.Url = testWebhookURL
	cnf.Notification.Webhook.Headers = map[string]string{"X-Passbook-Signature": "secret"}
}

func webhookTask(t *testing.T, hook NewWebhook) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(hook)
	require.NoError(t, err)
	return asynq.NewTask("webhook_queue", payload)
}

func TestGetEventFromStatus(t *testing.T) {
	tests := []struct {
		status model.JobStatus
		want   string
	}{
		{model.JobReview, EventJobReview},
		{model.JobFailed, EventJobFailed},
		{model.JobCommitted, EventJobCommitted},
		{model.JobPending, ""},
		{model.JobProcessing, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getEventFromStatus(tt.status), string(tt.status))
	}
}

func TestSendWebhook(t *testing.T) {
	p, _, mr := newTestPassbook(t, withWebhook)

	err := p.SendWebhook(context.Background(), NewWebhook{Event: EventJobReview, Payload: reviewJob("job_1")})
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

func TestSendWebhookWithoutURLIsNoop(t *testing.T) {
	p, _, mr := newTestPassbook(t)

	err := p.SendWebhook(context.Background(), NewWebhook{Event: EventJobReview, Payload: reviewJob("job_1")})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestProcessWebhookDelivers(t *testing.T) {
	newTestPassbook(t, withWebhook)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var received NewWebhook
	httpmock.RegisterResponder(http.MethodPost, testWebhookURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "secret", req.Header.Get("X-Passbook-Signature"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
	})

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventJobCommitted, Payload: jobWithStatus("job_1", model.JobCommitted)}))
	require.NoError(t, err)
	assert.Equal(t, EventJobCommitted, received.Event)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestProcessWebhookClientErrorSkipsRetry(t *testing.T) {
	newTestPassbook(t, withWebhook)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, testWebhookURL, httpmock.NewStringResponder(http.StatusGone, "unsubscribed"))

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventJobFailed}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessWebhookServerErrorIsRetried(t *testing.T) {
	newTestPassbook(t, withWebhook)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, testWebhookURL, httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	err := ProcessWebhook(context.Background(), webhookTask(t, NewWebhook{Event: EventJobFailed}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessWebhookInvalidPayload(t *testing.T) {
	newTestPassbook(t, withWebhook)

	err := ProcessWebhook(context.Background(), asynq.NewTask("webhook_queue", []byte("not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
