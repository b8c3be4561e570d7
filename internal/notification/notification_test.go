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


package notification

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slackURL = "https://hooks.slack.test/services/T000/B000/XXX"

func TestRegisterWebhookSender_ReplacesPrevious(t *testing.T) {
	RegisterWebhookSender(nil)
	callCount := 0

	RegisterWebhookSender(func(event string, payload interface{}) error {
		callCount = 1
		return nil
	})
	RegisterWebhookSender(func(event string, payload interface{}) error {
		callCount = 2
		return nil
	})

	_ = currentSender()("test.event", nil)
	assert.Equal(t, 2, callCount)
}

func TestSlackMessageIsValidJSON(t *testing.T) {
	msg := slackMessage("Passbook", errors.New(`bad "quote"`), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &decoded))
	assert.Contains(t, string(msg), `bad \"quote\"`)
	assert.Contains(t, string(msg), "Error From Passbook")
}

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		ProjectName:  "Passbook",
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: slackURL}},
	})

	var body string
	httpmock.RegisterResponder(http.MethodPost, slackURL, func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	SlackNotification(errors.New("ocr service down"))

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.True(t, strings.Contains(body, "ocr service down"))
}

func TestNotifyErrorForwardsToWebhookSender(t *testing.T) {
	config.MockConfig(&config.Configuration{ProjectName: "Passbook"})

	events := make(chan string, 1)
	RegisterWebhookSender(func(event string, payload interface{}) error {
		events <- event
		return nil
	})
	defer RegisterWebhookSender(nil)

	NotifyError(errors.New("redis unreachable"))

	select {
	case event := <-events:
		assert.Equal(t, "system.error", event)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook sender was not called")
	}
}
