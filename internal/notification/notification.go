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
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/internal/request"
	"github.com/sirupsen/logrus"
)

// WebhookSender delivers an event to the configured webhook endpoint.
type WebhookSender func(event string, payload interface{}) error

var (
	senderMu      sync.RWMutex
	webhookSender WebhookSender
)

// RegisterWebhookSender installs the function NotifyError uses to forward
// system errors as webhook events. A later call replaces the earlier sender.
func RegisterWebhookSender(sender WebhookSender) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func currentSender() WebhookSender {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

// slackMessage builds the Block Kit payload for an error report.
func slackMessage(project string, err error, at time.Time) json.RawMessage {
	text, _ := json.Marshal(fmt.Sprintf("*Error:*\n%v", err))
	header, _ := json.Marshal(fmt.Sprintf("Error From %s", project))
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{"type": "header", "text": {"type": "plain_text", "text": %s, "emoji": true}},
			{"type": "section", "fields": [{"type": "mrkdwn", "text": %s}]},
			{"type": "section", "fields": [{"type": "mrkdwn", "text": "*Time:*\n%s"}]}
		]
	}`, header, text, at.Format(time.RFC822)))
}

// SlackNotification sends an error message to the configured Slack webhook.
func SlackNotification(err error) {
	conf, cerr := config.Fetch()
	if cerr != nil {
		logrus.Error(cerr)
		return
	}

	data := slackMessage(conf.ProjectName, err, time.Now())
	payload, perr := request.ToJsonReq(&data)
	if perr != nil {
		logrus.Error(perr)
		return
	}

	req, rerr := http.NewRequest(http.MethodPost, conf.Notification.Slack.WebhookUrl, payload)
	if rerr != nil {
		logrus.Error(rerr)
		return
	}

	// Slack answers with a plain "ok", so the body is not decoded
	if _, err := request.Call(req, nil); err != nil {
		logrus.Errorf("slack notification failed: %v", err)
	}
}

// NotifyError reports an infrastructure error. It always logs locally, then
// sends to Slack and the webhook sender when they are configured. It does not block.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Error(err)
			return
		}
		if conf.Notification.Slack.WebhookUrl != "" {
			SlackNotification(systemError)
		}
		if sender := currentSender(); sender != nil {
			payload := map[string]string{"error": systemError.Error(), "time": time.Now().UTC().Format(time.RFC3339)}
			if err := sender("system.error", payload); err != nil {
				logrus.Errorf("failed to forward system error: %v", err)
			}
		}
	}(systemError)
}
