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

package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/internal/request"
	"github.com/sirupsen/logrus"
)

var ErrOCRNotConfigured = errors.New("ocr url is not configured")

// OCRLanguages are the scripts statements are printed in.
var OCRLanguages = []string{"tha", "eng"}

type ocrRequest struct {
	Document  string   `json:"document"`
	Languages []string `json:"languages"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

// OCRClient posts documents to an HTTP OCR service. The service returns
// best-effort text without positions or confidence.
type OCRClient struct {
	URL        string
	APIKey     string
	MaxRetries int
	// InitialInterval is the first backoff delay between attempts.
	InitialInterval time.Duration
	Client          *http.Client
}

func NewOCRClient(cnf config.OCRConfig) *OCRClient {
	return &OCRClient{
		URL:             cnf.Url,
		APIKey:          cnf.ApiKey,
		MaxRetries:      cnf.MaxRetries,
		InitialInterval: 500 * time.Millisecond,
		Client:          &http.Client{Timeout: time.Duration(cnf.TimeoutSec) * time.Second},
	}
}

func (c *OCRClient) ExtractText(ctx context.Context, document []byte) (string, bool, error) {
	if c.URL == "" {
		return "", false, ErrOCRNotConfigured
	}
	payload := ocrRequest{
		Document:  base64.StdEncoding.EncodeToString(document),
		Languages: OCRLanguages,
	}

	var out ocrResponse
	attempt := 0
	operation := func() error {
		attempt++
		body, err := request.ToJsonReq(&payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.APIKey != "" {
			req.Header.Set("Authorization", request.BearerAuth(c.APIKey))
		}

		_, err = request.CallWithClient(c.client(), req, &out)
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		if err != nil {
			logrus.WithError(err).Warnf("ocr attempt %d failed", attempt)
		}
		return err
	}

	if err := backoff.Retry(operation, c.backOff(ctx)); err != nil {
		return "", false, err
	}
	return out.Text, false, nil
}

func (c *OCRClient) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		eb.InitialInterval = c.InitialInterval
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

func (c *OCRClient) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: request.DefaultTimeout}
}
