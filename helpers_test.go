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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database/mocks"
	"github.com/jerry-enebeli/passbook/internal/extract"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/require"
)

const scbStatement = "SIAM COMMERCIAL BANK PUBLIC COMPANY LIMITED\n" +
	"ธนาคารไทยพาณิชย์ จำกัด (มหาชน)\n\n" +
	"01/03/26 09:15 X1 ENET 5,000.00 25,000.00 DESC : รับโอนจาก KBANK X1234 SOMCHAI JAIDEE\n" +
	"02/03/26 12:40 X2 SIPI 120.00 24,880.00 DESC : พร้อมเพย์ ร้านกาแฟ\n" +
	"03/03/26 18:05 X2 ATM 2,000.00 22,880.00 DESC : ATM WITHDRAWAL\n"

func testConfig(redisAddr string) *config.Configuration {
	return &config.Configuration{
		ProjectName: "passbook-test",
		Redis:       config.RedisConfig{Dns: redisAddr},
		Queue: config.QueueConfig{
			IngestQueue:      "ingest_queue",
			WebhookQueue:     "webhook_queue",
			Concurrency:      2,
			MaxRetryAttempts: 3,
		},
		Ingest: config.IngestConfig{
			MaxDocumentBytes:     1 << 20,
			HeaderScanLines:      60,
			SkipRatioThreshold:   0.5,
			ExtractionTimeoutSec: 5,
			StuckJobThresholdSec: 600,
			CommitLockTimeoutSec: 10,
			DirectoryCacheTTLSec: 60,
		},
	}
}

// newTestPassbook wires a Passbook against miniredis and a mocked datasource.
// Plain text documents pass through the real extraction chain.
func newTestPassbook(t *testing.T, mutate ...func(*config.Configuration)) (*Passbook, *mocks.MockDataSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cnf := testConfig(mr.Addr())
	for _, m := range mutate {
		m(cnf)
	}
	config.MockConfig(cnf)

	ds := new(mocks.MockDataSource)
	p, err := NewPassbook(ds)
	require.NoError(t, err)
	p.SetExtractor(extract.NewChain(nil, nil, time.Second))
	t.Cleanup(func() { _ = p.Close() })
	return p, ds, mr
}

type stubExtractor struct {
	text     string
	layout   bool
	err      error
	ocrText  string
	ocrErr   error
	ocrCalls int
}

func (s *stubExtractor) ExtractText(_ context.Context, _ []byte) (string, bool, error) {
	return s.text, s.layout, s.err
}

func (s *stubExtractor) OCRText(_ context.Context, _ []byte) (string, error) {
	s.ocrCalls++
	return s.ocrText, s.ocrErr
}

type recordingDispatcher struct {
	tasks []IngestTask
	err   error
}

func (d *recordingDispatcher) EnqueueIngest(_ context.Context, task IngestTask) error {
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func reviewJob(id string) *model.Job {
	return &model.Job{
		JobID:     id,
		UserID:    "usr_1",
		Filename:  "statement.txt",
		Status:    model.JobReview,
		Format:    "scb_savings",
		CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func jobWithStatus(id string, status model.JobStatus) *model.Job {
	job := reviewJob(id)
	job.Status = status
	return job
}
