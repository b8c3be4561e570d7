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
	"embed"

	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/extract"
	"github.com/jerry-enebeli/passbook/internal/notification"
	redis_db "github.com/jerry-enebeli/passbook/internal/redis-db"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("passbook")

//go:embed sql/*.sql
var SQLFiles embed.FS

// DocumentExtractor turns uploaded bytes into text for the statement parsers.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, document []byte) (text string, layoutPreserved bool, err error)
	// OCRText runs only the OCR fallback, for documents whose layout text parsed badly.
	OCRText(ctx context.Context, document []byte) (string, error)
}

// Dispatcher schedules background processing of an uploaded document.
type Dispatcher interface {
	EnqueueIngest(ctx context.Context, task IngestTask) error
}

// Passbook ingests statement documents into staging rows and commits reviewed rows to the ledger.
type Passbook struct {
	queue      *Queue
	dispatcher Dispatcher
	redis      redis.UniversalClient
	datasource database.IDataSource
	extractor  DocumentExtractor
}

// NewPassbook wires the service from the loaded configuration. Uploads are
// dispatched to the task queue until SetDispatcher says otherwise.
func NewPassbook(db database.IDataSource) (*Passbook, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(redis_db.SplitAddresses(configuration.Redis.Dns), configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	queue, err := NewQueue(configuration)
	if err != nil {
		return nil, err
	}

	var ocr extract.TextExtractor
	if configuration.OCR.Url != "" {
		ocr = extract.NewOCRClient(configuration.OCR)
	}
	chain := extract.NewChain(extract.NewPDFExtractor(), ocr, configuration.Ingest.ExtractionTimeout())

	p := &Passbook{
		queue:      queue,
		dispatcher: queue,
		redis:      redisClient.Client(),
		datasource: db,
		extractor:  chain,
	}
	notification.RegisterWebhookSender(func(event string, payload interface{}) error {
		return p.SendWebhook(context.Background(), NewWebhook{Event: event, Payload: payload})
	})
	return p, nil
}

// SetDispatcher replaces how uploads are scheduled, e.g. with a LocalPool for one-off imports.
func (p *Passbook) SetDispatcher(d Dispatcher) {
	p.dispatcher = d
}

// SetExtractor replaces the text extraction adapter.
func (p *Passbook) SetExtractor(e DocumentExtractor) {
	p.extractor = e
}

func (p *Passbook) Close() error {
	if err := p.queue.Close(); err != nil {
		return err
	}
	return p.redis.Close()
}
