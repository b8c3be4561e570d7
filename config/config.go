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


package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_INGEST_QUEUE      = "ingest_queue"
	DEFAULT_WEBHOOK_QUEUE     = "webhook_queue"
	DEFAULT_MONITORING_PORT   = "5004"
	DEFAULT_MAX_DOCUMENT_SIZE = 20 << 20
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"PASSBOOK_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"PASSBOOK_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"PASSBOOK_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	IngestQueue      string `json:"ingest_queue" envconfig:"PASSBOOK_QUEUE_INGEST"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"PASSBOOK_QUEUE_WEBHOOK"`
	Concurrency      int    `json:"concurrency" envconfig:"PASSBOOK_QUEUE_CONCURRENCY"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"PASSBOOK_QUEUE_MAX_RETRY_ATTEMPTS"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"PASSBOOK_QUEUE_MONITORING_PORT"`
}

type IngestConfig struct {
	MaxDocumentBytes     int64   `json:"max_document_bytes" envconfig:"PASSBOOK_INGEST_MAX_DOCUMENT_BYTES"`
	HeaderScanLines      int     `json:"header_scan_lines" envconfig:"PASSBOOK_INGEST_HEADER_SCAN_LINES"`
	SkipRatioThreshold   float64 `json:"skip_ratio_threshold" envconfig:"PASSBOOK_INGEST_SKIP_RATIO_THRESHOLD"`
	ExtractionTimeoutSec int     `json:"extraction_timeout_sec" envconfig:"PASSBOOK_INGEST_EXTRACTION_TIMEOUT_SEC"`
	StuckJobThresholdSec int     `json:"stuck_job_threshold_sec" envconfig:"PASSBOOK_INGEST_STUCK_JOB_THRESHOLD_SEC"`
	CommitLockTimeoutSec int     `json:"commit_lock_timeout_sec" envconfig:"PASSBOOK_INGEST_COMMIT_LOCK_TIMEOUT_SEC"`
	DirectoryCacheTTLSec int     `json:"directory_cache_ttl_sec" envconfig:"PASSBOOK_INGEST_DIRECTORY_CACHE_TTL_SEC"`
}

// ExtractionTimeout bounds a single text extraction attempt.
func (c IngestConfig) ExtractionTimeout() time.Duration {
	return time.Duration(c.ExtractionTimeoutSec) * time.Second
}

func (c IngestConfig) StuckJobThreshold() time.Duration {
	return time.Duration(c.StuckJobThresholdSec) * time.Second
}

func (c IngestConfig) CommitLockTimeout() time.Duration {
	return time.Duration(c.CommitLockTimeoutSec) * time.Second
}

func (c IngestConfig) DirectoryCacheTTL() time.Duration {
	return time.Duration(c.DirectoryCacheTTLSec) * time.Second
}

type OCRConfig struct {
	Url        string `json:"url" envconfig:"PASSBOOK_OCR_URL"`
	ApiKey     string `json:"api_key" envconfig:"PASSBOOK_OCR_API_KEY"`
	TimeoutSec int    `json:"timeout_sec" envconfig:"PASSBOOK_OCR_TIMEOUT_SEC"`
	MaxRetries int    `json:"max_retries" envconfig:"PASSBOOK_OCR_MAX_RETRIES"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"PASSBOOK_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"PASSBOOK_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"PASSBOOK_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"PASSBOOK_ENABLE_TELEMETRY"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Ingest          IngestConfig     `json:"ingest"`
	OCR             OCRConfig        `json:"ocr"`
	Notification    Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("passbook", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called passbook.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Passbook"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.OCR.Url = strings.TrimSpace(cnf.OCR.Url)

	cnf.setQueueDefaults()
	cnf.setIngestDefaults()

	if cnf.OCR.TimeoutSec <= 0 {
		cnf.OCR.TimeoutSec = 60
	}
	if cnf.OCR.MaxRetries <= 0 {
		cnf.OCR.MaxRetries = 3
	}

	if cnf.Ingest.SkipRatioThreshold <= 0 || cnf.Ingest.SkipRatioThreshold > 1 {
		return errors.New("ingest skip ratio threshold must be in (0, 1]")
	}

	return nil
}

func (cnf *Configuration) setQueueDefaults() {
	if cnf.Queue.IngestQueue == "" {
		cnf.Queue.IngestQueue = DEFAULT_INGEST_QUEUE
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = DEFAULT_WEBHOOK_QUEUE
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 4
		log.Printf("Warning: Queue concurrency not specified. Setting default value: %d", cnf.Queue.Concurrency)
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 3
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}
}

func (cnf *Configuration) setIngestDefaults() {
	if cnf.Ingest.MaxDocumentBytes <= 0 {
		cnf.Ingest.MaxDocumentBytes = DEFAULT_MAX_DOCUMENT_SIZE
	}
	if cnf.Ingest.HeaderScanLines <= 0 {
		cnf.Ingest.HeaderScanLines = 60
	}
	if cnf.Ingest.SkipRatioThreshold == 0 {
		cnf.Ingest.SkipRatioThreshold = 0.5
	}
	if cnf.Ingest.ExtractionTimeoutSec <= 0 {
		cnf.Ingest.ExtractionTimeoutSec = 120
	}
	if cnf.Ingest.StuckJobThresholdSec <= 0 {
		// a job is only stuck once every extraction attempt could have timed out
		cnf.Ingest.StuckJobThresholdSec = 4 * cnf.Ingest.ExtractionTimeoutSec
	}
	if cnf.Ingest.CommitLockTimeoutSec <= 0 {
		cnf.Ingest.CommitLockTimeoutSec = 30
	}
	if cnf.Ingest.DirectoryCacheTTLSec <= 0 {
		cnf.Ingest.DirectoryCacheTTLSec = 300
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
