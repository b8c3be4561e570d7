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
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/sirupsen/logrus"
)

// minStuckThreshold keeps a manual recovery from failing jobs that are merely slow.
const minStuckThreshold = 2 * time.Minute

// StuckJobRecoveryProcessor periodically fails jobs that have been processing
// for longer than the stuck threshold without their task still being retried.
type StuckJobRecoveryProcessor struct {
	passbook       *Passbook
	batchSize      int
	maxWorkers     int
	pollInterval   time.Duration
	stuckThreshold time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
	running        bool
	mu             sync.Mutex
}

func NewStuckJobRecoveryProcessor(p *Passbook) *StuckJobRecoveryProcessor {
	maxWorkers := 4
	stuckThreshold := 8 * time.Minute
	cfg, err := config.Fetch()
	if err == nil {
		if cfg.Queue.Concurrency > 0 {
			maxWorkers = cfg.Queue.Concurrency
		}
		if cfg.Ingest.StuckJobThreshold() > 0 {
			stuckThreshold = cfg.Ingest.StuckJobThreshold()
		}
	}

	return &StuckJobRecoveryProcessor{
		passbook:       p,
		batchSize:      maxWorkers * 25,
		maxWorkers:     maxWorkers,
		pollInterval:   30 * time.Second,
		stuckThreshold: stuckThreshold,
		stopCh:         make(chan struct{}),
	}
}

func (r *StuckJobRecoveryProcessor) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()

	logrus.Info("Stuck job recovery processor started")
}

func (r *StuckJobRecoveryProcessor) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	logrus.Info("Stuck job recovery processor stopped")
}

func (r *StuckJobRecoveryProcessor) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *StuckJobRecoveryProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Stuck job recovery processor context cancelled")
			return
		case <-r.stopCh:
			logrus.Info("Stuck job recovery processor stop signal received")
			return
		case <-ticker.C:
			r.recoverWithThreshold(ctx, r.stuckThreshold)
		}
	}
}

// RecoverStuckJobs fails jobs stuck in processing for longer than threshold
// and returns how many it failed.
func (p *Passbook) RecoverStuckJobs(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold < minStuckThreshold {
		threshold = minStuckThreshold
	}
	processor := NewStuckJobRecoveryProcessor(p)
	return processor.recoverWithThreshold(ctx, threshold), nil
}

func (r *StuckJobRecoveryProcessor) recoverWithThreshold(ctx context.Context, threshold time.Duration) int {
	stuckJobs, err := r.passbook.datasource.GetStuckJobs(ctx, time.Now().UTC().Add(-threshold), r.batchSize)
	if err != nil {
		logrus.Errorf("failed to get stuck jobs: %v", err)
		return 0
	}
	if len(stuckJobs) == 0 {
		return 0
	}

	logrus.Infof("Processing %d stuck jobs with %d workers (threshold=%v)", len(stuckJobs), r.maxWorkers, threshold)

	sem := make(chan struct{}, r.maxWorkers)
	var batchWg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i := range stuckJobs {
		sem <- struct{}{}
		batchWg.Add(1)
		go func(job *model.Job) {
			defer batchWg.Done()
			defer func() { <-sem }()
			ok, err := r.processStuckJob(ctx, job, threshold)
			if err != nil {
				logrus.Errorf("failed to recover stuck job %s: %v", job.JobID, err)
				return
			}
			if ok {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(&stuckJobs[i])
	}

	batchWg.Wait()
	return failed
}

// processStuckJob fails one job unless its ingest task is still waiting for a retry.
func (r *StuckJobRecoveryProcessor) processStuckJob(ctx context.Context, job *model.Job, threshold time.Duration) (bool, error) {
	if r.passbook.queue != nil {
		if state, ok := r.passbook.queue.IngestTaskState(job.JobID); ok && (state == asynq.TaskStateRetry || state == asynq.TaskStatePending) {
			logrus.Infof("job %s is waiting for a retry, leaving it", job.JobID)
			return false, nil
		}
	}

	failed, err := r.passbook.datasource.TransitionJob(ctx, job.JobID, database.JobTransition{
		From:         model.JobProcessing,
		To:           model.JobFailed,
		ErrorMessage: fmt.Sprintf("processing did not finish within %v", threshold),
	})
	if err != nil {
		if apierror.IsCode(err, apierror.ErrInvalidState) {
			return false, nil
		}
		return false, err
	}
	r.passbook.notifyJob(ctx, failed)
	return true, nil
}
