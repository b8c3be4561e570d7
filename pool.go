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
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// LocalPool processes uploads in this process with at most size jobs at a
// time. It replaces the task queue for one-off imports.
type LocalPool struct {
	passbook *Passbook
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	errs     []error
}

func NewLocalPool(p *Passbook, size int) *LocalPool {
	if size <= 0 {
		size = 1
	}
	return &LocalPool{passbook: p, sem: make(chan struct{}, size)}
}

// EnqueueIngest blocks until a worker slot is free, then processes task in the background.
func (l *LocalPool) EnqueueIngest(ctx context.Context, task IngestTask) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() { <-l.sem }()
		if err := l.passbook.ProcessJob(context.WithoutCancel(ctx), task); err != nil {
			logrus.WithError(err).WithField("job_id", task.JobID).Error("local processing failed")
			l.mu.Lock()
			l.errs = append(l.errs, err)
			l.mu.Unlock()
		}
	}()
	return nil
}

// Wait blocks until every enqueued job is processed and returns their errors joined.
func (l *LocalPool) Wait() error {
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.errs...)
}
