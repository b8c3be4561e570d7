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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jerry-enebeli/passbook"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// importCommands uploads statement files and processes them in this process
// instead of handing them to the workers.
func importCommands(p *passbookInstance) *cobra.Command {
	var userID string
	var workers int

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "import statement files and stage them for review",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if workers <= 0 {
				workers = p.cnf.Queue.Concurrency
			}
			pool := passbook.NewLocalPool(p.passbook, workers)
			p.passbook.SetDispatcher(pool)

			var jobIDs []string
			for _, path := range args {
				document, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				job, err := p.passbook.UploadDocument(ctx, userID, path, document)
				if existing, ok := apierror.ExistingJobID(err); ok {
					logrus.Warnf("%s was already imported as job %s", path, existing)
					continue
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				jobIDs = append(jobIDs, job.JobID)
			}

			if err := pool.Wait(); err != nil {
				logrus.WithError(err).Error("some documents could not be processed")
			}

			jobs := make([]interface{}, 0, len(jobIDs))
			for _, id := range jobIDs {
				job, err := p.passbook.GetJob(ctx, id)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
			}
			return printJSON(jobs)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the imported statements")
	cmd.Flags().IntVar(&workers, "workers", 0, "documents processed at once, defaults to queue concurrency")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
