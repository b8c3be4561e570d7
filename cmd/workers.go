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
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/jerry-enebeli/passbook"
	"github.com/jerry-enebeli/passbook/config"
	redis_db "github.com/jerry-enebeli/passbook/internal/redis-db"
	"github.com/jerry-enebeli/passbook/internal/trace"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// initializeQueues weighs ingestion above webhook delivery.
func initializeQueues(cfg *config.Configuration) map[string]int {
	return map[string]int{
		cfg.Queue.IngestQueue:  3,
		cfg.Queue.WebhookQueue: 1,
	}
}

func queueConnection(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(redis_db.SplitAddresses(conf.Redis.Dns)[0], conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return redis_db.AsynqClientOpt(redisOption), nil
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	connOpt, err := queueConnection(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(connOpt, asynq.Config{
		Concurrency: conf.Queue.Concurrency,
		Queues:      queues,
		Logger:      logrus.StandardLogger(),
	}), nil
}

func initializeTaskHandlers(p *passbookInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(p.cnf.Queue.IngestQueue, p.passbook.ProcessIngestTask)
	mux.HandleFunc(p.cnf.Queue.WebhookQueue, passbook.ProcessWebhook)
}

func initializeTracing(ctx context.Context, cfg *config.Configuration) (func(context.Context) error, error) {
	if !cfg.EnableTelemetry {
		return func(context.Context) error { return nil }, nil
	}
	shutdown, err := trace.SetupOTelSDK(ctx, cfg.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

func startMonitoring(conf *config.Configuration, connOpt asynq.RedisClientOpt) {
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: connOpt,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
}

// workerCommands defines the "workers" command. Workers process uploaded
// documents, deliver webhooks and fail jobs that stopped making progress.
func workerCommands(p *passbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start passbook workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf := p.cnf
			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			defer p.passbook.Close()

			srv, err := initializeWorkerServer(conf, initializeQueues(conf))
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(p, mux)

			connOpt, _ := queueConnection(conf)
			startMonitoring(conf, connOpt)

			recovery := passbook.NewStuckJobRecoveryProcessor(p.passbook)
			recovery.Start(ctx)
			defer recovery.Stop()

			if err := srv.Start(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
			<-ctx.Done()
			logrus.Info("shutting down workers")
			srv.Shutdown()
		},
	}

	return cmd
}
