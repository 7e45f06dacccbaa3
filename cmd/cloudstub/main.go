// Command cloudstub runs the in-memory SQS/SNS/S3 emulator (spec.md §1):
// one HTTP listener serving all three wire protocols against a single
// in-process core.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/clock"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi"
	"github.com/chris-alexander-pop/cloudstub/internal/initconfig"
	"github.com/chris-alexander-pop/cloudstub/internal/objectstore"
	"github.com/chris-alexander-pop/cloudstub/internal/publisher"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
	"github.com/chris-alexander-pop/cloudstub/internal/spybus"
	"github.com/chris-alexander-pop/cloudstub/pkg/config"
	"github.com/chris-alexander-pop/cloudstub/pkg/logger"
)

// settings is the process configuration, loaded the way pkg/config.Load
// documents: environment variables first, validated by struct tags.
type settings struct {
	Addr         string `env:"CLOUDSTUB_ADDR" env-default:":4566"`
	Region       string `env:"CLOUDSTUB_REGION" env-default:"us-east-1"`
	Account      string `env:"CLOUDSTUB_ACCOUNT" env-default:"000000000000"`
	ExternalHost string `env:"CLOUDSTUB_EXTERNAL_HOST" env-default:""`
	InitConfig   string `env:"CLOUDSTUB_INIT_CONFIG" env-default:""`

	LogLevel  string  `env:"LOG_LEVEL" env-default:"INFO"`
	LogFormat string  `env:"LOG_FORMAT" env-default:"JSON"`
	LogAsync  bool    `env:"LOG_ASYNC" env-default:"true"`
	LogRedact bool    `env:"LOG_REDACT" env-default:"true"`
	LogSample float64 `env:"LOG_SAMPLING_RATE" env-default:"1.0"`
}

func main() {
	var cfg settings
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		Async:        cfg.LogAsync,
		Redact:       cfg.LogRedact,
		SamplingRate: cfg.LogSample,
	})

	clk := clock.New()
	bus := spybus.New(clk, 0)
	endpoints := awsproto.Endpoints{Account: cfg.Account, Region: cfg.Region, ExternalHost: cfg.ExternalHost}

	queues := registry.NewQueueRegistry(clk, bus, endpoints)
	topics := registry.NewTopicRegistry(endpoints)
	objects := objectstore.New(clk, bus)
	pub := publisher.New(topics, queues, bus, clk, endpoints)

	if cfg.InitConfig != "" {
		if err := applyInitConfig(cfg.InitConfig, queues, topics, objects); err != nil {
			log.Error("init config failed", "path", cfg.InitConfig, "error", err)
			os.Exit(1)
		}
	}

	e := httpapi.NewServer(httpapi.Deps{
		Queues:    queues,
		Topics:    topics,
		Publisher: pub,
		Objects:   objects,
		Endpoints: endpoints,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: e}

	go func() {
		log.Info("listening", "addr", cfg.Addr, "region", cfg.Region)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

func applyInitConfig(path string, queues *registry.QueueRegistry, topics *registry.TopicRegistry, objects *objectstore.Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cfg initconfig.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	applier := &initconfig.Applier{Queues: queues, Topics: topics, Objects: objects}
	return applier.Apply(cfg)
}
