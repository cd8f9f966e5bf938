package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"

	offlinecache "github.com/dhowell/go-offline-cache"
	"github.com/dhowell/go-offline-cache/partitions/local"
	"github.com/dhowell/go-offline-cache/queue"
	"github.com/dhowell/go-offline-cache/queue/sqlite"
)

type config struct {
	Origin    string `env:"OFFLINE_ORIGIN" envDefault:"http://localhost:3000"`
	QueuePath string `env:"OFFLINE_QUEUE_PATH" envDefault:"offline-queue.db"`
	Version   string `env:"OFFLINE_CACHE_VERSION" envDefault:"v4"`
}

func main() {
	ctx := context.Background()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	workerCfg := offlinecache.DefaultConfig()
	workerCfg.Origin = cfg.Origin
	workerCfg.Version = cfg.Version

	worker := offlinecache.NewWorker(local.NewBasicStore(), &workerCfg, nil, logger)
	worker.OpenQueue = func(ctx context.Context) (queue.Queue, error) {
		return sqlite.Open(ctx, cfg.QueuePath)
	}

	worker.Install(ctx)
	worker.Activate(ctx)
	worker.StartSweeper(ctx, 0)
	defer worker.Close()

	client := &http.Client{Transport: worker}

	resp, err := client.Get(cfg.Origin + "/api/workouts")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println(resp.Status)

	// Drain anything queued from a previous offline run.
	worker.Sync(ctx, offlinecache.TagWorkoutSync)
	worker.Sync(ctx, offlinecache.TagSetSync)

	<-ctx.Done()
}
