package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"felicity/internal/config"
	"felicity/internal/database"
	"felicity/internal/logger"
	"felicity/internal/models"
	"felicity/internal/repository"
	"felicity/internal/search"

	"github.com/joho/godotenv"
)

const pageSize = 100

// sync-events rebuilds the Elasticsearch index from Postgres. Run it
// after an index mapping change or when ES was down long enough to
// miss publishes.
func main() {
	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "Count events without indexing them")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting event index synchronization")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	repos := repository.NewRepositories(db)

	if err := syncEvents(context.Background(), repos.Events, esClient, dryRun); err != nil {
		logger.Fatal("Event synchronization failed", "error", err)
	}

	slog.Info("Event synchronization completed successfully")
}

func syncEvents(ctx context.Context, events *repository.EventRepository, esClient *search.ElasticsearchClient, dryRun bool) error {
	start := time.Now()
	indexed := 0

	for page := 1; ; page++ {
		batch, err := events.List(ctx, models.EventPublished, page, pageSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			if dryRun {
				indexed++
				continue
			}
			if err := esClient.Index(ctx, &batch[i]); err != nil {
				slog.Error("Failed to index event", "event_id", batch[i].ID, "error", err)
				continue
			}
			indexed++
		}

		slog.Info("Indexed batch", "page", page, "count", len(batch))
	}

	slog.Info("Reindex finished", "indexed", indexed, "duration", time.Since(start), "dry_run", dryRun)
	return nil
}
