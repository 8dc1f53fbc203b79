package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/ticket-checkout/internal/adapters/mongo"
	"github.com/robertarktes/ticket-checkout/internal/config"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

// seed-catalog upserts the events in CATALOG_SEED_FILE (or the path given as
// the first argument) into the event catalog.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := observability.NewLogger()

	path := cfg.CatalogSeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open seed file: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	catalog := mongoadapter.NewCatalogRepository(client.Database(cfg.MongoDB), logger)
	if err := catalog.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to ensure catalog indexes: %v", err)
	}

	n, err := catalog.Seed(ctx, f)
	if err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}
	logger.WithField("file", path).WithField("events", n).Info("catalog seeded")
}
