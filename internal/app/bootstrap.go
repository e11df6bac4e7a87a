package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"knowra/apps/indexer/internal/adapter/gemini"
	wstore "knowra/apps/indexer/internal/adapter/weaviate"
	"knowra/apps/indexer/internal/config"
	"knowra/apps/indexer/internal/membership"
)

// Dependencies holds the external connections the indexer runs against.
type Dependencies struct {
	DB         *sql.DB
	Membership *membership.RedisStore
	Index      *wstore.Store
	Embedder   *gemini.Embedder
}

func (d *Dependencies) Close() {
	if d.Embedder != nil {
		d.Embedder.Close()
	}
	if d.Membership != nil {
		d.Membership.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// Bootstrap connects to Postgres, Redis and Weaviate and runs migrations.
// Each backend gets the same retry budget so the service survives starting
// before its dependencies in a compose stack.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	// Database
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := withRetry(cfg.BootstrapRetryAttempts, retryDelay, "postgres", db.Ping); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Migrations
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("migration up error: %w", err)
	}

	// Membership store (Redis)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	members := membership.NewRedisStore(rdb)
	if err := withRetry(cfg.BootstrapRetryAttempts, retryDelay, "redis", func() error {
		return members.Ping(ctx)
	}); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// Vector index (Weaviate) + embedder (Gemini)
	wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("embedder error: %w", err)
	}

	return &Dependencies{
		DB:         db,
		Membership: members,
		Index:      wstore.NewStore(wClient, embedder),
		Embedder:   embedder,
	}, nil
}

func withRetry(attempts int, delay time.Duration, name string, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		slog.Warn("dependency not ready, retrying...", "dependency", name, "attempt", i+1)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

// createTopics pre-creates the NSQ topics so consumers can subscribe before
// the first producer publishes.
func createTopics(nsqdHTTP string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(config.TopicIndexRequest)
		create(config.TopicIndexAdmin)
	}()
}
