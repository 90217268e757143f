package test

import (
	"Wanna/internal/config"
	"Wanna/pkg/db"
	"Wanna/pkg/log"
	"context"
	"testing"
	"time"
)

// Connects to the redis test DB described by config/test.env.
// Tests using it are skipped when no redis-server is reachable, the DB is flushed on cleanup.
func MockDB(t *testing.T, logger log.Logger) *db.RedisDB {
	t.Helper()
	// test.env is optional, defaults of config.Load are used without it
	_ = config.LoadDevConfig("../../config/test.env")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("couldn't load test config: %v", err)
	}
	if cfg.RedisDBNumber != db.TestDbNumber {
		t.Skipf("redis DB %d is not the test DB, skipping", cfg.RedisDBNumber)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	client, err := db.NewDbConnection(ctx, logger, db.Options{
		Addr:         cfg.RedisURL(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDBNumber,
		TxMaxRetries: cfg.RedisTxMaxRetries,
	})
	if err != nil {
		t.Fatalf("couldn't create redis client: %v", err)
	}
	if err := client.CheckDbConnection(ctx, logger); err != nil {
		client.CloseDbConnection(ctx)
		t.Skipf("redis-server unavailable: %v", err)
	}
	client.CleanTestDbData(ctx, logger)
	t.Cleanup(func() {
		client.CleanTestDbData(context.Background(), logger)
		client.CloseDbConnection(context.Background())
	})
	return client
}
