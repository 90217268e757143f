// Initialization of Redis client to be used internally in Wanna.

package db

import (
	"Wanna/pkg/log"
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// Number of the redis logical DB reserved for tests, CleanTestDbData only flushes this one.
const TestDbNumber = 1

// Options needed to open a connection to the redis-server.
type Options struct {
	Addr         string
	Password     string
	DB           int
	TxMaxRetries int
}

// RedisDB represents a redis client connection to be used internally in Wanna.
type RedisDB struct {
	client       *redis.Client
	txMaxRetries int
}

// Client returns the redis client wrapped by RedisDB.
func (db *RedisDB) Client() *redis.Client {
	return db.client
}

// GetMaxRetries returns the number of allowed retries in a watched redis transaction
func (db *RedisDB) GetMaxRetries() int {
	return db.txMaxRetries
}

// Returns a new Redis DB connection wrapped up by RedisDB struct.
func NewDbConnection(ctx context.Context, logger log.Logger, opts Options) (*RedisDB, error) {
	if opts.Addr == "" {
		err := errors.New("improper redis configuration: empty address")
		logger.WithCtx(ctx).Error().Err(err).Msg("Couldn't create redis client")
		return nil, err
	}
	if opts.TxMaxRetries <= 0 {
		opts.TxMaxRetries = 1
	}
	// Initializing a connection to Redis-server
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisDB{client: client, txMaxRetries: opts.TxMaxRetries}, nil
}

// Helper to check connection status of redis client to redis-server.
// Equivalent to a PING request on redis-server, returns PONG on success.
func (db *RedisDB) CheckDbConnection(ctx context.Context, logger log.Logger) error {
	logger.WithCtx(ctx).Info().Msg("Checking DB Connection . . .")
	// Pinging the Redis-server to check connection status
	if cnterr := db.Client().Ping(ctx).Err(); cnterr != nil {
		// Most likely, DB connection failure
		logger.WithCtx(ctx).Error().Err(cnterr).Msg("Redis client couldn't PING the redis-server.")
		return cnterr
	}
	// Connection successful
	logger.WithCtx(ctx).Info().Msg("Connection to DB Successful")
	return nil
}

// Watch runs txf inside an optimistic transaction on keys, retrying up to GetMaxRetries
// times when one of the watched keys changed underneath.
func (db *RedisDB) Watch(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < db.GetMaxRetries(); i++ {
		dberr := db.Client().Watch(ctx, txf, keys...)
		if dberr == nil {
			return nil
		} else if errors.Is(dberr, redis.TxFailedErr) {
			// Optimistic lock lost. Retry.
			continue
		}
		// Return any other error.
		return dberr
	}
	return errors.New("transaction reached maximum number of retries")
}

// Helper to clean up test db after finishing Wanna tests.
func (db *RedisDB) CleanTestDbData(ctx context.Context, logger log.Logger) {
	if db.Client().Options().DB == TestDbNumber {
		dberr := db.Client().FlushDB(ctx).Err()
		if dberr != nil {
			// Error during flushing test db
			logger.Error().Err(dberr).Msg("Error occured during the execution of FlushDB() in db.CleanTestDbData")
		}
	}
}

// Helper to close the RedisDB client, should be called before closing the server.
func (db *RedisDB) CloseDbConnection(ctx context.Context) error {
	return db.Client().Close()
}
