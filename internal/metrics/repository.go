// Metrics repository encapsulates the data access logic (interactions with the DB) related to Metrics in Wanna.

package metrics

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/db"
	"Wanna/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

var metricsDbKey string = "wanna:metrics"

type Repository interface {
	// Get last persisted Wanna Metrics data
	GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error)
	// Set or Update Wanna Metrics data
	SetOrUpdateMetrics(ctx context.Context, logger log.Logger, metrics *entity.Metrics) error
}

// repository struct of metrics Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of metrics repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func (r repository) GetMetrics(ctx context.Context, logger log.Logger) (entity.Metrics, error) {
	// check if metrics data is available in the db
	available, dberr := r.db.Client().Exists(ctx, metricsDbKey).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in metrics.GetMetrics")
		return entity.Metrics{}, errors.InternalServerError("")
	} else if available == 0 {
		// no metrics data is available
		return entity.Metrics{}, nil
	}
	var metrics entity.Metrics
	if dberr = r.db.Client().HGetAll(ctx, metricsDbKey).Scan(&metrics); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in metrics.GetMetrics")
		return entity.Metrics{}, errors.InternalServerError("")
	}
	return metrics, nil
}

func (r repository) SetOrUpdateMetrics(ctx context.Context, logger log.Logger, metrics *entity.Metrics) error {
	txf := func(tx *redis.Tx) error {
		// Operation is commited only if the watched keys remain unchanged
		_, dberr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, metricsDbKey,
				"active_connections", metrics.ActiveConnections,
				"online_identities", metrics.OnlineIdentities,
				"broadcasts", metrics.Broadcasts,
				"deliveries", metrics.Deliveries,
				"failed_deliveries", metrics.FailedDeliveries,
				"coalesced_updates", metrics.CoalescedUpdates,
				"immediate_emits", metrics.ImmediateEmits,
			)
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, metricsDbKey); txferr != nil {
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in SetOrUpdateMetrics transaction")
		return errors.InternalServerError("")
	}
	return nil
}
