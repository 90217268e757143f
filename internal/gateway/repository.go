// Presence repository encapsulates the data access logic (interactions with the DB) related to online identities in Wanna.

package gateway

import (
	"Wanna/internal/errors"
	"Wanna/pkg/db"
	"Wanna/pkg/log"
	"context"
)

var presenceDbKey string = "ws_clients"

type Repository interface {
	// AddClient marks the identity as online, it has at least one live websocket connection.
	AddClient(ctx context.Context, logger log.Logger, identity string) error
	// RemoveClient marks the identity as offline, its last websocket connection closed.
	RemoveClient(ctx context.Context, logger log.Logger, identity string) error
	// ResetClients forgets every online identity, used on startup since connections don't survive a restart.
	ResetClients(ctx context.Context, logger log.Logger) error
}

// repository struct of presence Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of presence repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Returns nil if identity got successfully added into the DB.
func (r repository) AddClient(ctx context.Context, logger log.Logger, identity string) error {
	dberr := r.db.Client().SAdd(ctx, presenceDbKey, identity).Err()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of SAdd in gateway.AddClient")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns nil if identity got successfully removed from the DB.
func (r repository) RemoveClient(ctx context.Context, logger log.Logger, identity string) error {
	dberr := r.db.Client().SRem(ctx, presenceDbKey, identity).Err()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of SRem in gateway.RemoveClient")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) ResetClients(ctx context.Context, logger log.Logger) error {
	dberr := r.db.Client().Del(ctx, presenceDbKey).Err()
	if dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of Del in gateway.ResetClients")
		return errors.InternalServerError("")
	}
	return nil
}
