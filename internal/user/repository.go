// User repository encapsulates the data access logic (interactions with the DB) related to Users in Wanna.

package user

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/db"
	"Wanna/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// GetUser returns the user owning the auth token.
	GetUser(ctx context.Context, logger log.Logger, auth string) (entity.User, error)
	// GetUsersByUID returns the users with the given uids, unknown uids are skipped.
	GetUsersByUID(ctx context.Context, logger log.Logger, uids []string) ([]entity.User, error)
	// HasUser returns a boolean depending on user's availability.
	HasUser(ctx context.Context, logger log.Logger, auth string) (bool, error)
	// SetUser adds a new user into the DB, fails if the auth token or uid is taken.
	SetUser(ctx context.Context, logger log.Logger, user entity.User) error
	// UpdateUser overwrites the given hash fields of the user owning auth and returns the result.
	UpdateUser(ctx context.Context, logger log.Logger, auth string, fields map[string]interface{}) (entity.User, error)
}

// repository struct of user Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func userKey(auth string) string   { return "user:" + auth }
func userUIDKey(uid string) string { return "user-uid:" + uid }

// Returns the user data object if user with the given auth token is found in the DB.
func (r repository) GetUser(ctx context.Context, logger log.Logger, auth string) (entity.User, error) {
	user := entity.User{}
	available, dberr := r.db.Client().HExists(ctx, userKey(auth), "uid").Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HExists() in user.GetUser")
		return user, errors.InternalServerError("")
	} else if !available {
		// User not available
		return user, errors.NotFound("User not found")
	}
	if dberr := r.db.Client().HGetAll(ctx, userKey(auth)).Scan(&user); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in user.GetUser")
		return user, errors.InternalServerError("")
	}
	return user, nil
}

// Returns the users with the given uids in the same order, two pipelined round trips.
func (r repository) GetUsersByUID(ctx context.Context, logger log.Logger, uids []string) ([]entity.User, error) {
	users := []entity.User{}
	if len(uids) == 0 {
		return users, nil
	}
	authCmds := make([]*redis.StringCmd, len(uids))
	if _, dberr := r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, uid := range uids {
			authCmds[i] = pipe.Get(ctx, userUIDKey(uid))
		}
		return nil
	}); dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in user.GetUsersByUID")
		return users, errors.InternalServerError("")
	}

	userCmds := []*redis.StringStringMapCmd{}
	if _, dberr := r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, cmd := range authCmds {
			auth, err := cmd.Result()
			if err != nil {
				// uid without user, skipped
				continue
			}
			userCmds = append(userCmds, pipe.HGetAll(ctx, userKey(auth)))
		}
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in user.GetUsersByUID")
		return users, errors.InternalServerError("")
	}

	for _, cmd := range userCmds {
		var user entity.User
		if dberr := cmd.Scan(&user); dberr != nil {
			logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of Scan() in user.GetUsersByUID")
			return users, errors.InternalServerError("")
		}
		if user.UID != "" {
			users = append(users, user)
		}
	}
	return users, nil
}

// Returns true if user with the given auth token exists in Wanna.
func (r repository) HasUser(ctx context.Context, logger log.Logger, auth string) (bool, error) {
	available, dberr := r.db.Client().Exists(ctx, userKey(auth)).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in user.HasUser")
		return false, errors.InternalServerError("")
	}
	return available != 0, nil
}

// Returns nil if user got successfully added into the DB.
func (r repository) SetUser(ctx context.Context, logger log.Logger, ue entity.User) error {
	authKey, uidKey := userKey(ue.Auth), userUIDKey(ue.UID)
	txf := func(tx *redis.Tx) error {
		// Operation is commited only if the watched keys remain unchanged
		taken, dberr := tx.Exists(ctx, authKey, uidKey).Result()
		if dberr != nil {
			return dberr
		} else if taken > 0 {
			return errors.ValidationFailed("Auth token already exists")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, authKey, ue.Fields())
			pipe.Set(ctx, uidKey, ue.Auth, 0)
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, authKey, uidKey); txferr != nil {
		if resp, ok := txferr.(errors.ErrorResponse); ok {
			// Rejected inside the transaction
			return resp
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in SetUser transaction")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the updated user, NotFound if no user owns the auth token.
func (r repository) UpdateUser(ctx context.Context, logger log.Logger, auth string, fields map[string]interface{}) (entity.User, error) {
	key := userKey(auth)
	txf := func(tx *redis.Tx) error {
		// Operation is commited only if the watched keys remain unchanged
		available, dberr := tx.Exists(ctx, key).Result()
		if dberr != nil {
			return dberr
		} else if available == 0 {
			return errors.NotFound("User not found")
		}
		if len(fields) == 0 {
			return nil
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, key); txferr != nil {
		if resp, ok := txferr.(errors.ErrorResponse); ok {
			// Rejected inside the transaction
			return entity.User{}, resp
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in UpdateUser transaction")
		return entity.User{}, errors.InternalServerError("")
	}
	return r.GetUser(ctx, logger, auth)
}
