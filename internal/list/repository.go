// List repository encapsulates the data access logic (interactions with the DB) related to List CRUD in Wanna.

package list

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/db"
	"Wanna/pkg/log"
	"context"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// HasList returns a boolean depending on list's availability.
	HasList(ctx context.Context, logger log.Logger, listID string) (bool, error)
	// GetList fetches the list data from DB.
	GetList(ctx context.Context, logger log.Logger, listID string) (entity.List, error)
	// GetListIDByShareID resolves a share id into its list id.
	GetListIDByShareID(ctx context.Context, logger log.Logger, shareID string) (string, error)
	// SetList adds a new list into the DB with ownerUID as its first member.
	SetList(ctx context.Context, logger log.Logger, list entity.List, ownerUID string) error
	// UpdateList sets the given fields of an existing list and returns the updated list.
	UpdateList(ctx context.Context, logger log.Logger, listID string, fields map[string]interface{}) (entity.List, error)
	// IsMember returns true if the user with uid is a member of the list.
	IsMember(ctx context.Context, logger log.Logger, listID, uid string) (bool, error)
	// AddMember adds uid to the list members, false if it already was one.
	AddMember(ctx context.Context, logger log.Logger, listID, uid string) (bool, error)
	// RemoveMember removes uid from the list members, false if it was not one.
	RemoveMember(ctx context.Context, logger log.Logger, listID, uid string) (bool, error)
	// GetMembers returns the sorted uids of the list members.
	GetMembers(ctx context.Context, logger log.Logger, listID string) ([]string, error)
}

// repository struct of list Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of list repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func listKey(listID string) string    { return "list:" + listID }
func shareKey(shareID string) string  { return "list-share:" + shareID }
func membersKey(listID string) string { return "list-members:" + listID }
func userListsKey(uid string) string  { return "user-lists:" + uid }

// Returns true if list:<listId> exists in Wanna.
func (r repository) HasList(ctx context.Context, logger log.Logger, listID string) (bool, error) {
	available, dberr := r.db.Client().Exists(ctx, listKey(listID)).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Exists() in list.HasList")
		return false, errors.InternalServerError("")
	}
	return available != 0, nil
}

// Returns the list data if the list exists.
func (r repository) GetList(ctx context.Context, logger log.Logger, listID string) (entity.List, error) {
	var list entity.List
	if dberr := r.db.Client().HGetAll(ctx, listKey(listID)).Scan(&list); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in list.GetList")
		return list, errors.InternalServerError("")
	}
	if len(list.ListID) == 0 {
		// List not available
		return list, errors.NotFound("List not found")
	}
	return list, nil
}

// Returns the list id the share id points to.
func (r repository) GetListIDByShareID(ctx context.Context, logger log.Logger, shareID string) (string, error) {
	listID, dberr := r.db.Client().Get(ctx, shareKey(shareID)).Result()
	if dberr == redis.Nil {
		// Share id not available
		return "", errors.NotFound("List not found")
	} else if dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Get() in list.GetListIDByShareID")
		return "", errors.InternalServerError("")
	}
	return listID, nil
}

// Returns nil if the list, its share index and its first membership got added into the DB.
func (r repository) SetList(ctx context.Context, logger log.Logger, list entity.List, ownerUID string) error {
	key, share := listKey(list.ListID), shareKey(list.ShareID)
	txf := func(tx *redis.Tx) error {
		// Operation is commited only if the watched keys remain unchanged
		taken, dberr := tx.Exists(ctx, key, share).Result()
		if dberr != nil {
			return dberr
		} else if taken > 0 {
			return errors.ValidationFailed("List already exists")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, list.Fields())
			pipe.Set(ctx, share, list.ListID, 0)
			pipe.SAdd(ctx, membersKey(list.ListID), ownerUID)
			pipe.SAdd(ctx, userListsKey(ownerUID), list.ListID)
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, key, share); txferr != nil {
		if resp, ok := txferr.(errors.ErrorResponse); ok {
			// Rejected inside the transaction
			return resp
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in SetList transaction")
		return errors.InternalServerError("")
	}
	return nil
}

// Returns the updated list after applying fields.
func (r repository) UpdateList(ctx context.Context, logger log.Logger, listID string, fields map[string]interface{}) (entity.List, error) {
	key := listKey(listID)
	txf := func(tx *redis.Tx) error {
		available, dberr := tx.Exists(ctx, key).Result()
		if dberr != nil {
			return dberr
		} else if available == 0 {
			return errors.NotFound("List not found")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(fields) > 0 {
				pipe.HSet(ctx, key, fields)
			}
			pipe.HSet(ctx, key, "updated", time.Now().UnixMilli())
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, key); txferr != nil {
		if resp, ok := txferr.(errors.ErrorResponse); ok {
			return entity.List{}, resp
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in UpdateList transaction")
		return entity.List{}, errors.InternalServerError("")
	}
	return r.GetList(ctx, logger, listID)
}

func (r repository) IsMember(ctx context.Context, logger log.Logger, listID, uid string) (bool, error) {
	member, dberr := r.db.Client().SIsMember(ctx, membersKey(listID), uid).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SIsMember() in list.IsMember")
		return false, errors.InternalServerError("")
	}
	return member, nil
}

func (r repository) AddMember(ctx context.Context, logger log.Logger, listID, uid string) (bool, error) {
	var added *redis.IntCmd
	if _, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, membersKey(listID), uid)
		pipe.SAdd(ctx, userListsKey(uid), listID)
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in list.AddMember")
		return false, errors.InternalServerError("")
	}
	return added.Val() == 1, nil
}

func (r repository) RemoveMember(ctx context.Context, logger log.Logger, listID, uid string) (bool, error) {
	var removed *redis.IntCmd
	if _, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, membersKey(listID), uid)
		pipe.SRem(ctx, userListsKey(uid), listID)
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in list.RemoveMember")
		return false, errors.InternalServerError("")
	}
	return removed.Val() == 1, nil
}

func (r repository) GetMembers(ctx context.Context, logger log.Logger, listID string) ([]string, error) {
	uids, dberr := r.db.Client().SMembers(ctx, membersKey(listID)).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in list.GetMembers")
		return nil, errors.InternalServerError("")
	}
	sort.Strings(uids)
	return uids, nil
}
