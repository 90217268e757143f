// Item repository encapsulates the data access logic (interactions with the DB) related to Items and ListItems in Wanna.

package item

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/db"
	"Wanna/pkg/log"
	"context"

	"github.com/go-redis/redis/v8"
)

var publicItemsKey string = "items:public"

type Repository interface {
	// GetItem fetches a catalogue item from DB.
	GetItem(ctx context.Context, logger log.Logger, itemID string) (entity.Item, error)
	// SetItem adds or replaces a catalogue item, public ones are indexed.
	SetItem(ctx context.Context, logger log.Logger, item entity.Item) error
	// GetPublicItems returns every public item which isn't deleted.
	GetPublicItems(ctx context.Context, logger log.Logger) ([]entity.Item, error)
	// SetListItem adds a new item to a list.
	SetListItem(ctx context.Context, logger log.Logger, listItem entity.ListItem) error
	// GetListItem fetches a list item from DB.
	GetListItem(ctx context.Context, logger log.Logger, listItemID string) (entity.ListItem, error)
	// UpdateListItems applies every update in one transaction, all list items must belong to listID.
	UpdateListItems(ctx context.Context, logger log.Logger, listID string, updates []entity.UpdateListItem) error
	// GetListItems returns the items of a list in creation order.
	GetListItems(ctx context.Context, logger log.Logger, listID string) ([]entity.ListItem, error)
}

// repository struct of item Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of item repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

func itemKey(itemID string) string         { return "item:" + itemID }
func listItemKey(listItemID string) string { return "list-item:" + listItemID }
func listItemsKey(listID string) string    { return "list-items:" + listID }

func (r repository) GetItem(ctx context.Context, logger log.Logger, itemID string) (entity.Item, error) {
	var item entity.Item
	if dberr := r.db.Client().HGetAll(ctx, itemKey(itemID)).Scan(&item); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in item.GetItem")
		return item, errors.InternalServerError("")
	}
	if len(item.ItemID) == 0 {
		// Item not available
		return item, errors.NotFound("Item not found")
	}
	return item, nil
}

func (r repository) SetItem(ctx context.Context, logger log.Logger, item entity.Item) error {
	if _, dberr := r.db.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, itemKey(item.ItemID), item.Fields())
		if item.Public && !item.Deleted {
			pipe.SAdd(ctx, publicItemsKey, item.ItemID)
		} else {
			pipe.SRem(ctx, publicItemsKey, item.ItemID)
		}
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in item.SetItem")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetPublicItems(ctx context.Context, logger log.Logger) ([]entity.Item, error) {
	items := []entity.Item{}
	itemIDs, dberr := r.db.Client().SMembers(ctx, publicItemsKey).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.SMembers() in item.GetPublicItems")
		return items, errors.InternalServerError("")
	}
	for _, itemID := range itemIDs {
		item, err := r.GetItem(ctx, logger, itemID)
		if errors.KindOf(err) == errors.NotFoundKind {
			continue
		} else if err != nil {
			return items, err
		}
		if item.Public && !item.Deleted {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r repository) SetListItem(ctx context.Context, logger log.Logger, li entity.ListItem) error {
	key := listItemKey(li.ListItemID)
	txf := func(tx *redis.Tx) error {
		// Operation is commited only if the watched keys remain unchanged
		taken, dberr := tx.Exists(ctx, key).Result()
		if dberr != nil {
			return dberr
		} else if taken > 0 {
			return errors.ValidationFailed("List item already exists")
		}
		_, dberr = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, li.Fields())
			pipe.ZAdd(ctx, listItemsKey(li.ListID), &redis.Z{Score: float64(li.Created), Member: li.ListItemID})
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, key); txferr != nil {
		if resp, ok := txferr.(errors.ErrorResponse); ok {
			// Rejected inside the transaction
			return resp
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in SetListItem transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetListItem(ctx context.Context, logger log.Logger, listItemID string) (entity.ListItem, error) {
	var li entity.ListItem
	if dberr := r.db.Client().HGetAll(ctx, listItemKey(listItemID)).Scan(&li); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in item.GetListItem")
		return li, errors.InternalServerError("")
	}
	if len(li.ListItemID) == 0 {
		// List item not available
		return li, errors.NotFound("List item not found")
	}
	return li, nil
}

func (r repository) UpdateListItems(ctx context.Context, logger log.Logger, listID string, updates []entity.UpdateListItem) error {
	keys := make([]string, len(updates))
	for i, u := range updates {
		keys[i] = listItemKey(u.ListItemID)
	}
	txf := func(tx *redis.Tx) error {
		// Every list item has to exist and belong to listID, otherwise nothing is written
		for _, key := range keys {
			owner, dberr := tx.HGet(ctx, key, "list_id").Result()
			if dberr == redis.Nil || (dberr == nil && owner != listID) {
				return errors.NotFound("List item not found")
			} else if dberr != nil {
				return dberr
			}
		}
		_, dberr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, u := range updates {
				if fields := u.Fields(); len(fields) > 0 {
					pipe.HSet(ctx, keys[i], fields)
				}
			}
			return nil
		})
		return dberr
	}
	if txferr := r.db.Watch(ctx, txf, keys...); txferr != nil {
		if resp, ok := txferr.(errors.ErrorResponse); ok {
			return resp
		}
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in UpdateListItems transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetListItems(ctx context.Context, logger log.Logger, listID string) ([]entity.ListItem, error) {
	listItems := []entity.ListItem{}
	ids, dberr := r.db.Client().ZRange(ctx, listItemsKey(listID), 0, -1).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.ZRange() in item.GetListItems")
		return listItems, errors.InternalServerError("")
	}
	if len(ids) == 0 {
		return listItems, nil
	}
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	if _, dberr := r.db.Client().Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, listItemKey(id))
		}
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Pipelined() in item.GetListItems")
		return listItems, errors.InternalServerError("")
	}
	for _, cmd := range cmds {
		var li entity.ListItem
		if dberr := cmd.Scan(&li); dberr != nil {
			logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of Scan() in item.GetListItems")
			return listItems, errors.InternalServerError("")
		}
		if li.ListItemID != "" {
			listItems = append(listItems, li)
		}
	}
	return listItems, nil
}
