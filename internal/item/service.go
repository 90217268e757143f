// Service layer of the internal package item.

package item

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// Membership checks that an identity belongs to a list, implemented by the list service.
type Membership interface {
	AuthorizeMember(ctx context.Context, auth, listID string) (entity.User, error)
}

// Service layer of internal package item which encapsulates Item and ListItem logic of Wanna.
type Service interface {
	// Creates an item and places it on the list, or places an existing public item when only its id is given.
	CreateItem(ctx context.Context, auth string, create entity.CreateItem) (entity.ItemResult, error)
	// Places an existing public item on the list.
	AddItemToList(ctx context.Context, auth, listID, itemID string) (entity.ItemResult, error)
	// Applies a partial update to one item of the list.
	UpdateListItem(ctx context.Context, auth, listID string, update entity.UpdateListItem) error
	// Applies partial updates to several items of the list at once.
	UpdateListItems(ctx context.Context, auth, listID string, updates []entity.UpdateListItem) error
	// Every public item which isn't deleted.
	FindPublicItems(ctx context.Context) ([]entity.Item, error)
}

// Object of this will be passed around from main to the realtime gateway and routers.
// Helps to access the service layer interface and call methods.
type service struct {
	itemRepo Repository
	members  Membership
	logger   log.Logger
}

func NewService(itemRepo Repository, members Membership, logger log.Logger) Service {
	return service{itemRepo, members, logger}
}

func (s service) CreateItem(ctx context.Context, auth string, create entity.CreateItem) (entity.ItemResult, error) {
	if _, valerr := govalidator.ValidateStruct(create); valerr != nil {
		valerr := valerr.(govalidator.Errors).Errors()
		return entity.ItemResult{}, errors.GenerateValidationErrorResponse(valerr)
	}
	if create.IsAddExisting() {
		return s.addExisting(ctx, auth, create)
	}
	create.Name = strings.TrimSpace(create.Name)
	if create.Name == "" {
		return entity.ItemResult{}, errors.GenerateValidationErrorResponse([]error{errors.New("name:Item name is required")})
	}
	if _, err := s.members.AuthorizeMember(ctx, auth, create.ListID); err != nil {
		return entity.ItemResult{}, err
	}

	// An existing item is reused as is, otherwise it gets created from the payload
	var item entity.Item
	var err error
	if create.ItemID != "" {
		item, err = s.itemRepo.GetItem(ctx, s.logger, create.ItemID)
		if err != nil && errors.KindOf(err) != errors.NotFoundKind {
			return entity.ItemResult{}, err
		}
	}
	if item.ItemID == "" {
		if create.ItemID == "" {
			create.ItemID = uuid.NewString()
		}
		item = create.Item()
		if dberr := s.itemRepo.SetItem(ctx, s.logger, item); dberr != nil {
			// Error occured in SetItem()
			return entity.ItemResult{}, dberr
		}
	}

	listItem := create.ListItem(item)
	// The name typed by the user wins over the catalogue name
	listItem.Name = create.Name
	return s.placeOnList(ctx, item, listItem)
}

func (s service) AddItemToList(ctx context.Context, auth, listID, itemID string) (entity.ItemResult, error) {
	return s.addExisting(ctx, auth, entity.CreateItem{ListID: listID, ItemID: itemID})
}

// addExisting places the public item create.ItemID on the list, keeping the list item
// properties of create (listItemId, quantity, deadline).
func (s service) addExisting(ctx context.Context, auth string, create entity.CreateItem) (entity.ItemResult, error) {
	if _, err := s.members.AuthorizeMember(ctx, auth, create.ListID); err != nil {
		return entity.ItemResult{}, err
	}
	item, dberr := s.itemRepo.GetItem(ctx, s.logger, create.ItemID)
	if dberr != nil {
		// Error occured in GetItem()
		return entity.ItemResult{}, dberr
	}
	if !item.Public || item.Deleted {
		return entity.ItemResult{}, errors.NotFound("Item not found")
	}
	return s.placeOnList(ctx, item, create.ListItem(item))
}

func (s service) UpdateListItem(ctx context.Context, auth, listID string, update entity.UpdateListItem) error {
	return s.UpdateListItems(ctx, auth, listID, []entity.UpdateListItem{update})
}

func (s service) UpdateListItems(ctx context.Context, auth, listID string, updates []entity.UpdateListItem) error {
	if len(updates) == 0 {
		return errors.ValidationFailed("No list items to update")
	}
	for _, u := range updates {
		if valerr := u.Validate(); len(valerr) > 0 {
			return errors.GenerateValidationErrorResponse(valerr)
		}
	}
	if _, err := s.members.AuthorizeMember(ctx, auth, listID); err != nil {
		return err
	}
	return s.itemRepo.UpdateListItems(ctx, s.logger, listID, updates)
}

func (s service) FindPublicItems(ctx context.Context) ([]entity.Item, error) {
	return s.itemRepo.GetPublicItems(ctx, s.logger)
}

// Helper to save a new list item of item.
func (s service) placeOnList(ctx context.Context, item entity.Item, listItem entity.ListItem) (entity.ItemResult, error) {
	if listItem.ListItemID == "" {
		listItem.ListItemID = uuid.NewString()
	}
	listItem.Created = time.Now().UnixMilli()
	if dberr := s.itemRepo.SetListItem(ctx, s.logger, listItem); dberr != nil {
		// Error occured in SetListItem()
		return entity.ItemResult{}, dberr
	}
	return entity.ItemResult{Item: item, ListItem: listItem}, nil
}
