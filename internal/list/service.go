// Service layer of the internal package list.

package list

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/internal/user"
	"Wanna/pkg/log"
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// ListItemSource returns the items placed on a list, implemented by the item repository.
type ListItemSource interface {
	GetListItems(ctx context.Context, logger log.Logger, listID string) ([]entity.ListItem, error)
}

// Service layer of internal package list which encapsulates list CRUD and membership logic of Wanna.
type Service interface {
	// Creates a list owned by the user with auth.
	CreateList(ctx context.Context, auth string, create entity.CreateList) (entity.List, error)
	// Applies a partial update to a list the user is a member of.
	UpdateList(ctx context.Context, auth, listID string, update entity.UpdateList) (entity.List, error)
	// Current state of a list with its members and items.
	GetListSnapshot(ctx context.Context, listID string) (entity.ListSnapshot, error)
	// Public view of a list, anyone with the share id can see it.
	FindListByShareID(ctx context.Context, shareID string) (entity.ListView, error)
	// Makes the user a member of the list shared under shareID, joining twice is harmless.
	JoinList(ctx context.Context, auth, shareID string) (entity.Membership, error)
	// Removes the user from the list members.
	LeaveList(ctx context.Context, auth, listID string) (entity.Membership, error)
	// Resolves auth into a user and checks the user belongs to the list.
	AuthorizeMember(ctx context.Context, auth, listID string) (entity.User, error)
	// Auth tokens of every member of the list behind key.
	SubscribersOf(ctx context.Context, key entity.ResourceKey) ([]string, error)
}

// Object of this will be passed around from main to the realtime gateway.
// Helps to access the service layer interface and call methods.
type service struct {
	listRepo Repository
	userRepo user.Repository
	items    ListItemSource
	logger   log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(listRepo Repository, userRepo user.Repository, items ListItemSource, logger log.Logger) Service {
	return service{listRepo, userRepo, items, logger}
}

func (s service) CreateList(ctx context.Context, auth string, create entity.CreateList) (entity.List, error) {
	if _, valerr := govalidator.ValidateStruct(create); valerr != nil {
		valerr := valerr.(govalidator.Errors).Errors()
		return entity.List{}, errors.GenerateValidationErrorResponse(valerr)
	}
	owner, err := s.resolveUser(ctx, auth)
	if err != nil {
		return entity.List{}, err
	}

	now := time.Now().UnixMilli()
	list := entity.List{
		ListID:                  create.ListID,
		ShareID:                 create.ShareID,
		Name:                    strings.TrimSpace(create.Name),
		Type:                    create.Type,
		Deadline:                create.Deadline,
		NotifyOnListShared:      create.NotifyOnListShared,
		NotifyOnListItemsUpdate: create.NotifyOnListItemsUpdate,
		NotifyOnItemStateUpdate: create.NotifyOnItemStateUpdate,
		Created:                 now,
		Updated:                 now,
	}
	if list.ListID == "" {
		list.ListID = uuid.NewString()
	}
	if list.ShareID == "" {
		list.ShareID = xid.New().String()
	}

	if dberr := s.listRepo.SetList(ctx, s.logger, list, owner.UID); dberr != nil {
		// Error occured in SetList()
		return entity.List{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Str("listId", list.ListID).Str("uid", owner.UID).Msg("Created list")
	return list, nil
}

func (s service) UpdateList(ctx context.Context, auth, listID string, update entity.UpdateList) (entity.List, error) {
	if valerr := update.Validate(); len(valerr) > 0 {
		return entity.List{}, errors.GenerateValidationErrorResponse(valerr)
	}
	if _, err := s.AuthorizeMember(ctx, auth, listID); err != nil {
		return entity.List{}, err
	}
	return s.listRepo.UpdateList(ctx, s.logger, listID, update.Fields())
}

func (s service) GetListSnapshot(ctx context.Context, listID string) (entity.ListSnapshot, error) {
	list, dberr := s.listRepo.GetList(ctx, s.logger, listID)
	if dberr != nil {
		// Error occured in GetList()
		return entity.ListSnapshot{}, dberr
	}
	uids, dberr := s.listRepo.GetMembers(ctx, s.logger, listID)
	if dberr != nil {
		return entity.ListSnapshot{}, dberr
	}
	users, dberr := s.userRepo.GetUsersByUID(ctx, s.logger, uids)
	if dberr != nil {
		return entity.ListSnapshot{}, dberr
	}
	listItems, dberr := s.items.GetListItems(ctx, s.logger, listID)
	if dberr != nil {
		return entity.ListSnapshot{}, dberr
	}

	snapshot := entity.ListSnapshot{List: list, Users: []entity.Member{}, ListItems: []entity.ListItem{}}
	for _, u := range users {
		snapshot.Users = append(snapshot.Users, entity.Member{UID: u.UID, Names: u.Names})
	}
	for _, li := range listItems {
		if !li.Deleted {
			snapshot.ListItems = append(snapshot.ListItems, li)
		}
	}
	return snapshot, nil
}

func (s service) FindListByShareID(ctx context.Context, shareID string) (entity.ListView, error) {
	if strings.TrimSpace(shareID) == "" {
		return entity.ListView{}, errors.ValidationFailed("Share ID is required")
	}
	listID, dberr := s.listRepo.GetListIDByShareID(ctx, s.logger, shareID)
	if dberr != nil {
		// Error occured in GetListIDByShareID()
		return entity.ListView{}, dberr
	}
	list, dberr := s.listRepo.GetList(ctx, s.logger, listID)
	if dberr != nil {
		return entity.ListView{}, dberr
	}
	return list.View(), nil
}

func (s service) JoinList(ctx context.Context, auth, shareID string) (entity.Membership, error) {
	if strings.TrimSpace(shareID) == "" {
		return entity.Membership{}, errors.ValidationFailed("Share ID is required")
	}
	member, err := s.resolveUser(ctx, auth)
	if err != nil {
		return entity.Membership{}, err
	}
	listID, dberr := s.listRepo.GetListIDByShareID(ctx, s.logger, shareID)
	if dberr != nil {
		return entity.Membership{}, dberr
	}
	added, dberr := s.listRepo.AddMember(ctx, s.logger, listID, member.UID)
	if dberr != nil {
		// Error occured in AddMember()
		return entity.Membership{}, dberr
	}
	if added {
		s.logger.WithCtx(ctx).Info().Str("listId", listID).Str("uid", member.UID).Msg("User joined list")
	}
	return entity.Membership{UID: member.UID, ListID: listID}, nil
}

func (s service) LeaveList(ctx context.Context, auth, listID string) (entity.Membership, error) {
	member, err := s.AuthorizeMember(ctx, auth, listID)
	if err != nil {
		return entity.Membership{}, err
	}
	if _, dberr := s.listRepo.RemoveMember(ctx, s.logger, listID, member.UID); dberr != nil {
		// Error occured in RemoveMember()
		return entity.Membership{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Str("listId", listID).Str("uid", member.UID).Msg("User left list")
	return entity.Membership{UID: member.UID, ListID: listID}, nil
}

func (s service) AuthorizeMember(ctx context.Context, auth, listID string) (entity.User, error) {
	if strings.TrimSpace(listID) == "" {
		return entity.User{}, errors.ValidationFailed("List ID is required")
	}
	member, err := s.resolveUser(ctx, auth)
	if err != nil {
		return entity.User{}, err
	}
	available, dberr := s.listRepo.HasList(ctx, s.logger, listID)
	if dberr != nil {
		return entity.User{}, dberr
	} else if !available {
		return entity.User{}, errors.NotFound("List not found")
	}
	isMember, dberr := s.listRepo.IsMember(ctx, s.logger, listID, member.UID)
	if dberr != nil {
		return entity.User{}, dberr
	} else if !isMember {
		return entity.User{}, errors.AccessDenied("")
	}
	return member, nil
}

func (s service) SubscribersOf(ctx context.Context, key entity.ResourceKey) ([]string, error) {
	listID, ok := key.ListID()
	if !ok {
		return nil, errors.ValidationFailed("Unknown resource " + string(key))
	}
	uids, dberr := s.listRepo.GetMembers(ctx, s.logger, listID)
	if dberr != nil {
		return nil, dberr
	}
	users, dberr := s.userRepo.GetUsersByUID(ctx, s.logger, uids)
	if dberr != nil {
		return nil, dberr
	}
	auths := make([]string, 0, len(users))
	for _, u := range users {
		auths = append(auths, u.Auth)
	}
	return auths, nil
}

// Helper to resolve the identity bound to a connection into its user.
func (s service) resolveUser(ctx context.Context, auth string) (entity.User, error) {
	if strings.TrimSpace(auth) == "" {
		return entity.User{}, errors.AuthenticationRequired("")
	}
	u, dberr := s.userRepo.GetUser(ctx, s.logger, auth)
	if errors.KindOf(dberr) == errors.NotFoundKind {
		return entity.User{}, errors.InvalidCredential("Invalid auth token")
	} else if dberr != nil {
		return entity.User{}, dberr
	}
	return u, nil
}
