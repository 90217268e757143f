// Service layer of the internal package user.

package user

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// Service layer of internal package user which encapsulates User registration and lookup in Wanna.
type Service interface {
	// Registers a new user, the auth token becomes its identity.
	CreateUser(ctx context.Context, creds entity.Credentials) (entity.User, error)
	// Fetches User Data based on the auth token.
	FindUserByAuth(ctx context.Context, auth string) (entity.User, error)
	// Changes names and push tokens of the user owning auth.
	UpdateUser(ctx context.Context, auth string, update entity.UpdateUser) (entity.User, error)
}

// Object of this will be passed around from main to the realtime gateway.
// Helps to access the service layer interface and call methods.
type service struct {
	userRepo Repository
	logger   log.Logger
}

func NewService(userRepo Repository, logger log.Logger) Service {
	return service{userRepo, logger}
}

func (s service) CreateUser(ctx context.Context, creds entity.Credentials) (entity.User, error) {
	if _, valerr := govalidator.ValidateStruct(creds); valerr != nil {
		valerr := valerr.(govalidator.Errors).Errors()
		return entity.User{}, errors.GenerateValidationErrorResponse(valerr)
	}
	user := entity.User{
		UID:             creds.UID,
		Names:           strings.TrimSpace(creds.Names),
		Auth:            creds.Auth,
		ExpoPushToken:   creds.ExpoPushToken,
		DevicePushToken: creds.DevicePushToken,
		Created:         time.Now().UnixMilli(),
	}
	if dberr := s.userRepo.SetUser(ctx, s.logger, user); dberr != nil {
		// Error occured in SetUser()
		return entity.User{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Str("uid", user.UID).Msg("Registered new user")
	return user, nil
}

func (s service) FindUserByAuth(ctx context.Context, auth string) (entity.User, error) {
	if strings.TrimSpace(auth) == "" {
		return entity.User{}, errors.InvalidCredential("Missing auth token")
	}
	return s.userRepo.GetUser(ctx, s.logger, auth)
}

func (s service) UpdateUser(ctx context.Context, auth string, update entity.UpdateUser) (entity.User, error) {
	if strings.TrimSpace(auth) == "" {
		return entity.User{}, errors.InvalidCredential("Missing auth token")
	}
	if valerr := update.Validate(); len(valerr) > 0 {
		return entity.User{}, errors.GenerateValidationErrorResponse(valerr)
	}
	user, dberr := s.userRepo.UpdateUser(ctx, s.logger, auth, update.Fields())
	if dberr != nil {
		if errors.KindOf(dberr) == errors.NotFoundKind {
			return entity.User{}, errors.InvalidCredential("Invalid auth token")
		}
		// Error occured in UpdateUser()
		return entity.User{}, dberr
	}
	s.logger.WithCtx(ctx).Info().Str("uid", user.UID).Msg("Updated user profile")
	return user, nil
}
