package service

import (
	"context"
	"fmt"

	"earnapp/events"
	"earnapp/models"
)

// UserService manages account lifecycle and referral linkage
type UserService interface {
	// GetOrCreateUser returns the existing account or lazily creates one
	// with zeroed counters. referredBy is stored as invited_by on creation
	// unless it equals userID (self-referral is ignored). Idempotent.
	GetOrCreateUser(ctx context.Context, userID int64, referredBy *int64) (*models.User, error)

	// ConfirmReferral links userID to referrerID and credits the referrer's
	// invited_friends count. No-op on self-referral, an already-linked
	// account, or a missing referrer.
	ConfirmReferral(ctx context.Context, userID, referrerID int64) error
}

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory) UserService {
	return &userService{uowFactory: uowFactory}
}

func (s *userService) GetOrCreateUser(ctx context.Context, userID int64, referredBy *int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	// User exists, return it untouched
	if user != nil {
		return user, nil
	}

	// A user cannot refer themselves
	if referredBy != nil && *referredBy == userID {
		referredBy = nil
	}

	user, err = uow.UserRepository().Create(ctx, userID, referredBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		UserID:    userID,
		InvitedBy: referredBy,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

func (s *userService) ConfirmReferral(ctx context.Context, userID, referrerID int64) error {
	if userID == referrerID {
		return nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	referrer, err := uow.UserRepository().GetByID(ctx, referrerID)
	if err != nil {
		return fmt.Errorf("failed to check referrer: %w", err)
	}
	if referrer == nil {
		return nil
	}

	// The link is written conditionally; a second confirmation or a
	// pre-existing link leaves everything unchanged.
	linked, err := uow.UserRepository().SetInvitedBy(ctx, userID, referrerID)
	if err != nil {
		return fmt.Errorf("failed to link referral: %w", err)
	}
	if !linked {
		return nil
	}

	if err := uow.UserRepository().IncrementInvitedFriends(ctx, referrerID); err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
