package services

import (
	"context"
	"fmt"

	"moneycoach/internal/log"
)

type AccountService struct {
	store   AccountStore
	changes *Changes
	logger  *log.Logger
}

func NewAccountService(store AccountStore, changes *Changes, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Nop()
	}
	return &AccountService{store: store, changes: changes, logger: logger.WithComponent(log.ComponentApp)}
}

// DeleteData erases everything stored for the user and drops all of their
// cached views.
func (s *AccountService) DeleteData(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteUserData(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user data: %w", err)
	}
	s.changes.Notify(ctx, userID)
	return n, nil
}
