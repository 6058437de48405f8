package services

import (
	"context"

	"github.com/snapcal/apiserver/types"
)

// GoalStore defines the persistence operations UserService needs.
type GoalStore interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	SetGoal(ctx context.Context, id string, goal *string) (types.User, error)
}

// UserService encapsulates profile use-cases for an authenticated user.
type UserService struct {
	users GoalStore
}

func NewUserService(users GoalStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

// SetGoal overwrites the user's dietary goal. An empty goal clears it.
// Setting the same goal twice is idempotent.
func (s *UserService) SetGoal(ctx context.Context, userID, goal string) (types.User, error) {
	var value *string
	if goal != "" {
		value = &goal
	}
	return s.users.SetGoal(ctx, userID, value)
}
