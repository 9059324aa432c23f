package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/score"
	"github.com/skillloop/skillloop-server/internal/store"
)

// UserService handles member profile operations.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService { return &UserService{store: s} }

func (s *UserService) CreateUser(ctx context.Context, u *model.Entity) (*model.Entity, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Stage == "" {
		u.Stage = model.StageCustomer
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Fingerprint = score.Fingerprint(u.Email, u.Phone, u.Name)
	return s.store.Users().Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.Entity, error) {
	return s.store.Users().Get(ctx, id)
}
