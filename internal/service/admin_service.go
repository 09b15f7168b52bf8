package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/repository"
	"github.com/noah-isme/crs-api/pkg/config"
)

type resettableStore interface {
	recordStore
	Reset(ctx context.Context) error
}

// AdminService runs maintenance operations on the whole data set.
type AdminService struct {
	store  resettableStore
	users  *UserService
	admin  config.AdminConfig
	logger *zap.Logger
}

// NewAdminService constructs AdminService.
func NewAdminService(store resettableStore, users *UserService, admin config.AdminConfig, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{store: store, users: users, admin: admin, logger: logger}
}

// ResetData deletes every stored record, reseeds, and recreates the
// bootstrap administrator so the API stays reachable.
func (s *AdminService) ResetData(ctx context.Context, actorID string) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warn("record store reset", zap.String("actor_id", actorID))
	return s.users.EnsureAdmin(ctx, s.admin)
}

// Ping reports whether the store can be read.
func (s *AdminService) Ping(ctx context.Context) error {
	return s.store.View(ctx, func(*repository.Tx) error { return nil })
}
