package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	"github.com/noah-isme/crs-api/pkg/config"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// UserService handles user management workflows.
type UserService struct {
	store     recordStore
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(store recordStore, notifier notifier, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{store: store, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// List returns every account ordered by email.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		users = append(users, tx.Users...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		u, ok := tx.User(id)
		if !ok {
			return userNotFound(id)
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create adds a new active user. Emails are unique ignoring case and a
// student account must point at an existing student.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := s.now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(passwordHash),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Role == models.RoleStudent {
		user.StudentID = req.StudentID
	}

	err = s.store.Transact(ctx, func(tx *repository.Tx) error {
		if _, ok := tx.UserByEmail(user.Email); ok {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, "email already exists")
		}
		if user.StudentID != "" {
			if _, ok := tx.Student(user.StudentID); !ok {
				return studentNotFound(user.StudentID)
			}
		}
		tx.Users = append(tx.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)), zap.String("actor_id", actorID))
	s.notifyAccount(ctx, models.NotifyAccountCreated, user)
	return &user, nil
}

// Update modifies the non-empty fields of the request.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		passwordHash = string(hash)
	}

	var user models.User
	err := s.store.Transact(ctx, func(tx *repository.Tx) error {
		u, ok := tx.User(id)
		if !ok {
			return userNotFound(id)
		}
		if req.Email != "" {
			email := strings.ToLower(strings.TrimSpace(req.Email))
			if other, ok := tx.UserByEmail(email); ok && other.ID != id {
				return appErrors.Clone(appErrors.ErrDuplicateEntry, "email already exists")
			}
			u.Email = email
		}
		if name := strings.TrimSpace(req.Name); name != "" {
			u.Name = name
		}
		if req.Role != "" {
			if req.Role == models.RoleStudent && u.StudentID == "" {
				return appErrors.Clone(appErrors.ErrValidation, "student accounts must be linked to a student")
			}
			u.Role = req.Role
		}
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
		u.UpdatedAt = s.now().UTC()
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", zap.String("user_id", id), zap.String("actor_id", actorID))
	s.notifyAccount(ctx, models.NotifyAccountUpdated, user)
	return &user, nil
}

// Deactivate disables sign-in for an account. Accounts are never removed.
func (s *UserService) Deactivate(ctx context.Context, id string, actorID string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}
	var user models.User
	err := s.store.Transact(ctx, func(tx *repository.Tx) error {
		u, ok := tx.User(id)
		if !ok {
			return userNotFound(id)
		}
		u.Active = false
		u.UpdatedAt = s.now().UTC()
		user = *u
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deactivated", zap.String("user_id", id), zap.String("actor_id", actorID))
	s.notifyAccount(ctx, models.NotifyAccountDeactivated, user)
	return nil
}

// EnsureAdmin creates the bootstrap administrator when no admin account
// exists yet. It is a no-op when the email or password is not configured.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		s.logger.Warn("admin bootstrap skipped: credentials not configured")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}

	created := false
	err = s.store.Transact(ctx, func(tx *repository.Tx) error {
		for _, u := range tx.Users {
			if u.Role == models.RoleAdmin && u.Active {
				return nil
			}
		}
		if _, ok := tx.UserByEmail(cfg.Email); ok {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("bootstrap email %s belongs to a non-admin account", cfg.Email))
		}
		now := s.now().UTC()
		tx.Users = append(tx.Users, models.User{
			ID:           uuid.NewString(),
			Name:         name,
			Email:        strings.ToLower(cfg.Email),
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		created = true
		return nil
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("bootstrap admin created", zap.String("email", cfg.Email))
	}
	return nil
}

func (s *UserService) notifyAccount(ctx context.Context, kind models.NotificationKind, u models.User) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, models.Notification{
		Recipient: u.Email,
		Kind:      kind,
		Fields: map[string]interface{}{
			"user_id": u.ID,
			"name":    u.Name,
			"role":    string(u.Role),
			"active":  u.Active,
		},
	})
	if err != nil {
		s.logger.Warn("failed to queue account notification", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func userNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("user %s not found", id))
}
