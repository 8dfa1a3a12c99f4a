package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"farmDirect/business/policy"
	"farmDirect/domain"
	"farmDirect/pkg/logger"
	"farmDirect/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// UserRepository contract interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindAll(ctx context.Context, limit int) ([]domain.User, error)
	Update(ctx context.Context, id uint, update domain.UserUpdate) error
	Delete(ctx context.Context, id uint) error
}

// SessionRepository contract interface
type SessionRepository interface {
	Store(ctx context.Context, session domain.Session, ipAddress, userAgent string) error
	Delete(ctx context.Context, session domain.Session) error
	DeleteAllForUser(ctx context.Context, userID uint) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateJWT(userID, role string) (string, time.Time, error)
}

type userService struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	tokens      TokenIssuer
	validate    *validator.Validate
}

func NewUserService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	tokens TokenIssuer,
	validate *validator.Validate,
) *userService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		validate:    validate,
	}
}

func (s *userService) Register(ctx context.Context, input domain.Registration) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when register")
		return domain.User{}, fmt.Errorf("context error: %w", err)
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)

	if input.Name == "" {
		return domain.User{}, domain.Validation("name is required")
	}

	if err := s.validate.Var(input.Email, "required,email"); err != nil {
		logger.Warn("invalid email format", err)
		return domain.User{}, domain.Validation("invalid email format")
	}

	if err := s.validate.Var(input.Password, "required,min=6"); err != nil {
		logger.Warn("invalid user password", err)
		return domain.User{}, domain.Validation("password must be at least 6 characters")
	}

	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	switch {
	case err == nil && existing.ID > 0:
		return domain.User{}, domain.Conflict("email already registered")
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		logger.Error("failed to look up email", err)
		return domain.User{}, err
	}

	passwordHash, err := utils.HashPassword(input.Password)
	if err != nil {
		logger.Error("failed to hash password", err)
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := domain.User{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    strings.TrimSpace(input.Phone),
		Password: string(passwordHash),
		Role:     domain.SignupRole(input.Role),
		Location: input.Location,
		Address:  input.Address,
	}
	if newUser.Role == domain.RoleFarmer {
		newUser.FarmName = input.FarmName
	}

	// The unique index still decides races between two registrations.
	if err := s.userRepo.Create(ctx, &newUser); err != nil {
		logger.Error("failed to create new user", err)
		return domain.User{}, err
	}

	logger.Info("user registered", "user_id", newUser.ID, "role", newUser.Role)

	newUser.Password = ""
	return newUser, nil
}

// Login checks the credentials and opens a session for the returned token.
func (s *userService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (domain.Session, domain.User, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when login")
		return domain.Session{}, domain.User{}, fmt.Errorf("context error: %w", err)
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.User{}, domain.Unauthorized("invalid email or password")
		}
		logger.Error("failed to find user for login", err)
		return domain.Session{}, domain.User{}, err
	}

	if !utils.CheckPassword(password, user.Password) {
		logger.Warn("user password incorrect", "user_id", user.ID)
		return domain.Session{}, domain.User{}, domain.Unauthorized("invalid email or password")
	}

	token, expiresAt, err := s.tokens.GenerateJWT(strconv.FormatUint(uint64(user.ID), 10), string(user.Role))
	if err != nil {
		logger.Error("failed to generate token", err)
		return domain.Session{}, domain.User{}, fmt.Errorf("failed to generate token: %w", err)
	}

	session := domain.Session{
		UserID:    user.ID,
		Role:      user.Role,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	if err := s.sessionRepo.Store(ctx, session, ipAddress, userAgent); err != nil {
		logger.Error("failed to store session", err)
		return domain.Session{}, domain.User{}, err
	}

	user.Password = ""
	return session, user, nil
}

func (s *userService) Logout(ctx context.Context, session domain.Session) error {
	if err := s.sessionRepo.Delete(ctx, session); err != nil {
		logger.Error("failed to delete session", err)
		return err
	}

	return nil
}

// Me returns the account behind the session.
func (s *userService) Me(ctx context.Context, session domain.Session) (domain.User, error) {
	if err := policy.Authorize(session, policy.ViewOwnProfile, policy.Owned(session.UserID)); err != nil {
		return domain.User{}, err
	}

	return s.GetUserByID(ctx, session.UserID)
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to get user by id", err)
		return domain.User{}, err
	}

	user.Password = ""
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, session domain.Session, limit int) ([]domain.User, error) {
	if err := policy.Authorize(session, policy.ManageUsers, nil); err != nil {
		return nil, err
	}

	if limit < 0 {
		return nil, domain.Validation("limit must not be negative")
	}

	users, err := s.userRepo.FindAll(ctx, limit)
	if err != nil {
		logger.Error("failed to get all users", err)
		return nil, err
	}

	for i := range users {
		users[i].Password = ""
	}

	return users, nil
}

func (s *userService) GetUser(ctx context.Context, session domain.Session, id uint) (domain.User, error) {
	if err := policy.Authorize(session, policy.ManageUsers, nil); err != nil {
		return domain.User{}, err
	}

	return s.GetUserByID(ctx, id)
}

// UpdateUser applies an admin edit. A role change revokes the user's open
// sessions so the next request sees the new role.
func (s *userService) UpdateUser(ctx context.Context, session domain.Session, id uint, update domain.UserUpdate) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when updating user")
		return domain.User{}, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ManageUsers, nil); err != nil {
		return domain.User{}, err
	}

	existing, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return domain.User{}, domain.Validation("name must not be empty")
		}
		update.Name = &trimmed
	}

	if update.Email != nil {
		if err := s.validate.Var(*update.Email, "required,email"); err != nil {
			return domain.User{}, domain.Validation("invalid email format")
		}

		other, err := s.userRepo.FindByEmail(ctx, *update.Email)
		if err == nil && other.ID != id {
			return domain.User{}, domain.Conflict("email already registered")
		}
	}

	if update.Role != nil {
		role := domain.Role(strings.ToUpper(string(*update.Role)))
		if !role.Valid() {
			return domain.User{}, domain.Validation("invalid role")
		}
		update.Role = &role
	}

	if err := s.userRepo.Update(ctx, id, update); err != nil {
		logger.Error("failed to update user", err)
		return domain.User{}, err
	}

	if update.Role != nil && *update.Role != existing.Role {
		if err := s.sessionRepo.DeleteAllForUser(ctx, id); err != nil {
			logger.Warn("failed to revoke sessions after role change", "user_id", id, err)
		}
	}

	return s.GetUserByID(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, session domain.Session, id uint) error {
	if err := policy.Authorize(session, policy.ManageUsers, nil); err != nil {
		return err
	}

	if id == session.UserID {
		return domain.Conflict("cannot delete your own account")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete user", err)
		return err
	}

	if err := s.sessionRepo.DeleteAllForUser(ctx, id); err != nil {
		logger.Warn("failed to revoke sessions of deleted user", "user_id", id, err)
	}

	logger.Info("user deleted", "user_id", id)

	return nil
}
