package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/auth"
	"gem-backend/internal/logger"
	"gem-backend/internal/models"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

type UserService struct {
	Repo   UserStore
	Tokens TokenIssuer
}

func NewUserService(repo UserStore, tokens TokenIssuer) *UserService {
	return &UserService{
		Repo:   repo,
		Tokens: tokens,
	}
}

// Login verifies credentials and returns a signed token. Unknown emails and
// wrong passwords fail the same way.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.New(apperrors.KindUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, apperrors.New(apperrors.KindUnauthorized, "invalid email or password")
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.KindForbidden, "account suspended, contact your administrator")
	}

	token, err := s.Tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to sign token")
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// CreateUser adds a user to the caller's tenant. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor models.Actor, req *models.CreateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can create users")
	}
	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	if role != models.RoleStaff && role != models.RoleAdmin {
		return nil, apperrors.Validation("role must be admin or staff")
	}

	u, err := newUser(req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}
	u.OwnerID = actor.OwnerID
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns the users of the caller's tenant. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor models.Actor) ([]*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "admin access required")
	}
	return s.Repo.ListByOwner(ctx, actor.OwnerID)
}

// SetActive suspends or reactivates a user of the caller's tenant.
func (s *UserService) SetActive(ctx context.Context, actor models.Actor, userID uuid.UUID, active bool) error {
	if !actor.IsAdmin() {
		return apperrors.New(apperrors.KindForbidden, "admin access required")
	}
	if userID == actor.UserID && !active {
		return apperrors.Validation("you cannot suspend your own account")
	}
	return s.Repo.SetActive(ctx, actor.OwnerID, userID, active)
}

// Get returns a user by id; used by the auth middleware to re-check status.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

// EnsureAdmin creates the first admin of a new tenant when no user with
// that email exists yet.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !apperrors.Is(err, apperrors.KindNotFound) {
		return err
	}

	u, err := newUser(name, email, password, models.RoleAdmin)
	if err != nil {
		return err
	}
	u.OwnerID = u.ID
	if err := s.Repo.Create(ctx, u); err != nil {
		return err
	}
	logger.Log.Info("bootstrap admin created", zap.String("email", u.Email))
	return nil
}

func newUser(name, email, password, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.Validation("a valid email is required")
	}
	if len(password) < auth.MinPasswordLength {
		return nil, apperrors.Validation("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}
	return &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}, nil
}
