package service

import (
	"context"
	"log/slog"
	"strings"

	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/repository"
	"onebatch/internal/validation"
	"onebatch/internal/workflow"

	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthService owns local accounts: registration, login and claiming a handle.
type AuthService struct {
	users     repository.UserRepository
	jwtSecret string
	now       workflow.Clock
}

func NewAuthService(users repository.UserRepository, jwtSecret string, clock workflow.Clock) *AuthService {
	if clock == nil {
		clock = workflow.SystemClock
	}
	return &AuthService{users: users, jwtSecret: jwtSecret, now: clock}
}

// Register creates an account. With a username the handle is claimed
// immediately; with only an email the account is provisional and named by the address.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, models.NewConflictError("an account with that email already exists")
		}
	}

	user := &models.User{Email: email}
	switch {
	case strings.TrimSpace(in.Username) != "":
		name := validation.NormalizeHandle(in.Username)
		if err := validation.ValidateHandle(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = name
	case email != "":
		user.Name = email
	default:
		return nil, models.NewValidationError("Username or email is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.Password = string(hashed)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.Bool("provisional", user.IsProvisional()),
	)
	return user, nil
}

// Login checks credentials and issues a bearer token. The identifier is a
// handle, or the email address of a provisional account.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	name := validation.NormalizeHandle(identifier)
	if name == "" || password == "" {
		return nil, "", models.NewValidationError("Username and password are required")
	}

	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, "", models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", models.NewUnauthorizedError("Invalid credentials")
	}

	token, err := s.Token(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Token issues a bearer token for user.
func (s *AuthService) Token(user *models.User) (string, error) {
	token, err := middleware.GenerateToken(s.jwtSecret, user.ID, user.Name, s.now())
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// ClaimHandle replaces a provisional identity with a chosen handle.
func (s *AuthService) ClaimHandle(ctx context.Context, viewer *models.User, handle string) (*models.User, error) {
	if viewer == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !viewer.IsProvisional() {
		return nil, models.NewInvalidStateError("you already chose a username")
	}
	name := validation.NormalizeHandle(handle)
	if err := validation.ValidateHandle(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.users.Rename(ctx, viewer.ID, name); err != nil {
		return nil, err
	}
	viewer.Name = name
	return viewer, nil
}
