package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"eventmanager/models"
	"eventmanager/utils"
)

type SignupInput struct {
	Username  string      `json:"username" validate:"required,min=3,max=50"`
	Email     string      `json:"email" validate:"required,email,max=255"`
	Password  string      `json:"password" validate:"required,min=6,max=72"`
	FirstName string      `json:"firstName" validate:"max=100"`
	LastName  string      `json:"lastName" validate:"max=100"`
	Role      models.Role `json:"role"`
}

// LoginInput accepts either usernameOrEmail or the shorter username key.
type LoginInput struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required_without=Username"`
	Username        string `json:"username"`
	Password        string `json:"password" validate:"required"`
}

func (in LoginInput) login() string {
	if s := strings.TrimSpace(in.UsernameOrEmail); s != "" {
		return s
	}
	return strings.TrimSpace(in.Username)
}

type UserInfo struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}

func userInfo(u models.User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     []string{string(u.Role)},
	}
}

type AuthService struct {
	users      models.UserRepository
	tokens     *utils.JWTManager
	bcryptCost int
	validate   *validator.Validate
	logger     zerolog.Logger
}

func NewAuthService(users models.UserRepository, tokens *utils.JWTManager, bcryptCost int, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		validate:   newValidator(),
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// Signup creates a USER or ORGANIZER account. ADMIN accounts only come from
// BootstrapAdmin.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validate.Struct(in); err != nil {
		return models.User{}, validationError(err)
	}

	role := models.Role(strings.ToUpper(string(in.Role)))
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleOrganizer:
	default:
		return models.User{}, Validation("role must be USER or ORGANIZER.")
	}

	if taken, err := s.users.ExistsByUsername(ctx, in.Username); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, Conflict(msgUsernameTaken)
	}
	if taken, err := s.users.ExistsByEmail(ctx, in.Email); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, Conflict(msgEmailTaken)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
	}
	if err := s.createUser(ctx, &u); err != nil {
		return models.User{}, err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("user signed up")
	return u, nil
}

func (s *AuthService) createUser(ctx context.Context, u *models.User) error {
	err := s.users.Create(ctx, u)
	switch {
	case errors.Is(err, models.ErrDuplicateUsername):
		return Conflict(msgUsernameTaken)
	case errors.Is(err, models.ErrDuplicateEmail):
		return Conflict(msgEmailTaken)
	}
	return err
}

// Login verifies credentials and returns the user with a signed token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (UserInfo, string, error) {
	if err := s.validate.Struct(in); err != nil {
		return UserInfo{}, "", validationError(err)
	}

	u, err := s.users.GetByLogin(ctx, in.login())
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Debug().Msg("login rejected: unknown user")
		return UserInfo{}, "", Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return UserInfo{}, "", err
	}
	if !utils.CheckPasswordHash(in.Password, u.PasswordHash) {
		s.logger.Debug().Int64("user_id", u.ID).Msg("login rejected: bad password")
		return UserInfo{}, "", Unauthorized(msgBadCredentials)
	}

	token, err := s.tokens.Generate(u.ID, u.Username, string(u.Role))
	if err != nil {
		return UserInfo{}, "", fmt.Errorf("generate token: %w", err)
	}
	return userInfo(u), token, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (UserInfo, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return UserInfo{}, NotFound(msgUserNotFound)
	}
	if err != nil {
		return UserInfo{}, err
	}
	return userInfo(u), nil
}

// BootstrapAdmin creates the ADMIN account if neither its username nor its
// email is in use yet. It reports whether an account was created.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil || taken {
		return false, err
	}
	if taken, err := s.users.ExistsByEmail(ctx, email); err != nil || taken {
		return false, err
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{Username: username, Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) || errors.Is(err, models.ErrDuplicateEmail) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info().Int64("user_id", u.ID).Str("username", username).Msg("admin account created")
	return true, nil
}
