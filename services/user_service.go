package services

import (
	"errors"
	"net/mail"
	"time"

	"bugbase/apperrors"
	"bugbase/auth"
	"bugbase/models"
	"bugbase/repositories"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService is the credential service: registration, login, profile
// access and admin role management.
type UserService interface {
	Register(input *RegisterInput) (*UserResponse, error)
	Login(input *LoginInput) (*LoginResult, error)
	GetMe(callerID uint) (*UserResponse, error)
	UpdateRole(targetID uint, role models.Role) (*UserResponse, error)
	ListDevelopers() ([]UserResponse, error)
}

// --- Structs for Input/Output ---

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"` // optional, defaults to "user"
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the sanitized user projection; the password hash never
// leaves the service layer.
type UserResponse struct {
	ID        uint        `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type userService struct {
	repo repositories.UserRepository
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(repo repositories.UserRepository) UserService {
	return &userService{repo: repo}
}

// Register validates input, checks uniqueness of email and username,
// hashes the password and persists the new user.
func (s *userService) Register(input *RegisterInput) (*UserResponse, error) {
	if len(input.Username) < 4 {
		return nil, apperrors.Validation("username must be at least 4 characters")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, apperrors.Validation("invalid email address")
	}
	if len(input.Password) < 6 {
		return nil, apperrors.Validation("password must be at least 6 characters")
	}

	role := models.RoleUser
	if input.Role != "" {
		role = models.Role(input.Role)
		if !role.IsValid() {
			return nil, apperrors.Validation("invalid role")
		}
	}

	_, err := s.repo.FindByEmail(input.Email)
	if err == nil {
		return nil, apperrors.Conflict("user with the given email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("database error checking existing user", err)
	}

	_, err = s.repo.FindByUsername(input.Username)
	if err == nil {
		return nil, apperrors.Conflict("username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("database error checking existing user", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("could not hash password", err)
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.repo.Create(&user); err != nil {
		return nil, apperrors.Internal("failed to create user", err)
	}

	resp := mapUserToResponse(&user)
	return &resp, nil
}

// Login verifies the credentials and issues a signed token. Unknown email
// and wrong password return the identical message so accounts cannot be
// enumerated.
func (s *userService) Login(input *LoginInput) (*LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.repo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Auth("invalid email or password")
		}
		return nil, apperrors.Internal("database error retrieving user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, apperrors.Auth("invalid email or password")
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Internal("could not generate token", err)
	}

	return &LoginResult{Token: token, User: mapUserToResponse(user)}, nil
}

func (s *userService) GetMe(callerID uint) (*UserResponse, error) {
	user, err := s.repo.FindByID(callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("database error retrieving user", err)
	}
	resp := mapUserToResponse(user)
	return &resp, nil
}

// UpdateRole changes a user's role. Tokens issued before the change keep
// the old role until the user logs in again.
func (s *userService) UpdateRole(targetID uint, role models.Role) (*UserResponse, error) {
	if !role.IsValid() {
		return nil, apperrors.Validation("invalid role")
	}

	user, err := s.repo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("database error retrieving user", err)
	}

	user.Role = role
	if err := s.repo.Update(user); err != nil {
		return nil, apperrors.Internal("failed to update user role", err)
	}

	resp := mapUserToResponse(user)
	return &resp, nil
}

// ListDevelopers returns the dev-role users, used by admins when assigning
// bugs.
func (s *userService) ListDevelopers() ([]UserResponse, error) {
	devs, err := s.repo.FindByRole(models.RoleDev)
	if err != nil {
		return nil, apperrors.Internal("database error retrieving developers", err)
	}

	responses := make([]UserResponse, len(devs))
	for i := range devs {
		responses[i] = mapUserToResponse(&devs[i])
	}
	return responses, nil
}

func mapUserToResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
