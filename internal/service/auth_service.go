package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"qbank-service/internal/logger"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
	"qbank-service/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrAdminLogin         = errors.New("admin accounts must use the admin login")
	ErrNotAdmin           = errors.New("not an admin account")
)

type AuthService struct {
	Users *repository.UserRepository
	log   *logger.Logger
}

func NewAuthService(users *repository.UserRepository, log *logger.Logger) *AuthService {
	return &AuthService{Users: users, log: log.With("service", "auth")}
}

func (s *AuthService) Signup(ctx context.Context, req *models.SignupRequest) (*models.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: string(hash),
		Role:         "student",
		IsActive:     true,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("user signed up", "user_id", user.ID, "email", email)
	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if user.Role == "admin" {
		return nil, ErrAdminLogin
	}
	return s.finishLogin(ctx, user)
}

func (s *AuthService) AdminLogin(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if user.Role != "admin" {
		return nil, ErrNotAdmin
	}
	return s.finishLogin(ctx, user)
}

func (s *AuthService) authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) finishLogin(ctx context.Context, user *models.User) (*models.LoginResult, error) {
	if err := s.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}
	s.log.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *models.User) (*models.LoginResult, error) {
	token, err := utils.GenerateJWT(strconv.FormatInt(user.ID, 10), user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &models.LoginResult{Token: token, User: user}, nil
}

// SeedAdmin ensures the configured admin account exists, by email.
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if username == "" {
		username = "admin"
	}
	return s.Users.UpsertAdmin(ctx, username, strings.ToLower(email), string(hash))
}
