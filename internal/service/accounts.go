package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Totarae/LearningLog/internal/auth"
	"github.com/Totarae/LearningLog/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// AccountService регистрирует и аутентифицирует пользователей.
type AccountService struct {
	Repo   UserRepository
	Logger *zap.Logger
}

func NewAccountService(repo UserRepository, logger *zap.Logger) *AccountService {
	return &AccountService{Repo: repo, Logger: logger}
}

// Register создаёт пользователя с bcrypt-хэшем пароля.
func (s *AccountService) Register(ctx context.Context, username, password string) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		DateJoined:   time.Now().UTC(),
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.Logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate проверяет имя и пароль. Для неизвестного имени и
// неверного пароля возвращается одна и та же ошибка.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// User возвращает пользователя по ID.
func (s *AccountService) User(ctx context.Context, id string) (*model.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
