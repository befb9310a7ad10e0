package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Totarae/LearningLog/internal/model"
	"go.uber.org/zap"
)

//go:generate mockgen -source=journal.go -destination=mocks/mock_repository.go -package=mocks

// ErrNotFound возвращается, когда запись отсутствует или принадлежит
// другому пользователю. Обработчики отвечают на неё страницей 404.
var ErrNotFound = model.ErrNotFound

// Repository — хранилище пользователей, тем и записей.
// Реализации: repositories.JournalRepository (PostgreSQL),
// repositories.SQLiteRepository и storage.Store (память/файл).
type Repository interface {
	UserRepository

	CreateTopic(ctx context.Context, t *model.Topic) error
	GetTopic(ctx context.Context, id int64) (*model.Topic, error)
	ListTopicsByOwner(ctx context.Context, ownerID string) ([]*model.Topic, error)
	LastTopicByOwner(ctx context.Context, ownerID string) (*model.Topic, error)

	CreateEntry(ctx context.Context, e *model.Entry) error
	GetEntry(ctx context.Context, id int64) (*model.Entry, error)
	ListEntriesByTopic(ctx context.Context, topicID int64) ([]*model.Entry, error)
	UpdateEntry(ctx context.Context, e *model.Entry) error
	DeleteEntry(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

// UserRepository — часть хранилища, нужная учётным записям.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// JournalService реализует операции с темами и записями.
// Каждая операция проверяет, что пользователь владеет темой.
type JournalService struct {
	Repo   Repository
	Logger *zap.Logger
}

func NewJournalService(repo Repository, logger *zap.Logger) *JournalService {
	return &JournalService{Repo: repo, Logger: logger}
}

// Topics возвращает темы пользователя в порядке создания.
func (s *JournalService) Topics(ctx context.Context, ownerID string) ([]*model.Topic, error) {
	topics, err := s.Repo.ListTopicsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// OwnedTopic возвращает тему, если она принадлежит ownerID.
func (s *JournalService) OwnedTopic(ctx context.Context, ownerID string, topicID int64) (*model.Topic, error) {
	topic, err := s.Repo.GetTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get topic: %w", err)
	}
	if !topic.OwnedBy(ownerID) {
		s.Logger.Warn("topic access denied",
			zap.Int64("topic_id", topicID),
			zap.String("user_id", ownerID))
		return nil, ErrNotFound
	}
	return topic, nil
}

// Topic возвращает тему и её записи, новые первыми.
func (s *JournalService) Topic(ctx context.Context, ownerID string, topicID int64) (*model.Topic, []*model.Entry, error) {
	topic, err := s.OwnedTopic(ctx, ownerID, topicID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.Repo.ListEntriesByTopic(ctx, topic.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list entries: %w", err)
	}
	return topic, entries, nil
}

// CreateTopic создаёт тему от имени ownerID.
func (s *JournalService) CreateTopic(ctx context.Context, ownerID, text string) (*model.Topic, error) {
	topic := &model.Topic{Text: text, OwnerID: ownerID}
	if err := s.Repo.CreateTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	s.Logger.Info("topic created", zap.Int64("topic_id", topic.ID), zap.String("user_id", ownerID))
	return topic, nil
}

// LatestTopic возвращает последнюю созданную пользователем тему
// (для страницы подтверждения).
func (s *JournalService) LatestTopic(ctx context.Context, ownerID string) (*model.Topic, error) {
	topic, err := s.Repo.LastTopicByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("last topic: %w", err)
	}
	return topic, nil
}

// CreateEntry добавляет запись в тему пользователя.
func (s *JournalService) CreateEntry(ctx context.Context, ownerID string, topicID int64, text string) (*model.Entry, error) {
	topic, err := s.OwnedTopic(ctx, ownerID, topicID)
	if err != nil {
		return nil, err
	}
	entry := &model.Entry{TopicID: topic.ID, Text: text}
	if err := s.Repo.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

// OwnedEntry возвращает запись и её тему, если тема принадлежит ownerID.
func (s *JournalService) OwnedEntry(ctx context.Context, ownerID string, entryID int64) (*model.Entry, *model.Topic, error) {
	entry, err := s.Repo.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get entry: %w", err)
	}
	topic, err := s.OwnedTopic(ctx, ownerID, entry.TopicID)
	if err != nil {
		return nil, nil, err
	}
	return entry, topic, nil
}

// UpdateEntry меняет текст записи.
func (s *JournalService) UpdateEntry(ctx context.Context, ownerID string, entryID int64, text string) (*model.Entry, error) {
	entry, _, err := s.OwnedEntry(ctx, ownerID, entryID)
	if err != nil {
		return nil, err
	}
	entry.Text = text
	if err := s.Repo.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

// RemoveEntry удаляет запись и возвращает ID её темы.
func (s *JournalService) RemoveEntry(ctx context.Context, ownerID string, entryID int64) (int64, error) {
	entry, _, err := s.OwnedEntry(ctx, ownerID, entryID)
	if err != nil {
		return 0, err
	}
	if err := s.Repo.DeleteEntry(ctx, entry.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	s.Logger.Info("entry removed", zap.Int64("entry_id", entryID), zap.String("user_id", ownerID))
	return entry.TopicID, nil
}

// Ping проверяет доступность хранилища.
func (s *JournalService) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}
