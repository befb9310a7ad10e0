package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Totarae/LearningLog/internal/model"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteRepository хранит данные в SQLite через gorm.
type SQLiteRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteRepository открывает (или создаёт) базу по пути path и мигрирует схему.
func NewSQLiteRepository(path string, log *zap.Logger) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	return newSQLiteRepository(db, log)
}

func newSQLiteRepository(db *gorm.DB, log *zap.Logger) (*SQLiteRepository, error) {
	if err := db.AutoMigrate(&model.User{}, &model.Topic{}, &model.Entry{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &SQLiteRepository{db: db, logger: log, now: time.Now}, nil
}

// Ping проверяет доступность базы данных.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает соединение.
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *model.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return model.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u := &model.User{}
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(u).Error; err != nil {
		return nil, gormNotFound(err, "select user")
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(u).Error; err != nil {
		return nil, gormNotFound(err, "select user")
	}
	return u, nil
}

func (r *SQLiteRepository) CreateTopic(ctx context.Context, t *model.Topic) error {
	t.DateAdded = r.now().UTC()
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTopic(ctx context.Context, id int64) (*model.Topic, error) {
	t := &model.Topic{}
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(t).Error; err != nil {
		return nil, gormNotFound(err, "select topic")
	}
	return t, nil
}

func (r *SQLiteRepository) ListTopicsByOwner(ctx context.Context, ownerID string) ([]*model.Topic, error) {
	var topics []*model.Topic
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("date_added ASC").Order("id ASC").
		Find(&topics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query topics by owner: %w", err)
	}
	return topics, nil
}

func (r *SQLiteRepository) LastTopicByOwner(ctx context.Context, ownerID string) (*model.Topic, error) {
	t := &model.Topic{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("date_added DESC").Order("id DESC").
		Take(t).Error
	if err != nil {
		return nil, gormNotFound(err, "select last topic")
	}
	return t, nil
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e *model.Entry) error {
	e.DateAdded = r.now().UTC()
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (*model.Entry, error) {
	e := &model.Entry{}
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(e).Error; err != nil {
		return nil, gormNotFound(err, "select entry")
	}
	return e, nil
}

func (r *SQLiteRepository) ListEntriesByTopic(ctx context.Context, topicID int64) ([]*model.Entry, error) {
	var entries []*model.Entry
	err := r.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("date_added DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e *model.Entry) error {
	res := r.db.WithContext(ctx).Model(&model.Entry{}).Where("id = ?", e.ID).Update("text", e.Text)
	if res.Error != nil {
		return fmt.Errorf("update entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Entry{})
	if res.Error != nil {
		return fmt.Errorf("delete entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func gormNotFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
