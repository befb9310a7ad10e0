package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Totarae/LearningLog/internal/database"
	"github.com/Totarae/LearningLog/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"
	pingTimeout     = 2 * time.Second
)

// Pool — часть pgxpool.Pool, которой пользуется репозиторий.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// JournalRepository хранит пользователей, темы и записи в PostgreSQL.
type JournalRepository struct {
	Pool Pool
}

// NewJournalRepository создаёт новый экземпляр JournalRepository.
func NewJournalRepository(db *database.DB) *JournalRepository {
	return &JournalRepository{Pool: db.Pool}
}

// Ping проверяет доступность базы данных.
func (r *JournalRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return r.Pool.Ping(ctx)
}

// CreateUser сохраняет пользователя. Занятое имя даёт model.ErrDuplicate.
func (r *JournalRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (id, username, password_hash, date_joined) VALUES ($1, $2, $3, $4)`
	_, err := r.Pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.DateJoined)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *JournalRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, date_joined FROM users WHERE id = $1`, id)
}

// GetUserByUsername возвращает пользователя по имени.
func (r *JournalRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, date_joined FROM users WHERE username = $1`, username)
}

func (r *JournalRepository) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	u := &model.User{}
	err := r.Pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DateJoined)
	if err != nil {
		return nil, notFound(err, "select user")
	}
	return u, nil
}

// CreateTopic сохраняет тему и заполняет её ID и DateAdded.
func (r *JournalRepository) CreateTopic(ctx context.Context, t *model.Topic) error {
	query := `INSERT INTO topics (text, owner_id) VALUES ($1, $2) RETURNING id, date_added`
	if err := r.Pool.QueryRow(ctx, query, t.Text, t.OwnerID).Scan(&t.ID, &t.DateAdded); err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

// GetTopic возвращает тему по идентификатору.
func (r *JournalRepository) GetTopic(ctx context.Context, id int64) (*model.Topic, error) {
	query := `SELECT id, text, date_added, owner_id FROM topics WHERE id = $1`
	t := &model.Topic{}
	if err := r.Pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Text, &t.DateAdded, &t.OwnerID); err != nil {
		return nil, notFound(err, "select topic")
	}
	return t, nil
}

// ListTopicsByOwner возвращает темы пользователя от старых к новым.
func (r *JournalRepository) ListTopicsByOwner(ctx context.Context, ownerID string) ([]*model.Topic, error) {
	query := `SELECT id, text, date_added, owner_id FROM topics WHERE owner_id = $1 ORDER BY date_added, id`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics by owner: %w", err)
	}
	defer rows.Close()

	var results []*model.Topic
	for rows.Next() {
		t := &model.Topic{}
		if err := rows.Scan(&t.ID, &t.Text, &t.DateAdded, &t.OwnerID); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// LastTopicByOwner возвращает самую новую тему пользователя.
func (r *JournalRepository) LastTopicByOwner(ctx context.Context, ownerID string) (*model.Topic, error) {
	query := `SELECT id, text, date_added, owner_id FROM topics WHERE owner_id = $1 ORDER BY date_added DESC, id DESC LIMIT 1`
	t := &model.Topic{}
	if err := r.Pool.QueryRow(ctx, query, ownerID).Scan(&t.ID, &t.Text, &t.DateAdded, &t.OwnerID); err != nil {
		return nil, notFound(err, "select last topic")
	}
	return t, nil
}

// CreateEntry сохраняет запись и заполняет её ID и DateAdded.
func (r *JournalRepository) CreateEntry(ctx context.Context, e *model.Entry) error {
	query := `INSERT INTO entries (topic_id, text) VALUES ($1, $2) RETURNING id, date_added`
	if err := r.Pool.QueryRow(ctx, query, e.TopicID, e.Text).Scan(&e.ID, &e.DateAdded); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry возвращает запись по идентификатору.
func (r *JournalRepository) GetEntry(ctx context.Context, id int64) (*model.Entry, error) {
	query := `SELECT id, topic_id, text, date_added FROM entries WHERE id = $1`
	e := &model.Entry{}
	if err := r.Pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.TopicID, &e.Text, &e.DateAdded); err != nil {
		return nil, notFound(err, "select entry")
	}
	return e, nil
}

// ListEntriesByTopic возвращает записи темы от новых к старым.
func (r *JournalRepository) ListEntriesByTopic(ctx context.Context, topicID int64) ([]*model.Entry, error) {
	query := `SELECT id, topic_id, text, date_added FROM entries WHERE topic_id = $1 ORDER BY date_added DESC, id DESC`
	rows, err := r.Pool.Query(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var results []*model.Entry
	for rows.Next() {
		e := &model.Entry{}
		if err := rows.Scan(&e.ID, &e.TopicID, &e.Text, &e.DateAdded); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// UpdateEntry обновляет текст записи. Дата создания не меняется.
func (r *JournalRepository) UpdateEntry(ctx context.Context, e *model.Entry) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE entries SET text = $1 WHERE id = $2`, e.Text, e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteEntry удаляет запись.
func (r *JournalRepository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
