package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Totarae/LearningLog/internal/model"
)

// Операции журнала изменений в файле.
const (
	opUser        = "user"
	opTopic       = "topic"
	opEntry       = "entry"
	opDeleteEntry = "delete_entry"
)

// Record представляет одну строку файла хранилища.
type Record struct {
	Op    string       `json:"op"`
	User  *userRecord  `json:"user,omitempty"`
	Topic *topicRecord `json:"topic,omitempty"`
	Entry *model.Entry `json:"entry,omitempty"`
}

// userRecord и topicRecord нужны, потому что модели скрывают
// хэш пароля и владельца от JSON API.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	DateJoined   time.Time `json:"date_joined"`
}

type topicRecord struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	DateAdded time.Time `json:"date_added"`
	OwnerID   string    `json:"owner_id"`
}

// Store — потокобезопасное хранилище в памяти.
// Если задан file, каждое изменение дописывается в него строкой JSON
// и воспроизводится при следующем запуске.
type Store struct {
	mutex       sync.RWMutex
	users       map[string]*model.User
	topics      map[int64]*model.Topic
	entries     map[int64]*model.Entry
	nextTopicID int64
	nextEntryID int64
	file        string
	// tornTail: файл не заканчивается переводом строки
	tornTail bool
	now      func() time.Time
}

// NewStore создаёт хранилище. Пустой file означает режим только в памяти.
func NewStore(file string) *Store {
	s := &Store{
		users:   make(map[string]*model.User),
		topics:  make(map[int64]*model.Topic),
		entries: make(map[int64]*model.Entry),
		file:    file,
		now:     time.Now,
	}

	if err := s.LoadFromFile(); err != nil {
		log.Printf("Ошибка загрузки из файла: %v", err)
	}
	return s
}

// Ping всегда успешен: хранилище в памяти доступно, пока жив процесс.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return model.ErrDuplicate
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return model.ErrDuplicate
	}
	stored := *u
	rec := &userRecord{ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash, DateJoined: u.DateJoined}
	if err := s.appendToFile(Record{Op: opUser, User: rec}); err != nil {
		return err
	}
	s.users[u.ID] = &stored
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) CreateTopic(_ context.Context, t *model.Topic) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored := *t
	stored.ID = s.nextTopicID + 1
	stored.DateAdded = s.now().UTC()
	if err := s.appendToFile(Record{Op: opTopic, Topic: toTopicRecord(&stored)}); err != nil {
		return err
	}
	s.nextTopicID = stored.ID
	s.topics[stored.ID] = &stored
	t.ID, t.DateAdded = stored.ID, stored.DateAdded
	return nil
}

func (s *Store) GetTopic(_ context.Context, id int64) (*model.Topic, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTopicsByOwner(_ context.Context, ownerID string) ([]*model.Topic, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*model.Topic
	for _, t := range s.topics {
		if t.OwnerID == ownerID {
			cp := *t
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].DateAdded.Equal(results[j].DateAdded) {
			return results[i].DateAdded.Before(results[j].DateAdded)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func (s *Store) LastTopicByOwner(ctx context.Context, ownerID string) (*model.Topic, error) {
	topics, err := s.ListTopicsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, model.ErrNotFound
	}
	return topics[len(topics)-1], nil
}

func (s *Store) CreateEntry(_ context.Context, e *model.Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.topics[e.TopicID]; !ok {
		return fmt.Errorf("insert entry: topic %d: %w", e.TopicID, model.ErrNotFound)
	}
	stored := *e
	stored.ID = s.nextEntryID + 1
	stored.DateAdded = s.now().UTC()
	if err := s.appendToFile(Record{Op: opEntry, Entry: &stored}); err != nil {
		return err
	}
	s.nextEntryID = stored.ID
	s.entries[stored.ID] = &stored
	e.ID, e.DateAdded = stored.ID, stored.DateAdded
	return nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (*model.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListEntriesByTopic(_ context.Context, topicID int64) ([]*model.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*model.Entry
	for _, e := range s.entries {
		if e.TopicID == topicID {
			cp := *e
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].DateAdded.Equal(results[j].DateAdded) {
			return results[i].DateAdded.After(results[j].DateAdded)
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}

func (s *Store) UpdateEntry(_ context.Context, e *model.Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, ok := s.entries[e.ID]
	if !ok {
		return model.ErrNotFound
	}
	updated := *existing
	updated.Text = e.Text
	if err := s.appendToFile(Record{Op: opEntry, Entry: &updated}); err != nil {
		return err
	}
	s.entries[e.ID] = &updated
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.entries[id]; !ok {
		return model.ErrNotFound
	}
	if err := s.appendToFile(Record{Op: opDeleteEntry, Entry: &model.Entry{ID: id}}); err != nil {
		return err
	}
	delete(s.entries, id)
	return nil
}

// LoadFromFile загружает данные из файла при старте сервера
func (s *Store) LoadFromFile() error {
	if s.file == "" {
		return nil
	}
	file, err := os.Open(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Файл ещё не создан, это не ошибка
		}
		return err
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	reader := bufio.NewReader(file)
	for lineNo := 1; ; lineNo++ {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			// оборванная последняя строка: следующая запись начнётся с новой строки
			s.tornTail = line[len(line)-1] != '\n'
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				var rec Record
				if err := json.Unmarshal(trimmed, &rec); err != nil {
					log.Printf("Пропущена повреждённая строка %d файла %s: %v", lineNo, s.file, err)
				} else {
					s.apply(rec)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read storage file: %w", readErr)
		}
	}

	log.Printf("Загружено %d тем и %d записей из файла %s", len(s.topics), len(s.entries), s.file)
	return nil
}

func (s *Store) apply(rec Record) {
	switch rec.Op {
	case opUser:
		if u := rec.User; u != nil {
			s.users[u.ID] = &model.User{ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash, DateJoined: u.DateJoined}
		}
	case opTopic:
		if rec.Topic != nil {
			t := &model.Topic{ID: rec.Topic.ID, Text: rec.Topic.Text, DateAdded: rec.Topic.DateAdded, OwnerID: rec.Topic.OwnerID}
			s.topics[t.ID] = t
			if t.ID > s.nextTopicID {
				s.nextTopicID = t.ID
			}
		}
	case opEntry:
		if rec.Entry != nil {
			s.entries[rec.Entry.ID] = rec.Entry
			if rec.Entry.ID > s.nextEntryID {
				s.nextEntryID = rec.Entry.ID
			}
		}
	case opDeleteEntry:
		if rec.Entry != nil {
			delete(s.entries, rec.Entry.ID)
			// ID удалённой записи не переиспользуется
			if rec.Entry.ID > s.nextEntryID {
				s.nextEntryID = rec.Entry.ID
			}
		}
	}
}

// appendToFile добавляет новую запись в файл. Вызывается под s.mutex.
func (s *Store) appendToFile(rec Record) error {
	if s.file == "" {
		return nil
	}
	file, err := os.OpenFile(s.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open storage file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if s.tornTail {
		data = append([]byte{'\n'}, data...)
	}

	if _, err := file.Write(data); err != nil {
		return err
	}
	s.tornTail = false
	return nil
}

func toTopicRecord(t *model.Topic) *topicRecord {
	return &topicRecord{ID: t.ID, Text: t.Text, DateAdded: t.DateAdded, OwnerID: t.OwnerID}
}
