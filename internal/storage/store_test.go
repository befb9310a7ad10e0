package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Totarae/LearningLog/internal/model"
	"github.com/Totarae/LearningLog/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тест сохранения и получения темы из памяти
func TestStore_TopicSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore("")

	topic := &model.Topic{Text: "Chess", OwnerID: "u1"}
	require.NoError(t, store.CreateTopic(ctx, topic))
	assert.Equal(t, int64(1), topic.ID)
	assert.False(t, topic.DateAdded.IsZero())

	got, err := store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chess", got.Text)
	assert.Equal(t, "u1", got.OwnerID)

	// изменение возвращённой копии не затрагивает хранилище
	got.Text = "mutated"
	again, _ := store.GetTopic(ctx, topic.ID)
	assert.Equal(t, "Chess", again.Text)

	_, err = store.GetTopic(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_TopicsOrderedByOwner(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore("")

	for _, text := range []string{"Chess", "Rock Climbing", "Go"} {
		require.NoError(t, store.CreateTopic(ctx, &model.Topic{Text: text, OwnerID: "u1"}))
	}
	require.NoError(t, store.CreateTopic(ctx, &model.Topic{Text: "Other", OwnerID: "u2"}))

	topics, err := store.ListTopicsByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, "Chess", topics[0].Text)
	assert.Equal(t, "Go", topics[2].Text)

	last, err := store.LastTopicByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Go", last.Text)

	_, err = store.LastTopicByOwner(ctx, "u3")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_Entries(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore("")

	topic := &model.Topic{Text: "Chess", OwnerID: "u1"}
	require.NoError(t, store.CreateTopic(ctx, topic))

	first := &model.Entry{TopicID: topic.ID, Text: "first"}
	second := &model.Entry{TopicID: topic.ID, Text: "second"}
	require.NoError(t, store.CreateEntry(ctx, first))
	require.NoError(t, store.CreateEntry(ctx, second))

	entries, err := store.ListEntriesByTopic(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Text)

	require.NoError(t, store.UpdateEntry(ctx, &model.Entry{ID: first.ID, Text: "edited"}))
	got, err := store.GetEntry(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text)
	assert.Equal(t, topic.ID, got.TopicID)
	assert.True(t, got.DateAdded.Equal(first.DateAdded))

	require.NoError(t, store.DeleteEntry(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteEntry(ctx, first.ID), model.ErrNotFound)

	err = store.CreateEntry(ctx, &model.Entry{TopicID: 99, Text: "orphan"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore("")

	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "a", Username: "ana", DateJoined: time.Now()}))
	err := store.CreateUser(ctx, &model.User{ID: "b", Username: "ana", DateJoined: time.Now()})
	assert.ErrorIs(t, err, model.ErrDuplicate)

	u, err := store.GetUserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "a", u.ID)
}

// Тест восстановления данных из файла после перезапуска
func TestStore_ReloadFromFile(t *testing.T) {
	ctx := context.Background()
	tmpFile := filepath.Join(t.TempDir(), "journal.log")

	store := storage.NewStore(tmpFile)
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "u1", Username: "ana", PasswordHash: "hash", DateJoined: time.Now()}))
	topic := &model.Topic{Text: "Chess", OwnerID: "u1"}
	require.NoError(t, store.CreateTopic(ctx, topic))
	kept := &model.Entry{TopicID: topic.ID, Text: "kept"}
	removed := &model.Entry{TopicID: topic.ID, Text: "removed"}
	require.NoError(t, store.CreateEntry(ctx, kept))
	require.NoError(t, store.CreateEntry(ctx, removed))
	require.NoError(t, store.UpdateEntry(ctx, &model.Entry{ID: kept.ID, Text: "kept and edited"}))
	require.NoError(t, store.DeleteEntry(ctx, removed.ID))

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "delete_entry")

	reloaded := storage.NewStore(tmpFile)

	u, err := reloaded.GetUserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)

	got, err := reloaded.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)

	entries, err := reloaded.ListEntriesByTopic(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept and edited", entries[0].Text)

	// счётчики продолжаются, удалённый ID не переиспользуется
	next := &model.Entry{TopicID: topic.ID, Text: "after restart"}
	require.NoError(t, reloaded.CreateEntry(ctx, next))
	assert.Equal(t, removed.ID+1, next.ID)
}

func TestStore_ReloadSkipsTornLine(t *testing.T) {
	ctx := context.Background()
	tmpFile := filepath.Join(t.TempDir(), "journal.log")

	store := storage.NewStore(tmpFile)
	require.NoError(t, store.CreateTopic(ctx, &model.Topic{Text: "Chess", OwnerID: "u1"}))

	// запись оборвалась посреди строки
	f, err := os.OpenFile(tmpFile, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"op":"topic","topic":{"id":2,"te`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	restarted := storage.NewStore(tmpFile)
	after := &model.Topic{Text: "after restart", OwnerID: "u1"}
	require.NoError(t, restarted.CreateTopic(ctx, after))
	assert.Equal(t, int64(2), after.ID)

	reloaded := storage.NewStore(tmpFile)
	topics, err := reloaded.ListTopicsByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Chess", topics[0].Text)
	assert.Equal(t, "after restart", topics[1].Text)
}

func TestStore_ReloadSkipsGarbageLine(t *testing.T) {
	ctx := context.Background()
	tmpFile := filepath.Join(t.TempDir(), "journal.log")

	store := storage.NewStore(tmpFile)
	require.NoError(t, store.CreateTopic(ctx, &model.Topic{Text: "Chess", OwnerID: "u1"}))
	f, err := os.OpenFile(tmpFile, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, store.CreateTopic(ctx, &model.Topic{Text: "Go", OwnerID: "u1"}))

	reloaded := storage.NewStore(tmpFile)
	topics, err := reloaded.ListTopicsByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}
