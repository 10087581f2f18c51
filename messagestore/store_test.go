package messagestore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	require.Equal(t, []string{"u1", "u2"}, conv.Participants)
	require.Empty(t, conv.Messages)

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	require.Equal(t, conv.ID, got.ID)
	require.Equal(t, conv.Participants, got.Participants)
	require.Empty(t, got.Messages)

	// Reads without intervening mutation are idempotent.
	again, err := store.Get(conv.ID)
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestGetMissingConversation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAllowsDuplicatePairs(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Create("u1", "u2")
	require.NoError(t, err)
	second, err := store.Create("u1", "u2")
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)

	list, err := store.ListForUser("u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestAddMessage(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)

	msg, err := store.AddMessage(conv.ID, "u1", "u2", "hi")
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.Equal(t, conv.ID, msg.ConversationID)
	require.Equal(t, "u1", msg.SenderID)
	require.Equal(t, "u2", msg.ReceiverID)
	require.Equal(t, "hi", msg.Content)
	require.False(t, msg.IsRead)

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	require.Equal(t, msg.ID, got.Messages[0].ID)
	require.Equal(t, "hi", got.Messages[0].Content)
	require.True(t, got.Messages[0].Timestamp.Equal(msg.Timestamp))
	require.True(t, got.LastUpdated.Equal(msg.Timestamp))
}

func TestAddMessageToMissingConversation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddMessage("nope", "u1", "u2", "hello?")
	require.ErrorIs(t, err, ErrNotFound)

	// No record may be created as a side effect.
	list, err := store.ListForUser("u1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMarkRead(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)

	_, err = store.AddMessage(conv.ID, "u1", "u2", "first")
	require.NoError(t, err)
	_, err = store.AddMessage(conv.ID, "u2", "u1", "reply")
	require.NoError(t, err)

	changed, err := store.MarkRead(conv.ID, "u2")
	require.NoError(t, err)
	require.True(t, changed)

	// Nothing left to change for u2, so a second call reports false.
	changed, err = store.MarkRead(conv.ID, "u2")
	require.NoError(t, err)
	require.False(t, changed)

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	require.True(t, got.Messages[0].IsRead)
	require.False(t, got.Messages[1].IsRead)

	// Read flags never revert.
	_, err = store.AddMessage(conv.ID, "u1", "u2", "another")
	require.NoError(t, err)
	got, err = store.Get(conv.ID)
	require.NoError(t, err)
	require.True(t, got.Messages[0].IsRead)
}

func TestMarkReadMissingConversation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.MarkRead("nope", "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListForUserOrderingAndCompleteness(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Create("u1", "u2")
	require.NoError(t, err)
	b, err := store.Create("u1", "u3")
	require.NoError(t, err)
	c, err := store.Create("u1", "u4")
	require.NoError(t, err)
	_, err = store.Create("u5", "u6")
	require.NoError(t, err)

	// Touch conversations so lastUpdated ordering is b, a, c.
	_, err = store.AddMessage(c.ID, "u1", "u4", "one")
	require.NoError(t, err)
	_, err = store.AddMessage(a.ID, "u1", "u2", "two")
	require.NoError(t, err)
	_, err = store.AddMessage(b.ID, "u1", "u3", "three")
	require.NoError(t, err)

	list, err := store.ListForUser("u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, b.ID, list[0].ID)
	require.Equal(t, a.ID, list[1].ID)
	require.Equal(t, c.ID, list[2].ID)

	// A user with no conversations gets an empty result, not an error.
	list, err = store.ListForUser("nobody")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListForUserSkipsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	healthy, err := store.Create("u1", "u2")
	require.NoError(t, err)
	broken, err := store.Create("u1", "u3")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, broken.ID+".json"), []byte("{not json"), 0o644))

	list, err := store.ListForUser("u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, healthy.ID, list[0].ID)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)
	_, err = store.AddMessage(conv.ID, "u1", "u2", "bye")
	require.NoError(t, err)

	require.NoError(t, store.Delete(conv.ID))

	_, err = store.Get(conv.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListForUser("u1")
	require.NoError(t, err)
	require.Empty(t, list)

	require.ErrorIs(t, store.Delete(conv.ID), ErrNotFound)
}

func TestParticipantsImmutableAcrossMutations(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create("u2", "u1")
	require.NoError(t, err)

	_, err = store.AddMessage(conv.ID, "u2", "u1", "hello")
	require.NoError(t, err)
	_, err = store.MarkRead(conv.ID, "u1")
	require.NoError(t, err)

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"u2", "u1"}, got.Participants)
}

// Two appends racing on the same conversation must both survive; per-id
// serialization closes the read-modify-write window that would otherwise
// drop one of them.
func TestConcurrentAppendsBothPersist(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddMessage(conv.ID, "u1", "u2", "ping")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, writers)
}

func TestIndexRebuiltOnReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)
	_, err = store.AddMessage(conv.ID, "u1", "u2", "persisted")
	require.NoError(t, err)

	reopened, err := New(dir)
	require.NoError(t, err)

	list, err := reopened.ListForUser("u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, conv.ID, list[0].ID)
	require.Len(t, list[0].Messages, 1)
}

func TestStorageErrorDistinctFromNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	conv, err := store.Create("u1", "u2")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, conv.ID+".json"), []byte("{not json"), 0o644))

	_, err = store.Get(conv.ID)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}
