package messagestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no conversation exists for the given id.
// Storage failures are returned as-is and are distinguishable from it.
var ErrNotFound = errors.New("conversation not found")

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"isRead"`
}

// Conversation pairs exactly two participant ids with their ordered,
// append-only message history. Participants never change after creation.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// Store persists conversations as one JSON file per conversation id.
// Every mutation rewrites the whole record; writes go through a temp file
// and rename so a crash never leaves a torn record. Operations on the same
// conversation id are serialized by a per-id mutex, so concurrent appends
// cannot overwrite each other.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	index map[string]map[string]struct{} // participant id -> conversation ids
}

// New creates the data directory if needed and scans it once to build the
// participant index. The store is the only writer to dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create message store dir: %w", err)
	}

	s := &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
		index: make(map[string]map[string]struct{}),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan message store dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		conv, err := s.load(id)
		if err != nil {
			log.Printf("Skipping unreadable conversation record %s: %v", entry.Name(), err)
			continue
		}
		s.addToIndex(conv)
	}

	return s, nil
}

// Create persists a new conversation for the two participants and returns
// it. No duplicate check is made: calling this twice for the same pair
// produces two independent conversations, so callers wanting one thread per
// pair must look one up first.
func (s *Store) Create(participantA, participantB string) (*Conversation, error) {
	conv := &Conversation{
		ID:           uuid.New().String(),
		Participants: []string{participantA, participantB},
		Messages:     []Message{},
		LastUpdated:  time.Now().UTC(),
	}

	lock := s.lockFor(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.save(conv); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.addToIndex(conv)
	s.mu.Unlock()

	return conv, nil
}

// Get returns the conversation for id, or ErrNotFound.
func (s *Store) Get(id string) (*Conversation, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	return s.load(id)
}

// ListForUser returns every conversation the user participates in, most
// recently active first. Individual records that fail to load are skipped
// so one bad file cannot take down a whole inbox.
func (s *Store) ListForUser(userID string) ([]*Conversation, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.index[userID]))
	for id := range s.index[userID] {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	conversations := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.Get(id)
		if err != nil {
			log.Printf("Skipping conversation %s while listing for user %s: %v", id, userID, err)
			continue
		}
		conversations = append(conversations, conv)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastUpdated.After(conversations[j].LastUpdated)
	})

	return conversations, nil
}

// AddMessage appends a message to an existing conversation and returns it.
// The conversation's lastUpdated becomes the message timestamp. A missing
// conversation yields ErrNotFound; nothing is created implicitly.
func (s *Store) AddMessage(conversationID, senderID, receiverID, content string) (*Message, error) {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.load(conversationID)
	if err != nil {
		return nil, err
	}

	msg := Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		Timestamp:      time.Now().UTC(),
		IsRead:         false,
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastUpdated = msg.Timestamp

	if err := s.save(conv); err != nil {
		return nil, err
	}

	return &msg, nil
}

// MarkRead flags every unread message addressed to userID as read. It
// reports whether anything changed; when nothing did, the record is not
// rewritten. A read flag never reverts to unread.
func (s *Store) MarkRead(conversationID, userID string) (bool, error) {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.load(conversationID)
	if err != nil {
		return false, err
	}

	changed := false
	for i := range conv.Messages {
		if conv.Messages[i].ReceiverID == userID && !conv.Messages[i].IsRead {
			conv.Messages[i].IsRead = true
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	conv.LastUpdated = time.Now().UTC()
	if err := s.save(conv); err != nil {
		return false, err
	}

	return true, nil
}

// Delete removes the conversation and all its messages. ErrNotFound is
// returned when no record existed for the id.
func (s *Store) Delete(conversationID string) error {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.load(conversationID)
	if err != nil {
		return err
	}

	if err := os.Remove(s.path(conversationID)); err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}

	s.mu.Lock()
	for _, participant := range conv.Participants {
		delete(s.index[participant], conversationID)
		if len(s.index[participant]) == 0 {
			delete(s.index, participant)
		}
	}
	delete(s.locks, conversationID)
	s.mu.Unlock()

	return nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// addToIndex must be called with s.mu held.
func (s *Store) addToIndex(conv *Conversation) {
	for _, participant := range conv.Participants {
		if s.index[participant] == nil {
			s.index[participant] = make(map[string]struct{})
		}
		s.index[participant][conv.ID] = struct{}{}
	}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) load(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read conversation %s: %w", id, err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (s *Store) save(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, conv.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(conv.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	return nil
}
