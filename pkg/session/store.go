package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harun/covera/internal/observability"
	"github.com/rs/zerolog"
)

// Store persists one pretty-printed JSON document per session under a
// directory. It offers point lookup by identifier only; there is no indexing
// or query capability.
type Store struct {
	dir        string
	logger     zerolog.Logger
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
// An empty dir defaults to ~/.covera/sessions.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	observability.EnsureRegistered()

	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".covera", "sessions")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	s := &Store{
		dir:        dir,
		logger:     logger,
		writeLocks: make(map[string]*sync.Mutex),
	}

	logger.Info().Str("dir", dir).Msg("Session store initialized")
	s.updateActiveSessionsMetric()

	return s, nil
}

// validateSessionID rejects identifiers that could escape the store directory.
func (s *Store) validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidID)
	}
	if strings.Contains(sessionID, "..") {
		return fmt.Errorf("%w: cannot contain '..'", ErrInvalidID)
	}
	if strings.ContainsAny(sessionID, "/\\") {
		return fmt.Errorf("%w: cannot contain path separators", ErrInvalidID)
	}
	if strings.Contains(sessionID, "\x00") {
		return fmt.Errorf("%w: cannot contain null bytes", ErrInvalidID)
	}
	return nil
}

// sessionPath returns the file path for a session document.
func (s *Store) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// writeLock gets or creates a write lock for a session.
func (s *Store) writeLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, exists := s.writeLocks[sessionID]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	s.writeLocks[sessionID] = lock
	return lock
}

func (s *Store) updateActiveSessionsMetric() {
	ids, err := s.List()
	if err != nil {
		return
	}
	observability.SetActiveSessions(len(ids))
}

// Create writes a new session document. It returns ErrExists if a document
// is already stored under the identifier.
func (s *Store) Create(sess *Session) error {
	if err := s.validateSessionID(sess.SessionID); err != nil {
		return err
	}

	lock := s.writeLock(sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	path := s.sessionPath(sess.SessionID)
	if _, err := os.Stat(path); err == nil {
		return ErrExists
	}

	if err := s.writeDocument(sess); err != nil {
		return err
	}

	s.updateActiveSessionsMetric()
	s.logger.Info().Str("sessionId", sess.SessionID).Msg("Session created")

	return nil
}

// Load returns the stored session document. It returns ErrNotFound when no
// document exists for the identifier; any other failure (unreadable file,
// malformed encoding) is surfaced, never swallowed.
func (s *Store) Load(sessionID string) (*Session, error) {
	start := time.Now()
	defer func() {
		observability.RecordSessionLoad(time.Since(start))
	}()

	if err := s.validateSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}

	s.logger.Debug().
		Str("sessionId", sessionID).
		Int("turns", len(sess.ConversationHistory)).
		Msg("Session loaded")

	return &sess, nil
}

// Save overwrites the session document wholesale. The write goes through a
// temp file and rename so a failed save never leaves a torn document.
func (s *Store) Save(sess *Session) error {
	start := time.Now()
	defer func() {
		observability.RecordSessionSave(time.Since(start))
	}()

	if err := s.validateSessionID(sess.SessionID); err != nil {
		return err
	}

	lock := s.writeLock(sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.writeDocument(sess); err != nil {
		return err
	}

	s.logger.Debug().
		Str("sessionId", sess.SessionID).
		Int("turns", len(sess.ConversationHistory)).
		Msg("Session saved")

	return nil
}

// writeDocument encodes and durably writes a session document. Callers hold
// the session's write lock.
func (s *Store) writeDocument(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	data = append(data, '\n')

	path := s.sessionPath(sess.SessionID)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// List returns the identifiers of all stored sessions.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the store's lock table.
func (s *Store) Close() error {
	s.locksMu.Lock()
	s.writeLocks = make(map[string]*sync.Mutex)
	s.locksMu.Unlock()

	s.logger.Info().Msg("Session store closed")

	return nil
}
