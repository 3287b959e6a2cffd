package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Session ids double as file names, so they are kept to a safe alphabet
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSessionID reports whether id can name a session
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// key folds ids so that lookups ignore case
func key(id string) string {
	return strings.ToLower(id)
}

// Option configures a Manager
type Option func(*Manager)

// WithPersistence saves sessions on every change and loads unknown ids from p
func WithPersistence(p SessionPersistence) Option {
	return func(m *Manager) { m.persistence = p }
}

// WithClock replaces time.Now for access and expiry bookkeeping
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager keeps the live sessions in memory, one GameEngine each
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*service.Session
	persistence SessionPersistence
	now         func() time.Time
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func NewManagerWithPersistence(persistence SessionPersistence) *Manager {
	return NewManager(WithPersistence(persistence))
}

// persist saves s when persistence is configured. Failures are logged only.
func (m *Manager) persist(s *service.Session, reason string) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(s); err != nil {
		log.WithError(err).WithField("session", s.ID).Warnf("Failed to persist session (%s)", reason)
	}
}

// Create starts a session on level. An empty id gets a generated one.
func (m *Manager) Create(id string, level *engine.Level) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case id == "":
		id = m.newID()
	case !ValidSessionID(id):
		return nil, ErrInvalidSessionID
	case m.sessions[key(id)] != nil:
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := m.now()
	s := &service.Session{
		ID:             id,
		Engine:         eng,
		Level:          level,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key(id)] = s
	m.persist(s, "create")
	return s, nil
}

// Get returns a live session, falling back to persistence for ids that are
// not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	s := m.sessions[key(id)]
	m.mu.RUnlock()
	if s != nil {
		return s, nil
	}

	if m.persistence == nil || !ValidSessionID(id) || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}
	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sessions[key(id)]; s != nil {
		return s, nil
	}
	m.sessions[key(id)] = loaded
	return loaded, nil
}

func (m *Manager) GetOrCreate(id string, level *engine.Level) (*service.Session, error) {
	s, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, level)
	}
	return s, err
}

// List returns the live sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session from memory and from persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.sessions[key(id)]
	delete(m.sessions, key(id))

	if m.persistence != nil && ValidSessionID(id) && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory drops a live session but leaves its saved copy alone
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

// UpdateLastAccessed stamps the session and saves it, which also records any
// turns played since the last save
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[key(id)]
	if s == nil {
		return ErrSessionNotFound
	}
	s.LastAccessedAt = m.now()
	m.persist(s, "access")
	return nil
}

// Save writes one session to persistence. It is a no-op without persistence.
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	s := m.sessions[key(id)]
	m.mu.RUnlock()
	if s == nil {
		return ErrSessionNotFound
	}
	return m.persistence.Save(s)
}

// CleanupExpiredSessions drops sessions idle for longer than maxAge from
// memory. Saved copies stay on disk and are reloaded on demand.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for k, s := range m.sessions {
		if s.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, k)
			removed++
		}
	}

	if removed > 0 {
		log.WithField("removed", removed).Info("Expired sessions removed from memory")
	}
	return removed
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// newID returns 4 random hex characters not used in memory or on disk.
// m.mu must be held.
func (m *Manager) newID() string {
	buf := make([]byte, 2)
	for {
		rand.Read(buf)
		id := hex.EncodeToString(buf)
		if m.sessions[id] == nil && (m.persistence == nil || !m.persistence.Exists(id)) {
			return id
		}
	}
}

// LoadPersistedSessions brings every saved session into memory, replaying
// its turns. Sessions that fail to load are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if m.sessions[key(id)] != nil {
			continue
		}
		s, err := m.persistence.Load(id)
		if err != nil {
			log.WithError(err).WithField("session", id).Warn("Failed to load persisted session")
			continue
		}
		m.sessions[key(id)] = s
		loaded++
	}

	if loaded > 0 {
		log.Infof("Loaded %d persisted sessions from storage", loaded)
	}
	return nil
}

// SaveAllSessions writes every live session and reports how many failed
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, s := range m.List() {
		if err := m.persistence.Save(s); err != nil {
			log.WithError(err).WithField("session", s.ID).Warn("Failed to save session")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
