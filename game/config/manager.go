package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
)

// DefaultLevelID is loaded as the default level when present
const DefaultLevelID = "first"

// Manager handles level loading and caching
type Manager struct {
	levelDir     string
	defaultLevel *engine.Level
	levels       map[string]*engine.Level
	mu           sync.RWMutex
}

// NewManager creates a new level manager
func NewManager(levelDir string) (*Manager, error) {
	// Ensure level directory exists
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		levels:   make(map[string]*engine.Level),
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}

	return m, nil
}

// LoadLevel loads a level by id, accepting an optional file extension
func (m *Manager) LoadLevel(id string) (*engine.Level, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, ErrLevelNotFound
	}
	id = engine.LevelIDFromPath(id)
	if id == "" || id == "." || id == ".." {
		return nil, ErrLevelNotFound
	}

	m.mu.RLock()
	// Check cache first
	if level, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

// loadLocked reads a level from disk into the cache; m.mu must be held
func (m *Manager) loadLocked(id string) (*engine.Level, error) {
	// Double-check after acquiring write lock
	if level, exists := m.levels[id]; exists {
		return level, nil
	}

	for _, ext := range engine.LevelExtensions {
		path := filepath.Join(m.levelDir, id+ext)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read level file: %w", err)
		}

		lines, err := engine.ReadMapLines(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read level file: %w", err)
		}

		level := &engine.Level{ID: id, Name: id, Map: lines}
		if err := engine.ValidateLevel(level); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}

		m.levels[id] = level
		return level, nil
	}

	return nil, ErrLevelNotFound
}

// levelIDs lists the ids of level files in the directory, sorted
func (m *Manager) levelIDs() ([]string, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := engine.LevelIDFromPath(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListLevels returns information about all loadable levels
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	ids, err := m.levelIDs()
	if err != nil {
		return nil, err
	}

	var levels []*service.LevelInfo
	for _, id := range ids {
		level, err := m.LoadLevel(id)
		if err != nil {
			// Skip invalid levels
			log.WithError(err).WithField("level", id).Debug("skipping level")
			continue
		}

		info, err := service.NewLevelInfo(level)
		if err != nil {
			continue
		}
		levels = append(levels, info)
	}

	return levels, nil
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *engine.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel
}

// SetDefault sets the default level by id
func (m *Manager) SetDefault(id string) error {
	level, err := m.LoadLevel(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
	return nil
}

// RefreshCache drops every cached level and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.Level)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

// loadDefaultLevel picks DefaultLevelID, else the first valid level, else a
// built-in corridor
func (m *Manager) loadDefaultLevel() error {
	level, err := m.LoadLevel(DefaultLevelID)
	if err != nil {
		ids, listErr := m.levelIDs()
		if listErr != nil {
			return listErr
		}
		for _, id := range ids {
			if level, err = m.LoadLevel(id); err == nil {
				break
			}
		}
		if level == nil {
			level = minimalLevel()
		}
	}

	m.mu.Lock()
	m.defaultLevel = level
	m.mu.Unlock()
	return nil
}

// SaveLevel validates map lines and writes them to <id>.txt
func (m *Manager) SaveLevel(id string, lines []string) (*engine.Level, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: bad level id %q", ErrInvalidLevel, id)
	}
	id = engine.LevelIDFromPath(id)
	if id == "" || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: bad level id %q", ErrInvalidLevel, id)
	}

	level := &engine.Level{ID: id, Name: id, Map: lines}
	if err := engine.ValidateLevel(level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	path := filepath.Join(m.levelDir, id+".txt")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write level file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.levels[id] = level
	m.mu.Unlock()

	return level, nil
}

// minimalLevel is a walled two-step corridor
func minimalLevel() *engine.Level {
	return &engine.Level{
		ID:   "default",
		Name: "default",
		Map: []string{
			"               ",
			" W  W  W  W  W ",
			"               ",
			"    _          ",
			" W _P_ _  G  W ",
			"    _          ",
			"               ",
			" W  W  W  W  W ",
			"               ",
		},
	}
}
