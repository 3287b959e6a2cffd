package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
)

const recordExt = ".json"

// FilePersistence keeps one JSON Record per session in a directory
type FilePersistence struct {
	dir    string
	levels service.LevelManager
}

// NewFilePersistence creates dir if needed. levels resolves the level ids
// found in saved records.
func NewFilePersistence(dir string, levels service.LevelManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, levels: levels}, nil
}

// path folds the id like the Manager does, so a record is found under any
// spelling of its id on case-sensitive filesystems too
func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, key(id)+recordExt)
}

// Save writes the record through a temporary file so a crash never leaves a
// truncated record behind
func (fp *FilePersistence) Save(s *service.Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if !ValidSessionID(s.ID) {
		return ErrInvalidSessionID
	}

	data, err := json.MarshalIndent(NewRecord(s), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}

	tmp, err := os.CreateTemp(fp.dir, "."+key(s.ID)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fp.path(s.ID)); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a record and rebuilds the session by replaying its moves
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	if !ValidSessionID(id) {
		return nil, ErrSessionNotFound
	}
	raw, err := os.ReadFile(fp.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}

	level, err := fp.levels.LoadLevel(rec.LevelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load level '%s': %w", rec.LevelID, err)
	}
	eng, err := engine.NewEngine(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.Replay(rec.Moves); err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", rec.ID, err)
	}

	return &service.Session{
		ID:             rec.ID,
		Engine:         eng,
		Level:          level,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
	}, nil
}

func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fp.path(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the ids of every record in the directory
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), recordExt)
		if entry.IsDir() || !ok || !ValidSessionID(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (fp *FilePersistence) Exists(id string) bool {
	if !ValidSessionID(id) {
		return false
	}
	_, err := os.Stat(fp.path(id))
	return err == nil
}
