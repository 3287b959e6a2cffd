package session

import (
	"time"

	"github.com/MLLeKander/Magnets/game/service"
)

// SessionPersistence stores sessions outside the process
type SessionPersistence interface {
	Save(session *service.Session) error
	Load(id string) (*service.Session, error)
	Delete(id string) error
	ListAll() ([]string, error)
	Exists(id string) bool
}

// Record is what gets written for a session. The board is not stored:
// loading replays Moves on the level's starting board, so a level edited
// after the save either replays to the same board or fails to load.
type Record struct {
	ID             string    `json:"id"`
	LevelID        string    `json:"level_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	Moves          []string  `json:"moves"`
	Turns          int       `json:"turns"`
	Completed      bool      `json:"completed"`
}

// NewRecord captures the replayable part of s
func NewRecord(s *service.Session) Record {
	return Record{
		ID:             s.ID,
		LevelID:        s.Level.ID,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.LastAccessedAt,
		Moves:          s.Engine.AcceptedActions(),
		Turns:          s.Engine.GetTurns(),
		Completed:      s.Engine.IsCompleted(),
	}
}
