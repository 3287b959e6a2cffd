package service

import (
	"context"
	"time"

	"github.com/MLLeKander/Magnets/game/engine"
)

// GameService is what the HTTP, WebSocket and MCP transports call
type GameService interface {
	// Sessions
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Turns
	Move(ctx context.Context, sessionID, action string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Inspection
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelID string) (*engine.Level, error)
	SaveLevel(ctx context.Context, levelID string, lines []string) (*engine.Level, error)

	// Solver
	SolveSession(ctx context.Context, sessionID string) (*SolveResult, error)
	SolveLevel(ctx context.Context, levelID string) (*SolveResult, error)
}

// SessionManager keeps sessions in memory and, when configured, on disk
type SessionManager interface {
	Create(id string, level *engine.Level) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, level *engine.Level) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager reads and writes the level catalogue
type LevelManager interface {
	LoadLevel(id string) (*engine.Level, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() *engine.Level
	SaveLevel(id string, lines []string) (*engine.Level, error)
}

// Session pairs an engine with the level it was started from
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Level          *engine.Level
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
