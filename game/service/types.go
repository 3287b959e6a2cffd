package service

import (
	"time"

	"github.com/MLLeKander/Magnets/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LevelID        string            `json:"level_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Level          *engine.Level     `json:"level"`
}

// MoveResult contains the result of a single turn
type MoveResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
	Step      *StepInfo         `json:"step,omitempty"`
}

// BulkMoveResult contains the result of multiple turns
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked|unknown_action|completed
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos engine.Position `json:"start_pos"`
	EndPos   engine.Position `json:"end_pos"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	Completed     bool     `json:"completed"`
	Message       string   `json:"message,omitempty"`
	PossibleMoves []string `json:"possible_moves,omitempty"`
}

// StepInfo is a compact record of one executed turn
type StepInfo struct {
	Idx       int               `json:"idx"`
	Action    string            `json:"action"`
	From      engine.Position   `json:"from"`
	To        engine.Position   `json:"to"`
	Movements []engine.Movement `json:"movements,omitempty"`
	Success   bool              `json:"success"`
	Completed bool              `json:"completed,omitempty"`
}

// GameEvent represents an event that occurred during play
type GameEvent struct {
	Type      string          `json:"type"` // "move", "wait", "magnets", "completed", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// LevelInfo provides information about a level
type LevelInfo struct {
	Filename string `json:"filename"`
	LevelID  string `json:"level_id"` // The identifier to use for session creation
	Name     string `json:"name"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	Magnets  int    `json:"magnets"`
	Padded   bool   `json:"padded"`
}

// NewLevelInfo parses a level to describe it
func NewLevelInfo(level *engine.Level) (*LevelInfo, error) {
	board, err := level.NewBoard()
	if err != nil {
		return nil, err
	}
	return &LevelInfo{
		Filename: level.ID + ".txt",
		LevelID:  level.ID,
		Name:     level.Name,
		Rows:     board.Rows(),
		Cols:     board.Cols(),
		Magnets:  len(board.Magnets()),
		Padded:   board.Padded(),
	}, nil
}

// SolveResult reports a solver run from a level's starting configuration
type SolveResult struct {
	LevelID    string   `json:"level_id"`
	Solvable   bool     `json:"solvable"`
	Path       string   `json:"path,omitempty"`  // U R D L and . for settle
	Moves      []string `json:"moves,omitempty"` // action names accepted by Move
	MoveCount  int      `json:"move_count"`
	Expansions int      `json:"expansions"`
	Visited    int      `json:"visited"`
	DurationMS int64    `json:"duration_ms"`
}

// SolveOptions bounds a server-side solver run
type SolveOptions struct {
	MaxExpansions int
	Timeout       time.Duration
}
