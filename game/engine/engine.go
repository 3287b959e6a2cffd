package engine

import (
	"fmt"
	"strings"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Reset() *GameState
	IsCompleted() bool
	GetTurns() int
	GetPlayerPosition() Position

	// Movement operations
	Move(action string) bool
	CanMove(direction string) bool
	GetPossibleMoves() []string
	BulkMove(actions []string) []bool
	Replay(actions []string) error

	// Level
	GetLevel() *Level
	Board() *Board

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
	AcceptedActions() []string
}

// GameEngine implements the Engine interface on top of a Board
type GameEngine struct {
	level *Level
	board *Board
	// start is the parsed starting board, kept so Reset cannot fail
	start *Board

	turns       int
	message     string
	history     []MoveHistoryEntry
	current     []MoveHistoryEntry
	totalMoves  int
	currentMove int
}

// NewEngine creates a new game engine for the provided level
func NewEngine(level *Level) (*GameEngine, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	board, err := level.NewBoard()
	if err != nil {
		return nil, err
	}

	return &GameEngine{
		level:   level,
		board:   board,
		start:   board.Clone(),
		message: welcomeMessage(level),
		history: []MoveHistoryEntry{},
		current: []MoveHistoryEntry{},
	}, nil
}

func welcomeMessage(level *Level) string {
	return fmt.Sprintf("Welcome to %s! Reach the goal (G).", level.Name)
}

// GetState returns a snapshot of the current game
func (e *GameEngine) GetState() *GameState {
	return &GameState{
		LevelID:           e.level.ID,
		Rows:              e.board.Rows(),
		Cols:              e.board.Cols(),
		Board:             e.board.Lines(),
		PlayerPos:         e.board.Player(),
		GoalPos:           e.board.Goal(),
		Magnets:           e.board.Magnets(),
		Turns:             e.turns,
		Completed:         e.board.LevelCompleted(),
		Message:           e.message,
		MoveHistory:       append([]MoveHistoryEntry(nil), e.history...),
		TotalMoves:        e.totalMoves,
		CurrentMoves:      append([]MoveHistoryEntry(nil), e.current...),
		CurrentMovesCount: e.currentMove,
	}
}

// Reset restores the starting board parsed by NewEngine
func (e *GameEngine) Reset() *GameState {
	e.board = e.start.Clone()

	// Cumulative history survives; only the current segment is cleared
	e.turns = 0
	e.message = welcomeMessage(e.level)
	e.current = []MoveHistoryEntry{}
	e.currentMove = 0

	return e.GetState()
}

// IsCompleted returns whether the player stands on the goal
func (e *GameEngine) IsCompleted() bool {
	return e.board.LevelCompleted()
}

// GetTurns returns the number of accepted turns since the last reset
func (e *GameEngine) GetTurns() int {
	return e.turns
}

// GetPlayerPosition returns the current player position
func (e *GameEngine) GetPlayerPosition() Position {
	return e.board.Player()
}

// GetLevel returns the level being played
func (e *GameEngine) GetLevel() *Level {
	return e.level
}

// Board returns the live board. Callers that search must work on a Clone.
func (e *GameEngine) Board() *Board {
	return e.board
}

// Move plays one turn. action is a direction name or letter, or "wait" to let
// the magnets settle without moving ("." is accepted too). A turn is only counted when accepted.
func (e *GameEngine) Move(action string) bool {
	from := e.board.Player()

	if e.board.LevelCompleted() {
		e.message = "Level already completed. Reset to play again."
		e.addMoveToHistory(action, from, from, nil, false)
		return false
	}

	if IsWaitAction(action) {
		action = WaitAction
		movements := e.board.Step()
		e.turns++
		e.message = fmt.Sprintf("Waited. %d magnet(s) moved.", len(movements))
		e.addMoveToHistory(action, from, from, movements, true)
		e.checkCompleted()
		return true
	}

	dir, err := ParseDirection(action)
	if err != nil {
		e.message = fmt.Sprintf("Unknown action %q", action)
		e.addMoveToHistory(action, from, from, nil, false)
		return false
	}

	if !e.board.MovePlayer(dir) {
		blocked := from.Step(dir)
		e.message = fmt.Sprintf("Can't move %s: %s at (%d,%d)", dir, e.board.At(blocked).Kind, blocked.Row, blocked.Col)
		e.addMoveToHistory(dir.String(), from, from, nil, false)
		return false
	}

	movements := e.board.Step()
	e.turns++
	e.message = fmt.Sprintf("Moved %s.", dir)
	if len(movements) > 0 {
		e.message = fmt.Sprintf("Moved %s. %d magnet(s) moved.", dir, len(movements))
	}
	e.addMoveToHistory(dir.String(), from, e.board.Player(), movements, true)
	e.checkCompleted()
	return true
}

// IsWaitAction reports whether action asks for a settle turn
func IsWaitAction(action string) bool {
	a := strings.ToLower(strings.TrimSpace(action))
	return a == WaitAction || a == "."
}

func (e *GameEngine) checkCompleted() {
	if e.board.LevelCompleted() {
		e.message = fmt.Sprintf("Level complete! Solved in %d turns.", e.turns)
	}
}

// CanMove checks if the player can move in the specified direction
func (e *GameEngine) CanMove(direction string) bool {
	if e.board.LevelCompleted() {
		return false
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return false
	}
	return e.board.CanMoveTo(e.board.Player().Step(dir))
}

// GetPossibleMoves returns all valid directions the player can move
func (e *GameEngine) GetPossibleMoves() []string {
	if e.board.LevelCompleted() {
		return nil
	}
	var possible []string
	for _, d := range e.board.PossibleMoves() {
		possible = append(possible, d.String())
	}
	return possible
}

// BulkMove executes multiple actions in sequence, returning success status for each
func (e *GameEngine) BulkMove(actions []string) []bool {
	results := make([]bool, 0, len(actions))

	for _, action := range actions {
		// Stop once the goal is reached
		if e.IsCompleted() {
			break
		}

		results = append(results, e.Move(action))
	}

	return results
}

// Replay resets the game and plays actions in order. It fails on the first
// action that is not accepted, leaving the game at that point.
func (e *GameEngine) Replay(actions []string) error {
	e.Reset()
	for i, action := range actions {
		if !e.Move(action) {
			return fmt.Errorf("replay: action %d (%q) rejected: %s", i+1, action, e.message)
		}
	}
	return nil
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.history
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// addMoveToHistory appends an entry to the cumulative and current histories
func (e *GameEngine) addMoveToHistory(action string, from, to Position, movements []Movement, success bool) {
	entry := MoveHistoryEntry{
		Action:       action,
		FromPosition: from,
		ToPosition:   to,
		Movements:    movements,
		Timestamp:    time.Now().Unix(),
		Success:      success,
		MoveNumber:   e.totalMoves + 1,
	}
	e.history = append(e.history, entry)
	e.totalMoves++

	e.current = append(e.current, entry)
	e.currentMove++
}

// AcceptedActions returns the actions accepted since the last reset, in order.
// Replaying them on a fresh engine reproduces the current board.
func (e *GameEngine) AcceptedActions() []string {
	actions := []string{}
	for _, entry := range e.current {
		if entry.Success {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}
