package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/solver"
)

// Default bounds for server-side solver runs
const (
	DefaultSolveMaxExpansions = 2_000_000
	DefaultSolveTimeout       = 10 * time.Second
)

// History page sizes
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Bulk move stop codes
const (
	StopBlocked       = "blocked"
	StopUnknownAction = "unknown_action"
	StopCompleted     = "completed"
)

type gameService struct {
	// mu serializes turns. Reads share it.
	mu       sync.RWMutex
	sessions SessionManager
	levels   LevelManager
	solve    SolveOptions
}

// NewGameService uses DefaultSolveMaxExpansions and DefaultSolveTimeout
func NewGameService(sessions SessionManager, levels LevelManager) GameService {
	return NewGameServiceWithOptions(sessions, levels, SolveOptions{
		MaxExpansions: DefaultSolveMaxExpansions,
		Timeout:       DefaultSolveTimeout,
	})
}

// NewGameServiceWithOptions bounds solver runs by solve. A zero field turns
// that bound off.
func NewGameServiceWithOptions(sessions SessionManager, levels LevelManager, solve SolveOptions) GameService {
	return &gameService{sessions: sessions, levels: levels, solve: solve}
}

// lookup fetches a session and records the access
func (s *gameService) lookup(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(id)
	return sess, nil
}

// play runs fn on a session under the write lock and saves the session
// afterwards. Save failures are logged only.
func (s *gameService) play(id, what string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	fn(sess)

	if err := s.sessions.Save(id); err != nil {
		log.WithError(err).WithField("session", id).Warnf("Failed to persist session after %s", what)
	}
	return nil
}

// view records the access under the write lock, since that stamps and saves
// the session, then runs fn on it under the read lock
func (s *gameService) view(id string, fn func(*Session)) error {
	s.mu.Lock()
	_, err := s.lookup(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(id)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	fn(sess)
	return nil
}

func (s *gameService) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	level := s.levels.GetDefault()
	if levelID != "" {
		var err error
		if level, err = s.levels.LoadLevel(levelID); err != nil {
			return nil, s.levelError(levelID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.sessions.Create("", level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return newSessionInfo(sess), nil
}

// levelError names the levels that do exist
func (s *gameService) levelError(levelID string, err error) error {
	available, listErr := s.levels.ListLevels()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("level '%s': %w", levelID, err)
	}
	ids := make([]string, len(available))
	for i, info := range available {
		ids[i] = info.LevelID
	}
	return fmt.Errorf("level '%s': %w. Available levels: %v", levelID, err, ids)
}

func newSessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.Level.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		Level:          sess.Level,
	}
}

func (s *gameService) GetSession(ctx context.Context, id string) (*SessionInfo, error) {
	var info *SessionInfo
	err := s.view(id, func(sess *Session) { info = newSessionInfo(sess) })
	return info, err
}

func (s *gameService) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	infos := make([]*SessionInfo, len(sessions))
	for i, sess := range sessions {
		infos[i] = newSessionInfo(sess)
	}
	return infos, nil
}

func (s *gameService) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Delete(id)
}

// Move plays one turn. A rejected action is a successful call with
// Success false.
func (s *gameService) Move(ctx context.Context, id, action string, reset bool) (*MoveResult, error) {
	var result *MoveResult
	err := s.play(id, "move", func(sess *Session) {
		events := []GameEvent{}
		if reset {
			sess.Engine.Reset()
			events = append(events, resetEvent())
		}

		accepted := sess.Engine.Move(action)
		state := sess.Engine.GetState()
		result = &MoveResult{Success: accepted, GameState: state, Message: state.Message, Events: events}
		if accepted {
			last := sess.Engine.GetLastMove()
			result.Events = append(result.Events, turnEvents(last, state)...)
			result.Step = newStepInfo(1, last, state)
		}
	})
	return result, err
}

// BulkMove plays actions in order, at most engine.MaxBulkMoves of them, and
// stops at the first rejected one or once the level is complete
func (s *gameService) BulkMove(ctx context.Context, id string, actions []string, reset bool) (*BulkMoveResult, error) {
	var result *BulkMoveResult
	err := s.play(id, "bulk moves", func(sess *Session) {
		result = runBulk(sess.Engine, actions, reset)
	})
	return result, err
}

func runBulk(eng *engine.GameEngine, actions []string, reset bool) *BulkMoveResult {
	result := &BulkMoveResult{RequestedMoves: len(actions), Events: []GameEvent{}, Success: true}
	if reset {
		eng.Reset()
		result.Events = append(result.Events, resetEvent())
	}
	result.StartPos = eng.GetPlayerPosition()

	if len(actions) > engine.MaxBulkMoves {
		result.Truncated, result.Limit = true, engine.MaxBulkMoves
		actions = actions[:engine.MaxBulkMoves]
	}

	stop := func(n int, code, reason string) {
		result.StoppedOnMove, result.StopReasonCode, result.StoppedReason = n, code, reason
	}

	for i, action := range actions {
		n := i + 1
		if eng.IsCompleted() {
			stop(n, StopCompleted, "level completed")
			break
		}
		if !eng.Move(action) {
			result.Success = false
			code := StopBlocked
			if _, err := engine.ParseDirection(action); err != nil && !engine.IsWaitAction(action) {
				code = StopUnknownAction
			}
			stop(n, code, fmt.Sprintf("move %d rejected: %s", n, eng.GetState().Message))
			break
		}

		result.MovesExecuted++
		last, state := eng.GetLastMove(), eng.GetState()
		result.Events = append(result.Events, turnEvents(last, state)...)
		result.Steps = append(result.Steps, *newStepInfo(n, last, state))
	}

	state := eng.GetState()
	result.GameState = state
	result.EndPos = state.PlayerPos
	result.Completed = state.Completed
	result.Message = state.Message
	result.PossibleMoves = eng.GetPossibleMoves()
	if result.Completed && result.StopReasonCode == "" {
		result.StopReasonCode = StopCompleted
	}
	return result
}

func (s *gameService) Reset(ctx context.Context, id string) (*engine.GameState, error) {
	var state *engine.GameState
	err := s.play(id, "reset", func(sess *Session) { state = sess.Engine.Reset() })
	return state, err
}

func (s *gameService) GetGameState(ctx context.Context, id string) (*engine.GameState, error) {
	var state *engine.GameState
	err := s.view(id, func(sess *Session) { state = sess.Engine.GetState() })
	return state, err
}

// GetMoveHistory pages through every attempted turn, including rejected ones
// and those before a reset
func (s *gameService) GetMoveHistory(ctx context.Context, id string, opts HistoryOptions) (*HistoryResponse, error) {
	var history []engine.MoveHistoryEntry
	err := s.view(id, func(sess *Session) {
		history = append(history, sess.Engine.GetMoveHistory()...)
	})
	if err != nil {
		return nil, err
	}
	return pageHistory(history, opts), nil
}

// pageHistory clamps opts to sane values and cuts out the requested page.
// Descending order counts pages from the newest entry.
func pageHistory(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	if opts.Page < 1 {
		opts.Page = 1
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultHistoryLimit
	case opts.Limit > maxHistoryLimit:
		opts.Limit = maxHistoryLimit
	}

	total := len(history)
	pages := (total + opts.Limit - 1) / opts.Limit
	if pages == 0 {
		pages = 1
	}

	start := min((opts.Page-1)*opts.Limit, total)
	end := min(start+opts.Limit, total)

	moves := make([]engine.MoveHistoryEntry, 0, end-start)
	if opts.Order == "asc" {
		moves = append(moves, history[start:end]...)
	} else {
		for i := total - 1 - start; i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  pages,
		HasNext:     opts.Page < pages,
		HasPrevious: opts.Page > 1,
	}
}

func (s *gameService) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

func (s *gameService) LoadLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	return s.levels.LoadLevel(levelID)
}

func (s *gameService) SaveLevel(ctx context.Context, levelID string, lines []string) (*engine.Level, error) {
	return s.levels.SaveLevel(levelID, lines)
}

// SolveSession solves the session's level from its starting board. The game
// in progress is left alone.
func (s *gameService) SolveSession(ctx context.Context, id string) (*SolveResult, error) {
	var level *engine.Level
	if err := s.view(id, func(sess *Session) { level = sess.Level }); err != nil {
		return nil, err
	}
	return s.run(ctx, level)
}

func (s *gameService) SolveLevel(ctx context.Context, levelID string) (*SolveResult, error) {
	level, err := s.levels.LoadLevel(levelID)
	if err != nil {
		return nil, s.levelError(levelID, err)
	}
	return s.run(ctx, level)
}

// run searches a fresh board of level within the configured bounds. Running
// out of time is reported as solver.ErrSearchBudgetExceeded.
func (s *gameService) run(ctx context.Context, level *engine.Level) (*SolveResult, error) {
	board, err := level.NewBoard()
	if err != nil {
		return nil, err
	}

	if s.solve.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.solve.Timeout)
		defer cancel()
	}

	res, err := solver.Solve(ctx, board, solver.Options{MaxExpansions: s.solve.MaxExpansions})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: timed out after %s", solver.ErrSearchBudgetExceeded, s.solve.Timeout)
	}
	if err != nil {
		return nil, err
	}

	out := &SolveResult{
		LevelID:    level.ID,
		Solvable:   res.Solvable,
		MoveCount:  len(res.Moves),
		Expansions: res.Expansions,
		Visited:    res.Visited,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Solvable {
		out.Path = res.Path()
		out.Moves = make([]string, len(res.Actions))
		for i, a := range res.Actions {
			out.Moves[i] = a.Name()
		}
	}
	return out, nil
}

func resetEvent() GameEvent {
	return GameEvent{Type: "reset", Message: "Game reset to starting board", Timestamp: time.Now()}
}

// turnEvents describes an accepted turn: the step or wait, each magnet that
// slid, and completion
func turnEvents(entry *engine.MoveHistoryEntry, state *engine.GameState) []GameEvent {
	now := time.Now()

	first := GameEvent{Type: "move", Timestamp: now, Position: entry.ToPosition,
		Message: fmt.Sprintf("Moved %s to (%d,%d)", entry.Action, entry.ToPosition.Row, entry.ToPosition.Col)}
	if entry.Action == engine.WaitAction {
		first.Type, first.Message = "wait", "Waited for magnets to settle"
	}
	events := []GameEvent{first}

	for _, m := range entry.Movements {
		events = append(events, GameEvent{
			Type:      "magnets",
			Message:   fmt.Sprintf("Magnet moved %s", m),
			Timestamp: now,
			Position:  engine.Position{Row: m.Row + m.DRow, Col: m.Col + m.DCol},
		})
	}

	if state.Completed {
		events = append(events, GameEvent{Type: "completed", Message: state.Message, Timestamp: now, Position: state.GoalPos})
	}
	return events
}

func newStepInfo(idx int, entry *engine.MoveHistoryEntry, state *engine.GameState) *StepInfo {
	return &StepInfo{
		Idx:       idx,
		Action:    entry.Action,
		From:      entry.FromPosition,
		To:        entry.ToPosition,
		Movements: entry.Movements,
		Success:   entry.Success,
		Completed: state.Completed,
	}
}
