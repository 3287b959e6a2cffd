package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zyedidia/generic/mapset"

	"github.com/MLLeKander/Magnets/game/engine"
)

var (
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")
	ErrUnknownAction        = errors.New("unknown action")
)

// Action is one child of a search node
type Action uint8

const (
	Settle Action = iota
	MoveUp
	MoveRight
	MoveDown
	MoveLeft
)

// Actions is the fixed order in which children are tried
var Actions = [...]Action{Settle, MoveUp, MoveRight, MoveDown, MoveLeft}

// Direction returns the player direction of a move action. ok is false for Settle.
func (a Action) Direction() (d engine.Direction, ok bool) {
	switch a {
	case MoveUp:
		return engine.Up, true
	case MoveRight:
		return engine.Right, true
	case MoveDown:
		return engine.Down, true
	case MoveLeft:
		return engine.Left, true
	}
	return engine.Up, false
}

// Name returns the action as accepted by the game engine's Move
func (a Action) Name() string {
	if d, ok := a.Direction(); ok {
		return d.String()
	}
	return engine.WaitAction
}

func (a Action) String() string {
	if d, ok := a.Direction(); ok {
		return string(d.Letter())
	}
	return "."
}

// ActionFor returns the move action for d
func ActionFor(d engine.Direction) Action {
	return MoveUp + Action(d)
}

// ParseActions reads the compact notation produced by FormatActions
func ParseActions(s string) ([]Action, error) {
	actions := make([]Action, 0, len(s))
	for i, ch := range s {
		switch ch {
		case '.':
			actions = append(actions, Settle)
		case 'U', 'u':
			actions = append(actions, MoveUp)
		case 'R', 'r':
			actions = append(actions, MoveRight)
		case 'D', 'd':
			actions = append(actions, MoveDown)
		case 'L', 'l':
			actions = append(actions, MoveLeft)
		default:
			return nil, fmt.Errorf("%w %q at offset %d", ErrUnknownAction, ch, i)
		}
	}
	return actions, nil
}

// FormatActions renders actions compactly, one character each
func FormatActions(actions []Action) string {
	var sb strings.Builder
	for _, a := range actions {
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Options bound and instrument a search
type Options struct {
	// MaxExpansions stops the search after that many new configurations.
	// Zero means unbounded.
	MaxExpansions int

	// OnExpand is called with the fingerprint of every configuration the
	// search pushes onto its stack
	OnExpand func(engine.Fingerprint)
}

// Result describes a finished search
type Result struct {
	Solvable bool `json:"solvable"`

	// Actions is the full path including Settle turns; Moves holds only the
	// player directions from it
	Actions []Action           `json:"-"`
	Moves   []engine.Direction `json:"-"`

	Expansions int           `json:"expansions"`
	Visited    int           `json:"visited"`
	Duration   time.Duration `json:"duration"`
}

// Path returns the solution in compact notation, settle turns included
func (r *Result) Path() string {
	return FormatActions(r.Actions)
}

// MovesString returns only the player moves, e.g. "RRUL"
func (r *Result) MovesString() string {
	var sb strings.Builder
	for _, d := range r.Moves {
		sb.WriteByte(d.Letter())
	}
	return sb.String()
}

func (r *Result) String() string {
	if !r.Solvable {
		return "unsolvable"
	}
	return fmt.Sprintf("solvable (%d moves) %s", len(r.Moves), r.Path())
}

// frame is one level of the search stack
type frame struct {
	action    int
	movements []engine.Movement
}

// undo reverts the frame's resolution step, then the player's move
func (f frame) undo(board *engine.Board) {
	board.Revert(f.movements)
	if d, ok := Actions[f.action].Direction(); ok {
		board.RevertPlayer(d)
	}
}

func unwind(board *engine.Board, stack []frame) {
	for i := len(stack) - 1; i >= 0; i-- {
		stack[i].undo(board)
	}
}

// Solve runs the search on board, which it mutates in place
func Solve(ctx context.Context, board *engine.Board, opts Options) (*Result, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{}

	visited := mapset.New[string]()
	visited.Put(board.Fingerprint().Key())

	var stack []frame
	next := 0
	for {
		if err := ctx.Err(); err != nil {
			unwind(board, stack)
			return nil, err
		}
		if opts.MaxExpansions > 0 && result.Expansions >= opts.MaxExpansions {
			unwind(board, stack)
			return nil, fmt.Errorf("%w: %d configurations expanded", ErrSearchBudgetExceeded, result.Expansions)
		}

		if next == len(Actions) {
			if len(stack) == 0 {
				break
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.undo(board)
			next = top.action + 1
			continue
		}

		if d, ok := Actions[next].Direction(); ok && !board.MovePlayer(d) {
			next++
			continue
		}

		f := frame{action: next, movements: board.Step()}
		fp := board.Fingerprint()
		key := fp.Key()
		if visited.Has(key) {
			f.undo(board)
			next++
			continue
		}

		visited.Put(key)
		stack = append(stack, f)
		result.Expansions++
		if opts.OnExpand != nil {
			opts.OnExpand(fp)
		}

		if board.LevelCompleted() {
			result.Solvable = true
			for _, f := range stack {
				a := Actions[f.action]
				result.Actions = append(result.Actions, a)
				if d, ok := a.Direction(); ok {
					result.Moves = append(result.Moves, d)
				}
			}
			break
		}
		next = 0
	}

	result.Visited = visited.Size()
	result.Duration = time.Since(start)

	log.WithFields(log.Fields{
		"solvable":   result.Solvable,
		"moves":      len(result.Moves),
		"expansions": result.Expansions,
		"visited":    result.Visited,
		"duration":   result.Duration,
	}).Debug("search finished")

	return result, nil
}

// Replay plays actions on board as turns: a move followed by a resolution
// step, or a resolution step alone for Settle
func Replay(board *engine.Board, actions []Action) error {
	for i, a := range actions {
		if d, ok := a.Direction(); ok && !board.MovePlayer(d) {
			return fmt.Errorf("turn %d: cannot move %s from (%d,%d)", i+1, d, board.Player().Row, board.Player().Col)
		}
		board.Step()
	}
	return nil
}
