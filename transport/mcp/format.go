package mcp

import (
	"fmt"
	"strings"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
)

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\n\n%s",
		session.ID, session.LevelID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	fmt.Fprintf(&result, "Level: %s | Player: (%d,%d) | Goal: (%d,%d) | Magnets: %d | Turns: %d\n\n",
		state.LevelID,
		state.PlayerPos.Row, state.PlayerPos.Col,
		state.GoalPos.Row, state.GoalPos.Col,
		len(state.Magnets), state.Turns)

	// Board, fenced so leading spaces survive
	result.WriteString("```\n")
	for _, line := range state.Board {
		result.WriteString(line)
		result.WriteString("\n")
	}
	result.WriteString("```\n")

	if state.Completed {
		fmt.Fprintf(&result, "\n🎉 LEVEL COMPLETE in %d turns", state.Turns)
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

func formatMovements(movements []engine.Movement) string {
	if len(movements) == 0 {
		return "none"
	}
	parts := make([]string, len(movements))
	for i, m := range movements {
		parts[i] = fmt.Sprintf("(%d,%d)→(%d,%d)", m.Row, m.Col, m.Row+m.DRow, m.Col+m.DCol)
	}
	return strings.Join(parts, " ")
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Move successful\n")
	} else {
		b.WriteString("✗ Move failed\n")
	}

	if s := result.Step; s != nil {
		fmt.Fprintf(&b, "Step: %s (%d,%d)→(%d,%d) magnets: %s\n",
			s.Action, s.From.Row, s.From.Col, s.To.Row, s.To.Col, formatMovements(s.Movements))
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	levelID := ""
	if result.GameState != nil {
		levelID = result.GameState.LevelID
	}
	fmt.Fprintf(&b, "Session: %s • Level: %s\n", sessionID, levelID)

	fmt.Fprintf(&b, "Executed %d/%d moves\n", result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Only the first %d moves were played\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d (%s): %s\n", result.StoppedOnMove, result.StopReasonCode, result.StoppedReason)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s (%d,%d)→(%d,%d) magnets: %s\n",
				s.Idx, s.Action, s.From.Row, s.From.Col, s.To.Row, s.To.Col, formatMovements(s.Movements))
		}
	}

	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "\nPossible moves: %s\n", strings.Join(result.PossibleMoves, ","))
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d):\n\n", history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s (%d,%d)→(%d,%d)",
			move.MoveNumber, status, move.Action,
			move.FromPosition.Row, move.FromPosition.Col,
			move.ToPosition.Row, move.ToPosition.Col)
		if len(move.Movements) > 0 {
			fmt.Fprintf(&b, " magnets: %s", formatMovements(move.Movements))
		}
		b.WriteString("\n")
	}

	if history.HasNext {
		b.WriteString("\nMore moves available on next page")
	}
	return b.String()
}

func formatSolveResult(result *service.SolveResult) string {
	var b strings.Builder
	if result.Solvable {
		fmt.Fprintf(&b, "✓ %s is solvable in %d moves\n", result.LevelID, result.MoveCount)
		fmt.Fprintf(&b, "Path: %s\n", result.Path)
		fmt.Fprintf(&b, "Moves: %s\n", strings.Join(result.Moves, ","))
	} else {
		fmt.Fprintf(&b, "✗ %s is unsolvable\n", result.LevelID)
	}
	fmt.Fprintf(&b, "Searched %d states (%d visited) in %dms", result.Expansions, result.Visited, result.DurationMS)
	return b.String()
}

var kindByGlyph = map[byte]engine.Kind{
	'P': engine.KindPlayer,
	'M': engine.KindMagnet,
	'W': engine.KindWall,
	'X': engine.KindUnpathable,
	'_': engine.KindEmpty,
	'G': engine.KindEmpty,
}

// describeTile decodes the 3x3 block drawing tile (row, col) of a rendered board
func describeTile(state *engine.GameState, row, col int) (string, error) {
	if row < 0 || col < 0 || row >= state.Rows || col >= state.Cols || len(state.Board) < 3*state.Rows {
		return "", fmt.Errorf("tile (%d,%d) is outside the %dx%d board", row, col, state.Rows, state.Cols)
	}

	var block [3]string
	for i := range block {
		line := state.Board[3*row+i]
		if len(line) < 3*col+3 {
			return "", fmt.Errorf("board line %d is too short", 3*row+i)
		}
		block[i] = line[3*col : 3*col+3]
	}

	glyph := block[1][1]
	kind, ok := kindByGlyph[glyph]
	if !ok {
		return "", fmt.Errorf("unknown tile glyph %q", glyph)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tile (%d,%d): %s\n", row, col, kind)
	pos := engine.Position{Row: row, Col: col}
	if pos == state.GoalPos {
		b.WriteString("This is the goal\n")
	}
	if pos == state.PlayerPos && kind != engine.KindPlayer {
		b.WriteString("The player stands here\n")
	}

	if kind.Polarized() {
		faces := map[engine.Direction]byte{
			engine.Up:    block[0][1],
			engine.Right: block[1][2],
			engine.Down:  block[2][1],
			engine.Left:  block[1][0],
		}
		for _, d := range engine.Directions {
			force, _ := engine.ParseForce(faces[d])
			fmt.Fprintf(&b, "- %s face: %s\n", d, force)
		}
	}

	b.WriteString("```\n")
	for _, line := range block {
		b.WriteString(line + "\n")
	}
	b.WriteString("```")
	return b.String(), nil
}
