package engine

import (
	"fmt"
	"strings"
)

// Force represents the polarity or passability of a single tile face
type Force uint8

const (
	Passthrough Force = iota
	Positive
	Negative
	Blocking
)

const (
	// Validation constants
	MaxBulkMoves = 50

	// WaitAction performs a resolution step without moving the player
	WaitAction = "wait"
)

// ParseForce maps a face character to a Force. Both '0' and ' ' mark Blocking.
func ParseForce(c byte) (Force, bool) {
	switch c {
	case '+':
		return Positive, true
	case '-':
		return Negative, true
	case '_':
		return Passthrough, true
	case '0', ' ':
		return Blocking, true
	}
	return Passthrough, false
}

// Polarized reports whether f takes part in attraction and repulsion
func (f Force) Polarized() bool {
	return f == Positive || f == Negative
}

// Char returns the glyph character for f
func (f Force) Char() byte {
	switch f {
	case Positive:
		return '+'
	case Negative:
		return '-'
	case Blocking:
		return ' '
	default:
		return '_'
	}
}

func (f Force) String() string {
	switch f {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Blocking:
		return "blocking"
	default:
		return "passthrough"
	}
}

// Direction is one of the four cardinal directions, also used to index tile faces
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists the cardinal directions in face order
var Directions = [...]Direction{Up, Right, Down, Left}

// Delta returns the row and column offsets of one step in d
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return -1, 0
	case Right:
		return 0, 1
	case Down:
		return 1, 0
	default:
		return 0, -1
	}
}

// Reverse returns the opposite direction
func (d Direction) Reverse() Direction {
	return (d + 2) % 4
}

// Letter returns the single-letter notation used in solutions (U, R, D, L)
func (d Direction) Letter() byte {
	return "URDL"[d%4]
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	default:
		return "left"
	}
}

// ParseDirection accepts full names and single letters, case-insensitively
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "right", "r":
		return Right, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	}
	return Up, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Kind is the closed set of tile variants
type Kind uint8

const (
	KindEmpty Kind = iota
	KindUnpathable
	KindWall
	KindPlayer
	KindMagnet
)

// Glyph returns the centre character used for the kind in map text
func (k Kind) Glyph() byte {
	switch k {
	case KindUnpathable:
		return 'X'
	case KindWall:
		return 'W'
	case KindPlayer:
		return 'P'
	case KindMagnet:
		return 'M'
	default:
		return '_'
	}
}

// Polarized reports whether the kind carries per-face forces
func (k Kind) Polarized() bool {
	return k == KindWall || k == KindPlayer || k == KindMagnet
}

// Movable reports whether the resolution step can displace the kind
func (k Kind) Movable() bool {
	return k == KindMagnet
}

func (k Kind) String() string {
	switch k {
	case KindUnpathable:
		return "unpathable"
	case KindWall:
		return "wall"
	case KindPlayer:
		return "player"
	case KindMagnet:
		return "magnet"
	default:
		return "empty"
	}
}

// Entity is a tile. Faces is indexed by Direction and is only meaningful for
// polarized kinds; it never changes after construction.
type Entity struct {
	Kind  Kind     `json:"kind"`
	Faces [4]Force `json:"faces"`
}

// ForceOnFace returns the force the entity projects toward d
func (e Entity) ForceOnFace(d Direction) Force {
	switch e.Kind {
	case KindWall, KindPlayer, KindMagnet:
		return e.Faces[d]
	default:
		return Passthrough
	}
}

// EntityID indexes the board's entity registry
type EntityID int

// Position represents row,col coordinates
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Step returns the neighbouring position in d
func (p Position) Step(d Direction) Position {
	dr, dc := d.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// Movement records one displacement applied by a resolution step
type Movement struct {
	Entity EntityID `json:"entity"`
	Row    int      `json:"row"`
	Col    int      `json:"col"`
	DRow   int      `json:"drow"`
	DCol   int      `json:"dcol"`
}

func (m Movement) String() string {
	return fmt.Sprintf("(%d%+d,%d%+d)", m.Row, m.DRow, m.Col, m.DCol)
}

// Level is a named map as loaded from disk
type Level struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Map  []string `json:"map"`
}

// GameState is a snapshot of a game for display and transport
type GameState struct {
	LevelID     string             `json:"level_id"`
	Rows        int                `json:"rows"`
	Cols        int                `json:"cols"`
	Board       []string           `json:"board"`
	PlayerPos   Position           `json:"player_pos"`
	GoalPos     Position           `json:"goal_pos"`
	Magnets     []Position         `json:"magnets"`
	Turns       int                `json:"turns"`
	Completed   bool               `json:"completed"`
	Message     string             `json:"message"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// MoveHistoryEntry represents a single turn in the game history
type MoveHistoryEntry struct {
	Action       string     `json:"action"`
	FromPosition Position   `json:"from_position"`
	ToPosition   Position   `json:"to_position"`
	Movements    []Movement `json:"movements,omitempty"`
	Timestamp    int64      `json:"timestamp"`
	Success      bool       `json:"success"`
	MoveNumber   int        `json:"move_number"`
}
