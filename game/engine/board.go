package engine

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// emptyID is the shared registry slot for every Empty cell
const emptyID EntityID = 0

// Board is the grid of one level. Cells hold entity ids; the player's and the
// magnets' coordinates live only in positions and are updated by swap.
type Board struct {
	rows, cols int
	entities   []Entity
	cells      []EntityID
	positions  []Position
	player     EntityID
	goal       Position
	magnets    []EntityID
	padded     bool
}

// ParseBoard builds a Board from map text. Each 3x3 block of characters is one
// tile; the centre selects the kind and, for walls, players and magnets, the
// top, right, bottom and left edge characters give the face forces. A map whose
// outer ring is not entirely walls is padded with one ring of blocking walls.
func ParseBoard(lines []string) (*Board, error) {
	if len(lines) == 0 || len(lines[0]) == 0 {
		return nil, &MapFormatError{Reason: "map is empty"}
	}

	width := len(lines[0])
	if len(lines)%3 != 0 || width%3 != 0 {
		return nil, &MapFormatError{Reason: fmt.Sprintf("dimensions %dx%d are not multiples of 3", len(lines), width)}
	}
	for i, line := range lines {
		if len(line) != width {
			return nil, &MapFormatError{Line: i + 1, Reason: fmt.Sprintf("row has %d characters, expected %d", len(line), width)}
		}
	}

	b := &Board{
		rows:     len(lines) / 3,
		cols:     width / 3,
		entities: []Entity{{Kind: KindEmpty}},
		player:   -1,
	}
	b.cells = make([]EntityID, b.rows*b.cols)
	b.positions = make([]Position, 1)

	goalFound := false
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			var tile [3]string
			for i := range tile {
				tile[i] = lines[3*r+i][3*c : 3*c+3]
			}

			e, err := parseTile(tile, 3*r+1, 3*c+1)
			if err != nil {
				return nil, err
			}

			pos := Position{Row: r, Col: c}
			id := emptyID
			if e.Kind != KindEmpty {
				id = b.register(e, pos)
			}
			b.cells[b.index(pos)] = id

			switch tile[1][1] {
			case 'G':
				b.goal = pos
				goalFound = true
			case 'P':
				if b.player >= 0 {
					return nil, &MapSemanticError{Reason: fmt.Sprintf("more than one player (P), second at tile (%d,%d)", r, c)}
				}
				b.player = id
			case 'M':
				b.magnets = append(b.magnets, id)
			}
		}
	}

	if b.player < 0 {
		return nil, &MapSemanticError{Reason: "missing player (P)"}
	}
	if !goalFound {
		return nil, &MapSemanticError{Reason: "missing goal (G)"}
	}

	if !b.walled() {
		b.pad()
	}

	return b, nil
}

// parseTile decodes one 3x3 block. line and col locate its top-left character.
func parseTile(tile [3]string, line, col int) (Entity, error) {
	center := tile[1][1]
	switch center {
	case '_', 'G':
		return Entity{Kind: KindEmpty}, nil
	case 'X':
		return Entity{Kind: KindUnpathable}, nil
	case 'W', 'P', 'M':
	default:
		return Entity{}, &MapFormatError{Line: line + 1, Col: col + 1, Reason: fmt.Sprintf("unknown tile %q", center)}
	}

	faceAt := [4]struct{ r, c int }{
		Up:    {0, 1},
		Right: {1, 2},
		Down:  {2, 1},
		Left:  {1, 0},
	}

	e := Entity{}
	switch center {
	case 'W':
		e.Kind = KindWall
	case 'P':
		e.Kind = KindPlayer
	case 'M':
		e.Kind = KindMagnet
	}
	for _, d := range Directions {
		at := faceAt[d]
		ch := tile[at.r][at.c]
		f, ok := ParseForce(ch)
		if !ok {
			return Entity{}, &MapFormatError{Line: line + at.r, Col: col + at.c, Reason: fmt.Sprintf("unknown force %q on %s face", ch, d)}
		}
		e.Faces[d] = f
	}
	return e, nil
}

// register adds e to the entity registry and returns its id
func (b *Board) register(e Entity, pos Position) EntityID {
	id := EntityID(len(b.entities))
	b.entities = append(b.entities, e)
	b.positions = append(b.positions, pos)
	return id
}

// walled reports whether the outer ring consists only of walls
func (b *Board) walled() bool {
	for r := 0; r < b.rows; r++ {
		if b.kindAt(r, 0) != KindWall || b.kindAt(r, b.cols-1) != KindWall {
			return false
		}
	}
	for c := 0; c < b.cols; c++ {
		if b.kindAt(0, c) != KindWall || b.kindAt(b.rows-1, c) != KindWall {
			return false
		}
	}
	return true
}

// pad surrounds the grid with blocking walls and shifts every coordinate by one
func (b *Board) pad() {
	for id := range b.positions {
		b.positions[id].Row++
		b.positions[id].Col++
	}
	b.goal.Row++
	b.goal.Col++

	wall := b.register(Entity{Kind: KindWall, Faces: [4]Force{Blocking, Blocking, Blocking, Blocking}}, Position{})
	rows, cols := b.rows+2, b.cols+2
	cells := make([]EntityID, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == 0 || c == 0 || r == rows-1 || c == cols-1 {
				cells[r*cols+c] = wall
				continue
			}
			cells[r*cols+c] = b.cells[(r-1)*b.cols+(c-1)]
		}
	}

	b.rows, b.cols, b.cells = rows, cols, cells
	b.padded = true
}

func (b *Board) index(p Position) int {
	return p.Row*b.cols + p.Col
}

func (b *Board) inBounds(p Position) bool {
	return p.Row >= 0 && p.Row < b.rows && p.Col >= 0 && p.Col < b.cols
}

func (b *Board) kindAt(r, c int) Kind {
	return b.entities[b.cells[r*b.cols+c]].Kind
}

// isEmpty reports whether p is on the board and holds an Empty entity
func (b *Board) isEmpty(p Position) bool {
	return b.inBounds(p) && b.entities[b.cells[b.index(p)]].Kind == KindEmpty
}

// swap exchanges the contents of two cells and keeps the position map in step
func (b *Board) swap(p, q Position) {
	i, j := b.index(p), b.index(q)
	b.cells[i], b.cells[j] = b.cells[j], b.cells[i]
	b.track(b.cells[i], p)
	b.track(b.cells[j], q)
}

// track records p as the position of id when id is the player or a magnet
func (b *Board) track(id EntityID, p Position) {
	switch b.entities[id].Kind {
	case KindPlayer, KindMagnet:
		b.positions[id] = p
	}
}

// Rows returns the number of tile rows, padding included
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of tile columns, padding included
func (b *Board) Cols() int { return b.cols }

// Padded reports whether a wall ring was added around the parsed map
func (b *Board) Padded() bool { return b.padded }

// At returns the entity occupying p. Out-of-range positions report Empty.
func (b *Board) At(p Position) Entity {
	if !b.inBounds(p) {
		return Entity{Kind: KindEmpty}
	}
	return b.entities[b.cells[b.index(p)]]
}

// IDAt returns the id of the entity occupying p, or -1 when p is off the board
func (b *Board) IDAt(p Position) EntityID {
	if !b.inBounds(p) {
		return -1
	}
	return b.cells[b.index(p)]
}

// Player returns the player's position
func (b *Board) Player() Position {
	return b.positions[b.player]
}

// Goal returns the goal position
func (b *Board) Goal() Position {
	return b.goal
}

// Magnets returns magnet positions in their fixed enumeration order
func (b *Board) Magnets() []Position {
	out := make([]Position, len(b.magnets))
	for i, id := range b.magnets {
		out[i] = b.positions[id]
	}
	return out
}

// LevelCompleted reports whether the player stands on the goal
func (b *Board) LevelCompleted() bool {
	return b.Player() == b.goal
}

// Clone returns an independent copy of the board
func (b *Board) Clone() *Board {
	c := *b
	c.entities = append([]Entity(nil), b.entities...)
	c.cells = append([]EntityID(nil), b.cells...)
	c.positions = append([]Position(nil), b.positions...)
	c.magnets = append([]EntityID(nil), b.magnets...)
	return &c
}

// Validate checks the structural invariants a search relies on
func (b *Board) Validate() error {
	if b == nil || b.rows < 3 || b.cols < 3 || len(b.cells) != b.rows*b.cols {
		return fmt.Errorf("%w: grid is not initialised", ErrInvalidBoard)
	}
	if !b.walled() {
		return fmt.Errorf("%w: outer ring is not walled", ErrInvalidBoard)
	}
	if b.player < 0 || int(b.player) >= len(b.entities) || b.entities[b.player].Kind != KindPlayer {
		return fmt.Errorf("%w: no player entity", ErrInvalidBoard)
	}
	if !b.inBounds(b.goal) {
		return fmt.Errorf("%w: goal (%d,%d) is off the board", ErrInvalidBoard, b.goal.Row, b.goal.Col)
	}
	for _, id := range append([]EntityID{b.player}, b.magnets...) {
		p := b.positions[id]
		if !b.inBounds(p) || b.cells[b.index(p)] != id {
			return fmt.Errorf("%w: entity %d is not at its recorded position (%d,%d)", ErrInvalidBoard, id, p.Row, p.Col)
		}
	}
	return nil
}

// Fingerprint is the ordered tuple (player row, player col, then each
// magnet's row and col in enumeration order)
type Fingerprint []int

// Fingerprint returns the current configuration's fingerprint
func (b *Board) Fingerprint() Fingerprint {
	fp := make(Fingerprint, 0, 2*(len(b.magnets)+1))
	p := b.Player()
	fp = append(fp, p.Row, p.Col)
	for _, id := range b.magnets {
		m := b.positions[id]
		fp = append(fp, m.Row, m.Col)
	}
	return fp
}

// Equal reports whether every coordinate matches
func (f Fingerprint) Equal(o Fingerprint) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if f[i] != o[i] {
			return false
		}
	}
	return true
}

// Key packs the fingerprint into a comparable string for use in sets
func (f Fingerprint) Key() string {
	buf := make([]byte, 0, 2*len(f))
	for _, v := range f {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	return string(buf)
}

func (f Fingerprint) String() string {
	parts := make([]string, 0, len(f)/2)
	for i := 0; i+1 < len(f); i += 2 {
		parts = append(parts, fmt.Sprintf("(%d,%d)", f[i], f[i+1]))
	}
	return strings.Join(parts, " ")
}
