package engine

import "strings"

// Rows returns the three text rows drawing e
func (e Entity) Rows() [3]string {
	mid := e.Kind.Glyph()
	if !e.Kind.Polarized() {
		return [3]string{"   ", " " + string(mid) + " ", "   "}
	}
	return [3]string{
		" " + string(e.Faces[Up].Char()) + " ",
		string([]byte{e.Faces[Left].Char(), mid, e.Faces[Right].Char()}),
		" " + string(e.Faces[Down].Char()) + " ",
	}
}

// TileRows returns the three text rows for the cell at p. An empty goal cell
// shows G in its centre.
func (b *Board) TileRows(p Position) [3]string {
	e := b.At(p)
	rows := e.Rows()
	if p == b.goal && e.Kind == KindEmpty {
		rows[1] = " G "
	}
	return rows
}

// Lines draws the whole board, three text lines per tile row
func (b *Board) Lines() []string {
	lines := make([]string, 0, 3*b.rows)
	var sb [3]strings.Builder
	for r := 0; r < b.rows; r++ {
		for i := range sb {
			sb[i].Reset()
		}
		for c := 0; c < b.cols; c++ {
			tile := b.TileRows(Position{Row: r, Col: c})
			for i := range sb {
				sb[i].WriteString(tile[i])
			}
		}
		for i := range sb {
			lines = append(lines, sb[i].String())
		}
	}
	return lines
}

// Render returns Lines joined with newlines, ending in a newline
func (b *Board) Render() string {
	return strings.Join(b.Lines(), "\n") + "\n"
}
