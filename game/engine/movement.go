package engine

// CanMoveTo reports whether the player could step onto p
func (b *Board) CanMoveTo(p Position) bool {
	return b.isEmpty(p)
}

// MovePlayer moves the player one cell in d when the destination is empty.
// It never runs force resolution; callers follow it with Step.
func (b *Board) MovePlayer(d Direction) bool {
	from := b.Player()
	to := from.Step(d)
	if !b.CanMoveTo(to) {
		return false
	}
	b.swap(from, to)
	return true
}

// Revert undoes movements returned by Step, last applied first
func (b *Board) Revert(movements []Movement) {
	for i := len(movements) - 1; i >= 0; i-- {
		m := movements[i]
		b.swap(Position{Row: m.Row, Col: m.Col}, Position{Row: m.Row + m.DRow, Col: m.Col + m.DCol})
	}
}

// RevertPlayer undoes a successful MovePlayer(d). Any movements from the
// Step that followed must be reverted first.
func (b *Board) RevertPlayer(d Direction) {
	from := b.Player()
	b.swap(from, from.Step(d.Reverse()))
}

// PossibleMoves lists the directions the player can currently step in
func (b *Board) PossibleMoves() []Direction {
	var moves []Direction
	for _, d := range Directions {
		if b.CanMoveTo(b.Player().Step(d)) {
			moves = append(moves, d)
		}
	}
	return moves
}
