package engine

// CountKind counts the cells holding an entity of the given kind
func (b *Board) CountKind(kind Kind) int {
	count := 0
	for _, id := range b.cells {
		if b.entities[id].Kind == kind {
			count++
		}
	}
	return count
}

// CountPolarizedFaces counts faces carrying a Positive or Negative force across
// all walls, magnets and the player
func (b *Board) CountPolarizedFaces() int {
	count := 0
	for _, id := range b.cells {
		e := b.entities[id]
		if !e.Kind.Polarized() {
			continue
		}
		for _, f := range e.Faces {
			if f.Polarized() {
				count++
			}
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// GoalBlocked reports whether something other than Empty occupies the goal.
// The player cannot finish until it moves off.
func (b *Board) GoalBlocked() bool {
	if b.LevelCompleted() {
		return false
	}
	return b.At(b.goal).Kind != KindEmpty
}
