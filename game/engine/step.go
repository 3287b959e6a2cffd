package engine

// motion classifies the interaction of one face with the force it sees
type motion int8

const (
	repel   motion = -1
	still   motion = 0
	attract motion = 1
)

func (m motion) reverse() motion {
	return -m
}

// combine merges two classifications on one axis. Disagreement cancels out.
func (m motion) combine(o motion) motion {
	switch {
	case o == still:
		return m
	case m == still:
		return o
	case m == o:
		return m
	}
	return still
}

// forceFrom casts a ray from p toward d and returns the first non-passthrough
// force facing back at p. Leaving the board yields Passthrough.
func (b *Board) forceFrom(d Direction, p Position) Force {
	back := d.Reverse()
	for {
		p = p.Step(d)
		if !b.inBounds(p) {
			return Passthrough
		}
		if f := b.entities[b.cells[b.index(p)]].ForceOnFace(back); f != Passthrough {
			return f
		}
	}
}

// motionFrom classifies how the face base, on the d side of p, reacts to the
// force found by casting toward d
func (b *Board) motionFrom(d Direction, p Position, base Force) motion {
	if !base.Polarized() {
		return still
	}
	from := b.forceFrom(d, p)
	if !from.Polarized() {
		return still
	}
	if from == base {
		return repel
	}
	return attract
}

// Step runs one round of force resolution. Every magnet's displacement is
// computed from the board as it stands on entry; the displacements are then
// applied in row-major order, each only if its target is empty at that moment.
// It returns the movements actually applied.
func (b *Board) Step() []Movement {
	type intent struct {
		pos    Position
		dr, dc int
	}

	var intents []intent
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			p := Position{Row: r, Col: c}
			e := b.entities[b.cells[b.index(p)]]
			if !e.Kind.Movable() {
				continue
			}

			up := b.motionFrom(Up, p, e.Faces[Up])
			right := b.motionFrom(Right, p, e.Faces[Right])
			down := b.motionFrom(Down, p, e.Faces[Down])
			left := b.motionFrom(Left, p, e.Faces[Left])

			dr := int(down.combine(up.reverse()))
			dc := int(right.combine(left.reverse()))
			if dr != 0 || dc != 0 {
				intents = append(intents, intent{pos: p, dr: dr, dc: dc})
			}
		}
	}

	movements := make([]Movement, 0, len(intents))
	for _, in := range intents {
		target := Position{Row: in.pos.Row + in.dr, Col: in.pos.Col + in.dc}
		if !b.isEmpty(target) {
			continue
		}
		movements = append(movements, Movement{
			Entity: b.cells[b.index(in.pos)],
			Row:    in.pos.Row,
			Col:    in.pos.Col,
			DRow:   in.dr,
			DCol:   in.dc,
		})
		b.swap(in.pos, target)
	}
	return movements
}
