// Package engine holds the Magnets rules.
//
// A map is text where every tile takes three lines of three characters: the
// centre names the entity and the four edge characters are the forces on its
// faces. ParseBoard reads that text into a Board, surrounding it with
// unpathable tiles when the outer ring is not already closed.
//
// Board.Step is the whole physics. It reads a snapshot of the grid, works out
// one displacement per magnet from the faces that look at it, and then applies
// the displacements in row-major order while skipping any that would leave
// empty floor. The Movements it returns are enough for Board.Revert to put
// everything back, and the solver backtracks that way.
//
// GameEngine wraps a Board for interactive play. It counts turns, keeps the
// history of every attempt and can replay a saved list of actions:
//
//	eng, err := engine.NewEngine(level)
//	if err != nil {
//		return err
//	}
//	if eng.Move("up") && eng.IsCompleted() {
//		fmt.Println(eng.GetState().Message)
//	}
package engine
