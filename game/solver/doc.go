// Package solver searches a Magnets board for a sequence of turns that brings
// the player to the goal.
//
// The search is a depth-first traversal over an explicit frame stack. Each
// frame records the action taken at that depth and the magnet movements the
// following resolution step produced, so backtracking is a matter of
// reverting those movements and then the player's own displacement. A set of
// board fingerprints prevents any configuration from being expanded twice.
//
// Actions are tried in a fixed order: Settle (resolution only), then Up,
// Right, Down and Left. The first solution found is returned; it is not
// necessarily the shortest.
//
// Usage:
//
//	board, err := level.NewBoard()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := solver.Solve(ctx, board, solver.Options{MaxExpansions: 1_000_000})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result)
//
// Solve leaves a solved board in its goal configuration. An unsolvable board,
// or a search stopped by its budget or context, is restored to where it began.
package solver
