// Command analyze prints quick, human-readable heuristics about map files. It
// summarizes dimensions, padding, magnet and polarized-face counts, an upper
// bound on the number of reachable configurations, and whether the goal is
// walled off from the player.
//
// With no arguments every map in the levels directory is analyzed.
package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"sort"

	"github.com/MLLeKander/Magnets/game/engine"
)

// LevelReport is the analysis of a single map
type LevelReport struct {
	Name           string
	Rows, Cols     int
	Padded         bool
	Magnets        int
	Walls          int
	Unpathable     int
	PolarizedFaces int
	FreeCells      int
	Player, Goal   engine.Position
	Distance       int
	GoalBlocked    bool
	GoalReachable  bool
	StateBound     *big.Int
}

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		dir := os.Getenv("LEVELS_DIR")
		if dir == "" {
			dir = "levels"
		}
		paths = levelFiles(dir)
	}

	failed := 0
	for _, path := range paths {
		fmt.Printf("\n=== Analyzing %s ===\n", path)
		if err := analyzeFile(os.Stdout, path); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func levelFiles(dir string) []string {
	var paths []string
	for _, ext := range engine.LevelExtensions {
		matches, _ := filepath.Glob(filepath.Join(dir, "*"+ext))
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths
}

func analyzeFile(w io.Writer, path string) error {
	level, err := engine.LoadLevelFile(path)
	if err != nil {
		return err
	}
	board, err := level.NewBoard()
	if err != nil {
		return err
	}
	printReport(w, analyze(level.Name, board))
	return nil
}

func analyze(name string, b *engine.Board) LevelReport {
	r := LevelReport{
		Name:           name,
		Rows:           b.Rows(),
		Cols:           b.Cols(),
		Padded:         b.Padded(),
		Magnets:        b.CountKind(engine.KindMagnet),
		Walls:          b.CountKind(engine.KindWall),
		Unpathable:     b.CountKind(engine.KindUnpathable),
		PolarizedFaces: b.CountPolarizedFaces(),
		Player:         b.Player(),
		Goal:           b.Goal(),
		GoalBlocked:    b.GoalBlocked(),
		GoalReachable:  goalReachable(b),
	}
	r.FreeCells = r.Rows*r.Cols - r.Walls - r.Unpathable
	r.Distance = engine.ManhattanDistance(r.Player, r.Goal)
	r.StateBound = stateBound(r.FreeCells, r.Magnets)
	return r
}

// stateBound counts the ways to place the player and every magnet on distinct
// free cells. Each configuration the search can reach is one of them.
func stateBound(free, magnets int) *big.Int {
	bound := big.NewInt(1)
	for i := 0; i <= magnets && free-i > 0; i++ {
		bound.Mul(bound, big.NewInt(int64(free-i)))
	}
	return bound
}

// goalReachable floods from the player through every cell that is not a wall
// or unpathable. Magnets count as passable since they can be moved away.
func goalReachable(b *engine.Board) bool {
	seen := map[engine.Position]bool{b.Player(): true}
	queue := []engine.Position{b.Player()}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p == b.Goal() {
			return true
		}
		for _, d := range engine.Directions {
			q := p.Step(d)
			if q.Row < 0 || q.Col < 0 || q.Row >= b.Rows() || q.Col >= b.Cols() || seen[q] {
				continue
			}
			if k := b.At(q).Kind; k == engine.KindWall || k == engine.KindUnpathable {
				continue
			}
			seen[q] = true
			queue = append(queue, q)
		}
	}
	return false
}

func printReport(w io.Writer, r LevelReport) {
	fmt.Fprintf(w, "Name: %s\n", r.Name)
	padded := ""
	if r.Padded {
		padded = " (padded with a wall ring)"
	}
	fmt.Fprintf(w, "Grid Size: %d x %d%s\n", r.Rows, r.Cols, padded)
	fmt.Fprintf(w, "Player: (%d,%d)  Goal: (%d,%d)  Distance: %d\n", r.Player.Row, r.Player.Col, r.Goal.Row, r.Goal.Col, r.Distance)
	fmt.Fprintf(w, "Magnets: %d\n", r.Magnets)
	fmt.Fprintf(w, "Walls: %d  Unpathable: %d  Free cells: %d\n", r.Walls, r.Unpathable, r.FreeCells)
	fmt.Fprintf(w, "Polarized faces: %d\n", r.PolarizedFaces)
	fmt.Fprintf(w, "Configuration bound: %s\n", r.StateBound)

	if r.GoalBlocked {
		fmt.Fprintf(w, "⚠️  WARNING: the goal starts occupied\n")
	}
	if r.GoalReachable {
		fmt.Fprintf(w, "✅ The goal is connected to the player\n")
	} else {
		fmt.Fprintf(w, "⚠️  CRITICAL: walls cut the goal off from the player\n")
	}
	if r.PolarizedFaces == 0 {
		fmt.Fprintf(w, "ℹ️  No polarized faces, magnets never move\n")
	}
}
