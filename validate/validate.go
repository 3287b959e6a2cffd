// Command validate provides a small CLI that validates the map files in a
// levels directory (../levels by default). It checks:
//   - the map parses: line lengths, 3x3 tiles and face characters
//   - exactly one player and one goal
//   - the level is solvable within the search budget
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/solver"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// Options bounds the solvability check
type Options struct {
	MaxExpansions int
	Timeout       time.Duration
}

// validateLevel loads a map file, checks its structure and searches it for a
// solution.
func validateLevel(ctx context.Context, filePath string, opts Options) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}
	fail := func(format string, args ...interface{}) ValidationResult {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		return result
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fail("Failed to read file: %v", err)
	}
	lines, err := engine.ReadMapLines(f)
	f.Close()
	if err != nil {
		return fail("Failed to read file: %v", err)
	}

	board, err := engine.ParseBoard(lines)
	switch {
	case errors.Is(err, engine.ErrMapFormat):
		return fail("Format error: %v", err)
	case errors.Is(err, engine.ErrMapSemantic):
		return fail("Semantic error: %v", err)
	case err != nil:
		return fail("Invalid map: %v", err)
	}

	rows, cols, padded := board.Rows(), board.Cols(), board.Padded()
	magnets := len(board.Magnets())

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	res, err := solver.Solve(ctx, board, solver.Options{MaxExpansions: opts.MaxExpansions})
	switch {
	case errors.Is(err, solver.ErrSearchBudgetExceeded):
		return fail("Search gave up: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fail("Search timed out after %s", opts.Timeout)
	case err != nil:
		return fail("Search failed: %v", err)
	case !res.Solvable:
		return fail("Unsolvable: %d configurations explored without reaching the goal", res.Visited)
	}

	grid := fmt.Sprintf("✓ Grid: %dx%d", rows, cols)
	if padded {
		grid += " (padded)"
	}
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Name: %s", engine.LevelIDFromPath(filePath)),
		grid,
		fmt.Sprintf("✓ Magnets: %d", magnets),
		fmt.Sprintf("✓ Solution: %d moves %s", len(res.Moves), res.Path()),
		fmt.Sprintf("✓ Explored: %d configurations", res.Visited),
	)
	return result
}

// levelFiles lists the map files in dir in name order
func levelFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range engine.LevelExtensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main validates every map in the levels directory, printing a concise report
// and exiting with non-zero status if any are invalid or unsolvable.
func main() {
	maxExpansions := flag.Int("max-expansions", 1_000_000, "give up on a level after this many configurations")
	timeout := flag.Duration("timeout", 30*time.Second, "give up on a level after this long")
	flag.Parse()

	levelDir := "../levels"
	if flag.NArg() > 0 {
		levelDir = flag.Arg(0)
	}

	files, err := levelFiles(levelDir)
	if err != nil {
		fmt.Printf("Error finding level files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No level files found in %s\n", levelDir)
		os.Exit(1)
	}

	opts := Options{MaxExpansions: *maxExpansions, Timeout: *timeout}
	allValid := true
	for _, file := range files {
		result := validateLevel(context.Background(), file, opts)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All levels are valid!")
	} else {
		fmt.Println("❌ Some levels have errors")
		os.Exit(1)
	}
}
