package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/solver"
)

type solveOptions struct {
	MaxExpansions int
	Timeout       time.Duration
	ShowMoves     bool
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "search each level for a solution",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-expansions", Usage: "give up after this many configurations (0 = unlimited)"},
			&cli.DurationFlag{Name: "timeout", Usage: "give up on a level after this long (0 = no limit)"},
			&cli.BoolFlag{Name: "show-moves", Usage: "print the action names of each solution"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("at least one level file is required", 2)
			}
			opts := solveOptions{
				MaxExpansions: int(cmd.Int("max-expansions")),
				Timeout:       cmd.Duration("timeout"),
				ShowMoves:     cmd.Bool("show-moves"),
			}
			if failed := solveAll(ctx, output(cmd), paths, opts); failed > 0 {
				return cli.Exit(fmt.Sprintf("%d level(s) could not be searched", failed), 1)
			}
			return nil
		},
	}
}

// solveAll prints one result line per path and returns how many paths
// failed to load or exhausted their budget. Unsolvable levels are not failures.
func solveAll(ctx context.Context, out io.Writer, paths []string, opts solveOptions) int {
	failed := 0
	for _, path := range paths {
		res, err := solveFile(ctx, path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: error: %v\n", path, err)
			continue
		}

		fmt.Fprintf(out, "%s: %s\n", path, res)
		if opts.ShowMoves && res.Solvable {
			names := make([]string, len(res.Actions))
			for i, a := range res.Actions {
				names[i] = a.Name()
			}
			fmt.Fprintf(out, "  moves: %s\n", strings.Join(names, ","))
		}
	}
	return failed
}

func solveFile(ctx context.Context, path string, opts solveOptions) (*solver.Result, error) {
	level, err := engine.LoadLevelFile(path)
	if err != nil {
		return nil, err
	}
	board, err := level.NewBoard()
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res, err := solver.Solve(ctx, board, solver.Options{MaxExpansions: opts.MaxExpansions})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("timed out after %s", opts.Timeout)
	}
	if err != nil {
		return nil, err
	}
	log.WithField("level", level.ID).Debugf("%d configurations visited", res.Visited)
	return res, nil
}
