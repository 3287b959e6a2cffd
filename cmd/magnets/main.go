// Command magnets plays and solves Magnets levels from the terminal.
//
//	magnets play LEVEL      line-based play: wasd or hjkl, empty line waits, q quits
//	magnets tui LEVEL       full-screen play
//	magnets solve FILE...   search every level for a solution
//
// LEVEL is a map file path or a level id looked up in LEVELS_DIR.
package main

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/MLLeKander/Magnets/game/engine"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "magnets",
		Usage: "play and solve Magnets puzzles",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.SetOutput(os.Stderr)
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			playCommand(),
			tuiCommand(),
			solveCommand(),
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "play a level by typing moves",
		ArgsUsage: "LEVEL",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level, err := loadLevel(cmd.Args().First())
			if err != nil {
				return err
			}
			eng, err := engine.NewEngine(level)
			if err != nil {
				return err
			}
			_, err = play(input(cmd), output(cmd), eng)
			return err
		},
	}
}

func input(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// loadLevel reads a map file, or a level id from LEVELS_DIR when no such file exists
func loadLevel(arg string) (*engine.Level, error) {
	if arg == "" {
		return nil, cli.Exit("a level file or id is required", 2)
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return engine.LoadLevelFile(arg)
	}
	return engine.LoadLevelByName(arg)
}
