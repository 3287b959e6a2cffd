package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MLLeKander/Magnets/game/engine"
)

const prompt = "[wasd q]:"

// readAction prompts until a usable line arrives. An empty line means wait.
// ok is false on q or end of input.
func readAction(scanner *bufio.Scanner, out io.Writer) (action string, ok bool) {
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return engine.WaitAction, true
		}
		switch line[0] {
		case 'w', 'k':
			return "up", true
		case 'd', 'l':
			return "right", true
		case 's', 'j':
			return "down", true
		case 'a', 'h':
			return "left", true
		case 'q':
			return "", false
		}
	}
}

// play runs the interactive loop until the goal is reached, the player quits
// or input ends. It returns whether the level was completed.
func play(in io.Reader, out io.Writer, eng *engine.GameEngine) (bool, error) {
	scanner := bufio.NewScanner(in)

	for !eng.IsCompleted() {
		fmt.Fprint(out, eng.Board().Render())

		for {
			action, ok := readAction(scanner, out)
			if !ok {
				fmt.Fprintln(out)
				return false, scanner.Err()
			}
			if eng.Move(action) {
				break
			}
		}
	}

	fmt.Fprint(out, eng.Board().Render())
	fmt.Fprintln(out, "You won. Hurray...")
	fmt.Fprintf(out, "Score: %d\n", eng.GetTurns())
	return true, nil
}
