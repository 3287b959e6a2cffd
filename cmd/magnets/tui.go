package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/MLLeKander/Magnets/game/engine"
)

var (
	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444466"))

	unpathableStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#3a3a3a")).
			Foreground(lipgloss.Color("#777777"))

	wallStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#555555")).
			Foreground(lipgloss.Color("#dddddd")).
			Bold(true)

	magnetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)

	goalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffff44")).
			Bold(true)

	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4488ff"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Usage:     "play a level full-screen",
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
			_, err = tea.NewProgram(newModel(eng), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

// model is the bubbletea model for one level
type model struct {
	eng      *engine.GameEngine
	quitting bool
}

func newModel(eng *engine.GameEngine) model {
	return model{eng: eng}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "r":
		m.eng.Reset()
	case "up", "w", "k":
		m.eng.Move("up")
	case "right", "d", "l":
		m.eng.Move("right")
	case "down", "s", "j":
		m.eng.Move("down")
	case "left", "a", "h":
		m.eng.Move("left")
	case " ", ".", "enter":
		m.eng.Move(engine.WaitAction)
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Bye.\n"
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderBoard(m.eng.Board()),
		"  ",
		hudBorderStyle.Render(renderHUD(m.eng.GetState())),
	) + "\n"
}

// renderBoard draws every tile as a 3x3 block, coloured by kind and face force
func renderBoard(b *engine.Board) string {
	lines := make([]string, 0, 3*b.Rows())
	var rows [3]strings.Builder
	for r := 0; r < b.Rows(); r++ {
		for i := range rows {
			rows[i].Reset()
		}
		for c := 0; c < b.Cols(); c++ {
			p := engine.Position{Row: r, Col: c}
			tile := renderTile(b.At(p), b.TileRows(p), p == b.Goal())
			for i := range rows {
				rows[i].WriteString(tile[i])
			}
		}
		for i := range rows {
			lines = append(lines, rows[i].String())
		}
	}
	return strings.Join(lines, "\n")
}

func renderTile(e engine.Entity, text [3]string, goal bool) [3]string {
	var out [3]string
	for i, row := range text {
		var sb strings.Builder
		for j := 0; j < len(row); j++ {
			sb.WriteString(cellStyle(e.Kind, row[j], i == 1 && j == 1, goal).Render(string(row[j])))
		}
		out[i] = sb.String()
	}
	return out
}

func cellStyle(kind engine.Kind, ch byte, centre, goal bool) lipgloss.Style {
	if centre {
		switch {
		case kind == engine.KindPlayer:
			return playerStyle
		case goal && kind == engine.KindEmpty:
			return goalStyle
		case kind == engine.KindMagnet:
			return magnetStyle
		case kind == engine.KindWall:
			return wallStyle
		case kind == engine.KindUnpathable:
			return unpathableStyle
		}
		return emptyStyle
	}
	switch ch {
	case '+':
		return positiveStyle
	case '-':
		return negativeStyle
	}
	switch kind {
	case engine.KindWall:
		return wallStyle
	case engine.KindUnpathable:
		return unpathableStyle
	}
	return emptyStyle
}

func renderHUD(state *engine.GameState) string {
	parts := []string{
		titleStyle.Render("MAGNETS"),
		"",
		fmt.Sprintf("Level: %s", state.LevelID),
		fmt.Sprintf("Turns: %d", state.Turns),
		fmt.Sprintf("Magnets: %d", len(state.Magnets)),
		"",
	}
	if state.Completed {
		parts = append(parts, winnerStyle.Render(fmt.Sprintf("You won in %d turns!", state.Turns)), "")
	} else if state.Message != "" {
		parts = append(parts, state.Message, "")
	}
	parts = append(parts,
		dimStyle.Render("arrows/wasd  move"),
		dimStyle.Render("space/.      wait"),
		dimStyle.Render("r            reset"),
		dimStyle.Render("q            quit"),
	)
	return strings.Join(parts, "\n")
}
