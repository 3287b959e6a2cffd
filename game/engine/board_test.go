package engine

import (
	"errors"
	"strings"
	"testing"
)

// corridor surrounds a single row of tiles with blocking walls
func corridor(tiles ...string) []string {
	walls := strings.TrimSpace(strings.Repeat("W0000 ", len(tiles)+2))
	return tileMap(walls, "W0000 "+strings.Join(tiles, " ")+" W0000", walls)
}

func TestParseBoard_Walled(t *testing.T) {
	b := mustParse(t, corridor("P____", "_", "G"))

	if b.Rows() != 3 || b.Cols() != 5 {
		t.Fatalf("Expected 3x5 board, got %dx%d", b.Rows(), b.Cols())
	}
	if b.Player() != (Position{Row: 1, Col: 1}) {
		t.Errorf("Expected player at (1,1), got %+v", b.Player())
	}
	if b.Goal() != (Position{Row: 1, Col: 3}) {
		t.Errorf("Expected goal at (1,3), got %+v", b.Goal())
	}
	if len(b.Magnets()) != 0 {
		t.Errorf("Expected no magnets, got %d", len(b.Magnets()))
	}
	if b.Padded() {
		t.Error("Expected walled map not to be padded")
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Expected valid board, got %v", err)
	}
}

func TestParseBoard_AutoWalling(t *testing.T) {
	raw := tileMap("P____ M___+ _ G")
	b := mustParse(t, raw)

	if b.Rows() != 1+2 || b.Cols() != 4+2 {
		t.Fatalf("Expected padded 3x6 board, got %dx%d", b.Rows(), b.Cols())
	}
	if !b.Padded() {
		t.Error("Expected Padded to report the added ring")
	}

	tests := []struct {
		name string
		got  Position
		want Position
	}{
		{"player", b.Player(), Position{Row: 1, Col: 1}},
		{"magnet", b.Magnets()[0], Position{Row: 1, Col: 2}},
		{"goal", b.Goal(), Position{Row: 1, Col: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, tt.got)
			}
		})
	}

	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Cols(); c++ {
			if r != 0 && c != 0 && r != b.Rows()-1 && c != b.Cols()-1 {
				continue
			}
			e := b.At(Position{Row: r, Col: c})
			if e.Kind != KindWall {
				t.Fatalf("Expected wall at (%d,%d), got %s", r, c, e.Kind)
			}
			for _, d := range Directions {
				if e.ForceOnFace(d) != Blocking {
					t.Errorf("Expected blocking padding face %s at (%d,%d)", d, r, c)
				}
			}
		}
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Expected valid padded board, got %v", err)
	}
}

func TestParseBoard_SpaceMarksBlocking(t *testing.T) {
	lines := []string{
		"   " + " _ " + "   ",
		" P " + "_W+" + " G ",
		"   " + " - " + "   ",
	}
	b := mustParse(t, lines)

	wall := b.At(Position{Row: 1, Col: 2})
	if wall.Kind != KindWall {
		t.Fatalf("Expected wall, got %s", wall.Kind)
	}
	want := [4]Force{Passthrough, Positive, Negative, Passthrough}
	if wall.Faces != want {
		t.Errorf("Expected faces %v, got %v", want, wall.Faces)
	}
	if f := b.At(b.Player()).ForceOnFace(Right); f != Blocking {
		t.Errorf("Expected space to parse as blocking, got %s", f)
	}
}

func TestParseBoard_Errors(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		sentinel error
		line     int
		col      int
	}{
		{"empty", nil, ErrMapFormat, 0, 0},
		{"height not multiple of 3", []string{"   ", " P "}, ErrMapFormat, 0, 0},
		{"width not multiple of 3", []string{"    ", " P  ", "    "}, ErrMapFormat, 0, 0},
		{"ragged rows", []string{"      ", " P  G ", "     "}, ErrMapFormat, 3, 0},
		{"unknown tile", tileMap("P____ Q G"), ErrMapFormat, 2, 5},
		{"unknown force", tileMap("P____ M?___ G"), ErrMapFormat, 1, 5},
		{"missing player", tileMap("_ _ G"), ErrMapSemantic, 0, 0},
		{"missing goal", tileMap("P____ _ _"), ErrMapSemantic, 0, 0},
		{"two players", tileMap("P____ P____ G"), ErrMapSemantic, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBoard(tt.lines)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if b != nil {
				t.Error("Expected no partial board on error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Expected %v, got %v", tt.sentinel, err)
			}

			var fe *MapFormatError
			if errors.As(err, &fe) {
				if fe.Line != tt.line || fe.Col != tt.col {
					t.Errorf("Expected location %d:%d, got %d:%d", tt.line, tt.col, fe.Line, fe.Col)
				}
			}
		})
	}
}

func TestParseBoard_LastGoalWins(t *testing.T) {
	b := mustParse(t, corridor("G", "P____", "G"))
	if b.Goal() != (Position{Row: 1, Col: 3}) {
		t.Errorf("Expected last goal at (1,3), got %+v", b.Goal())
	}
}

func TestBoard_LevelCompleted(t *testing.T) {
	b := mustParse(t, corridor("P____", "G"))
	if b.LevelCompleted() {
		t.Fatal("Expected level not completed initially")
	}
	if !b.MovePlayer(Right) {
		t.Fatal("Expected move onto goal to succeed")
	}
	if !b.LevelCompleted() {
		t.Error("Expected level completed with player on goal")
	}
}

func TestBoard_Clone(t *testing.T) {
	b := mustParse(t, corridor("P____", "_", "G"))
	c := b.Clone()

	if !c.MovePlayer(Right) {
		t.Fatal("Expected clone move to succeed")
	}
	if b.Player() != (Position{Row: 1, Col: 1}) {
		t.Errorf("Expected original player unchanged, got %+v", b.Player())
	}
	if c.Player() != (Position{Row: 1, Col: 2}) {
		t.Errorf("Expected clone player at (1,2), got %+v", c.Player())
	}
}

func TestBoard_Validate(t *testing.T) {
	if err := (&Board{}).Validate(); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("Expected ErrInvalidBoard for zero board, got %v", err)
	}

	var nilBoard *Board
	if err := nilBoard.Validate(); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("Expected ErrInvalidBoard for nil board, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	b := mustParse(t, corridor("P____", "_", "M____", "G"))

	fp := b.Fingerprint()
	want := Fingerprint{1, 1, 1, 3}
	if !fp.Equal(want) {
		t.Fatalf("Expected %v, got %v", want, fp)
	}
	if fp.String() != "(1,1) (1,3)" {
		t.Errorf("Unexpected string form %q", fp.String())
	}

	b.MovePlayer(Right)
	moved := b.Fingerprint()
	if moved.Equal(fp) {
		t.Error("Expected fingerprint to change after move")
	}
	if moved.Key() == fp.Key() {
		t.Error("Expected keys to differ after move")
	}

	b.RevertPlayer(Right)
	if b.Fingerprint().Key() != fp.Key() {
		t.Error("Expected key to match after revert")
	}
}

func TestFingerprint_KeyDistinguishesLayouts(t *testing.T) {
	a := Fingerprint{1, 12}
	b := Fingerprint{11, 2}
	if a.Key() == b.Key() {
		t.Error("Expected distinct keys for distinct fingerprints")
	}
	if a.Equal(Fingerprint{1, 12, 0}) {
		t.Error("Expected fingerprints of different length to differ")
	}
}
