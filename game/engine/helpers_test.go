package engine

import (
	"strings"
	"testing"
)

// tileMap builds map text from rows of space-separated tile codes. A code is
// a centre character optionally followed by the up, right, down and left face
// characters, e.g. "W0+00" or "M___+".
func tileMap(rows ...string) []string {
	var lines []string
	for _, row := range rows {
		var top, mid, bot strings.Builder
		for _, code := range strings.Fields(row) {
			if len(code) == 1 {
				top.WriteString("   ")
				mid.WriteString(" " + code + " ")
				bot.WriteString("   ")
				continue
			}
			top.WriteString(" " + code[1:2] + " ")
			mid.WriteString(code[4:5] + code[0:1] + code[2:3])
			bot.WriteString(" " + code[3:4] + " ")
		}
		lines = append(lines, top.String(), mid.String(), bot.String())
	}
	return lines
}

func mustParse(t *testing.T, lines []string) *Board {
	t.Helper()
	b, err := ParseBoard(lines)
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	return b
}

func testLevel(id string, lines []string) *Level {
	return &Level{ID: id, Name: id, Map: lines}
}
