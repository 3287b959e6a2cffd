package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LevelExtensions lists the file extensions recognised as map files
var LevelExtensions = []string{".txt", ".map"}

// ReadMapLines reads map text line by line. Carriage returns are stripped and
// trailing empty lines dropped; everything else is kept verbatim, including
// the spaces that mark blocking faces.
func ReadMapLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// ValidateLevel checks that a level's map parses into a playable board
func ValidateLevel(level *Level) error {
	if level == nil {
		return fmt.Errorf("level validation: level is nil")
	}
	if level.ID == "" {
		return fmt.Errorf("level validation: id is required")
	}
	if _, err := ParseBoard(level.Map); err != nil {
		return fmt.Errorf("level validation: %s: %w", level.ID, err)
	}
	return nil
}

// NewBoard parses the level's map
func (l *Level) NewBoard() (*Board, error) {
	return ParseBoard(l.Map)
}

// LevelIDFromPath derives a level id from a file name by dropping the
// directory and a recognised extension
func LevelIDFromPath(path string) string {
	base := filepath.Base(path)
	for _, ext := range LevelExtensions {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// LoadLevelFile loads and validates a level from a map file
func LoadLevelFile(filename string) (*Level, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := ReadMapLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file '%s': %w", filename, err)
	}

	id := LevelIDFromPath(filename)
	level := &Level{ID: id, Name: id, Map: lines}
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	return level, nil
}

// LoadLevelByName loads a level by id from the levels directory. The
// LEVELS_DIR environment variable overrides the default "levels".
func LoadLevelByName(name string) (*Level, error) {
	dir := os.Getenv("LEVELS_DIR")
	if dir == "" {
		dir = "levels"
	}

	candidates := []string{filepath.Join(dir, name)}
	if LevelIDFromPath(name) == name {
		candidates = candidates[:0]
		for _, ext := range LevelExtensions {
			candidates = append(candidates, filepath.Join(dir, name+ext))
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return LoadLevelFile(path)
		}
	}
	return nil, fmt.Errorf("level file '%s' not found in %s", name, dir)
}
