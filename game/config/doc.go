// Package config provides the level catalogue for the Magnets server.
//
// The config package handles:
//   - Loading map files (*.txt, *.map) from a levels directory
//   - Level validation through the engine's map parser
//   - Default level management
//   - Level discovery, listing and saving
//
// Level Format:
//
// A level is plain map text whose height and width are multiples of 3. Every
// 3x3 block is one tile: the centre character selects the tile and, for walls,
// players and magnets, the four edge characters give the face forces. The
// file name without its extension is the level id used for session creation.
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific level
//	level, err := manager.LoadLevel("first")
//
//	// Get the default level
//	defaultLevel := manager.GetDefault()
//
//	// List available levels
//	levels, err := manager.ListLevels()
package config
