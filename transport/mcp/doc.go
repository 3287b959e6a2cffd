// Package mcp exposes Magnets sessions to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON reply is rendered back as text the agent can read.
//
// MCP Tools:
//   - create_session, get_session, list_sessions: session management
//   - game_state: board, player, goal and turn count
//   - move, bulk_move: play turns (up, right, down, left or wait)
//   - reset_game: restore the starting board
//   - move_history: paged turn history
//   - list_levels: level catalogue
//   - solve: shortest known path for a session's level or a catalogue level
//   - game_instructions: rules and legend
//   - describe_cell: decode one tile's kind and faces
//
// Transport Modes:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode: POST JSON-RPC bodies to
//	client.GetMCPServer().HandleMessage(ctx, body)
package mcp
