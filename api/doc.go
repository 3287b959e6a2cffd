// Package api provides HTTP REST API handlers for Magnets game sessions.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"level_id": "..."}, empty for the default level)
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit, level)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Play:
//   - GET /api/sessions/{id}/state - Current board and turn count
//   - POST /api/sessions/{id}/move - Play one turn ({"direction": "up|right|down|left|wait"})
//   - POST /api/sessions/{id}/bulk-move - Play several turns, stopping at the first rejected one
//   - POST /api/sessions/{id}/reset - Restore the starting board
//   - GET /api/sessions/{id}/history - Paged move history (page, limit, order)
//   - POST /api/sessions/{id}/solve - Shortest known path from the level's start
//
// Levels:
//   - GET /api/levels - Catalogue with board dimensions and magnet counts
//   - POST /api/levels - Save a level ({"id": "...", "map": ["..."]})
//   - GET /api/levels/{id} - Level text and summary
//   - POST /api/levels/{id}/solve - Run the solver on a catalogue level
//
// Live updates are served at /ws?session={id}. Each accepted request that
// changes a session is pushed to its subscribers.
package api
