// Package service turns Magnets sessions into operations a transport can
// expose.
//
// A GameService owns no state of its own. Sessions live in a SessionManager
// and level maps come from a LevelManager; the service takes a single lock
// around every turn so that a move, its events and the save that follows are
// observed together.
//
// Turns report what happened as GameEvents. A reset comes first when one was
// requested, then the step or wait, one event per magnet that slid, and
// finally completion. BulkMove stops at the first rejected action and says
// why with StopBlocked, StopUnknownAction or StopCompleted.
//
// Solving never touches a game in progress: the level is parsed again and
// searched under the expansion budget and timeout given to
// NewGameServiceWithOptions.
//
//	svc := service.NewGameService(session.NewManager(), levels)
//	info, _ := svc.CreateSession(ctx, "first")
//	res, _ := svc.BulkMove(ctx, info.ID, []string{"right", "wait"}, false)
package service
