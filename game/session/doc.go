// Package session keeps the games that are in progress on the server.
//
// Each Session owns its own engine.GameEngine, so players on different
// sessions never see each other's boards. Manager is safe for concurrent use
// and looks ids up case-insensitively.
//
// Ids are either chosen by the caller or generated as 4 hex characters. They
// are restricted to letters, digits, '-' and '_' since FilePersistence uses
// them, lowercased, as file names.
//
// With persistence configured the manager saves a session whenever it is
// created or touched, and transparently reloads sessions it no longer holds
// in memory. A saved Record carries the level id and the accepted moves; the
// board itself is rebuilt by replaying them:
//
//	store, err := session.NewFilePersistence("sessions", levels)
//	if err != nil {
//		return err
//	}
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		return err
//	}
//
// CleanupExpiredSessions only evicts idle sessions from memory. Delete is
// the only way to remove a saved copy.
package session
