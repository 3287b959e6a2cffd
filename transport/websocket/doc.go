// Package websocket pushes live game state to browsers and other watchers.
//
// A connection follows exactly one session, named when the connection is
// opened (/ws?session=abc1). Frames only flow outward; anything the watcher
// sends is read and thrown away so that pongs and close frames are noticed.
//
// Every frame is a JSON Message. After each move, settle turn and reset the
// server sends {"event": "state_update", "game_state": ...}; after a solve it
// sends {"event": "solved", "data": <solve result>}.
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"), nil)
//	})
//
// A watcher that cannot keep up with its session is disconnected rather than
// allowed to stall the others.
package websocket
