package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/MLLeKander/Magnets/game/config"
	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
	"github.com/MLLeKander/Magnets/game/session"
	"github.com/MLLeKander/Magnets/game/solver"
	"github.com/MLLeKander/Magnets/transport/websocket"
)

// Server routes the REST API and the /ws endpoint onto a GameService
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer builds the router. A nil hub disables live updates.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{service: gameService, hub: hub, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// endpointFunc returns the status and body of a successful call. A returned
// error is reported with errorStatus(err, fallback).
type endpointFunc func(r *http.Request) (int, interface{}, error)

type route struct {
	method   string
	path     string
	fallback int
	fn       endpointFunc
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	for _, rt := range []route{
		{"GET", "/health", http.StatusInternalServerError, s.health},

		{"POST", "/sessions", http.StatusInternalServerError, s.createSession},
		{"GET", "/sessions", http.StatusInternalServerError, s.listSessions},
		{"GET", "/sessions/{id}", http.StatusNotFound, s.getSession},
		{"DELETE", "/sessions/{id}", http.StatusNotFound, s.deleteSession},

		{"GET", "/sessions/{id}/state", http.StatusNotFound, s.gameState},
		{"POST", "/sessions/{id}/move", http.StatusNotFound, s.move},
		{"POST", "/sessions/{id}/bulk-move", http.StatusNotFound, s.bulkMove},
		{"POST", "/sessions/{id}/reset", http.StatusNotFound, s.reset},
		{"GET", "/sessions/{id}/history", http.StatusNotFound, s.history},
		{"POST", "/sessions/{id}/solve", http.StatusNotFound, s.solveSession},

		{"GET", "/levels", http.StatusInternalServerError, s.listLevels},
		{"POST", "/levels", http.StatusInternalServerError, s.saveLevel},
		{"GET", "/levels/{id}", http.StatusNotFound, s.getLevel},
		{"POST", "/levels/{id}/solve", http.StatusNotFound, s.solveLevel},
	} {
		api.HandleFunc(rt.path, endpoint(rt.fallback, rt.fn)).Methods(rt.method)
	}

	s.router.HandleFunc("/ws", s.serveWS)
}

func endpoint(fallback int, fn endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := fn(r)
		if err != nil {
			respondError(w, errorStatus(err, fallback), err.Error())
			return
		}
		respondJSON(w, status, body)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// badRequest is an error in the request itself
type badRequest string

func (e badRequest) Error() string { return string(e) }

// errorStatus maps the errors the game layers return onto HTTP statuses and
// falls back to fallback for anything else
func errorStatus(err error, fallback int) int {
	var bad badRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, config.ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, config.ErrInvalidLevel), errors.Is(err, engine.ErrMapFormat),
		errors.Is(err, engine.ErrMapSemantic), errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, solver.ErrSearchBudgetExceeded):
		return http.StatusUnprocessableEntity
	}
	return fallback
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return badRequest("Invalid request body")
}

// queryInt returns the positive integer in query parameter name, or def
func queryInt(r *http.Request, name string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && n > 0 {
		return n
	}
	return def
}

func (s *Server) publish(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

func (s *Server) health(*http.Request) (int, interface{}, error) {
	return http.StatusOK, map[string]string{"status": "healthy"}, nil
}

func (s *Server) createSession(r *http.Request) (int, interface{}, error) {
	var req struct {
		LevelID string `json:"level_id,omitempty"`
	}
	if err := decode(r, &req, true); err != nil {
		return 0, nil, err
	}

	info, err := s.service.CreateSession(r.Context(), req.LevelID)
	if err != nil {
		return 0, nil, err
	}
	log.WithFields(log.Fields{"session": info.ID, "level": info.LevelID}).Info("Session created")
	return http.StatusCreated, info, nil
}

// listSessions supports ?level= filtering, ?sort=accessed|created,
// ?order=desc|asc and ?limit=
func (s *Server) listSessions(r *http.Request) (int, interface{}, error) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		return 0, nil, err
	}
	total := len(sessions)

	q := r.URL.Query()
	sortBy, order := q.Get("sort"), q.Get("order")
	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	if level := q.Get("level"); level != "" {
		kept := sessions[:0]
		for _, info := range sessions {
			if info.LevelID == level {
				kept = append(kept, info)
			}
		}
		sessions = kept
	}

	stamp := func(info *service.SessionInfo) int64 {
		if sortBy == "created" {
			return info.CreatedAt.UnixNano()
		}
		return info.LastAccessedAt.UnixNano()
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if order == "asc" {
			return stamp(sessions[i]) < stamp(sessions[j])
		}
		return stamp(sessions[i]) > stamp(sessions[j])
	})

	if limit := queryInt(r, "limit", len(sessions)); limit < len(sessions) {
		sessions = sessions[:limit]
	}

	return http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	}, nil
}

func (s *Server) getSession(r *http.Request) (int, interface{}, error) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, info, nil
}

func (s *Server) deleteSession(r *http.Request) (int, interface{}, error) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteSession(r.Context(), id); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{"message": fmt.Sprintf("Session %s deleted", id)}, nil
}

func (s *Server) gameState(r *http.Request) (int, interface{}, error) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, state, nil
}

func (s *Server) move(r *http.Request) (int, interface{}, error) {
	id := mux.Vars(r)["id"]
	var req struct {
		Direction string `json:"direction"`
		Reset     bool   `json:"reset,omitempty"`
	}
	if err := decode(r, &req, false); err != nil {
		return 0, nil, err
	}
	if strings.TrimSpace(req.Direction) == "" {
		return 0, nil, badRequest("direction is required (up, right, down, left or wait)")
	}

	result, err := s.service.Move(r.Context(), id, req.Direction, req.Reset)
	if err != nil {
		return 0, nil, err
	}
	s.publish(id, result.GameState)

	fields := log.Fields{"session": id, "action": req.Direction, "success": result.Success}
	if state := result.GameState; state != nil {
		fields["turns"], fields["completed"] = state.Turns, state.Completed
	}
	if step := result.Step; step != nil {
		fields["from"], fields["to"], fields["magnets"] = step.From, step.To, len(step.Movements)
	}
	log.WithFields(fields).Info("Move")

	return http.StatusOK, result, nil
}

func (s *Server) bulkMove(r *http.Request) (int, interface{}, error) {
	id := mux.Vars(r)["id"]
	var req struct {
		Moves []string `json:"moves"`
		Reset bool     `json:"reset,omitempty"`
	}
	if err := decode(r, &req, false); err != nil {
		return 0, nil, err
	}

	result, err := s.service.BulkMove(r.Context(), id, req.Moves, req.Reset)
	if err != nil {
		return 0, nil, err
	}
	s.publish(id, result.GameState)

	log.WithFields(log.Fields{
		"session":   id,
		"executed":  result.MovesExecuted,
		"requested": result.RequestedMoves,
		"stop":      result.StopReasonCode,
		"end":       result.EndPos,
	}).Info("Bulk move")
	return http.StatusOK, result, nil
}

func (s *Server) reset(r *http.Request) (int, interface{}, error) {
	id := mux.Vars(r)["id"]
	state, err := s.service.Reset(r.Context(), id)
	if err != nil {
		return 0, nil, err
	}
	s.publish(id, state)
	return http.StatusOK, map[string]interface{}{"message": "Game reset successfully", "state": state}, nil
}

// history pages through the turns, newest first unless ?order=asc
func (s *Server) history(r *http.Request) (int, interface{}, error) {
	opts := service.HistoryOptions{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
		Order: "desc",
	}
	if r.URL.Query().Get("order") == "asc" {
		opts.Order = "asc"
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, history, nil
}

// solveSession also announces the result to the session's watchers
func (s *Server) solveSession(r *http.Request) (int, interface{}, error) {
	id := mux.Vars(r)["id"]
	result, err := s.service.SolveSession(r.Context(), id)
	if err != nil {
		return 0, nil, err
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(id, websocket.EventSolved, result)
	}
	logSolve(result)
	return http.StatusOK, result, nil
}

func (s *Server) solveLevel(r *http.Request) (int, interface{}, error) {
	result, err := s.service.SolveLevel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return 0, nil, err
	}
	logSolve(result)
	return http.StatusOK, result, nil
}

func logSolve(result *service.SolveResult) {
	log.WithFields(log.Fields{
		"level":      result.LevelID,
		"solvable":   result.Solvable,
		"path":       result.Path,
		"expansions": result.Expansions,
		"ms":         result.DurationMS,
	}).Info("Solve")
}

func (s *Server) listLevels(r *http.Request) (int, interface{}, error) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, levels, nil
}

func (s *Server) getLevel(r *http.Request) (int, interface{}, error) {
	level, err := s.service.LoadLevel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return 0, nil, err
	}
	info, err := service.NewLevelInfo(level)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]interface{}{"level": level, "info": info}, nil
}

func (s *Server) saveLevel(r *http.Request) (int, interface{}, error) {
	var req struct {
		ID  string   `json:"id"`
		Map []string `json:"map"`
	}
	if err := decode(r, &req, false); err != nil {
		return 0, nil, err
	}
	if req.ID == "" {
		return 0, nil, badRequest("Level id is required")
	}

	level, err := s.service.SaveLevel(r.Context(), req.ID, req.Map)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to save level: %w", err)
	}
	return http.StatusCreated, map[string]interface{}{"message": "Level saved successfully", "level_id": level.ID}, nil
}

// serveWS subscribes the connection to ?session= and sends it the current
// state first
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket updates are disabled", http.StatusServiceUnavailable)
		return
	}

	info, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}
	s.hub.ServeWS(w, r, info.ID, info.GameState)
}
