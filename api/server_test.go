package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/MLLeKander/Magnets/game/config"
	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
	"github.com/MLLeKander/Magnets/game/session"
	"github.com/MLLeKander/Magnets/game/solver"
	"github.com/MLLeKander/Magnets/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, levelID string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	MoveFunc     func(ctx context.Context, sessionID, action string, reset bool) (*service.MoveResult, error)
	BulkMoveFunc func(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkMoveResult, error)
	ResetFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Levels
	ListLevelsFunc func(ctx context.Context) ([]*service.LevelInfo, error)
	LoadLevelFunc  func(ctx context.Context, levelID string) (*engine.Level, error)
	SaveLevelFunc  func(ctx context.Context, levelID string, lines []string) (*engine.Level, error)

	// Solver
	SolveSessionFunc func(ctx context.Context, sessionID string) (*service.SolveResult, error)
	SolveLevelFunc   func(ctx context.Context, levelID string) (*service.SolveResult, error)
}

func (m *MockGameService) CreateSession(ctx context.Context, levelID string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, levelID)
	}
	return &service.SessionInfo{ID: "test-session", LevelID: levelID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, LevelID: "first", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, action string, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, action, reset)
	}
	return &service.MoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, actions, reset)
	}
	return &service.BulkMoveResult{Success: true, MovesExecuted: len(actions), GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockGameService) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	if m.ListLevelsFunc != nil {
		return m.ListLevelsFunc(ctx)
	}
	return []*service.LevelInfo{}, nil
}

func (m *MockGameService) LoadLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	if m.LoadLevelFunc != nil {
		return m.LoadLevelFunc(ctx, levelID)
	}
	return &engine.Level{ID: levelID, Name: levelID, Map: corridorMap(1)}, nil
}

func (m *MockGameService) SaveLevel(ctx context.Context, levelID string, lines []string) (*engine.Level, error) {
	if m.SaveLevelFunc != nil {
		return m.SaveLevelFunc(ctx, levelID, lines)
	}
	return &engine.Level{ID: levelID, Name: levelID, Map: lines}, nil
}

func (m *MockGameService) SolveSession(ctx context.Context, sessionID string) (*service.SolveResult, error) {
	if m.SolveSessionFunc != nil {
		return m.SolveSessionFunc(ctx, sessionID)
	}
	return &service.SolveResult{Solvable: true, Path: "R", MoveCount: 1}, nil
}

func (m *MockGameService) SolveLevel(ctx context.Context, levelID string) (*service.SolveResult, error) {
	if m.SolveLevelFunc != nil {
		return m.SolveLevelFunc(ctx, levelID)
	}
	return &service.SolveResult{LevelID: levelID, Solvable: true, Path: "R", MoveCount: 1}, nil
}

// corridorMap is a walled corridor with n empty tiles between player and goal
func corridorMap(n int) []string {
	wall := strings.Repeat("   ", n+4)
	walls := strings.Repeat(" W ", n+4)
	return []string{
		wall, walls, wall,
		"   " + " _ " + strings.Repeat("   ", n+2),
		" W " + "_P_" + strings.Repeat(" _ ", n) + " G " + " W ",
		"   " + " _ " + strings.Repeat("   ", n+2),
		wall, walls, wall,
	}
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	hub := websocket.NewHub()
	go hub.Run(context.Background())
	return NewServer(mockService, hub)
}

// setupRealServer wires the real level, session and service layers over a
// temporary level directory holding "first" (two tiles) and "long" (three)
func setupRealServer(t *testing.T) (*Server, *websocket.Hub) {
	t.Helper()
	dir := t.TempDir()
	for name, n := range map[string]int{"first": 2, "long": 3} {
		body := strings.Join(corridorMap(n), "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write level: %v", err)
		}
	}

	levels, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create level manager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(), levels)

	hub := websocket.NewHub()
	go hub.Run(context.Background())
	return NewServer(svc, hub), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, makeRequest(method, path, body))
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	msg, _ := resp["error"].(string)
	return msg
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "Create session with default level",
			expectedStatus: http.StatusCreated,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					if levelID != "" {
						t.Errorf("Expected empty level id, got %s", levelID)
					}
					return &service.SessionInfo{ID: "sess-123", LevelID: "first"}, nil
				}
			},
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" || resp.LevelID != "first" {
					t.Errorf("Unexpected session %+v", resp)
				}
			},
		},
		{
			name:           "Create session with specific level",
			requestBody:    map[string]string{"level_id": "pocket"},
			expectedStatus: http.StatusCreated,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-456", LevelID: levelID}, nil
				}
			},
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.LevelID != "pocket" {
					t.Errorf("Expected level pocket, got %s", resp.LevelID)
				}
			},
		},
		{
			name:           "Unknown level",
			requestBody:    map[string]string{"level_id": "missing"},
			expectedStatus: http.StatusNotFound,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("level '%s': %w", levelID, config.ErrLevelNotFound)
				}
			},
		},
		{
			name:           "Handle service error",
			expectedStatus: http.StatusInternalServerError,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			var body interface{}
			if tt.requestBody != nil {
				body = tt.requestBody
			}
			w := do(setupTestServer(mockService), "POST", "/api/sessions", body)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", LevelID: "first", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-1 * time.Hour)},
				{ID: "b", LevelID: "pocket", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-3 * time.Hour)},
				{ID: "c", LevelID: "first", CreatedAt: now.Add(-1 * time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	type listResponse struct {
		Count    int                    `json:"count"`
		Total    int                    `json:"total"`
		Sessions []*service.SessionInfo `json:"sessions"`
		Sort     string                 `json:"sort"`
		Order    string                 `json:"order"`
	}

	ids := func(resp listResponse) string {
		var out []string
		for _, s := range resp.Sessions {
			out = append(out, s.ID)
		}
		return strings.Join(out, ",")
	}

	tests := []struct {
		query string
		want  string
	}{
		{"", "a,c,b"},
		{"?sort=created", "c,b,a"},
		{"?sort=created&order=asc", "a,b,c"},
		{"?limit=2", "a,c"},
		{"?level=first", "a,c"},
		{"?level=first&order=asc&limit=1", "c"},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			w := do(server, "GET", "/api/sessions"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp listResponse
			parseResponse(t, w, &resp)
			if got := ids(resp); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if resp.Count != len(resp.Sessions) {
				t.Errorf("Count %d does not match %d sessions", resp.Count, len(resp.Sessions))
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID, LevelID: "first"}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return session.ErrSessionNotFound
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	w := do(server, "GET", "/api/sessions/abcd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	if info.ID != "abcd" {
		t.Errorf("Expected session abcd, got %s", info.ID)
	}

	if w := do(server, "GET", "/api/sessions/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := do(server, "DELETE", "/api/sessions/abcd", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := do(server, "DELETE", "/api/sessions/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Game Operation Tests

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		rawBody        string
		expectedStatus int
		wantAction     string
		wantReset      bool
	}{
		{name: "Valid move", body: map[string]interface{}{"direction": "right"}, expectedStatus: http.StatusOK, wantAction: "right"},
		{name: "Settle turn", body: map[string]interface{}{"direction": "wait"}, expectedStatus: http.StatusOK, wantAction: "wait"},
		{name: "Move with reset", body: map[string]interface{}{"direction": "up", "reset": true}, expectedStatus: http.StatusOK, wantAction: "up", wantReset: true},
		{name: "Missing direction", body: map[string]interface{}{}, expectedStatus: http.StatusBadRequest},
		{name: "Invalid JSON", rawBody: "{not json", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAction string
			var gotReset bool
			mockService := &MockGameService{
				MoveFunc: func(ctx context.Context, sessionID, action string, reset bool) (*service.MoveResult, error) {
					gotAction, gotReset = action, reset
					return &service.MoveResult{
						Success:   true,
						GameState: &engine.GameState{Turns: 1},
						Step:      &service.StepInfo{Idx: 1, Action: action, Success: true},
					}, nil
				},
			}
			server := setupTestServer(mockService)

			var w *httptest.ResponseRecorder
			if tt.rawBody != "" {
				w = httptest.NewRecorder()
				req := httptest.NewRequest("POST", "/api/sessions/s1/move", strings.NewReader(tt.rawBody))
				server.ServeHTTP(w, req)
			} else {
				w = do(server, "POST", "/api/sessions/s1/move", tt.body)
			}

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if gotAction != tt.wantAction || gotReset != tt.wantReset {
				t.Errorf("Service called with (%q, %v), want (%q, %v)", gotAction, gotReset, tt.wantAction, tt.wantReset)
			}
			var resp service.MoveResult
			parseResponse(t, w, &resp)
			if !resp.Success || resp.GameState.Turns != 1 {
				t.Errorf("Unexpected move result %+v", resp)
			}
		})
	}

	t.Run("Unknown session", func(t *testing.T) {
		mockService := &MockGameService{
			MoveFunc: func(ctx context.Context, sessionID, action string, reset bool) (*service.MoveResult, error) {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			},
		}
		w := do(setupTestServer(mockService), "POST", "/api/sessions/nope/move", map[string]string{"direction": "up"})
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestBulkMove(t *testing.T) {
	var gotActions []string
	mockService := &MockGameService{
		BulkMoveFunc: func(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkMoveResult, error) {
			gotActions = actions
			return &service.BulkMoveResult{
				Success:        false,
				MovesExecuted:  2,
				RequestedMoves: len(actions),
				StopReasonCode: "blocked",
				StoppedOnMove:  3,
				GameState:      &engine.GameState{Turns: 2},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	w := do(server, "POST", "/api/sessions/s1/bulk-move", map[string]interface{}{
		"moves": []string{"right", "wait", "up"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.Join(gotActions, ",") != "right,wait,up" {
		t.Errorf("Unexpected actions passed to service: %v", gotActions)
	}

	var resp service.BulkMoveResult
	parseResponse(t, w, &resp)
	if resp.MovesExecuted != 2 || resp.StopReasonCode != "blocked" || resp.StoppedOnMove != 3 {
		t.Errorf("Unexpected bulk result %+v", resp)
	}

	if w := do(server, "POST", "/api/sessions/s1/bulk-move", "bad"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a non-object body, got %d", w.Code)
	}
}

func TestResetAndState(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return &engine.GameState{LevelID: "first", Message: "reset"}, nil
		},
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			if sessionID == "missing" {
				return nil, session.ErrSessionNotFound
			}
			return &engine.GameState{LevelID: "first", Turns: 4}, nil
		},
	}
	server := setupTestServer(mockService)

	w := do(server, "POST", "/api/sessions/s1/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resetResp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &resetResp)
	if resetResp.State == nil || resetResp.State.Message != "reset" {
		t.Errorf("Unexpected reset response %+v", resetResp)
	}

	w = do(server, "GET", "/api/sessions/s1/state", nil)
	var state engine.GameState
	parseResponse(t, w, &state)
	if state.Turns != 4 {
		t.Errorf("Expected 4 turns, got %d", state.Turns)
	}

	if w := do(server, "GET", "/api/sessions/missing/state", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		query string
		want  service.HistoryOptions
	}{
		{"", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"?page=2&limit=5&order=asc", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{"?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
				},
			}
			w := do(setupTestServer(mockService), "GET", "/api/sessions/s1/history"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.want {
				t.Errorf("Expected options %+v, got %+v", tt.want, got)
			}
		})
	}
}

// Solver Tests

func TestSolveEndpoints(t *testing.T) {
	mockService := &MockGameService{
		SolveLevelFunc: func(ctx context.Context, levelID string) (*service.SolveResult, error) {
			switch levelID {
			case "huge":
				return nil, fmt.Errorf("level '%s': %w", levelID, solver.ErrSearchBudgetExceeded)
			case "missing":
				return nil, fmt.Errorf("level '%s': %w", levelID, config.ErrLevelNotFound)
			}
			return &service.SolveResult{LevelID: levelID, Solvable: true, Path: "RRR", MoveCount: 3}, nil
		},
	}
	server := setupTestServer(mockService)

	w := do(server, "POST", "/api/levels/first/solve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result service.SolveResult
	parseResponse(t, w, &result)
	if !result.Solvable || result.Path != "RRR" || result.LevelID != "first" {
		t.Errorf("Unexpected solve result %+v", result)
	}

	if w := do(server, "POST", "/api/levels/huge/solve", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 when the budget runs out, got %d", w.Code)
	}
	if w := do(server, "POST", "/api/levels/missing/solve", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := do(server, "POST", "/api/sessions/s1/solve", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for a session solve, got %d", w.Code)
	}
}

// Level Tests

func TestLevels(t *testing.T) {
	var saved []string
	mockService := &MockGameService{
		ListLevelsFunc: func(ctx context.Context) ([]*service.LevelInfo, error) {
			return []*service.LevelInfo{{LevelID: "first", Name: "first", Rows: 3, Cols: 5}}, nil
		},
		LoadLevelFunc: func(ctx context.Context, levelID string) (*engine.Level, error) {
			if levelID == "missing" {
				return nil, config.ErrLevelNotFound
			}
			return &engine.Level{ID: levelID, Name: levelID, Map: corridorMap(1)}, nil
		},
		SaveLevelFunc: func(ctx context.Context, levelID string, lines []string) (*engine.Level, error) {
			if levelID == "broken" {
				return nil, fmt.Errorf("%w: no player", config.ErrInvalidLevel)
			}
			saved = lines
			return &engine.Level{ID: levelID, Name: levelID, Map: lines}, nil
		},
	}
	server := setupTestServer(mockService)

	t.Run("List", func(t *testing.T) {
		w := do(server, "GET", "/api/levels", nil)
		var levels []*service.LevelInfo
		parseResponse(t, w, &levels)
		if len(levels) != 1 || levels[0].LevelID != "first" {
			t.Errorf("Unexpected levels %+v", levels)
		}
	})

	t.Run("Get", func(t *testing.T) {
		w := do(server, "GET", "/api/levels/first", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp struct {
			Level *engine.Level      `json:"level"`
			Info  *service.LevelInfo `json:"info"`
		}
		parseResponse(t, w, &resp)
		if resp.Info == nil || resp.Info.Rows != 3 || resp.Info.Cols != 5 {
			t.Errorf("Unexpected level info %+v", resp.Info)
		}
		if resp.Level == nil || len(resp.Level.Map) != 9 {
			t.Errorf("Expected 9 map lines, got %+v", resp.Level)
		}

		if w := do(server, "GET", "/api/levels/missing", nil); w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("Create", func(t *testing.T) {
		w := do(server, "POST", "/api/levels", map[string]interface{}{"id": "mine", "map": corridorMap(1)})
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}
		if len(saved) != 9 {
			t.Errorf("Expected map lines passed through, got %v", saved)
		}

		if w := do(server, "POST", "/api/levels", map[string]interface{}{"map": corridorMap(1)}); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 without an id, got %d", w.Code)
		}
		if w := do(server, "POST", "/api/levels", map[string]interface{}{"id": "broken", "map": []string{"x"}}); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for an invalid map, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	w := do(setupTestServer(&MockGameService{}), "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Unexpected health response %v", resp)
	}
}

// End-to-end over the real service stack

func TestPlayThroughLevel(t *testing.T) {
	server, _ := setupRealServer(t)

	w := do(server, "POST", "/api/sessions", map[string]string{"level_id": "first"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	base := "/api/sessions/" + info.ID

	w = do(server, "POST", base+"/move", map[string]string{"direction": "left"})
	var blocked service.MoveResult
	parseResponse(t, w, &blocked)
	if blocked.Success {
		t.Error("Expected moving into the wall to be rejected")
	}

	w = do(server, "POST", base+"/solve", nil)
	var solved service.SolveResult
	parseResponse(t, w, &solved)
	if !solved.Solvable || solved.Path != "RRR" {
		t.Fatalf("Expected path RRR, got %+v", solved)
	}

	w = do(server, "POST", base+"/bulk-move", map[string]interface{}{"moves": solved.Moves})
	var bulk service.BulkMoveResult
	parseResponse(t, w, &bulk)
	if !bulk.Completed || bulk.MovesExecuted != 3 {
		t.Errorf("Expected the solved path to complete the level, got %+v", bulk)
	}

	w = do(server, "GET", base+"/history?order=asc", nil)
	var history service.HistoryResponse
	parseResponse(t, w, &history)
	if history.TotalMoves != 4 {
		t.Errorf("Expected 4 recorded moves, got %d", history.TotalMoves)
	}

	if w := do(server, "POST", "/api/sessions", map[string]string{"level_id": "nope"}); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown level, got %d", w.Code)
	}
	if w := do(server, "POST", "/api/levels/long/solve", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 solving a catalogue level, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	server, hub := setupRealServer(t)

	w := do(server, "POST", "/api/sessions", nil)
	var info service.SessionInfo
	parseResponse(t, w, &info)

	ts := httptest.NewServer(server)
	defer ts.Close()
	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	t.Run("Missing session parameter", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ws")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Unknown session", func(t *testing.T) {
		if _, _, err := gorillaws.DefaultDialer.Dial(wsBase+"?session=zzzz", nil); err == nil {
			t.Error("Expected dial to fail for an unknown session")
		}
	})

	t.Run("Receives updates", func(t *testing.T) {
		conn, _, err := gorillaws.DefaultDialer.Dial(wsBase+"?session="+info.ID, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		read := func() websocket.Message {
			t.Helper()
			conn.SetReadDeadline(time.Now().Add(time.Second))
			var msg websocket.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("Failed to read message: %v", err)
			}
			return msg
		}

		if initial := read(); initial.GameState == nil || initial.GameState.Turns != 0 {
			t.Errorf("Expected initial state, got %+v", initial)
		}

		deadline := time.Now().Add(time.Second)
		for hub.ClientCount(info.ID) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		do(server, "POST", "/api/sessions/"+info.ID+"/move", map[string]string{"direction": "right"})
		update := read()
		if update.Event != websocket.EventStateUpdate || update.GameState == nil || update.GameState.Turns != 1 {
			t.Errorf("Expected state update after move, got %+v", update)
		}
	})
}
