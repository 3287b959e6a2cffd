package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
)

// actions accepted by the move tools
var actions = []string{"up", "right", "down", "left", "wait"}

// Client exposes the REST API at baseURL as MCP tools. It holds no game
// state of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// solves are bounded by the server's own time limit
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	c.mcpServer = server.NewMCPServer("Magnets", "1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)
	c.mcpServer.AddTools(c.tools()...)
	return c
}

func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// toolFunc produces the text shown to the model. Its error becomes a tool
// error result rather than a protocol error.
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (string, error)

func textTool(fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := fn(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func (c *Client) tools() []server.ServerTool {
	session := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
	intent := func(what string) mcp.ToolOption {
		return mcp.WithString("intent", mcp.Description("Why you are playing "+what+". Not sent to the server; it is there to make you think it through."))
	}
	reset := mcp.WithBoolean("reset", mcp.Description("Restart the level before playing"))

	tool := func(t mcp.Tool, fn toolFunc) server.ServerTool {
		return server.ServerTool{Tool: t, Handler: textTool(fn)}
	}

	return []server.ServerTool{
		tool(mcp.NewTool("create_session",
			mcp.WithDescription("Start a new game, optionally on a chosen level"),
			mcp.WithString("level_id", mcp.Description("Level to play (see list_levels); the first level when omitted")),
		), c.createSession),
		tool(mcp.NewTool("list_sessions",
			mcp.WithDescription("List the games in progress"),
		), c.listSessions),
		tool(mcp.NewTool("get_session",
			mcp.WithDescription("Show one game with its level and board"),
			session,
		), c.getSession),
		tool(mcp.NewTool("game_state",
			mcp.WithDescription("Show the board, positions and turn count of a game"),
			session,
		), c.gameState),
		tool(mcp.NewTool("move",
			mcp.WithDescription("Play one turn: step the player or wait, then the magnets settle"),
			session,
			mcp.WithString("direction", mcp.Required(), mcp.Enum(actions...), mcp.Description("Where to step, or wait")),
			intent("this turn"),
			reset,
		), c.move),
		tool(mcp.NewTool("bulk_move",
			mcp.WithDescription("Play several turns in order, stopping at the first one that is rejected"),
			session,
			mcp.WithArray("moves", mcp.Required(), mcp.Description("Turns to play"),
				mcp.Items(map[string]any{"type": "string", "enum": actions})),
			intent("these turns"),
			reset,
		), c.bulkMove),
		tool(mcp.NewTool("reset_game",
			mcp.WithDescription("Put a game back on its starting board"),
			session,
		), c.reset),
		tool(mcp.NewTool("move_history",
			mcp.WithDescription("Page through the turns played in a game"),
			session,
			mcp.WithNumber("page", mcp.Description("Page number, from 1")),
			mcp.WithNumber("limit", mcp.Description("Turns per page")),
		), c.moveHistory),
		tool(mcp.NewTool("list_levels",
			mcp.WithDescription("List the levels that can be played"),
		), c.listLevels),
		tool(mcp.NewTool("solve",
			mcp.WithDescription("Find a shortest known winning path from a level's starting board. Give session_id or level_id."),
			mcp.WithString("session_id", mcp.Description("Solve the level this game is on")),
			mcp.WithString("level_id", mcp.Description("Solve this level when no session is given")),
		), c.solve),
		tool(mcp.NewTool("game_instructions",
			mcp.WithDescription("Rules, tile legend and turn order"),
		), c.instructions),
		tool(mcp.NewTool("describe_cell",
			mcp.WithDescription("Spell out one tile: its kind and the force on each face. Coordinates count tiles, not characters."),
			session,
			mcp.WithNumber("row", mcp.Required(), mcp.Description("Tile row, from 0")),
			mcp.WithNumber("col", mcp.Required(), mcp.Description("Tile column, from 0")),
		), c.describeCell),
	}
}

// call sends in as JSON and decodes the response into out. Error responses
// are turned into an error carrying the server's message when it sent one.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sessionPath(id string, rest ...string) string {
	return "/api/sessions/" + url.PathEscape(id) + strings.Join(rest, "")
}

func (c *Client) createSession(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	body := map[string]string{}
	if level := req.GetString("level_id", ""); level != "" {
		body["level_id"] = level
	}

	var info service.SessionInfo
	if err := c.call(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return "", err
	}

	out := fmt.Sprintf("Created session: %s\nLevel: %s\n", info.ID, info.LevelID)
	if info.GameState != nil {
		out += "\n" + formatGameState(info.GameState)
	}
	return out, nil
}

func (c *Client) listSessions(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	var list struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/sessions", nil, &list); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", list.Count)
	for _, s := range list.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, Created: %s)\n", s.ID, s.LevelID, s.CreatedAt.Format("15:04:05"))
	}
	return b.String(), nil
}

func (c *Client) getSession(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return "", err
	}
	var info service.SessionInfo
	if err := c.call(ctx, http.MethodGet, sessionPath(id), nil, &info); err != nil {
		return "", err
	}
	return formatSessionInfo(&info), nil
}

func (c *Client) fetchState(ctx context.Context, req mcp.CallToolRequest) (*engine.GameState, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return nil, err
	}
	var state engine.GameState
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) gameState(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	state, err := c.fetchState(ctx, req)
	if err != nil {
		return "", err
	}
	return formatGameState(state), nil
}

// move forwards direction and reset; intent stays with the caller
func (c *Client) move(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return "", err
	}
	direction, err := req.RequireString("direction")
	if err != nil {
		return "", err
	}

	body := map[string]any{"direction": direction, "reset": req.GetBool("reset", false)}
	var result service.MoveResult
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/move"), body, &result); err != nil {
		return "", err
	}
	return formatMoveResult(&result), nil
}

func (c *Client) bulkMove(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"moves": req.GetStringSlice("moves", []string{}),
		"reset": req.GetBool("reset", false),
	}
	var result service.BulkMoveResult
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/bulk-move"), body, &result); err != nil {
		return "", err
	}
	return formatBulkMoveResult(id, &result), nil
}

func (c *Client) reset(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return "", err
	}

	var reply struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/reset"), nil, &reply); err != nil {
		return "", err
	}
	return reply.Message + "\n\n" + formatGameState(reply.State), nil
}

func (c *Client) moveHistory(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return "", err
	}

	query := url.Values{}
	for _, name := range []string{"page", "limit"} {
		if n := req.GetInt(name, 0); n > 0 {
			query.Set(name, strconv.Itoa(n))
		}
	}
	path := sessionPath(id, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &history); err != nil {
		return "", err
	}
	return formatHistory(&history), nil
}

func (c *Client) listLevels(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	var levels []service.LevelInfo
	if err := c.call(ctx, http.MethodGet, "/api/levels", nil, &levels); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, l := range levels {
		fmt.Fprintf(&b, "• %s\n  Board: %dx%d tiles, Magnets: %d\n", l.LevelID, l.Rows, l.Cols, l.Magnets)
	}
	return b.String(), nil
}

func (c *Client) solve(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	var path string
	if id := req.GetString("session_id", ""); id != "" {
		path = sessionPath(id, "/solve")
	} else if level := req.GetString("level_id", ""); level != "" {
		path = "/api/levels/" + url.PathEscape(level) + "/solve"
	} else {
		return "", errors.New("session_id or level_id is required")
	}

	var result service.SolveResult
	if err := c.call(ctx, http.MethodPost, path, nil, &result); err != nil {
		return "", err
	}
	return formatSolveResult(&result), nil
}

func (c *Client) instructions(context.Context, mcp.CallToolRequest) (string, error) {
	return gameInstructions, nil
}

func (c *Client) describeCell(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	row, err := req.RequireInt("row")
	if err != nil {
		return "", err
	}
	col, err := req.RequireInt("col")
	if err != nil {
		return "", err
	}
	state, err := c.fetchState(ctx, req)
	if err != nil {
		return "", err
	}
	return describeTile(state, row, col)
}
