// Command autoplay plays a level on a running Magnets server through its REST
// API. It creates a session (or resumes the one saved in .session), resets it,
// asks the server for a solution and then submits the moves one turn at a time,
// so connected WebSocket viewers can watch the level being solved.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/MLLeKander/Magnets/game/engine"
	"github.com/MLLeKander/Magnets/game/service"
)

// ErrUnsolvable is returned when the server reports that the level has no solution
var ErrUnsolvable = errors.New("level is unsolvable")

// Client talks to one session on a Magnets server
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) sessionURL(suffix string) string {
	return fmt.Sprintf("%s/api/sessions/%s%s", c.baseURL, url.PathEscape(c.sessionID), suffix)
}

// call sends body as JSON and decodes a 2xx response into out
func (c *Client) call(ctx context.Context, method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) CreateSession(ctx context.Context, levelID string) (*engine.GameState, error) {
	var info service.SessionInfo
	body := map[string]string{"level_id": levelID}
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.call(ctx, http.MethodGet, c.sessionURL("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.call(ctx, http.MethodPost, c.sessionURL("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

func (c *Client) Solve(ctx context.Context) (*service.SolveResult, error) {
	var result service.SolveResult
	if err := c.call(ctx, http.MethodPost, c.sessionURL("/solve"), nil, &result); err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	return &result, nil
}

func (c *Client) Move(ctx context.Context, action string) (*service.MoveResult, error) {
	var result service.MoveResult
	body := map[string]string{"direction": action}
	if err := c.call(ctx, http.MethodPost, c.sessionURL("/move"), body, &result); err != nil {
		return nil, fmt.Errorf("move %s: %w", action, err)
	}
	return &result, nil
}

// Options controls a single autoplay run
type Options struct {
	Level   string
	Resume  string
	Delay   time.Duration
	Verbose bool
}

// prepare attaches the client to a fresh or resumed session and resets it
func prepare(ctx context.Context, c *Client, opts Options) (*engine.GameState, error) {
	if opts.Resume != "" {
		c.sessionID = opts.Resume
		_, err := c.GetState(ctx)
		if err == nil {
			log.WithField("session", c.sessionID).Info("Resuming session")
			return c.Reset(ctx)
		}
		log.WithError(err).Warn("Failed to resume session, creating a new one")
	}

	if _, err := c.CreateSession(ctx, opts.Level); err != nil {
		return nil, err
	}
	log.WithField("session", c.sessionID).Info("Session created")
	return c.Reset(ctx)
}

// play solves the session's level on the server and submits the solution one
// turn at a time. It returns the final state.
func play(ctx context.Context, c *Client, state *engine.GameState, opts Options) (*engine.GameState, error) {
	solution, err := c.Solve(ctx)
	if err != nil {
		return state, err
	}
	if !solution.Solvable {
		return state, ErrUnsolvable
	}
	log.WithFields(log.Fields{
		"level":      solution.LevelID,
		"path":       solution.Path,
		"moves":      solution.MoveCount,
		"expansions": solution.Expansions,
	}).Info("Solution found")

	for i, action := range solution.Moves {
		result, err := c.Move(ctx, action)
		if err != nil {
			return state, err
		}
		state = result.GameState
		if !result.Success {
			return state, fmt.Errorf("turn %d (%s) rejected: %s", i+1, action, result.Message)
		}
		if opts.Verbose {
			log.WithFields(log.Fields{
				"turn":   i + 1,
				"action": action,
				"player": fmt.Sprintf("(%d,%d)", state.PlayerPos.Row, state.PlayerPos.Col),
			}).Info(result.Message)
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	if !state.Completed {
		return state, fmt.Errorf("solution replayed but the goal was not reached")
	}
	return state, nil
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	level := flag.String("level", "", "Level id (server default when empty)")
	continueSession := flag.String("continue", "", "Resume playing an existing session by ID")
	sessionFile := flag.String("session-file", ".session", "File remembering the last session ID")
	delay := flag.Duration("delay", 0, "Delay between turns")
	verbose := flag.Bool("v", false, "Log every turn")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.Infof("Connecting to game server at %s", *serverURL)

	opts := Options{Level: *level, Resume: *continueSession, Delay: *delay, Verbose: *verbose}
	if opts.Resume == "" && *sessionFile != "" {
		if data, err := os.ReadFile(*sessionFile); err == nil {
			opts.Resume = string(bytes.TrimSpace(data))
		}
	}

	ctx := context.Background()
	client := NewClient(*serverURL)

	state, err := prepare(ctx, client, opts)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	if *sessionFile != "" {
		if err := os.WriteFile(*sessionFile, []byte(client.sessionID), 0644); err != nil {
			log.WithError(err).Warn("Failed to save session ID")
		}
	}

	state, err = play(ctx, client, state, opts)
	if err != nil {
		log.WithField("session", client.sessionID).Fatalf("Failed: %v", err)
	}
	log.WithFields(log.Fields{
		"session": client.sessionID,
		"turns":   state.Turns,
	}).Info("Level complete")
}
