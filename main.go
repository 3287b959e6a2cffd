// Command Magnets serves the Magnets puzzle to remote players.
//
// By default it runs one HTTP listener carrying the REST API under /api, live
// updates on /ws and a JSON-RPC MCP endpoint on /mcp. With the "stdio-mcp"
// mode (aliases "mcp-stdio" and "mcp") it speaks MCP on stdin/stdout instead
// and drives an HTTP API on loopback, starting one itself when none is found
// on -port.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/MLLeKander/Magnets/api"
	"github.com/MLLeKander/Magnets/game/config"
	"github.com/MLLeKander/Magnets/game/service"
	"github.com/MLLeKander/Magnets/game/session"
	"github.com/MLLeKander/Magnets/transport/mcp"
	"github.com/MLLeKander/Magnets/transport/websocket"
)

const (
	Version = "1.0.0"
	AppName = "Magnets Server"
)

var (
	port               = flag.Int("port", 8080, "HTTP server port")
	host               = flag.String("host", "localhost", "HTTP server host")
	levelsDir          = flag.String("levels-dir", envOr("LEVELS_DIR", "levels"), "Directory containing level map files")
	sessionsDir        = flag.String("sessions-dir", envOr("SESSIONS_DIR", "sessions"), "Directory where sessions are saved")
	debug              = flag.Bool("debug", false, "Enable debug logging")
	version            = flag.Bool("version", false, "Show version information")
	ngrokEnabled       = flag.Bool("ngrok", false, "Expose the server through an ngrok tunnel")
	ngrokAuth          = flag.String("ngrok-auth", "", "Ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain        = flag.String("ngrok-domain", "", "Reserved ngrok domain (or NGROK_DOMAIN)")
	solveMaxExpansions = flag.Int("solve-max-expansions", service.DefaultSolveMaxExpansions, "Solver expansion budget per request (0 = unlimited)")
	solveTimeout       = flag.Duration("solve-timeout", service.DefaultSolveTimeout, "Solver time limit per request (0 = none)")
)

const (
	sessionMaxIdle   = 24 * time.Hour
	cleanupInterval  = time.Hour
	diskSyncInterval = 5 * time.Second
	shutdownGrace    = 10 * time.Second
)

// envOr returns the environment variable key, or def when it is unset or empty
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "%s v%s\n\nUsage: %s [OPTIONS] [MODE]\n\n", AppName, Version, os.Args[0])
	fmt.Fprintln(out, "Modes:")
	fmt.Fprintln(out, "  server, http           REST API, WebSocket and /mcp on one listener (default)")
	fmt.Fprintln(out, "  stdio-mcp, mcp-stdio   MCP over stdin/stdout backed by a loopback API")
	fmt.Fprintln(out, "\nOptions:")
	flag.PrintDefaults()
}

func configureLogging(debug bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	// stdout is reserved for the MCP stdio protocol
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}
}

func main() {
	envErr := godotenv.Load()

	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}
	configureLogging(*debug)

	switch {
	case envErr == nil:
		log.Info("Loaded environment from .env")
	case !os.IsNotExist(envErr):
		log.WithError(envErr).Warn("Ignoring unreadable .env file")
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	log.WithFields(log.Fields{"version": Version, "mode": mode}).Infof("Starting %s", AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newBackend()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	go app.maintain(ctx)

	switch mode {
	case "server", "http":
		err = serveHTTP(ctx, app.game)
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = serveStdio(ctx, app.game)
	default:
		err = fmt.Errorf("unknown mode %q, use 'server' or 'stdio-mcp'", mode)
	}

	if saveErr := app.sessions.SaveAllSessions(); saveErr != nil {
		log.WithError(saveErr).Warn("Some sessions were not saved")
	}
	if err != nil {
		log.Fatal(err)
	}
}

// backend is the level catalogue, the session store and the game service on
// top of them
type backend struct {
	levels   *config.Manager
	store    session.SessionPersistence
	sessions *session.Manager
	game     service.GameService
}

func newBackend() (*backend, error) {
	levels, err := config.NewManager(*levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	store, err := session.NewFilePersistence(*sessionsDir, levels)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessions := session.NewManagerWithPersistence(store)
	if err := sessions.LoadPersistedSessions(); err != nil {
		log.WithError(err).Warn("Starting without saved sessions")
	}

	game := service.NewGameServiceWithOptions(sessions, levels, service.SolveOptions{
		MaxExpansions: *solveMaxExpansions,
		Timeout:       *solveTimeout,
	})
	return &backend{levels: levels, store: store, sessions: sessions, game: game}, nil
}

// maintain evicts idle sessions and forgets sessions whose files were
// removed, until ctx is done
func (b *backend) maintain(ctx context.Context) {
	cleanup := time.NewTicker(cleanupInterval)
	resync := time.NewTicker(diskSyncInterval)
	defer cleanup.Stop()
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			b.sessions.CleanupExpiredSessions(sessionMaxIdle)
		case <-resync.C:
			b.pruneDeleted()
		}
	}
}

// pruneDeleted drops live sessions whose saved file has disappeared and
// returns how many it dropped
func (b *backend) pruneDeleted() int {
	if b.store == nil {
		return 0
	}

	pruned := 0
	for _, s := range b.sessions.List() {
		if b.store.Exists(s.ID) {
			continue
		}
		if b.sessions.DeleteFromMemory(s.ID) == nil {
			log.WithField("session", s.ID).Info("Session file removed, dropping session")
			pruned++
		}
	}
	return pruned
}

// newRouter puts the REST API and WebSocket on / and MCP on /mcp
func newRouter(game service.GameService, hub *websocket.Hub, apiURL string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(game, hub))
	mux.Handle("/mcp", mcpEndpoint(mcp.NewClient(apiURL)))
	return mux
}

// mcpEndpoint answers one JSON-RPC message per POST
func mcpEndpoint(client *mcp.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		msg, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		reply, err := json.Marshal(client.GetMCPServer().HandleMessage(r.Context(), msg))
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(reply)
	})
}

func serveHTTP(ctx context.Context, game service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := net.JoinHostPort(*host, fmt.Sprint(*port))
	router := newRouter(game, hub, "http://"+addr)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// a solve may run for the whole solver time limit
		WriteTimeout: 15*time.Second + *solveTimeout,
		IdleTimeout:  60 * time.Second,
	}

	failed := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"api":       "http://" + addr + "/api",
			"websocket": "ws://" + addr + "/ws?session=<id>",
			"mcp":       "http://" + addr + "/mcp",
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	tunnelDone := make(chan struct{})
	go func() {
		defer close(tunnelDone)
		if tunnelRequested() {
			serveTunnel(ctx, router)
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown")
	}
	<-tunnelDone
	log.Info("Server stopped")
	return nil
}

// tunnelRequested checks -ngrok, then NGROK_ENABLED
func tunnelRequested() bool {
	if *ngrokEnabled {
		return true
	}
	switch os.Getenv("NGROK_ENABLED") {
	case "true", "1":
		return true
	}
	return false
}

// tunnelToken prefers -ngrok-auth over NGROK_AUTHTOKEN over NGROK_AUTH_TOKEN
func tunnelToken() string {
	if *ngrokAuth != "" {
		return *ngrokAuth
	}
	return envOr("NGROK_AUTHTOKEN", os.Getenv("NGROK_AUTH_TOKEN"))
}

// serveTunnel publishes handler on an ngrok endpoint until ctx is done
func serveTunnel(ctx context.Context, handler http.Handler) {
	token := tunnelToken()
	if token == "" {
		log.Warn("Ngrok requested but no auth token set (-ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	endpoint := ngrokConfig.HTTPEndpoint()
	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}
	if domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.WithField("domain", domain).Info("Using reserved ngrok domain")
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(token))
	if err != nil {
		log.WithError(err).Error("Failed to open ngrok tunnel")
		return
	}
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	url := tun.URL()
	log.WithFields(log.Fields{
		"api":       url + "/api",
		"websocket": url + "/ws?session=<id>",
		"mcp":       url + "/mcp",
	}).Info("Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("Ngrok tunnel failed")
	}
	log.Info("Ngrok tunnel closed")
}

// serveStdio runs MCP on stdin/stdout. Tool calls go to the API on -port when
// one answers there, otherwise to an API started here on a loopback port.
func serveStdio(ctx context.Context, game service.GameService) error {
	apiURL := fmt.Sprintf("http://localhost:%d", *port)
	if !apiAvailable(apiURL) {
		local, err := startLoopbackAPI(ctx, game)
		if err != nil {
			return err
		}
		apiURL = local
	}

	log.WithField("api", apiURL).Info("MCP stdio server ready")
	if err := server.ServeStdio(mcp.NewClient(apiURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func apiAvailable(baseURL string) bool {
	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(baseURL + "/api/health")
	if err != nil {
		log.WithField("api", baseURL).Debug("No API answering")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// startLoopbackAPI serves the REST API on a free 127.0.0.1 port until ctx is
// done and returns its base URL
func startLoopbackAPI(ctx context.Context, game service.GameService) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen on loopback: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	srv := &http.Server{Handler: api.NewServer(game, hub)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Loopback API failed")
		}
	}()

	url := "http://" + ln.Addr().String()
	log.WithField("api", url).Info("Started loopback API")
	return url, nil
}
