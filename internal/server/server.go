package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"taskbeacon/internal/handler"
	"taskbeacon/internal/hardware"
	"taskbeacon/internal/middleware"
	"taskbeacon/internal/stats"
	"taskbeacon/internal/store"
	"taskbeacon/internal/task"
	ws "taskbeacon/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	taskH        *handler.TaskHandler
	statsH       *handler.StatsHandler
	hardwareH    *handler.HardwareHandler
	accountH     *handler.AccountHandler
	sessionStore *store.SessionStore
	poller       *hardware.Poller
	logger       *slog.Logger
}

// projector fans a task mutation out to the device projection and any
// connected sockets. The hub is attached after construction because its feed
// needs the lifecycle service, which needs this projector.
type projector struct {
	hw  *hardware.Service
	hub *ws.Hub
}

func (p *projector) Project(userID int64) error {
	if err := p.hw.Project(userID); err != nil {
		return err
	}
	if p.hub != nil {
		p.hub.RefreshUser(userID)
	}
	return nil
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	taskStore := store.NewTaskStore(db)
	ledgerStore := store.NewLedgerStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	hardwareStore := store.NewHardwareStore(db)

	hwSvc := hardware.NewService(userStore, taskStore, hardwareStore, logger.With("component", "hardware"))
	proj := &projector{hw: hwSvc}
	lifecycle := task.NewService(taskStore, ledgerStore, proj, logger.With("component", "task"))
	aggregator := stats.NewAggregator(lifecycle, ledgerStore)
	feed := hardware.NewDeviceFeed(hwSvc, lifecycle)
	hub := ws.NewHub(feed, logger.With("component", "websocket"))
	proj.hub = hub
	poller := hardware.NewPoller(userStore, hardwareStore, lifecycle, logger.With("component", "poller"))

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		taskH:        handler.NewTaskHandler(lifecycle, logger.With("component", "task_handler")),
		statsH:       handler.NewStatsHandler(aggregator, logger.With("component", "stats")),
		hardwareH:    handler.NewHardwareHandler(hwSvc, userStore, logger.With("component", "hardware_handler")),
		accountH:     handler.NewAccountHandler(userStore, ledgerStore, lifecycle, logger.With("component", "account")),
		sessionStore: sessionStore,
		poller:       poller,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// Poller returns the hardware action poller so main can start and stop it.
func (s *Server) Poller() *hardware.Poller {
	return s.poller
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.authH.Register)
	outerMux.HandleFunc("POST /api/login", s.authH.Login)
	outerMux.HandleFunc("POST /api/hardware/actions", s.hardwareH.SubmitAction)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/user", s.authH.Me)

	// Task API routes
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Stats
	mux.HandleFunc("GET /api/stats", s.statsH.Get)

	// Account management
	mux.HandleFunc("POST /api/update-username", s.accountH.UpdateUsername)
	mux.HandleFunc("POST /api/update-password", s.accountH.UpdatePassword)
	mux.HandleFunc("POST /api/reset-scores", s.accountH.ResetScores)
	mux.HandleFunc("POST /api/reset-analytics", s.accountH.ResetAnalytics)
	mux.HandleFunc("POST /api/cleanup-deleted", s.accountH.CleanupDeleted)

	// Hardware pairing
	mux.HandleFunc("GET /api/hardware/pairing-code", s.hardwareH.PairingCode)
	mux.HandleFunc("POST /api/hardware/rotate-code", s.hardwareH.RotateCode)
	mux.HandleFunc("POST /api/hardware/pair", s.hardwareH.Pair)
	mux.HandleFunc("GET /api/hardware/tasks", s.hardwareH.Tasks)

	// Realtime channel
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
