package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chorewheel/internal/backup"
	"chorewheel/internal/generate"
	"chorewheel/internal/handler"
	"chorewheel/internal/middleware"
	"chorewheel/internal/push"
	"chorewheel/internal/single"
	"chorewheel/internal/store"
	ws "chorewheel/internal/websocket"
)

// Config carries the runtime configuration the server wiring needs.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
	Backup          backup.Config
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	childH         *handler.ChildHandler
	taskH          *handler.TaskHandler
	assignmentH    *handler.AssignmentHandler
	candidacyH     *handler.CandidacyHandler
	rewardH        *handler.RewardHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	generator      *generate.Generator
	backupManager  *backup.Manager
	notifier       *push.Notifier
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	childStore := store.NewChildStore(db)
	taskStore := store.NewTaskStore(db)
	assignmentStore := store.NewAssignmentStore(db)
	candidacyStore := store.NewCandidacyStore(db)
	rewardStore := store.NewRewardStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	generator := generate.New(taskStore, assignmentStore, logger.With("component", "generate"))
	resolver := single.NewResolver(taskStore, candidacyStore, assignmentStore, logger.With("component", "single"))
	backupMgr := backup.NewManager(cfg.Backup, db, backupStore, logger)

	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
		notifier = push.NewNotifier(pushSvc, pushStore, logger)
		pushH = handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push_handler"))
	}

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, logger.With("component", "auth")),
		childH:         handler.NewChildHandler(childStore, hub, logger.With("component", "child")),
		taskH:          handler.NewTaskHandler(taskStore, hub, logger.With("component", "task")),
		assignmentH:    handler.NewAssignmentHandler(assignmentStore, generator, hub, logger.With("component", "assignment")),
		candidacyH:     handler.NewCandidacyHandler(resolver, taskStore, childStore, hub, notifier, logger.With("component", "candidacy")),
		rewardH:        handler.NewRewardHandler(rewardStore, childStore, hub, logger.With("component", "reward")),
		pushH:          pushH,
		backupH:        handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		generator:      generator,
		backupManager:  backupMgr,
		notifier:       notifier,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// Generator returns the assignment generator for the jobs scheduler.
func (s *Server) Generator() *generate.Generator {
	return s.generator
}

// HouseholdStore returns the household store for the jobs scheduler.
func (s *Server) HouseholdStore() *store.HouseholdStore {
	return s.householdStore
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Notifier returns the push notifier, or nil when push is not configured.
func (s *Server) Notifier() *push.Notifier {
	return s.notifier
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Everything else requires a session
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// parentOnly wraps a handler with the parent role check.
func parentOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireParent(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Children
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.Handle("POST /api/children", parentOnly(s.childH.Create))
	mux.Handle("PUT /api/children/{id}", parentOnly(s.childH.Update))
	mux.Handle("DELETE /api/children/{id}", parentOnly(s.childH.Delete))
	mux.Handle("POST /api/children/{id}/pin", parentOnly(s.childH.SetPIN))
	mux.HandleFunc("POST /api/children/{id}/pin/verify", s.childH.VerifyPIN)

	// Task templates
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.Handle("POST /api/tasks", parentOnly(s.taskH.Create))
	mux.Handle("PUT /api/tasks/{id}", parentOnly(s.taskH.Update))
	mux.Handle("POST /api/tasks/{id}/activate", parentOnly(s.taskH.Activate))
	mux.Handle("DELETE /api/tasks/{id}", parentOnly(s.taskH.Deactivate))

	// One-off task candidacy
	mux.Handle("POST /api/tasks/{id}/publish", parentOnly(s.candidacyH.Publish))
	mux.HandleFunc("POST /api/tasks/{id}/respond", s.candidacyH.Respond)
	mux.HandleFunc("GET /api/tasks/{id}/status", s.candidacyH.Status)

	// Assignments
	mux.HandleFunc("GET /api/assignments", s.assignmentH.List)
	mux.HandleFunc("POST /api/assignments/{id}/complete", s.assignmentH.Complete)
	mux.HandleFunc("POST /api/assignments/{id}/undo", s.assignmentH.UndoComplete)
	mux.Handle("POST /api/assignments/generate", parentOnly(s.assignmentH.Generate))

	// Rewards and points
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", parentOnly(s.rewardH.Create))
	mux.Handle("PUT /api/rewards/{id}", parentOnly(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", parentOnly(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/children/{id}/points", s.rewardH.Balance)
	mux.HandleFunc("GET /api/leaderboard", s.rewardH.Leaderboard)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	}

	// Backups
	mux.Handle("GET /api/backups", parentOnly(s.backupH.List))
	mux.Handle("POST /api/backups", parentOnly(s.backupH.Run))
	mux.Handle("GET /api/backups/{id}/download", parentOnly(s.backupH.Download))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
