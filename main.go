package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/auth"
	"github.com/pliu/parley/internal/config"
	"github.com/pliu/parley/internal/handlers"
	"github.com/pliu/parley/internal/middleware"
	"github.com/pliu/parley/internal/notify"
	"github.com/pliu/parley/internal/store/sqlstore"
	"github.com/pliu/parley/internal/ws"
)

var configPath = flag.String("config", "", "path to a YAML config file")

func main() {
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "parley",
		Level: hclog.LevelFromString(os.Getenv("LOG_LEVEL")),
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.CookieSecret != "" {
		auth.SetSecret(cfg.CookieSecret)
	} else {
		logger.Warn("no cookie_secret configured, sessions will not survive a restart")
	}

	store, err := sqlstore.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// NATS when configured, otherwise the single-process broker.
	var broker notify.Broker
	if cfg.NatsURL != "" {
		broker, err = notify.NewNatsBroker(cfg.NatsURL)
		if err != nil {
			logger.Error("failed to connect broker", "url", cfg.NatsURL, "error", err)
			os.Exit(1)
		}
		logger.Info("fan-out over NATS", "url", cfg.NatsURL)
	} else {
		broker = notify.NewMemoryBroker()
	}
	defer broker.Close()

	hub := ws.NewHub(broker, logger.Named("ws"))
	go hub.Run()

	authHandler := &handlers.AuthHandler{Store: store, Logger: logger.Named("auth")}
	chatHandler := &handlers.ChatHandler{Store: store, Logger: logger.Named("chat")}
	messageHandler := &handlers.MessageHandler{Store: store, Broker: broker, Logger: logger.Named("message")}
	adminHandler := &handlers.AdminHandler{Store: store, Logger: logger.Named("admin")}

	authed := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger.Named("http")))

	// User accounts
	r.HandleFunc("/api/user", authHandler.Signup).Methods("POST")
	r.HandleFunc("/api/user/login", authHandler.Login).Methods("POST")
	r.Handle("/api/user", authed(authHandler.SearchUsers)).Methods("GET")
	r.Handle("/api/user/profile", authed(authHandler.UpdateProfile)).Methods("PUT")
	r.Handle("/api/user/password", authed(authHandler.ChangePassword)).Methods("PUT")
	r.Handle("/api/user/admin", authed(authHandler.SearchAdmin)).Methods("GET")

	// Chats
	r.Handle("/api/chat", authed(chatHandler.AccessChat)).Methods("POST")
	r.Handle("/api/chat", authed(chatHandler.GetChats)).Methods("GET")
	r.Handle("/api/chat/group", authed(chatHandler.CreateGroup)).Methods("POST")
	r.Handle("/api/chat/rename", authed(chatHandler.RenameGroup)).Methods("PUT")
	r.Handle("/api/chat/groupadd", authed(chatHandler.AddToGroup)).Methods("PUT")
	r.Handle("/api/chat/groupremove", authed(chatHandler.RemoveFromGroup)).Methods("PUT")
	r.Handle("/api/chat/groupdelete", authed(chatHandler.DeleteGroup)).Methods("DELETE")
	r.Handle("/api/chat/{chatId}", authed(chatHandler.DeleteChat)).Methods("DELETE")
	r.Handle("/api/chat/{chatId}/block", authed(chatHandler.BlockChat)).Methods("POST")
	r.Handle("/api/chat/{chatId}/unblock", authed(chatHandler.UnblockChat)).Methods("POST")

	// Messages
	r.Handle("/api/message", authed(messageHandler.Send)).Methods("POST")
	r.Handle("/api/message/unread/counts", authed(messageHandler.UnreadCounts)).Methods("GET")
	r.Handle("/api/message/clear-notifications", authed(messageHandler.ClearNotifications)).Methods("PUT")
	r.Handle("/api/message/{chatId}", authed(messageHandler.List)).Methods("GET")
	r.Handle("/api/message/{chatId}/read", authed(messageHandler.MarkRead)).Methods("PUT")
	r.Handle("/api/message/{chatId}/unread", authed(messageHandler.ChatUnreadCount)).Methods("GET")
	r.Handle("/api/message/{messageId}", authed(messageHandler.Delete)).Methods("DELETE")

	// Admin oversight. Group creation and direct-chat access reuse the chat
	// handler with the admin as the acting principal.
	r.HandleFunc("/api/admin/register", adminHandler.Register).Methods("POST")
	r.HandleFunc("/api/admin/login", adminHandler.Login).Methods("POST")
	r.Handle("/api/admin/users", adminOnly(adminHandler.ListUsers)).Methods("GET")
	r.Handle("/api/admin/chats", adminOnly(adminHandler.ListChats)).Methods("GET")
	r.Handle("/api/admin/chat/{chatId}/messages", adminOnly(adminHandler.ChatMessages)).Methods("GET")
	r.Handle("/api/admin/user/{userId}", adminOnly(adminHandler.DeleteUser)).Methods("DELETE")
	r.Handle("/api/admin/chat", adminOnly(chatHandler.AccessChat)).Methods("POST")
	r.Handle("/api/admin/group", adminOnly(chatHandler.CreateGroup)).Methods("POST")
	r.Handle("/api/admin/groups/created", adminOnly(adminHandler.GroupsCreated)).Methods("GET")
	r.Handle("/api/admin/groups/member", adminOnly(adminHandler.GroupsMember)).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		p, ok := middleware.FromRequest(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ws.ServeWs(hub, w, r, p.ID)
	})

	logger.Info("starting server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loggingMiddleware(logger hclog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
