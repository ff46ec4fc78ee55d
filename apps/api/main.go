package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/config"
	"github.com/haidervirk/hatch-chat/pkg/db"
	"github.com/haidervirk/hatch-chat/pkg/logger"
	"github.com/haidervirk/hatch-chat/pkg/presence"
	"github.com/haidervirk/hatch-chat/pkg/snowflake"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	log := logger.Named("api")
	defer logger.Sync()

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		logger.Fatalf("connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	ids, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		logger.Fatalf("init snowflake node: %v", err)
	}
	apiStore := store.NewScylla(session, ids)

	mirror := presence.NewRedisMirror(cfg.RedisAddr, log)
	defer mirror.Close()

	verifier := auth.NewVerifier(cfg.JWTSecret)

	// Public endpoint
	http.Handle("/login", CORSMiddleware(LoginHandler(verifier)))

	// Protected endpoints
	protect := func(h http.Handler) http.Handler {
		return CORSMiddleware(verifier.Middleware(h))
	}
	http.Handle("/history", protect(HistoryHandler(apiStore, log)))
	http.Handle("/reactions", protect(ReactionsHandler(apiStore, log)))
	http.Handle("/channels/read", protect(ReadHandler(apiStore, log)))
	http.Handle("/channels/unread", protect(UnreadHandler(apiStore, log)))
	// Route: /channels/{id}/users
	http.Handle("/channels/", protect(PresenceHandler(mirror, log)))

	log.Info("api listening", zap.String("addr", cfg.APIAddr))
	if err := http.ListenAndServe(cfg.APIAddr, nil); err != nil {
		logger.Fatalf("api server: %v", err)
	}
}
