package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/presence"
)

// PresenceHandler serves /channels/{id}/users: the user ids currently live
// in a channel across every gateway instance, read from the Redis mirror.
func PresenceHandler(mirror *presence.RedisMirror, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(r.URL.Path, "/")
		if len(pathParts) < 4 || pathParts[3] != "users" {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		channelID := pathParts[2]

		users, err := mirror.ChannelUsers(r.Context(), channelID)
		if err != nil {
			log.Error("presence fetch failed", zap.String("channel_id", channelID), zap.Error(err))
			http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(users)
	}
}
