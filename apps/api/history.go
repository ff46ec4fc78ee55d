package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

const defaultHistoryLimit = 100

// HistoryHandler returns the most recent messages of a channel. Accepted
// members only.
func HistoryHandler(s store.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		channelID := r.URL.Query().Get("channel_id")
		if channelID == "" {
			http.Error(w, "channel_id is required", http.StatusBadRequest)
			return
		}

		member, err := s.IsAcceptedMember(r.Context(), channelID, userID)
		if err != nil {
			log.Error("membership check failed", zap.String("channel_id", channelID), zap.Error(err))
			http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
			return
		}
		if !member {
			http.Error(w, "Not a channel member", http.StatusForbidden)
			return
		}

		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}

		messages, err := s.History(r.Context(), channelID, limit)
		if err != nil {
			log.Error("history query failed", zap.String("channel_id", channelID), zap.Error(err))
			http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messages)
	}
}
