package main

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

type ReadRequest struct {
	ChannelID string `json:"channel_id"`
	MessageID int64  `json:"message_id"`
}

// ReadHandler records a read receipt for the given message and resets the
// caller's unread counter for the channel.
func ReadHandler(s store.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req ReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ChannelID == "" || req.MessageID == 0 {
			http.Error(w, "channel_id and message_id are required", http.StatusBadRequest)
			return
		}

		if err := s.MarkSeen(r.Context(), req.MessageID, userID, time.Now()); err != nil {
			log.Error("mark seen failed", zap.Int64("message_id", req.MessageID), zap.Error(err))
			http.Error(w, "Failed to record read receipt", http.StatusInternalServerError)
			return
		}
		if err := s.ResetUnread(r.Context(), userID, req.ChannelID); err != nil {
			log.Error("unread reset failed", zap.String("channel_id", req.ChannelID), zap.Error(err))
			http.Error(w, "Failed to reset unread count", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// UnreadHandler lists the caller's per-channel unread counts.
func UnreadHandler(s store.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		counts, err := s.UnreadCounts(r.Context(), userID)
		if err != nil {
			log.Error("unread counts failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, "Failed to fetch unread counts", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counts)
	}
}
