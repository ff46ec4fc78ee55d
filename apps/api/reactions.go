package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/haidervirk/hatch-chat/pkg/auth"
	"github.com/haidervirk/hatch-chat/pkg/model"
	"github.com/haidervirk/hatch-chat/pkg/store"
)

type ReactRequest struct {
	MessageID int64  `json:"message_id"`
	Reaction  string `json:"reaction"`
}

// ReactionsHandler serves POST (upsert this user's reaction; latest write
// wins per message+user) and GET (grouped reactions of a message).
func ReactionsHandler(s store.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			upsertReaction(s, log, w, r)
		case http.MethodGet:
			listReactions(s, log, w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func upsertReaction(s store.Gateway, log *zap.Logger, w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ReactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MessageID == 0 || req.Reaction == "" {
		http.Error(w, "message_id and reaction are required", http.StatusBadRequest)
		return
	}

	if err := s.UpsertReaction(r.Context(), req.MessageID, userID, req.Reaction); err != nil {
		log.Error("reaction upsert failed", zap.Int64("message_id", req.MessageID), zap.Error(err))
		http.Error(w, "Failed to save reaction", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func listReactions(s store.Gateway, log *zap.Logger, w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseInt(r.URL.Query().Get("message_id"), 10, 64)
	if err != nil {
		http.Error(w, "message_id is required", http.StatusBadRequest)
		return
	}

	reactions, err := s.Reactions(r.Context(), messageID)
	if err != nil {
		log.Error("reactions query failed", zap.Int64("message_id", messageID), zap.Error(err))
		http.Error(w, "Failed to fetch reactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groupReactions(reactions))
}

// groupReactions collapses per-user rows into per-value groups for the UI.
func groupReactions(reactions []model.Reaction) []model.ReactionGroup {
	byValue := make(map[string][]string)
	for _, r := range reactions {
		byValue[r.Reaction] = append(byValue[r.Reaction], r.UserID)
	}

	groups := make([]model.ReactionGroup, 0, len(byValue))
	for value, users := range byValue {
		sort.Strings(users)
		groups = append(groups, model.ReactionGroup{
			Reaction: value,
			Count:    len(users),
			Users:    users,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Reaction < groups[j].Reaction
	})
	return groups
}
