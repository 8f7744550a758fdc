package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s server) handleListChats(w http.ResponseWriter, r *http.Request) {
	agent, _, ok := loadOwned(w, r, "agentID", s.store.OwnedAgent)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logs, err := s.store.ChatLogs(ctx, agent.ID)
	if err != nil {
		writeInternal(w, r, "list chats failed", err)
		return
	}
	out := make([]chatLogView, 0, len(logs))
	for _, l := range logs {
		out = append(out, chatLogView{
			ID:        l.ID,
			Message:   l.Message,
			Role:      l.Role,
			Timestamp: l.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s server) handleDeleteChats(w http.ResponseWriter, r *http.Request) {
	agent, _, ok := loadOwned(w, r, "agentID", s.store.OwnedAgent)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := s.store.DeleteChatLogs(ctx, agent.ID)
	if err != nil {
		writeInternal(w, r, "delete chats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "chats deleted", "deleted": n})
}

func (s server) handleChat(w http.ResponseWriter, r *http.Request) {
	agent, _, ok := loadOwned(w, r, "agentID", s.store.OwnedAgent)
	if !ok {
		return
	}

	var req chatRequest
	if !readJSONLimited(w, r, &req, 64*1024) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	answer, err := s.relay.Turn(ctx, agent, req.Message)
	if err != nil {
		writeInternal(w, r, "chat failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"respuesta": answer})
}
