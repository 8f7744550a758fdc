package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agentrelay/internal/auth"
	"agentrelay/internal/mailer"
	"agentrelay/internal/relay"
	"agentrelay/internal/store"

	"github.com/go-chi/chi/v5"
)

type server struct {
	store           Store
	tokens          *auth.Tokens
	relay           *relay.Relay
	mailer          mailer.Sender
	frontendBaseURL string
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeInternal answers 500 with the failure text and logs it with the request id.
func writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logError(r.Context(), msg, err)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", msg, err))
}

func readJSONLimited(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return fallback
	}
	return v
}

// audit appends a log entry. Failures are logged and never reach the caller.
func (s server) audit(ctx context.Context, format string, args ...any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.store.AppendLogEntry(ctx, fmt.Sprintf(format, args...)); err != nil {
		logError(ctx, "audit insert failed", err)
	}
}

type userView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	IsActive  bool   `json:"is_active"`
	IsAdmin   bool   `json:"is_admin"`
}

func toUserView(u store.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
	}
}

type agentView struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Prompt      string          `json:"prompt"`
	Provider    string          `json:"provider"`
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
	UserID      int64           `json:"user_id"`
	Tools       []store.ToolRef `json:"tools"`
}

func toAgentView(a store.Agent) agentView {
	tools := a.Tools
	if tools == nil {
		tools = []store.ToolRef{}
	}
	return agentView{
		ID:          a.ID,
		Name:        a.Name,
		Prompt:      a.Prompt,
		Provider:    a.Provider,
		Model:       a.Model,
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
		UserID:      a.UserID,
		Tools:       tools,
	}
}

type toolView struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func toToolView(t store.Tool) toolView {
	params := t.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return toolView{ID: t.ID, Name: t.Name, Description: t.Description, Parameters: params}
}

type chatLogView struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

type logEntryView struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}
