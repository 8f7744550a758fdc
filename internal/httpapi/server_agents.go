package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentrelay/internal/store"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 50
)

type createAgentRequest struct {
	Name        string   `json:"name"`
	Prompt      string   `json:"prompt"`
	Provider    string   `json:"llm_provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	Tools       []string `json:"tools"`
}

type updateAgentRequest struct {
	Name        *string   `json:"name"`
	Prompt      *string   `json:"prompt"`
	Provider    *string   `json:"llm_provider"`
	Model       *string   `json:"model"`
	Temperature *float64  `json:"temperature"`
	MaxTokens   *int      `json:"max_tokens"`
	Tools       *[]string `json:"tools"`
}

func validateSampling(temperature *float64, maxTokens *int) string {
	if temperature != nil && (*temperature < 0 || *temperature > 2) {
		return "temperature must be between 0 and 2"
	}
	if maxTokens != nil && *maxTokens < 1 {
		return "max_tokens must be positive"
	}
	return ""
}

func (s server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromCtx(r.Context())

	var req createAgentRequest
	if !readJSONLimited(w, r, &req, 256*1024) {
		return
	}
	for _, f := range []struct{ name, value string }{
		{"name", req.Name},
		{"prompt", req.Prompt},
		{"llm_provider", req.Provider},
		{"model", req.Model},
	} {
		if strings.TrimSpace(f.value) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", f.name))
			return
		}
	}
	if msg := validateSampling(req.Temperature, req.MaxTokens); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	a := store.Agent{
		Name:        strings.TrimSpace(req.Name),
		Prompt:      req.Prompt,
		Provider:    strings.TrimSpace(req.Provider),
		Model:       strings.TrimSpace(req.Model),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		UserID:      u.ID,
	}
	if req.Temperature != nil {
		a.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		a.MaxTokens = *req.MaxTokens
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	created, err := s.store.CreateAgent(ctx, a, req.Tools)
	if err != nil {
		writeInternal(w, r, "create agent failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "agent created",
		"agent_id": created.ID,
		"agent":    toAgentView(created),
	})
}

func (s server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromCtx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	agents, err := s.store.ListAgents(ctx, u.ID)
	if err != nil {
		writeInternal(w, r, "list agents failed", err)
		return
	}
	out := make([]agentView, 0, len(agents))
	for _, a := range agents {
		out = append(out, toAgentView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, _, ok := loadOwned(w, r, "agentID", s.store.OwnedAgent)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(a))
}

func (s server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	agentID, u, ok := callerAndID(w, r, "agentID")
	if !ok {
		return
	}

	var req updateAgentRequest
	if !readJSONLimited(w, r, &req, 256*1024) {
		return
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"name", req.Name},
		{"prompt", req.Prompt},
		{"llm_provider", req.Provider},
		{"model", req.Model},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must not be empty", f.name))
			return
		}
	}
	if msg := validateSampling(req.Temperature, req.MaxTokens); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	updated, err := s.store.UpdateAgent(ctx, agentID, u.ID, store.AgentPatch{
		Name:        req.Name,
		Prompt:      req.Prompt,
		Provider:    req.Provider,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Tools:       req.Tools,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "update agent failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "agent updated", "agent": toAgentView(updated)})
}

func (s server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID, u, ok := callerAndID(w, r, "agentID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := s.store.DeleteAgent(ctx, agentID, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "delete agent failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "agent deleted"})
}
