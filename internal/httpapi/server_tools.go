package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"agentrelay/internal/store"
	"agentrelay/internal/toolspec"
)

type createToolRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type updateToolRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func (s server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	var req createToolRequest
	if !readJSONLimited(w, r, &req, 256*1024) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "name and description are required")
		return
	}
	params, err := toolspec.Normalize(req.Parameters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	t, err := s.store.CreateTool(ctx, store.Tool{Name: req.Name, Description: req.Description, Parameters: params})
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "tool name already exists")
		return
	}
	if err != nil {
		writeInternal(w, r, "create tool failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "tool created",
		"tool_id": t.ID,
		"tool":    toToolView(t),
	})
}

func (s server) handleListTools(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	tools, err := s.store.ListTools(ctx)
	if err != nil {
		writeInternal(w, r, "list tools failed", err)
		return
	}
	out := make([]toolView, 0, len(tools))
	for _, t := range tools {
		out = append(out, toToolView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "toolID")
	if !ok {
		return
	}
	t, err := s.store.ToolByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "load tool failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toToolView(t))
}

// Tools are global: any authenticated user may edit or delete them.
func (s server) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "toolID")
	if !ok {
		return
	}

	var req updateToolRequest
	if !readJSONLimited(w, r, &req, 256*1024) {
		return
	}
	var patch store.ToolPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		patch.Name = &name
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			writeError(w, http.StatusBadRequest, "description must not be empty")
			return
		}
		patch.Description = req.Description
	}
	if req.Parameters != nil {
		params, err := toolspec.Normalize(req.Parameters)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Parameters = params
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	t, err := s.store.UpdateTool(ctx, id, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "tool name already exists")
	case err != nil:
		writeInternal(w, r, "update tool failed", err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "tool updated", "tool": toToolView(t)})
	}
}

func (s server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "toolID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := s.store.DeleteTool(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "delete tool failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "tool deleted"})
}
