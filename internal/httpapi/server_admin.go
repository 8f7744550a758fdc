package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"agentrelay/internal/store"
)

const (
	maxLogPage  = 100
	maxLogPages = 100000
)

func (s server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		writeInternal(w, r, "list users failed", err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

type setRoleRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

func (s server) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	targetID, admin, ok := callerAndID(w, r, "userID")
	if !ok {
		return
	}
	if targetID == admin.ID {
		writeError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	var req setRoleRequest
	if !readJSONLimited(w, r, &req, 4*1024) {
		return
	}
	if req.IsAdmin == nil {
		writeError(w, http.StatusBadRequest, "is_admin is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := s.store.SetUserAdmin(ctx, targetID, *req.IsAdmin)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "update role failed", err)
		return
	}
	s.audit(ctx, "admin '%s' set is_admin=%t for '%s'", admin.Username, u.IsAdmin, u.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("role of %q updated", u.Username),
		"user":    toUserView(u),
	})
}

func (s server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID, admin, ok := callerAndID(w, r, "userID")
	if !ok {
		return
	}
	if targetID == admin.ID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := s.store.DeleteUser(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "delete user failed", err)
		return
	}
	s.audit(ctx, "admin '%s' deleted user %d", admin.Username, targetID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// handleAdminListLogs pages through the audit log, newest first.
func (s server) handleAdminListLogs(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", maxLogPage), 1, maxLogPage)
	page := clampInt(queryInt(r, "page", 1), 1, maxLogPages)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	entries, err := s.store.RecentLogEntries(ctx, limit, (page-1)*limit)
	if err != nil {
		writeInternal(w, r, "list logs failed", err)
		return
	}
	out := make([]logEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryView{
			ID:        e.ID,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Message:   e.Message,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
