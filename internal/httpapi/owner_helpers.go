package httpapi

import (
	"context"
	"errors"
	"net/http"

	"agentrelay/internal/store"
)

// callerAndID returns the numeric {param} of the request and the authenticated caller.
func callerAndID(w http.ResponseWriter, r *http.Request, param string) (int64, store.User, bool) {
	u, ok := userFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return 0, store.User{}, false
	}
	id, ok := idParam(w, r, param)
	if !ok {
		return 0, store.User{}, false
	}
	return id, u, true
}

// loadOwned loads the resource named by {param} on behalf of the caller. A resource
// that does not exist and one owned by another user both answer 404.
func loadOwned[T any](w http.ResponseWriter, r *http.Request, param string, load func(ctx context.Context, id, ownerID int64) (T, error)) (T, store.User, bool) {
	var zero T
	id, u, ok := callerAndID(w, r, param)
	if !ok {
		return zero, store.User{}, false
	}
	v, err := load(r.Context(), id, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return zero, store.User{}, false
	}
	if err != nil {
		writeInternal(w, r, "load resource failed", err)
		return zero, store.User{}, false
	}
	return v, u, true
}
