package httpapi

import "net/http"

func (s server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":        "ok",
		"authenticated": false,
		"user":          nil,
	}
	if u, ok := userFromCtx(r.Context()); ok {
		resp["authenticated"] = true
		resp["user"] = toUserView(u)
	}
	writeJSON(w, http.StatusOK, resp)
}
