package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"agentrelay/internal/auth"
	"agentrelay/internal/mailer"
	"agentrelay/internal/store"
)

const resetRequestedMessage = "if the email is registered, a recovery link has been sent"

type authResponse struct {
	Message string   `json:"message"`
	User    userView `json:"user"`
	Token   string   `json:"token"`
}

func (s server) issueSession(u store.User) (string, error) {
	return s.tokens.Issue(auth.Subject{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if err := auth.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !auth.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if taken, err := s.store.UsernameTaken(ctx, req.Username, 0); err != nil {
		writeInternal(w, r, "check username failed", err)
		return
	} else if taken {
		writeError(w, http.StatusConflict, "username already in use")
		return
	}
	if taken, err := s.store.EmailTaken(ctx, req.Email, 0); err != nil {
		writeInternal(w, r, "check email failed", err)
		return
	} else if taken {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternal(w, r, "hash password failed", err)
		return
	}
	u, err := s.store.CreateUser(ctx, store.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "username or email already registered")
		return
	}
	if err != nil {
		writeInternal(w, r, "create user failed", err)
		return
	}

	token, err := s.issueSession(u)
	if err != nil {
		writeInternal(w, r, "issue token failed", err)
		return
	}
	s.audit(ctx, "user registered: %s (%s)", u.Username, u.Email)
	writeJSON(w, http.StatusCreated, authResponse{Message: "user registered", User: toUserView(u), Token: token})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (s server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := s.store.UserByLogin(ctx, req.Login)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeInternal(w, r, "load user failed", err)
		return
	}
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		s.audit(ctx, "login failed for '%s'", req.Login)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !u.IsActive {
		writeError(w, http.StatusUnauthorized, "account disabled")
		return
	}

	token, err := s.issueSession(u)
	if err != nil {
		writeInternal(w, r, "issue token failed", err)
		return
	}
	s.audit(ctx, "login succeeded: %s", u.Username)
	writeJSON(w, http.StatusOK, authResponse{Message: "login succeeded", User: toUserView(u), Token: token})
}

func (s server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromCtx(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserView(u)})
}

// Tokens are stateless, so logout only records the event.
func (s server) handleLogout(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromCtx(r.Context())
	s.audit(r.Context(), "logout: %s", u.Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromCtx(r.Context())

	var req changePasswordRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current_password and new_password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		s.audit(ctx, "password change failed for '%s' (wrong current password)", u.Username)
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeInternal(w, r, "hash password failed", err)
		return
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		writeInternal(w, r, "update password failed", err)
		return
	}
	s.audit(ctx, "password changed by '%s'", u.Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (s server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromCtx(r.Context())

	var req updateProfileRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	if req.Username == nil && req.Email == nil {
		writeError(w, http.StatusBadRequest, "username or email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var patch store.ProfilePatch
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := auth.ValidateUsername(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		taken, err := s.store.UsernameTaken(ctx, name, u.ID)
		if err != nil {
			writeInternal(w, r, "check username failed", err)
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "username already in use")
			return
		}
		patch.Username = &name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !auth.ValidEmail(email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		taken, err := s.store.EmailTaken(ctx, email, u.ID)
		if err != nil {
			writeInternal(w, r, "check email failed", err)
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		patch.Email = &email
	}

	updated, err := s.store.UpdateProfile(ctx, u.ID, patch)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "username or email already registered")
		return
	}
	if err != nil {
		writeInternal(w, r, "update profile failed", err)
		return
	}
	s.audit(ctx, "profile updated by '%s'", updated.Username)
	writeJSON(w, http.StatusOK, map[string]any{"message": "profile updated", "user": toUserView(updated)})
}

type requestResetRequest struct {
	Email string `json:"email"`
}

// handleRequestReset answers the same way whether or not the account exists.
func (s server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !auth.ValidEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]string{"message": resetRequestedMessage})
		return
	}
	if err != nil {
		writeInternal(w, r, "load user failed", err)
		return
	}
	if s.frontendBaseURL == "" {
		writeInternal(w, r, "send reset email failed", errors.New("FRONTEND_BASE_URL is not configured"))
		return
	}

	token, err := s.tokens.IssueReset(u.Email)
	if err != nil {
		writeInternal(w, r, "issue reset token failed", err)
		return
	}
	link := mailer.ResetLink(s.frontendBaseURL, token)
	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.Username, link); err != nil {
		writeInternal(w, r, "send reset email failed", err)
		return
	}
	s.audit(ctx, "password reset requested for '%s'", u.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": resetRequestedMessage})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !readJSONLimited(w, r, &req, 16*1024) {
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "token and new_password are required")
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := s.tokens.VerifyReset(strings.TrimSpace(req.Token))
	if errors.Is(err, auth.ErrTokenExpired) {
		writeError(w, http.StatusBadRequest, "reset link expired")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reset token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeInternal(w, r, "load user failed", err)
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeInternal(w, r, "hash password failed", err)
		return
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		writeInternal(w, r, "update password failed", err)
		return
	}
	s.audit(ctx, "password reset completed for '%s'", email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}
