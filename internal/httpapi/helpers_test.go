package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"agentrelay/internal/auth"
	"agentrelay/internal/llm"
	"agentrelay/internal/relay"
)

type fakeCompleter struct {
	mu        sync.Mutex
	responses []llm.Response
	err       error
	calls     []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	if len(f.responses) == 0 {
		return llm.Response{}, errors.New("no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

type sentMail struct {
	to, username, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, username, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, username: username, link: link})
	return nil
}

type testEnv struct {
	t      *testing.T
	h      http.Handler
	store  *mockStore
	llm    *fakeCompleter
	mail   *fakeMailer
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newMockStore()
	c := &fakeCompleter{}
	m := &fakeMailer{}
	tokens := auth.NewTokens("test-secret")
	rl := relay.New(st, llm.NewRegistry(c), relay.Options{})
	h := NewRouter(Deps{
		Store:              st,
		Tokens:             tokens,
		Relay:              rl,
		Mailer:             m,
		FrontendBaseURL:    "https://app.example.com",
		CORSAllowedOrigins: []string{"https://app.example.com"},
	})
	return &testEnv{t: t, h: h, store: st, llm: c, mail: m, tokens: tokens}
}

type response struct {
	Code int
	Body []byte
}

func (r response) decode(t *testing.T, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, dst); err != nil {
		t.Fatalf("decode %s: %v", r.Body, err)
	}
}

func (r response) errorText(t *testing.T) string {
	t.Helper()
	var body map[string]string
	r.decode(t, &body)
	return body["error"]
}

func (e *testEnv) do(method, path, token string, body any) response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return response{Code: rec.Code, Body: rec.Body.Bytes()}
}

func (e *testEnv) expect(res response, code int) {
	e.t.Helper()
	if res.Code != code {
		e.t.Fatalf("status = %d, want %d; body = %s", res.Code, code, res.Body)
	}
}

// register creates an account through the API and returns its id and token.
func (e *testEnv) register(username, email string) (int64, string) {
	e.t.Helper()
	res := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "secret1",
	})
	e.expect(res, http.StatusCreated)
	var body authResponse
	res.decode(e.t, &body)
	return body.User.ID, body.Token
}

func (e *testEnv) promote(userID int64) {
	e.t.Helper()
	if _, err := e.store.SetUserAdmin(context.Background(), userID, true); err != nil {
		e.t.Fatalf("SetUserAdmin: %v", err)
	}
}

func (e *testEnv) createAgent(token string, body map[string]any) int64 {
	e.t.Helper()
	if body == nil {
		body = map[string]any{}
	}
	for k, v := range map[string]any{
		"name":         "helper",
		"prompt":       "You are helpful.",
		"llm_provider": "openai",
		"model":        "gpt-test",
	} {
		if _, ok := body[k]; !ok {
			body[k] = v
		}
	}
	res := e.do(http.MethodPost, "/api/agents", token, body)
	e.expect(res, http.StatusCreated)
	var out struct {
		AgentID int64 `json:"agent_id"`
	}
	res.decode(e.t, &out)
	return out.AgentID
}

var errSMTPDown = errors.New("smtp down")

func llmText(content string) llm.Response {
	return llm.Response{Content: content}
}
