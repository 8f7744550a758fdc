package httpapi

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"agentrelay/internal/store"
)

// mockStore is an in-memory Store that mirrors the database cascades.
type mockStore struct {
	mu sync.Mutex

	nextID     int64
	users      map[int64]store.User
	agents     map[int64]store.Agent
	tools      map[int64]store.Tool
	agentTools map[int64][]int64
	chats      []store.ChatLog
	logs       []store.LogEntry

	failAppendLog bool
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      map[int64]store.User{},
		agents:     map[int64]store.Agent{},
		tools:      map[int64]store.Tool{},
		agentTools: map[int64][]int64{},
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) CreateUser(_ context.Context, u store.User) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, ex := range m.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return store.User{}, store.ErrConflict
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return u, nil
}

func (m *mockStore) UserByID(_ context.Context, id int64) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *mockStore) UserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockStore) UserByLogin(_ context.Context, login string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockStore) UsernameTaken(_ context.Context, username string, exceptID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) EmailTaken(_ context.Context, email string, exceptID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) UpdatePassword(_ context.Context, userID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[userID] = u
	return nil
}

func (m *mockStore) UpdateProfile(_ context.Context, userID int64, p store.ProfilePatch) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	m.users[userID] = u
	return u, nil
}

func (m *mockStore) ListUsers(context.Context) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) SetUserAdmin(_ context.Context, userID int64, isAdmin bool) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	u.IsAdmin = isAdmin
	m.users[userID] = u
	return u, nil
}

func (m *mockStore) DeleteUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, userID)
	for id, a := range m.agents {
		if a.UserID == userID {
			m.deleteAgentLocked(id)
		}
	}
	return nil
}

func (m *mockStore) deleteAgentLocked(agentID int64) {
	delete(m.agents, agentID)
	delete(m.agentTools, agentID)
	kept := m.chats[:0]
	for _, c := range m.chats {
		if c.AgentID != agentID {
			kept = append(kept, c)
		}
	}
	m.chats = kept
}

func (m *mockStore) toolRefsLocked(agentID int64) []store.ToolRef {
	out := []store.ToolRef{}
	for _, tid := range m.agentTools[agentID] {
		if t, ok := m.tools[tid]; ok {
			out = append(out, store.ToolRef{ID: t.ID, Name: t.Name})
		}
	}
	return out
}

func (m *mockStore) toolIDsLocked(names []string) []int64 {
	var ids []int64
	for _, n := range names {
		for _, t := range m.tools {
			if t.Name == n {
				ids = append(ids, t.ID)
			}
		}
	}
	return ids
}

func (m *mockStore) CreateAgent(_ context.Context, a store.Agent, toolNames []string) (store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	m.agents[a.ID] = a
	m.agentTools[a.ID] = m.toolIDsLocked(toolNames)
	a.Tools = m.toolRefsLocked(a.ID)
	return a, nil
}

func (m *mockStore) ListAgents(_ context.Context, ownerID int64) ([]store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Agent{}
	for _, a := range m.agents {
		if a.UserID == ownerID {
			a.Tools = m.toolRefsLocked(a.ID)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) OwnedAgent(_ context.Context, agentID, ownerID int64) (store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok || a.UserID != ownerID {
		return store.Agent{}, store.ErrNotFound
	}
	a.Tools = m.toolRefsLocked(a.ID)
	return a, nil
}

func (m *mockStore) UpdateAgent(_ context.Context, agentID, ownerID int64, p store.AgentPatch) (store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok || a.UserID != ownerID {
		return store.Agent{}, store.ErrNotFound
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Prompt != nil {
		a.Prompt = *p.Prompt
	}
	if p.Provider != nil {
		a.Provider = *p.Provider
	}
	if p.Model != nil {
		a.Model = *p.Model
	}
	if p.Temperature != nil {
		a.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		a.MaxTokens = *p.MaxTokens
	}
	if p.Tools != nil {
		m.agentTools[agentID] = m.toolIDsLocked(*p.Tools)
	}
	m.agents[agentID] = a
	a.Tools = m.toolRefsLocked(agentID)
	return a, nil
}

func (m *mockStore) DeleteAgent(_ context.Context, agentID, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok || a.UserID != ownerID {
		return store.ErrNotFound
	}
	m.deleteAgentLocked(agentID)
	return nil
}

func (m *mockStore) CreateTool(_ context.Context, t store.Tool) (store.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.tools {
		if ex.Name == t.Name {
			return store.Tool{}, store.ErrConflict
		}
	}
	t.ID = m.id()
	m.tools[t.ID] = t
	return t, nil
}

func (m *mockStore) ListTools(context.Context) ([]store.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Tool{}
	for _, t := range m.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) ToolByID(_ context.Context, id int64) (store.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return store.Tool{}, store.ErrNotFound
	}
	return t, nil
}

func (m *mockStore) AgentTools(_ context.Context, agentID int64) ([]store.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Tool
	for _, tid := range m.agentTools[agentID] {
		if t, ok := m.tools[tid]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateTool(_ context.Context, id int64, p store.ToolPatch) (store.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return store.Tool{}, store.ErrNotFound
	}
	if p.Name != nil {
		for _, ex := range m.tools {
			if ex.ID != id && ex.Name == *p.Name {
				return store.Tool{}, store.ErrConflict
			}
		}
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Parameters != nil {
		t.Parameters = p.Parameters
	}
	m.tools[id] = t
	return t, nil
}

func (m *mockStore) DeleteTool(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tools[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.tools, id)
	for aid, ids := range m.agentTools {
		kept := ids[:0]
		for _, tid := range ids {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		m.agentTools[aid] = kept
	}
	return nil
}

func (m *mockStore) ChatLogs(_ context.Context, agentID int64) ([]store.ChatLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.ChatLog{}
	for _, c := range m.chats {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) RecentChatLogs(ctx context.Context, agentID int64, n int) ([]store.ChatLog, error) {
	all, _ := m.ChatLogs(ctx, agentID)
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (m *mockStore) AppendChatTurn(_ context.Context, agentID int64, userMessage, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.chats = append(m.chats,
		store.ChatLog{ID: m.id(), AgentID: agentID, Message: userMessage, Role: store.RoleUser, Timestamp: now},
		store.ChatLog{ID: m.id(), AgentID: agentID, Message: answer, Role: store.RoleAssistant, Timestamp: now},
	)
	return nil
}

func (m *mockStore) DeleteChatLogs(_ context.Context, agentID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.chats[:0]
	for _, c := range m.chats {
		if c.AgentID == agentID {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.chats = kept
	return n, nil
}

func (m *mockStore) AppendLogEntry(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppendLog {
		return errors.New("audit table unavailable")
	}
	m.logs = append(m.logs, store.LogEntry{ID: m.id(), Message: message, Timestamp: time.Now()})
	return nil
}

func (m *mockStore) RecentLogEntries(_ context.Context, n, offset int) ([]store.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Postgres rejects these as well.
	if n < 0 || offset < 0 {
		return nil, errors.New("LIMIT and OFFSET must not be negative")
	}
	out := []store.LogEntry{}
	for i := len(m.logs) - 1 - offset; i >= 0 && len(out) < n; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *mockStore) auditContains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if strings.Contains(l.Message, substr) {
			return true
		}
	}
	return false
}
