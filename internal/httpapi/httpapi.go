package httpapi

import (
	"context"

	"agentrelay/internal/auth"
	"agentrelay/internal/mailer"
	"agentrelay/internal/relay"
	"agentrelay/internal/store"
)

type Deps struct {
	Store  Store
	Tokens *auth.Tokens
	Relay  *relay.Relay
	Mailer mailer.Sender

	FrontendBaseURL    string
	CORSAllowedOrigins []string
}

// Store is the persistence surface used by the handlers. *store.Store satisfies it.
type Store interface {
	CreateUser(ctx context.Context, u store.User) (store.User, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByLogin(ctx context.Context, login string) (store.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateProfile(ctx context.Context, userID int64, p store.ProfilePatch) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	SetUserAdmin(ctx context.Context, userID int64, isAdmin bool) (store.User, error)
	DeleteUser(ctx context.Context, userID int64) error

	CreateAgent(ctx context.Context, a store.Agent, toolNames []string) (store.Agent, error)
	ListAgents(ctx context.Context, ownerID int64) ([]store.Agent, error)
	OwnedAgent(ctx context.Context, agentID, ownerID int64) (store.Agent, error)
	UpdateAgent(ctx context.Context, agentID, ownerID int64, p store.AgentPatch) (store.Agent, error)
	DeleteAgent(ctx context.Context, agentID, ownerID int64) error

	CreateTool(ctx context.Context, t store.Tool) (store.Tool, error)
	ListTools(ctx context.Context) ([]store.Tool, error)
	ToolByID(ctx context.Context, id int64) (store.Tool, error)
	UpdateTool(ctx context.Context, id int64, p store.ToolPatch) (store.Tool, error)
	DeleteTool(ctx context.Context, id int64) error

	ChatLogs(ctx context.Context, agentID int64) ([]store.ChatLog, error)
	DeleteChatLogs(ctx context.Context, agentID int64) (int64, error)

	AppendLogEntry(ctx context.Context, message string) error
	RecentLogEntries(ctx context.Context, n, offset int) ([]store.LogEntry, error)
}
