// Package store persists users, agents, tools, chat logs and audit entries in Postgres.
//
// Ownership is enforced in SQL: every agent-scoped query filters on both the agent id and
// the owning user id, and a mismatch is reported as ErrNotFound. Cascading deletes are
// declared in the schema and never orchestrated here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
}

type ToolRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Agent struct {
	ID          int64
	Name        string
	Prompt      string
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	UserID      int64
	Tools       []ToolRef
}

type Tool struct {
	ID          int64
	Name        string
	Description string
	Parameters  map[string]any
}

type ChatLog struct {
	ID        int64
	AgentID   int64
	Message   string
	Role      string
	Timestamp time.Time
}

type LogEntry struct {
	ID        int64
	Message   string
	Timestamp time.Time
}

// AgentPatch holds the fields of a partial agent update. Nil fields are left untouched.
// A non-nil Tools replaces the whole association set.
type AgentPatch struct {
	Name        *string
	Prompt      *string
	Provider    *string
	Model       *string
	Temperature *float64
	MaxTokens   *int
	Tools       *[]string
}

type ToolPatch struct {
	Name        *string
	Description *string
	Parameters  map[string]any
}

type ProfilePatch struct {
	Username *string
	Email    *string
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// withTx runs fn inside a transaction that is committed only if fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db commit: %w", err)
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSONB(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
