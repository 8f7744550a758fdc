package store

import (
	"context"
	"slices"

	"github.com/jackc/pgx/v5"
)

func scanChatLogs(rows pgx.Rows) ([]ChatLog, error) {
	defer rows.Close()

	out := []ChatLog{}
	for rows.Next() {
		var c ChatLog
		if err := rows.Scan(&c.ID, &c.AgentID, &c.Message, &c.Role, &c.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChatLogs returns the whole history of an agent, oldest first.
func (s *Store) ChatLogs(ctx context.Context, agentID int64) ([]ChatLog, error) {
	rows, err := s.db.Query(ctx, `
		select id, agent_id, message, role, timestamp
		from chat_logs
		where agent_id = $1
		order by timestamp asc, id asc
	`, agentID)
	if err != nil {
		return nil, err
	}
	return scanChatLogs(rows)
}

// RecentChatLogs returns the newest n entries of an agent in chronological order.
func (s *Store) RecentChatLogs(ctx context.Context, agentID int64, n int) ([]ChatLog, error) {
	if n <= 0 {
		return []ChatLog{}, nil
	}
	rows, err := s.db.Query(ctx, `
		select id, agent_id, message, role, timestamp
		from chat_logs
		where agent_id = $1
		order by timestamp desc, id desc
		limit $2
	`, agentID, n)
	if err != nil {
		return nil, err
	}
	out, err := scanChatLogs(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// AppendChatTurn stores the user message and the assistant answer, in that order,
// in a single transaction.
func (s *Store) AppendChatTurn(ctx context.Context, agentID int64, userMessage, answer string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, row := range []struct{ role, msg string }{
			{RoleUser, userMessage},
			{RoleAssistant, answer},
		} {
			if _, err := tx.Exec(ctx, `
				insert into chat_logs (agent_id, message, role) values ($1, $2, $3)
			`, agentID, row.msg, row.role); err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteChatLogs(ctx context.Context, agentID int64) (int64, error) {
	cmd, err := s.db.Exec(ctx, `delete from chat_logs where agent_id = $1`, agentID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (s *Store) AppendLogEntry(ctx context.Context, message string) error {
	_, err := s.db.Exec(ctx, `insert into log_entries (message) values ($1)`, message)
	return err
}

// RecentLogEntries returns up to n audit entries, newest first, skipping the newest offset.
func (s *Store) RecentLogEntries(ctx context.Context, n, offset int) ([]LogEntry, error) {
	rows, err := s.db.Query(ctx, `
		select id, message, timestamp
		from log_entries
		order by timestamp desc, id desc
		limit $1 offset $2
	`, n, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
