package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const agentColumns = `id, name, prompt, provider, model, temperature, max_tokens, user_id`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Prompt, &a.Provider, &a.Model, &a.Temperature, &a.MaxTokens, &a.UserID)
	return a, mapErr(err)
}

// CreateAgent inserts an agent and links the named tools in the same transaction.
// Names that match no tool are ignored.
func (s *Store) CreateAgent(ctx context.Context, a Agent, toolNames []string) (Agent, error) {
	var out Agent
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = scanAgent(tx.QueryRow(ctx, `
			insert into agents (name, prompt, provider, model, temperature, max_tokens, user_id)
			values ($1, $2, $3, $4, $5, $6, $7)
			returning `+agentColumns,
			a.Name, a.Prompt, a.Provider, a.Model, a.Temperature, a.MaxTokens, a.UserID))
		if err != nil {
			return err
		}
		if err := linkTools(ctx, tx, out.ID, toolNames); err != nil {
			return err
		}
		out.Tools, err = toolRefs(ctx, tx, out.ID)
		return err
	})
	return out, err
}

func (s *Store) ListAgents(ctx context.Context, ownerID int64) ([]Agent, error) {
	rows, err := s.db.Query(ctx, `
		select `+agentColumns+`
		from agents
		where user_id = $1
		order by id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	out := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		refs, err := toolRefs(ctx, s.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tools = refs
	}
	return out, nil
}

// OwnedAgent returns the agent only if ownerID owns it.
func (s *Store) OwnedAgent(ctx context.Context, agentID, ownerID int64) (Agent, error) {
	a, err := scanAgent(s.db.QueryRow(ctx, `
		select `+agentColumns+` from agents where id = $1 and user_id = $2
	`, agentID, ownerID))
	if err != nil {
		return Agent{}, err
	}
	a.Tools, err = toolRefs(ctx, s.db, a.ID)
	return a, err
}

func (s *Store) UpdateAgent(ctx context.Context, agentID, ownerID int64, p AgentPatch) (Agent, error) {
	var out Agent
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanAgent(tx.QueryRow(ctx, `
			select `+agentColumns+` from agents where id = $1 and user_id = $2 for update
		`, agentID, ownerID))
		if err != nil {
			return err
		}
		applyAgentPatch(&cur, p)

		out, err = scanAgent(tx.QueryRow(ctx, `
			update agents
			set name = $3, prompt = $4, provider = $5, model = $6, temperature = $7, max_tokens = $8
			where id = $1 and user_id = $2
			returning `+agentColumns,
			agentID, ownerID, cur.Name, cur.Prompt, cur.Provider, cur.Model, cur.Temperature, cur.MaxTokens))
		if err != nil {
			return err
		}

		if p.Tools != nil {
			if _, err := tx.Exec(ctx, `delete from agent_tools where agent_id = $1`, agentID); err != nil {
				return err
			}
			if err := linkTools(ctx, tx, agentID, *p.Tools); err != nil {
				return err
			}
		}
		out.Tools, err = toolRefs(ctx, tx, agentID)
		return err
	})
	return out, err
}

func applyAgentPatch(a *Agent, p AgentPatch) {
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
}

// DeleteAgent removes an owned agent. Chat logs and tool links cascade.
func (s *Store) DeleteAgent(ctx context.Context, agentID, ownerID int64) error {
	cmd, err := s.db.Exec(ctx, `delete from agents where id = $1 and user_id = $2`, agentID, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func linkTools(ctx context.Context, q querier, agentID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		insert into agent_tools (agent_id, tool_id)
		select $1, t.id from tools t where t.name = any($2)
		on conflict do nothing
	`, agentID, names)
	return err
}

func toolRefs(ctx context.Context, q querier, agentID int64) ([]ToolRef, error) {
	rows, err := q.Query(ctx, `
		select t.id, t.name
		from agent_tools at
		join tools t on t.id = at.tool_id
		where at.agent_id = $1
		order by t.id
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ToolRef{}
	for rows.Next() {
		var r ToolRef
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
