package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const toolColumns = `id, name, description, parameters`

func scanTool(row pgx.Row) (Tool, error) {
	var (
		t   Tool
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &raw); err != nil {
		return Tool{}, mapErr(err)
	}
	params, err := unmarshalJSONB(raw)
	if err != nil {
		return Tool{}, err
	}
	t.Parameters = params
	return t, nil
}

func (s *Store) CreateTool(ctx context.Context, t Tool) (Tool, error) {
	params, err := marshalJSONB(t.Parameters)
	if err != nil {
		return Tool{}, err
	}
	return scanTool(s.db.QueryRow(ctx, `
		insert into tools (name, description, parameters)
		values ($1, $2, $3)
		returning `+toolColumns,
		t.Name, t.Description, params))
}

func (s *Store) ListTools(ctx context.Context) ([]Tool, error) {
	return queryTools(ctx, s.db, `select `+toolColumns+` from tools order by id`)
}

func (s *Store) ToolByID(ctx context.Context, id int64) (Tool, error) {
	return scanTool(s.db.QueryRow(ctx, `select `+toolColumns+` from tools where id = $1`, id))
}

// AgentTools returns the full definitions of the tools linked to an agent.
func (s *Store) AgentTools(ctx context.Context, agentID int64) ([]Tool, error) {
	return queryTools(ctx, s.db, `
		select t.id, t.name, t.description, t.parameters
		from agent_tools at
		join tools t on t.id = at.tool_id
		where at.agent_id = $1
		order by t.id
	`, agentID)
}

func (s *Store) UpdateTool(ctx context.Context, id int64, p ToolPatch) (Tool, error) {
	var out Tool
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanTool(tx.QueryRow(ctx, `select `+toolColumns+` from tools where id = $1 for update`, id))
		if err != nil {
			return err
		}
		if p.Name != nil {
			cur.Name = *p.Name
		}
		if p.Description != nil {
			cur.Description = *p.Description
		}
		if p.Parameters != nil {
			cur.Parameters = p.Parameters
		}
		params, err := marshalJSONB(cur.Parameters)
		if err != nil {
			return err
		}
		out, err = scanTool(tx.QueryRow(ctx, `
			update tools set name = $2, description = $3, parameters = $4
			where id = $1
			returning `+toolColumns,
			id, cur.Name, cur.Description, params))
		return err
	})
	return out, err
}

// DeleteTool removes a tool; its agent links cascade.
func (s *Store) DeleteTool(ctx context.Context, id int64) error {
	cmd, err := s.db.Exec(ctx, `delete from tools where id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func queryTools(ctx context.Context, q querier, sql string, args ...any) ([]Tool, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Tool{}
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
