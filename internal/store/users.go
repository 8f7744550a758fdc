package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, is_active, is_admin, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsAdmin, &u.CreatedAt)
	return u, mapErr(err)
}

// CreateUser inserts a user. The email is stored lower-cased.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return scanUser(s.db.QueryRow(ctx, `
		insert into users (username, email, password_hash, is_active, is_admin)
		values ($1, $2, $3, $4, $5)
		returning `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.IsActive, u.IsAdmin))
}

func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `
		select `+userColumns+` from users where email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
}

// UserByLogin resolves a login that is either a username or an email address.
func (s *Store) UserByLogin(ctx context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	return scanUser(s.db.QueryRow(ctx, `
		select `+userColumns+`
		from users
		where username = $1 or email = $2
		order by id
		limit 1
	`, login, strings.ToLower(login)))
}

func (s *Store) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `
		select exists(select 1 from users where lower(username) = lower($1) and id <> $2)
	`, strings.TrimSpace(username), exceptID).Scan(&taken)
	return taken, err
}

func (s *Store) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `
		select exists(select 1 from users where email = $1 and id <> $2)
	`, strings.ToLower(strings.TrimSpace(email)), exceptID).Scan(&taken)
	return taken, err
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	cmd, err := s.db.Exec(ctx, `update users set password_hash = $2 where id = $1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID int64, p ProfilePatch) (User, error) {
	var out User
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanUser(tx.QueryRow(ctx, `select `+userColumns+` from users where id = $1 for update`, userID))
		if err != nil {
			return err
		}
		if p.Username != nil {
			cur.Username = strings.TrimSpace(*p.Username)
		}
		if p.Email != nil {
			cur.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		}
		out, err = scanUser(tx.QueryRow(ctx, `
			update users set username = $2, email = $3
			where id = $1
			returning `+userColumns,
			userID, cur.Username, cur.Email))
		return err
	})
	return out, err
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `select `+userColumns+` from users order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SetUserAdmin(ctx context.Context, userID int64, isAdmin bool) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `
		update users set is_admin = $2 where id = $1 returning `+userColumns,
		userID, isAdmin))
}

// DeleteUser removes a user; agents, their tool links and chat logs go with it.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	cmd, err := s.db.Exec(ctx, `delete from users where id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AnyAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `select exists(select 1 from users where is_admin)`).Scan(&exists)
	return exists, err
}
