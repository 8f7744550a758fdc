package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		dbURL  = flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection string")
		dir    = flag.String("dir", "migrations", "Migrations directory")
		status = flag.Bool("status", false, "List applied and pending migrations without applying")
	)
	flag.Parse()

	if *dbURL == "" {
		log.Fatal("missing -db or DATABASE_URL")
	}

	db, err := sql.Open("pgx", *dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := ensureMigrationsTable(ctx, db); err != nil {
		log.Fatalf("migrations table: %v", err)
	}

	files, err := sqlFiles(*dir)
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	applied, err := appliedSet(ctx, db)
	if err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}

	var n int
	for _, p := range files {
		name := filepath.Base(p)
		if _, ok := applied[name]; ok {
			if *status {
				log.Printf("applied  %s", name)
			}
			continue
		}
		if *status {
			log.Printf("pending  %s", name)
			continue
		}
		if err := apply(ctx, db, p); err != nil {
			log.Fatalf("apply %s: %v", name, err)
		}
		log.Printf("applied %s", name)
		n++
	}

	if !*status {
		log.Printf("%d migration(s) applied from %s", n, *dir)
	}
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		create table if not exists schema_migrations (
			filename text primary key,
			applied_at timestamptz not null default now()
		)
	`)
	return err
}

func appliedSet(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, `select filename from schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

// sqlFiles returns the *.sql files in dir in lexical order.
func sqlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func apply(ctx context.Context, db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	body := strings.TrimSpace(string(b))
	if body == "" {
		return fmt.Errorf("empty migration")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `insert into schema_migrations (filename) values ($1)`, filepath.Base(path)); err != nil {
		return err
	}
	return tx.Commit()
}
