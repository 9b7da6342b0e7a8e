// Command migrate manages the lait database schema via goose.
//
// Usage:
//
//	go run ./cmd/migrate up                 # Apply pending migrations
//	go run ./cmd/migrate down               # Roll back one migration
//	go run ./cmd/migrate status             # Show applied vs pending
//	go run ./cmd/migrate version            # Current schema version
//
// DATABASE_URL selects the target database; MIGRATIONS_DIR overrides the
// default ./migrations directory.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <command> [args]")
		fmt.Fprintln(os.Stderr, "commands: up, down, status, version, redo, up-to <version>, down-to <version>")
		os.Exit(2)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := goose.RunContext(context.Background(), cmd, db, dir, args...); err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
}
