// Command migrate runs goose schema migrations against the settlement
// database. Connection settings come from DATABASE_URL or the discrete DB_*
// variables the server uses.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const defaultDir = "internal/db/migrations"

func main() {
	dir := flag.String("dir", defaultDir, "directory with migration files")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [-dir DIR] COMMAND [ARGS]\n\n")
		fmt.Fprintf(os.Stderr, "Commands: up, up-by-one, up-to VERSION, down, down-to VERSION,\n")
		fmt.Fprintf(os.Stderr, "          redo, reset, status, version, create NAME [sql|go]\n")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := sql.Open("pgx", dsnFromEnv())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	command := flag.Arg(0)
	if err := goose.Run(command, db, *dir, flag.Args()[1:]...); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}
}

func dsnFromEnv() string {
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		return raw
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(envOr("DB_USER", "postgres"), envOr("DB_PASSWORD", "postgres")),
		Host:   fmt.Sprintf("%s:%s", envOr("DB_HOST", "localhost"), envOr("DB_PORT", "5432")),
		Path:   envOr("DB_NAME", "settlement_service"),
	}
	q := url.Values{}
	q.Set("sslmode", envOr("DB_SSL_MODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
