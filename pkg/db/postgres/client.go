package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-bootstrap/pkg/dbconfig"
	"db-bootstrap/pkg/env"

	_ "github.com/lib/pq"
)

// Internal variables for testing
var (
	sqlOpen = sql.Open
)

// ConnectPostgres opens a connection with the resolved settings and verifies
// it with a Ping.
func ConnectPostgres(ctx context.Context, driverName string, s dbconfig.Settings) (*sql.DB, error) {
	db, err := sqlOpen(driverName, DSN(s))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// ServerVersion reports the server's version string.
func ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}

// DSN renders s as a lib/pq key/value connection string. Port and sslmode
// come from DB_PORT and DB_SSLMODE.
func DSN(s dbconfig.Settings) string {
	pairs := []struct{ key, value string }{
		{"host", s.Endpoint},
		{"port", env.Get("DB_PORT", "5432")},
		{"user", s.Username},
		{"password", s.Password},
		{"dbname", s.Database},
		{"sslmode", env.Get("DB_SSLMODE", "require")},
		{"timezone", "UTC"},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.key+"="+quote(p.value))
	}
	return strings.Join(parts, " ")
}

// quote applies libpq quoting: values that are empty or contain spaces,
// quotes or backslashes are single-quoted with backslash escapes.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
