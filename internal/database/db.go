package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// DSN builds the MySQL connection string.
func DSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// RowsAffected counts matched rows, so rewriting an unchanged refresh
	// slot is not mistaken for a missing user.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, user, pass, host, port, name string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

const usersTable = `CREATE TABLE IF NOT EXISTS users (
	id                 CHAR(36)     NOT NULL PRIMARY KEY,
	email              VARCHAR(255) NOT NULL,
	first_name         VARCHAR(100) NOT NULL DEFAULT '',
	last_name          VARCHAR(100) NOT NULL DEFAULT '',
	password_hash      VARCHAR(255) NOT NULL,
	role               ENUM('user','admin') NOT NULL DEFAULT 'user',
	refresh_token_hash VARCHAR(255) NOT NULL DEFAULT '',
	created_at         DATETIME(6)  NOT NULL,
	updated_at         DATETIME(6)  NOT NULL,
	UNIQUE KEY uq_users_email (email),
	KEY ix_users_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the users table when it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, usersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}
