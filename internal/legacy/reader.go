// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package legacy imports accounts, projects, votes and comments from the
// MySQL database of the previous QBR installation.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// User is a row of the legacy users table.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	FullName     string
	Department   string
	Active       bool
	CreatedAt    time.Time
	LastLogin    sql.NullTime
}

// Project is a row of the legacy projects table.
type Project struct {
	ID          int64
	Title       string
	Description string
	Priority    string
	Status      string
	StartDate   sql.NullTime
	EndDate     sql.NullTime
	CreatedBy   int64
	CreatedAt   time.Time
}

// Vote is a row of the legacy votes table.
type Vote struct {
	ProjectID int64
	UserID    int64
	CreatedAt time.Time
}

// Comment is a row of the legacy comments table.
type Comment struct {
	ID        int64
	ProjectID int64
	UserID    int64
	Text      string
	CreatedAt time.Time
}

// Source yields legacy rows. Reader implements it against MySQL.
type Source interface {
	Users(ctx context.Context) ([]User, error)
	Projects(ctx context.Context) ([]Project, error)
	Votes(ctx context.Context) ([]Vote, error)
	Comments(ctx context.Context) ([]Comment, error)
}

// ConnConfig describes a legacy MySQL connection.
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN builds a go-sql-driver DSN. Timestamps are parsed as UTC.
func (c ConnConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// Reader reads the legacy schema from a MySQL database.
type Reader struct {
	db *sql.DB
}

// NewReader opens and pings the legacy database.
func NewReader(ctx context.Context, dsn string) (*Reader, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Reader{db: db}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Users returns every legacy account ordered by id.
func (r *Reader) Users(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, email, password, role,
		       COALESCE(full_name, ''), COALESCE(department, ''),
		       active, created_at, last_login
		FROM users
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.FullName, &u.Department, &u.Active, &u.CreatedAt, &u.LastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Projects returns every legacy project ordered by id.
func (r *Reader) Projects(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), priority, status,
		       start_date, end_date, created_by, created_at
		FROM projects
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Priority, &p.Status,
			&p.StartDate, &p.EndDate, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Votes returns every legacy vote in insertion order.
func (r *Reader) Votes(ctx context.Context) ([]Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, user_id, created_at
		FROM votes
		ORDER BY created_at, project_id, user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var votes []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ProjectID, &v.UserID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// Comments returns every legacy comment ordered by id.
func (r *Reader) Comments(ctx context.Context) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, user_id, comment_text, created_at
		FROM comments
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
