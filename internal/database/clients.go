package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/google/uuid"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateClient inserts a client with a fresh id and creation time. Input is
// validated by the caller.
func (db *DB) CreateClient(ctx context.Context, name, email string) (*models.Client, error) {
	client := &models.Client{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO clients (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		client.ID.String(), client.Name, client.Email, toNanos(client.CreatedAt),
	)
	if err != nil {
		return nil, domain.NewStorageError("create client", err)
	}

	// Round-trip through storage precision so callers see what was persisted.
	client.CreatedAt = fromNanos(toNanos(client.CreatedAt))
	return client, nil
}

// ListClients returns every client. Order is unspecified.
func (db *DB) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, email, created_at FROM clients")
	if err != nil {
		return nil, domain.NewStorageError("list clients", err)
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		var (
			c         models.Client
			id        string
			createdAt int64
		)
		if err := rows.Scan(&id, &c.Name, &c.Email, &createdAt); err != nil {
			return nil, domain.NewStorageError("list clients", err)
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, domain.NewStorageError("list clients", fmt.Errorf("parse client id %q: %w", id, err))
		}
		c.CreatedAt = fromNanos(createdAt)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list clients", err)
	}
	return clients, nil
}

func clientExists(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM clients WHERE id = ?", id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
