package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateConversation creates a new conversation bound to a query engine.
func (db *DB) CreateConversation(title, engineID string) (*Conversation, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		"INSERT INTO conversations (title, engine_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		title, engineID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation ID: %w", err)
	}

	return &Conversation{
		ID:        id,
		Title:     title,
		EngineID:  engineID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetConversation retrieves a conversation by ID.
func (db *DB) GetConversation(id int64) (*Conversation, error) {
	var conv Conversation
	err := db.conn.QueryRow(
		"SELECT id, title, engine_id, created_at, updated_at FROM conversations WHERE id = ?",
		id,
	).Scan(&conv.ID, &conv.Title, &conv.EngineID, &conv.CreatedAt, &conv.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations retrieves conversations ordered by update time.
func (db *DB) ListConversations(limit, offset int) ([]*Conversation, error) {
	rows, err := db.conn.Query(
		"SELECT id, title, engine_id, created_at, updated_at FROM conversations ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.EngineID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}

	return conversations, nil
}

// UpdateConversation updates a conversation's title and/or engine binding.
func (db *DB) UpdateConversation(id int64, title, engineID string) error {
	_, err := db.conn.Exec(
		"UPDATE conversations SET title = ?, engine_id = ?, updated_at = ? WHERE id = ?",
		title, engineID, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

// DeleteConversation deletes a conversation and all its messages.
func (db *DB) DeleteConversation(id int64) error {
	_, err := db.conn.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// TouchConversation updates the conversation's updated_at timestamp.
func (db *DB) TouchConversation(id int64) error {
	_, err := db.conn.Exec(
		"UPDATE conversations SET updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}
