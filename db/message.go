package db

import (
	"fmt"
	"time"
)

// CreateMessage appends a new message to a conversation.
func (db *DB) CreateMessage(conversationID int64, kind, content, engineID, attachments string) (*Message, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		"INSERT INTO messages (conversation_id, kind, content, engine_id, attachments, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		conversationID, kind, content, engineID, attachments, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message ID: %w", err)
	}

	if err := db.TouchConversation(conversationID); err != nil {
		return nil, err
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		Kind:           kind,
		Content:        content,
		EngineID:       engineID,
		Attachments:    attachments,
		CreatedAt:      now,
	}, nil
}

// ListMessages retrieves all messages in a conversation in append order.
func (db *DB) ListMessages(conversationID int64) ([]*Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, conversation_id, kind, content, engine_id, attachments, created_at FROM messages WHERE conversation_id = ? ORDER BY id ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Kind, &msg.Content, &msg.EngineID, &msg.Attachments, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

// DeleteMessage deletes a message.
func (db *DB) DeleteMessage(id int64) error {
	_, err := db.conn.Exec("DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
