package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RichardoC/Pad-i/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// The database only ever lives in memory: conversations do not outlive the
// process.
const memoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    conversation_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS messages_conversation ON messages(conversation_id, seq);`

// Database is a Repository backed by an in-memory SQLite database.
type Database struct {
	db *sql.DB
}

func New() (*Database, error) {
	db, err := sql.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO conversations (id, title, created_at)
        VALUES (?, ?, ?)`, conv.ID, conv.Title, conv.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	for i := range conv.Messages {
		msg := conv.Messages[i]
		msg.ConvID = conv.ID
		if err := insertMessage(ctx, tx, &msg); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *Database) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := db.db.QueryRowContext(ctx, `
        SELECT id, title, created_at
        FROM conversations
        WHERE id = ?`, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.db.QueryContext(ctx, `
        SELECT id, conversation_id, role, content, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conv.Messages = make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConvID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	conv.MessageCount = len(conv.Messages)
	return conv, nil
}

func (db *Database) ListConversations(ctx context.Context) ([]*models.ConversationSummary, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT c.id, c.title, c.created_at,
            (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
        FROM conversations c
        ORDER BY c.seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]*models.ConversationSummary, 0)
	for rows.Next() {
		conv := &models.ConversationSummary{}
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (db *Database) DeleteConversation(ctx context.Context, id string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (db *Database) UpdateConversationTitle(ctx context.Context, id, title string) error {
	res, err := db.db.ExecContext(ctx, "UPDATE conversations SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM conversations WHERE id = ?)", msg.ConvID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *Database) Close() error {
	return db.db.Close()
}

func insertMessage(ctx context.Context, tx *sql.Tx, msg *models.Message) error {
	_, err := tx.ExecContext(ctx, `
        INSERT INTO messages (id, conversation_id, role, content, created_at)
        VALUES (?, ?, ?, ?, ?)`, msg.ID, msg.ConvID, string(msg.Role), msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}
