package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

const conversationColumns = `id, user_id, session_id, conversation_type, is_active, started_at, ended_at`

// ConversationRepository links authenticated users to client sessions.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository constructs the repository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Upsert creates the conversation for conv.SessionID or, when the session is
// already bound to the same user, updates its type and reactivates it. A
// session bound to another user yields sql.ErrNoRows.
func (r *ConversationRepository) Upsert(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now().UTC()
	}
	conv.IsActive = true

	const query = `INSERT INTO conversations (id, user_id, session_id, conversation_type, is_active, started_at)
VALUES ($1, $2, $3, $4, TRUE, $5)
ON CONFLICT (session_id) DO UPDATE SET conversation_type = EXCLUDED.conversation_type, is_active = TRUE, ended_at = NULL
WHERE conversations.user_id = EXCLUDED.user_id
RETURNING ` + conversationColumns
	if err := r.db.GetContext(ctx, conv, query, conv.ID, conv.UserID, conv.SessionID, conv.ConversationType, conv.StartedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// GetByID returns a conversation by identifier.
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// End deactivates the conversation.
func (r *ConversationRepository) End(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE conversations SET is_active = FALSE, ended_at = COALESCE(ended_at, $2) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at.UTC()); err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	return nil
}
