package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"converse-service/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message requires text or media")
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Append(ctx context.Context, msg models.Message) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	ToggleReaction(ctx context.Context, messageID string, emoji string, userID string) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type messageRow struct {
	ID        string       `db:"id"`
	ChatID    string       `db:"conversation_id"`
	SenderID  string       `db:"sender_id"`
	Text      string       `db:"text"`
	MediaURL  string       `db:"media_url"`
	MediaType string       `db:"media_type"`
	FileName  string       `db:"file_name"`
	Reactions []byte       `db:"reactions"`
	CreatedAt sql.NullTime `db:"created_at"`
}

// Append stores a message at the tail of the conversation.
func (r *MessageRepo) Append(ctx context.Context, msg models.Message) (models.Message, error) {
	if !msg.HasContent() {
		return models.Message{}, ErrEmptyMessage
	}

	msg.ID = uuid.NewString()
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, text, media_url, media_type, file_name)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Text, msg.MediaURL, msg.MediaType, msg.FileName).
		Scan(&msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListForConversation returns messages ordered oldest first.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, conversation_id, sender_id, text, media_url, media_type, file_name, reactions, created_at
         FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := rowToMessage(row)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, conversation_id, sender_id, text, media_url, media_type, file_name, reactions, created_at
         FROM messages WHERE id = $1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return rowToMessage(row)
}

// ToggleReaction adds the user's reaction, or removes it when already present.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID string, emoji string, userID string) (models.Message, error) {
	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}

	if msg.Reactions == nil {
		msg.Reactions = map[string][]string{}
	}
	users := msg.Reactions[emoji]
	removed := false
	for i, id := range users {
		if id == userID {
			msg.Reactions[emoji] = append(users[:i], users[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		msg.Reactions[emoji] = append(users, userID)
	}
	if len(msg.Reactions[emoji]) == 0 {
		delete(msg.Reactions, emoji)
	}

	payload, err := json.Marshal(msg.Reactions)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE messages SET reactions = $1 WHERE id = $2`, payload, messageID); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func rowToMessage(row messageRow) (models.Message, error) {
	msg := models.Message{
		ID:        row.ID,
		ChatID:    row.ChatID,
		SenderID:  row.SenderID,
		Text:      row.Text,
		MediaURL:  row.MediaURL,
		MediaType: row.MediaType,
		FileName:  row.FileName,
	}
	if row.CreatedAt.Valid {
		msg.CreatedAt = row.CreatedAt.Time
	}
	if len(row.Reactions) > 0 {
		if err := json.Unmarshal(row.Reactions, &msg.Reactions); err != nil {
			return models.Message{}, err
		}
		if len(msg.Reactions) == 0 {
			msg.Reactions = nil
		}
	}
	return msg, nil
}
