package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"converse-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotAMember           = errors.New("user is not a member")
)

// ConversationRepository abstracts conversation and membership persistence.
type ConversationRepository interface {
	CreateDirect(ctx context.Context, user models.UserRef, other models.UserRef) (models.Conversation, error)
	CreateSelfChat(ctx context.Context, user models.UserRef) (models.Conversation, error)
	CreateGroup(ctx context.Context, creator models.UserRef, name string, members []models.UserRef) (models.Conversation, error)
	Get(ctx context.Context, conversationID string) (models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	IsMember(ctx context.Context, conversationID string, userID string) (bool, error)
	MemberCount(ctx context.Context, conversationID string) (int, error)
	AddMembers(ctx context.Context, conversationID string, members []models.UserRef) error
	RemoveMember(ctx context.Context, conversationID string, userID string) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

type conversationRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	IsGroup    bool   `db:"is_group"`
	IsSelfChat bool   `db:"is_self_chat"`
	CreatedBy  string       `db:"created_by"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

// CreateDirect creates a one-to-one conversation between two users if none
// exists yet, and returns the existing one otherwise.
func (r *ConversationRepo) CreateDirect(ctx context.Context, user models.UserRef, other models.UserRef) (models.Conversation, error) {
	if user.ID == other.ID {
		return models.Conversation{}, errors.New("direct conversation requires two distinct users")
	}

	var id string
	err := r.db.GetContext(ctx, &id, `SELECT c.id FROM conversations c
        INNER JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.user_id = $1
        INNER JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.user_id = $2
        WHERE c.is_group = FALSE AND c.is_self_chat = FALSE`, user.ID, other.ID)
	if err == nil {
		return r.Get(ctx, id)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	return r.create(ctx, user, "", false, false, []models.UserRef{user, other})
}

// CreateSelfChat creates the user's notes-to-self conversation if it does
// not exist yet.
func (r *ConversationRepo) CreateSelfChat(ctx context.Context, user models.UserRef) (models.Conversation, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM conversations WHERE is_self_chat = TRUE AND created_by = $1`, user.ID)
	if err == nil {
		return r.Get(ctx, id)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	return r.create(ctx, user, "", false, true, []models.UserRef{user})
}

// CreateGroup creates a group conversation and its membership atomically.
// The creator is always part of the member set.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creator models.UserRef, name string, members []models.UserRef) (models.Conversation, error) {
	return r.create(ctx, creator, name, true, false, append([]models.UserRef{creator}, members...))
}

func (r *ConversationRepo) create(ctx context.Context, creator models.UserRef, name string, isGroup, isSelfChat bool, members []models.UserRef) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	conv := models.Conversation{
		ID:                 uuid.NewString(),
		Name:               name,
		IsGroup:            isGroup,
		IsSelfChat:         isSelfChat,
		CreatedBy:          creator.ID,
		ParticipantDetails: map[string]models.UserRef{},
	}
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (id, name, is_group, is_self_chat, created_by) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		conv.ID, name, isGroup, isSelfChat, creator.ID).Scan(&conv.CreatedAt); err != nil {
		return models.Conversation{}, err
	}

	// dedupe members, first occurrence wins
	seen := map[string]struct{}{}
	unique := make([]models.UserRef, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		unique = append(unique, m)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].ID < unique[j].ID })

	for _, m := range unique {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id, display_name, avatar_url) VALUES ($1, $2, $3, $4)`,
			conv.ID, m.ID, m.DisplayName, m.AvatarURL); err != nil {
			return models.Conversation{}, err
		}
		conv.Members = append(conv.Members, m.ID)
		conv.ParticipantDetails[m.ID] = m
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// Get fetches a conversation with its membership snapshot.
func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, name, is_group, is_self_chat, created_by, created_at FROM conversations WHERE id = $1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}

	conv := rowToConversation(row)
	if err := r.loadMembers(ctx, map[string]*models.Conversation{conv.ID: &conv}); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// ListForUser returns all conversations the user belongs to, newest first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT c.id, c.name, c.is_group, c.is_self_chat, c.created_by, c.created_at FROM conversations c
         INNER JOIN conversation_members cm ON cm.conversation_id = c.id
         WHERE cm.user_id = $1 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	convs := make([]models.Conversation, 0, len(rows))
	byID := map[string]*models.Conversation{}
	for _, row := range rows {
		convs = append(convs, rowToConversation(row))
		byID[row.ID] = &convs[len(convs)-1]
	}
	if err := r.loadMembers(ctx, byID); err != nil {
		return nil, err
	}
	return convs, nil
}

// IsMember checks membership.
func (r *ConversationRepo) IsMember(ctx context.Context, conversationID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID)
	return exists, err
}

// MemberCount returns the number of members in the conversation.
func (r *ConversationRepo) MemberCount(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM conversation_members WHERE conversation_id = $1`, conversationID)
	return count, err
}

// AddMembers inserts the member batch in one transaction. Members already
// present are left untouched.
func (r *ConversationRepo) AddMembers(ctx context.Context, conversationID string, members []models.UserRef) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, m := range members {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id, display_name, avatar_url) VALUES ($1, $2, $3, $4)
             ON CONFLICT (conversation_id, user_id) DO NOTHING`,
			conversationID, m.ID, m.DisplayName, m.AvatarURL); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RemoveMember deletes a single membership row.
func (r *ConversationRepo) RemoveMember(ctx context.Context, conversationID string, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_members WHERE conversation_id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAMember
	}
	return nil
}

func (r *ConversationRepo) loadMembers(ctx context.Context, byID map[string]*models.Conversation) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query, args, err := sqlx.In(
		`SELECT conversation_id, user_id, display_name, avatar_url FROM conversation_members WHERE conversation_id IN (?) ORDER BY joined_at ASC`, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var convID string
		var ref models.UserRef
		if err := rows.Scan(&convID, &ref.ID, &ref.DisplayName, &ref.AvatarURL); err != nil {
			return err
		}
		conv, ok := byID[convID]
		if !ok {
			continue
		}
		conv.Members = append(conv.Members, ref.ID)
		if conv.ParticipantDetails == nil {
			conv.ParticipantDetails = map[string]models.UserRef{}
		}
		conv.ParticipantDetails[ref.ID] = ref
	}
	return rows.Err()
}

func rowToConversation(row conversationRow) models.Conversation {
	conv := models.Conversation{
		ID:                 row.ID,
		Name:               row.Name,
		IsGroup:            row.IsGroup,
		IsSelfChat:         row.IsSelfChat,
		CreatedBy:          row.CreatedBy,
		ParticipantDetails: map[string]models.UserRef{},
	}
	if row.CreatedAt.Valid {
		conv.CreatedAt = row.CreatedAt.Time
	}
	return conv
}
