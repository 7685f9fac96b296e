package models

import "time"

// Conversation is a chat between two users, a group, or a self-chat.
// Invariants: Members contains no duplicates, CreatedBy is always a member,
// non-group conversations have exactly two members (one for a self-chat).
type Conversation struct {
	ID                 string             `db:"id" json:"id"`
	Name               string             `db:"name" json:"name"`
	Members            []string           `json:"members"`
	ParticipantDetails map[string]UserRef `json:"participant_details"`
	IsGroup            bool               `db:"is_group" json:"is_group"`
	IsSelfChat         bool               `db:"is_self_chat" json:"is_self_chat"`
	CreatedBy          string             `db:"created_by" json:"created_by"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// Counterpart returns the other participant of a two-party conversation.
// The second return is false for groups, self-chats and conversations the
// user is not part of.
func (c Conversation) Counterpart(userID string) (UserRef, bool) {
	if c.IsGroup || c.IsSelfChat {
		return UserRef{}, false
	}
	member := false
	for _, id := range c.Members {
		if id == userID {
			member = true
			break
		}
	}
	if !member {
		return UserRef{}, false
	}
	for _, id := range c.Members {
		if id != userID {
			ref, ok := c.ParticipantDetails[id]
			if !ok {
				ref = UserRef{ID: id}
			}
			return ref, true
		}
	}
	return UserRef{}, false
}

// HasMember reports whether the user belongs to the conversation.
func (c Conversation) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}
