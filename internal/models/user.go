package models

// UserRef is a denormalized identity snapshot copied into a conversation at
// the time the user became a participant. It is not kept in sync with the
// identity provider's live record.
type UserRef struct {
	ID          string `db:"user_id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarURL   string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// SearchedUser is an ephemeral projection of an identity-provider record,
// returned by the directory search endpoint.
type SearchedUser struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	PrimaryEmailAddress string `json:"primaryEmailAddress"`
	ImageURL            string `json:"imageUrl"`
}
