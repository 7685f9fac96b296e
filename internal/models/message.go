package models

import "time"

// Message is a single conversation message. At least one of Text and
// MediaURL is always set.
type Message struct {
	ID        string              `db:"id" json:"id"`
	ChatID    string              `db:"conversation_id" json:"chat_id"`
	SenderID  string              `db:"sender_id" json:"sender_id"`
	Text      string              `db:"text" json:"text,omitempty"`
	MediaURL  string              `db:"media_url" json:"media_url,omitempty"`
	MediaType string              `db:"media_type" json:"media_type,omitempty"`
	FileName  string              `db:"file_name" json:"file_name,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"timestamp"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// HasContent reports whether the message carries text or media.
func (m Message) HasContent() bool {
	return m.Text != "" || m.MediaURL != ""
}
