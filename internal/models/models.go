package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Pic       string    `json:"pic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Admin is a separate identity space from User, structurally parallel.
type Admin struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Chat struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"is_group"`

	// Resolved member profiles, credentials excluded.
	Users []User `json:"users"`

	// Set for group chats only.
	GroupAdmin *User `json:"group_admin,omitempty"`

	// User ids of members who have blocked the chat.
	BlockedBy []string `json:"blocked_by"`

	// Denormalized pointer to the most recent message. May lag the true
	// latest message after a delete; listing tolerates the stale pointer.
	LatestMessage *Message `json:"latest_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID      string `json:"id"`
	ChatID  string `json:"chat_id"`
	Sender  User   `json:"sender"`
	Content string `json:"content"`

	// Attachment binding; the file itself lives in external storage.
	FileURL  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileType string `json:"file_type,omitempty"`

	// Reply target, resolved one level deep.
	ReplyTo *Message `json:"reply_to,omitempty"`

	// User ids that have read the message; the sender is included at creation.
	ReadBy []string `json:"read_by"`

	CreatedAt time.Time `json:"created_at"`
}

// ChatUnread is one entry of the per-chat unread counts for a user.
type ChatUnread struct {
	ChatID      string `json:"chat_id"`
	UnreadCount int    `json:"unread_count"`
}
