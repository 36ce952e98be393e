package models

import "time"

type ChatType string

const (
	ChatTypeRoom    ChatType = "Room"
	ChatTypePrivate ChatType = "Private"
)

type Chat struct {
	ChatID    int        `json:"chat_id" db:"chat_id"`
	Name      string     `json:"name" db:"name"`
	Subject   string     `json:"subject" db:"subject"`
	AgeGroup  string     `json:"age_group" db:"age_group"`
	Type      ChatType   `json:"type" db:"type"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Users     []ChatUser `json:"users,omitempty" db:"-"`
}

type ChatUser struct {
	ID       int64     `json:"id" db:"id"`
	ChatID   int       `json:"chat_id" db:"chat_id"`
	UserID   string    `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// MemberDetails is a membership row together with the user and chat it points to.
// User and Chat are zero values when the referenced row does not exist.
type MemberDetails struct {
	ChatUser
	User AppUser `json:"user"`
	Chat Chat    `json:"chat"`
}

type RoomsSelect struct {
	// ExcludeMember hides rooms the given user already belongs to. Empty means no exclusion.
	ExcludeMember string
	Search        string
}

type ChatCreate struct {
	Name     string `json:"name" form:"name"`
	AgeGroup string `json:"age" form:"age"`
	Subject  string `json:"subject" form:"subject"`
}
