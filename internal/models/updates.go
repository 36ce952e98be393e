package models

import "time"

type UpdateMeta struct {
	Timestamp time.Time
	Audience  []string
}

type ChatCreated struct {
	UpdateMeta
	ChatID   int
	ChatType ChatType
	Members  []string
}

type MemberJoined struct {
	UpdateMeta
	ChatID int
	UserID string
}
