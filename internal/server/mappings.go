package server

import (
	"fmt"
	"time"

	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	"github.com/practice-sem-2/chat-rooms-service/internal/usecases"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// MessageView is what the client shows before navigating to Redirect.
type MessageView struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
	Timeout  int64  `json:"timeout"`
}

type ChatResponse struct {
	ChatID    int       `json:"chat_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	AgeGroup  string    `json:"age_group"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	ID       int64        `json:"id"`
	ChatID   int          `json:"chat_id"`
	UserID   string       `json:"user_id"`
	Username string       `json:"username"`
	Role     string       `json:"role"`
	Chat     ChatResponse `json:"chat"`
}

type RedirectResponse struct {
	Chat     *ChatResponse `json:"chat,omitempty"`
	Redirect string        `json:"redirect"`
}

func ChatRedirect(chatId int) string {
	return fmt.Sprintf("/chat/%d", chatId)
}

func FailureToView(f *usecases.Failure) MessageView {
	return MessageView{
		Type:     "Failed",
		Message:  f.Message,
		Redirect: f.Redirect,
		Timeout:  f.Timeout.Milliseconds(),
	}
}

func ChatToResponse(c models.Chat) ChatResponse {
	return ChatResponse{
		ChatID:    c.ChatID,
		Name:      c.Name,
		Subject:   c.Subject,
		AgeGroup:  c.AgeGroup,
		Type:      string(c.Type),
		CreatedAt: c.CreatedAt,
	}
}

func ChatsToResponse(chats []models.Chat) []ChatResponse {
	res := make([]ChatResponse, len(chats))
	for i, c := range chats {
		res[i] = ChatToResponse(c)
	}
	return res
}

func MembersToResponse(members []models.MemberDetails) []MemberResponse {
	res := make([]MemberResponse, len(members))
	for i, m := range members {
		res[i] = MemberResponse{
			ID:       m.ID,
			ChatID:   m.ChatID,
			UserID:   m.UserID,
			Username: m.User.Username,
			Role:     string(m.User.Role),
			Chat:     ChatToResponse(m.Chat),
		}
	}
	return res
}
