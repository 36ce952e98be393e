package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	storage "github.com/practice-sem-2/chat-rooms-service/internal/storages"
)

// memoryRegistry is an in-memory storage.Registry. Atomic restores the previous
// state when fn fails, like a rolled back transaction.
type memoryRegistry struct {
	chats   []models.Chat
	members []models.ChatUser
	users   []models.AppUser
	updates []interface{}
	nextId  int64

	// conflicts makes the next CreateChat calls fail with ErrChatAlreadyExists.
	conflicts  int
	publishErr error
}

var (
	_ storage.Registry     = (*memoryRegistry)(nil)
	_ storage.ChatsStore   = (*memoryRegistry)(nil)
	_ storage.UsersStore   = (*memoryRegistry)(nil)
	_ storage.UpdatesStore = (*memoryRegistry)(nil)
)

func newMemoryRegistry(users ...models.AppUser) *memoryRegistry {
	return &memoryRegistry{users: users}
}

func (m *memoryRegistry) Atomic(_ context.Context, fn storage.AtomicFunc) error {
	chats := append([]models.Chat(nil), m.chats...)
	members := append([]models.ChatUser(nil), m.members...)
	updates := append([]interface{}(nil), m.updates...)

	err := fn(m)
	if err != nil {
		m.chats, m.members, m.updates = chats, members, updates
	}
	return err
}

func (m *memoryRegistry) GetChatsStore() storage.ChatsStore     { return m }
func (m *memoryRegistry) GetUsersStore() storage.UsersStore     { return m }
func (m *memoryRegistry) GetUpdatesStore() storage.UpdatesStore { return m }

func (m *memoryRegistry) CreateChat(_ context.Context, chat *models.Chat) error {
	if m.conflicts > 0 {
		m.conflicts--
		return storage.ErrChatAlreadyExists
	}
	for _, c := range m.chats {
		if c.ChatID == chat.ChatID {
			return storage.ErrChatAlreadyExists
		}
	}
	chat.CreatedAt = time.Now().UTC()
	stored := *chat
	stored.Users = nil
	m.chats = append(m.chats, stored)
	return nil
}

func (m *memoryRegistry) GetChat(_ context.Context, chatId int) (*models.Chat, error) {
	for _, c := range m.chats {
		if c.ChatID == chatId {
			chat := c
			return &chat, nil
		}
	}
	return nil, storage.ErrChatNotFound
}

func (m *memoryRegistry) ChatExists(ctx context.Context, chatId int) (bool, error) {
	_, err := m.GetChat(ctx, chatId)
	if errors.Is(err, storage.ErrChatNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memoryRegistry) isMember(chatId int, userId string) bool {
	for _, mem := range m.members {
		if mem.ChatID == chatId && mem.UserID == userId {
			return true
		}
	}
	return false
}

func (m *memoryRegistry) SelectRooms(_ context.Context, sel models.RoomsSelect) ([]models.Chat, error) {
	rooms := make([]models.Chat, 0)
	for _, c := range m.chats {
		if c.Type != models.ChatTypeRoom {
			continue
		}
		if sel.ExcludeMember != "" && m.isMember(c.ChatID, sel.ExcludeMember) {
			continue
		}
		if sel.Search != "" && !strings.Contains(c.Subject, sel.Search) && !strings.Contains(c.AgeGroup, sel.Search) {
			continue
		}
		rooms = append(rooms, c)
	}
	return rooms, nil
}

func (m *memoryRegistry) AddChatMembers(_ context.Context, chatId int, members []string) error {
	if len(members) == 0 {
		return storage.ErrEmptyMembers
	}
	for _, userId := range members {
		m.nextId++
		m.members = append(m.members, models.ChatUser{
			ID:       m.nextId,
			ChatID:   chatId,
			UserID:   userId,
			JoinedAt: time.Now().UTC(),
		})
	}
	return nil
}

func (m *memoryRegistry) GetChatMembers(ctx context.Context, chatId int) ([]models.MemberDetails, error) {
	details := make([]models.MemberDetails, 0)
	for _, mem := range m.members {
		if mem.ChatID != chatId {
			continue
		}
		d := models.MemberDetails{ChatUser: mem}
		for _, u := range m.users {
			if u.ID == mem.UserID {
				d.User = u
			}
		}
		if chat, err := m.GetChat(ctx, chatId); err == nil {
			d.Chat = *chat
		}
		details = append(details, d)
	}
	return details, nil
}

func (m *memoryRegistry) GetUserByUsername(_ context.Context, username string) (*models.AppUser, error) {
	for _, u := range m.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *memoryRegistry) ChatCreated(chat *models.ChatCreated) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.updates = append(m.updates, *chat)
	return nil
}

func (m *memoryRegistry) MemberJoined(member *models.MemberJoined) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.updates = append(m.updates, *member)
	return nil
}

func (m *memoryRegistry) membersOf(chatId int) []string {
	ids := make([]string, 0)
	for _, mem := range m.members {
		if mem.ChatID == chatId {
			ids = append(ids, mem.UserID)
		}
	}
	return ids
}

type recordingNotifier struct {
	sent []models.Email
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, email models.Email) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, email)
	return nil
}
