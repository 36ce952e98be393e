package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
)

var (
	ErrChatAlreadyExists = errors.New("chat with provided chat_id already exists")
	ErrChatNotFound      = errors.New("chat with provided chat_id does not exist")
	ErrInvalidChat       = errors.New("chat violates table constraints")
	ErrEmptyMembers      = errors.New("members array can't be empty")
)

const (
	ChatsPrimaryKey  = "chats_pkey"
	ChatsChatIdCheck = "chats_chat_id_check"
	ChatsTypeCheck   = "chats_type_check"
)

const chatColumns = "chat_id, name, subject, age_group, type, created_at"

type ChatsStorage struct {
	db Scope
}

func NewChatsStorage(db Scope) *ChatsStorage {
	return &ChatsStorage{
		db: db,
	}
}

// CreateChat inserts chat and fills its CreatedAt. Memberships in chat.Users are not stored.
func (s *ChatsStorage) CreateChat(ctx context.Context, chat *models.Chat) error {
	query, args, err := sq.Insert("chats").
		Columns("chat_id", "name", "subject", "age_group", "type").
		Values(chat.ChatID, chat.Name, chat.Subject, chat.AgeGroup, chat.Type).
		Suffix("RETURNING created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	err = s.db.QueryRowxContext(ctx, query, args...).Scan(&chat.CreatedAt)

	switch GetPgxConstraintName(err) {
	case ChatsPrimaryKey:
		return ErrChatAlreadyExists
	case ChatsChatIdCheck, ChatsTypeCheck:
		return ErrInvalidChat
	default:
		return err
	}
}

func (s *ChatsStorage) GetChat(ctx context.Context, chatId int) (*models.Chat, error) {
	query, args, err := sq.Select(chatColumns).
		From("chats").
		Where(sq.Eq{"chat_id": chatId}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	chat := models.Chat{}
	err = s.db.GetContext(ctx, &chat, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	} else if err != nil {
		return nil, err
	} else {
		return &chat, nil
	}
}

func (s *ChatsStorage) ChatExists(ctx context.Context, chatId int) (bool, error) {
	query, args, err := sq.Select("1").
		Prefix("SELECT EXISTS (").
		From("chats").
		Where(sq.Eq{"chat_id": chatId}).
		Suffix(")").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return false, err
	}

	exists := false
	err = s.db.GetContext(ctx, &exists, query, args...)
	return exists, err
}

// SelectRooms returns Room chats in insertion order. Search is a case-sensitive
// substring match against subject or age group.
func (s *ChatsStorage) SelectRooms(ctx context.Context, sel models.RoomsSelect) ([]models.Chat, error) {
	builder := sq.Select(chatColumns).
		From("chats").
		Where(sq.Eq{"type": models.ChatTypeRoom}).
		OrderBy("created_at", "chat_id").
		PlaceholderFormat(sq.Dollar)

	if sel.ExcludeMember != "" {
		builder = builder.Where(sq.Expr(
			"NOT EXISTS (SELECT 1 FROM chat_users cu WHERE cu.chat_id = chats.chat_id AND cu.user_id = ?)",
			sel.ExcludeMember,
		))
	}

	if sel.Search != "" {
		builder = builder.Where(sq.Or{
			sq.Expr("strpos(subject, ?) > 0", sel.Search),
			sq.Expr("strpos(age_group, ?) > 0", sel.Search),
		})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0)
	err = s.db.SelectContext(ctx, &chats, query, args...)
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *ChatsStorage) AddChatMembers(ctx context.Context, chatId int, members []string) error {
	if len(members) == 0 {
		return ErrEmptyMembers
	}

	builder := sq.Insert("chat_users").
		Columns("chat_id", "user_id").
		PlaceholderFormat(sq.Dollar)

	for _, member := range members {
		builder = builder.Values(chatId, member)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *ChatsStorage) GetChatMembers(ctx context.Context, chatId int) ([]models.MemberDetails, error) {
	query, args, err := sq.Select(
		"cu.id", "cu.chat_id", "cu.user_id", "cu.joined_at",
		"coalesce(u.id, '')", "coalesce(u.username, '')", "coalesce(u.email, '')",
		"coalesce(u.subject, '')", "coalesce(u.role, '')",
		"coalesce(c.chat_id, 0)", "coalesce(c.name, '')", "coalesce(c.subject, '')",
		"coalesce(c.age_group, '')", "coalesce(c.type, '')", "c.created_at",
	).
		From("chat_users cu").
		LeftJoin("app_users u ON u.id = cu.user_id").
		LeftJoin("chats c ON c.chat_id = cu.chat_id").
		Where(sq.Eq{"cu.chat_id": chatId}).
		OrderBy("cu.id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.MemberDetails, 0)
	for rows.Next() {
		member := models.MemberDetails{}
		createdAt := sql.NullTime{}
		err = rows.Scan(
			&member.ID, &member.ChatID, &member.UserID, &member.JoinedAt,
			&member.User.ID, &member.User.Username, &member.User.Email,
			&member.User.Subject, &member.User.Role,
			&member.Chat.ChatID, &member.Chat.Name, &member.Chat.Subject,
			&member.Chat.AgeGroup, &member.Chat.Type, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		member.Chat.CreatedAt = createdAt.Time
		members = append(members, member)
	}

	return members, rows.Err()
}
