package usecases

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	storage "github.com/practice-sem-2/chat-rooms-service/internal/storages"
	"github.com/sirupsen/logrus"
)

var (
	ErrPermissionDenied       = errors.New("user is not authorized to this action")
	ErrAuthenticationRequired = fmt.Errorf("%w: Authentication required", ErrPermissionDenied)
	ErrSupervisorRequired     = fmt.Errorf("%w: Supervisor role required", ErrPermissionDenied)
	ErrTeenOrChildRequired    = fmt.Errorf("%w: Teen or child role required", ErrPermissionDenied)
	ErrChatIdExhausted        = errors.New("can't allocate a free chat id")
)

const (
	MinChatId = 100000
	MaxChatId = 999999
)

const (
	inviteSubject = "Chat aanvraag"
	inviteBody    = "%s heeft een chat aangevraagd. Gebruik de volgende code om de chat te joinen: %d"
)

type Notifier interface {
	Send(ctx context.Context, email models.Email) error
}

type Config struct {
	// StrictChatChecks makes JoinRoom and ListMembers fail for unknown chats.
	StrictChatChecks bool
	// MaxIdAttempts bounds chat insertion retries after a primary key conflict.
	MaxIdAttempts int
	NotifyTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxIdAttempts: 10,
		NotifyTimeout: 10 * time.Second,
	}
}

type ChatsUsecase struct {
	registry storage.Registry
	notifier Notifier
	logger   logrus.FieldLogger
	cfg      Config
	randomId func() int
}

func NewChatsUsecase(r storage.Registry, n Notifier, logger logrus.FieldLogger, cfg Config) *ChatsUsecase {
	if cfg.MaxIdAttempts <= 0 {
		cfg.MaxIdAttempts = DefaultConfig().MaxIdAttempts
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultConfig().NotifyTimeout
	}
	return &ChatsUsecase{
		registry: r,
		notifier: n,
		logger:   logger,
		cfg:      cfg,
		randomId: func() int {
			return MinChatId + rand.Intn(MaxChatId-MinChatId+1)
		},
	}
}

func authorize(caller *models.Caller, allowed func(models.Role) bool, denied error) error {
	if err := ValidateCaller(caller); err != nil {
		return err
	}
	if allowed != nil && !allowed(caller.Role) {
		return denied
	}
	return nil
}

// ListRooms returns Room chats visible to the caller. Supervisors see every room,
// everyone else only the rooms they have not joined yet.
func (u *ChatsUsecase) ListRooms(ctx context.Context, caller *models.Caller, search string) ([]models.Chat, error) {
	if err := authorize(caller, nil, nil); err != nil {
		return nil, err
	}

	sel := models.RoomsSelect{Search: search}
	if !caller.Role.IsSupervisor() {
		sel.ExcludeMember = caller.ID
	}
	return u.registry.GetChatsStore().SelectRooms(ctx, sel)
}

func (u *ChatsUsecase) ListMembers(ctx context.Context, chatId int) ([]models.MemberDetails, error) {
	store := u.registry.GetChatsStore()
	if u.cfg.StrictChatChecks {
		if err := u.ensureChatExists(ctx, store, chatId); err != nil {
			return nil, err
		}
	}
	return store.GetChatMembers(ctx, chatId)
}

func (u *ChatsUsecase) CreateRoom(ctx context.Context, caller *models.Caller, room models.ChatCreate) (*models.Chat, error) {
	if err := authorize(caller, models.Role.IsSupervisor, ErrSupervisorRequired); err != nil {
		return nil, err
	}

	chat := &models.Chat{
		Name:     room.Name,
		Subject:  room.Subject,
		AgeGroup: room.AgeGroup,
		Type:     models.ChatTypeRoom,
	}
	if err := u.createChat(ctx, chat, caller.ID); err != nil {
		return nil, err
	}
	return chat, nil
}

// CreatePrivateRoom creates a private chat with the caller as its only member and
// mails the chat id to the invited user. The invited user joins with JoinPrivateRoom.
func (u *ChatsUsecase) CreatePrivateRoom(ctx context.Context, caller *models.Caller, username string) (*models.Chat, error) {
	if err := authorize(caller, models.Role.IsSupervisor, ErrSupervisorRequired); err != nil {
		return nil, err
	}

	invited, err := u.registry.GetUsersStore().GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	chat := &models.Chat{
		Name:    fmt.Sprintf("Chat tussen %s en %s", caller.Username, username),
		Subject: caller.Subject,
		Type:    models.ChatTypePrivate,
	}
	if err = u.createChat(ctx, chat, caller.ID); err != nil {
		return nil, err
	}

	u.notify(ctx, models.Email{
		To:      invited.Email,
		Subject: inviteSubject,
		Body:    fmt.Sprintf(inviteBody, caller.Username, chat.ChatID),
	})
	return chat, nil
}

func (u *ChatsUsecase) JoinPrivateRoom(ctx context.Context, caller *models.Caller, chatId int) error {
	if err := authorize(caller, models.Role.IsTeenOrChild, ErrTeenOrChildRequired); err != nil {
		return err
	}

	return u.registry.Atomic(ctx, func(r storage.Registry) error {
		chat, err := r.GetChatsStore().GetChat(ctx, chatId)
		if errors.Is(err, storage.ErrChatNotFound) {
			return ErrChatNotFound
		} else if err != nil {
			return err
		}

		if chat.Type != models.ChatTypePrivate {
			return ErrChatNotPrivate
		}

		return u.join(ctx, r, chatId, caller.ID)
	})
}

// JoinRoom adds the caller to chatId. Unless strict checks are enabled the chat is
// not looked up, so joining an unknown id leaves a membership row without a chat.
func (u *ChatsUsecase) JoinRoom(ctx context.Context, caller *models.Caller, chatId int) error {
	if err := authorize(caller, models.Role.IsTeenOrChild, ErrTeenOrChildRequired); err != nil {
		return err
	}

	return u.registry.Atomic(ctx, func(r storage.Registry) error {
		if u.cfg.StrictChatChecks {
			if err := u.ensureChatExists(ctx, r.GetChatsStore(), chatId); err != nil {
				return err
			}
		}
		return u.join(ctx, r, chatId, caller.ID)
	})
}

// GenerateId draws a chat id in [MinChatId, MaxChatId] that no stored chat uses.
func (u *ChatsUsecase) GenerateId(ctx context.Context) (int, error) {
	return u.generateId(ctx, u.registry.GetChatsStore())
}

func (u *ChatsUsecase) generateId(ctx context.Context, store storage.ChatsStore) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		id := u.randomId()
		exists, err := store.ChatExists(ctx, id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return id, nil
		}
	}
}

// createChat stores chat with owner as first member. A concurrent insert of the same
// id fails on the primary key, in which case the whole transaction is retried.
func (u *ChatsUsecase) createChat(ctx context.Context, chat *models.Chat, owner string) error {
	for attempt := 0; attempt < u.cfg.MaxIdAttempts; attempt++ {
		err := u.registry.Atomic(ctx, func(r storage.Registry) error {
			store := r.GetChatsStore()

			id, err := u.generateId(ctx, store)
			if err != nil {
				return err
			}

			chat.ChatID = id
			if err = store.CreateChat(ctx, chat); err != nil {
				return err
			}

			members := []string{owner}
			if err = store.AddChatMembers(ctx, chat.ChatID, members); err != nil {
				return err
			}

			return r.GetUpdatesStore().ChatCreated(&models.ChatCreated{
				UpdateMeta: models.UpdateMeta{
					Timestamp: chat.CreatedAt,
					Audience:  members,
				},
				ChatID:   chat.ChatID,
				ChatType: chat.Type,
				Members:  members,
			})
		})

		if errors.Is(err, storage.ErrChatAlreadyExists) {
			continue
		}
		if err != nil {
			return err
		}

		chat.Users = []models.ChatUser{{ChatID: chat.ChatID, UserID: owner}}
		return nil
	}
	return ErrChatIdExhausted
}

func (u *ChatsUsecase) join(ctx context.Context, r storage.Registry, chatId int, userId string) error {
	store := r.GetChatsStore()
	if err := store.AddChatMembers(ctx, chatId, []string{userId}); err != nil {
		return err
	}

	audience, err := u.getChatAudience(ctx, chatId, store)
	if err != nil {
		return err
	}

	return r.GetUpdatesStore().MemberJoined(&models.MemberJoined{
		UpdateMeta: models.UpdateMeta{
			Timestamp: time.Now().UTC(),
			Audience:  audience,
		},
		ChatID: chatId,
		UserID: userId,
	})
}

func (u *ChatsUsecase) getChatAudience(ctx context.Context, chatId int, store storage.ChatsStore) ([]string, error) {
	members, err := store.GetChatMembers(ctx, chatId)
	if err != nil {
		return nil, fmt.Errorf("can't get chat members: %v", err)
	}
	audience := make([]string, len(members))
	for i, mem := range members {
		audience[i] = mem.UserID
	}
	return audience, nil
}

func (u *ChatsUsecase) ensureChatExists(ctx context.Context, store storage.ChatsStore, chatId int) error {
	exists, err := store.ChatExists(ctx, chatId)
	if err != nil {
		return err
	}
	if !exists {
		return ErrChatNotFound
	}
	return nil
}

// notify sends email after the chat is committed. Failures are logged only.
func (u *ChatsUsecase) notify(ctx context.Context, email models.Email) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.NotifyTimeout)
	defer cancel()

	if err := u.notifier.Send(ctx, email); err != nil {
		u.logger.
			WithError(err).
			WithField("to", email.To).
			Error("can't send chat invite")
	}
}
