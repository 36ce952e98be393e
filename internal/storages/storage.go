package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/jmoiron/sqlx"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
)

type AtomicFunc func(Registry) error

type Registry interface {
	Atomic(ctx context.Context, fn AtomicFunc) error
	GetChatsStore() ChatsStore
	GetUsersStore() UsersStore
	GetUpdatesStore() UpdatesStore
}

type ChatsStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, chatId int) (*models.Chat, error)
	ChatExists(ctx context.Context, chatId int) (bool, error)
	SelectRooms(ctx context.Context, sel models.RoomsSelect) ([]models.Chat, error)
	AddChatMembers(ctx context.Context, chatId int, members []string) error
	GetChatMembers(ctx context.Context, chatId int) ([]models.MemberDetails, error)
}

type UsersStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.AppUser, error)
}

type UpdatesStore interface {
	ChatCreated(chat *models.ChatCreated) error
	MemberJoined(member *models.MemberJoined) error
}

type DefaultRegistry struct {
	db       *sqlx.DB
	scope    Scope
	producer sarama.SyncProducer
	cfg      *UpdatesStoreConfig
}

type Scope interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// NewRegistry builds a registry on top of db. A nil producer disables update publishing.
func NewRegistry(db *sqlx.DB, p sarama.SyncProducer, cfg *UpdatesStoreConfig) *DefaultRegistry {
	return &DefaultRegistry{
		db:       db,
		scope:    db,
		producer: p,
		cfg:      cfg,
	}
}

func (r *DefaultRegistry) Atomic(ctx context.Context, fn AtomicFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error: \"%v\" failed: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	storage := DefaultRegistry{
		db:       r.db,
		scope:    tx,
		producer: r.producer,
		cfg:      r.cfg,
	}
	err = fn(&storage)
	return err
}

func (r *DefaultRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *DefaultRegistry) GetChatsStore() ChatsStore {
	return NewChatsStorage(r.scope)
}

func (r *DefaultRegistry) GetUsersStore() UsersStore {
	return NewUsersStorage(r.scope)
}

func (r *DefaultRegistry) GetUpdatesStore() UpdatesStore {
	return NewUpdatesStore(r.producer, r.cfg)
}
