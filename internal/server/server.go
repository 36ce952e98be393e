package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/chat-rooms-service/internal/auth"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	storage "github.com/practice-sem-2/chat-rooms-service/internal/storages"
	"github.com/sirupsen/logrus"
)

type ChatsService interface {
	ListRooms(ctx context.Context, caller *models.Caller, search string) ([]models.Chat, error)
	ListMembers(ctx context.Context, chatId int) ([]models.MemberDetails, error)
	CreateRoom(ctx context.Context, caller *models.Caller, room models.ChatCreate) (*models.Chat, error)
	CreatePrivateRoom(ctx context.Context, caller *models.Caller, username string) (*models.Chat, error)
	JoinPrivateRoom(ctx context.Context, caller *models.Caller, chatId int) error
	JoinRoom(ctx context.Context, caller *models.Caller, chatId int) error
}

type TokenVerifier interface {
	GetUserClaims(token string) (*auth.UserClaims, error)
}

type JoinLimiter interface {
	AllowJoinAttempt(ctx context.Context, userId string) (*storage.LimitResult, error)
}

type Option func(*ChatServer)

// WithJoinLimiter limits private room join attempts per user.
func WithJoinLimiter(l JoinLimiter) Option {
	return func(s *ChatServer) {
		s.limiter = l
	}
}

// WithHealthCheck makes /healthz report the result of ping.
func WithHealthCheck(ping func(ctx context.Context) error) Option {
	return func(s *ChatServer) {
		s.ping = ping
	}
}

type ChatServer struct {
	chats    ChatsService
	verifier TokenVerifier
	logger   logrus.FieldLogger
	limiter  JoinLimiter
	ping     func(ctx context.Context) error
}

func NewChatServer(c ChatsService, v TokenVerifier, logger logrus.FieldLogger, opts ...Option) *ChatServer {
	s := &ChatServer{
		chats:    c,
		verifier: v,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChatServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(s.logger), RecoveryMiddleware(s.logger))

	r.GET("/healthz", s.Health)

	api := r.Group("/", AuthMiddleware(s.verifier))
	api.GET("/rooms", s.ListRooms)
	api.POST("/rooms", s.CreateRoom)
	api.GET("/rooms/:id/users", s.ListMembers)
	api.GET("/rooms/:id/join", s.JoinRoom)
	api.GET("/private-rooms", s.CreatePrivateRoom)
	api.GET("/private-rooms/:id/join", JoinLimitMiddleware(s.limiter), s.JoinPrivateRoom)

	return r
}
