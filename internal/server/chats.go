package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	"github.com/practice-sem-2/chat-rooms-service/internal/usecases"
)

func (s *ChatServer) Health(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, NewErrorResponse("database unavailable", "UNAVAILABLE"))
			return
		}
	}
	c.JSON(http.StatusOK, NewSuccessResponse("ok"))
}

func (s *ChatServer) ListRooms(c *gin.Context) {
	rooms, err := s.chats.ListRooms(c.Request.Context(), callerFrom(c), c.Query("search"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(ChatsToResponse(rooms)))
}

func (s *ChatServer) ListMembers(c *gin.Context) {
	chatId, ok := chatIdParam(c)
	if !ok {
		return
	}

	members, err := s.chats.ListMembers(c.Request.Context(), chatId)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(MembersToResponse(members)))
}

func (s *ChatServer) CreateRoom(c *gin.Context) {
	var req models.ChatCreate
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	chat, err := s.chats.CreateRoom(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	respondCreated(c, chat)
}

func (s *ChatServer) CreatePrivateRoom(c *gin.Context) {
	chat, err := s.chats.CreatePrivateRoom(c.Request.Context(), callerFrom(c), c.Query("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	respondCreated(c, chat)
}

func (s *ChatServer) JoinPrivateRoom(c *gin.Context) {
	chatId, ok := chatIdParam(c)
	if !ok {
		return
	}

	if err := s.chats.JoinPrivateRoom(c.Request.Context(), callerFrom(c), chatId); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(RedirectResponse{Redirect: ChatRedirect(chatId)}))
}

func (s *ChatServer) JoinRoom(c *gin.Context) {
	chatId, ok := chatIdParam(c)
	if !ok {
		return
	}

	if err := s.chats.JoinRoom(c.Request.Context(), callerFrom(c), chatId); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(RedirectResponse{Redirect: ChatRedirect(chatId)}))
}

func respondCreated(c *gin.Context, chat *models.Chat) {
	res := ChatToResponse(*chat)
	c.JSON(http.StatusCreated, NewSuccessResponse(RedirectResponse{
		Chat:     &res,
		Redirect: ChatRedirect(chat.ChatID),
	}))
}

func chatIdParam(c *gin.Context) (int, bool) {
	chatId, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid chat id", "INVALID_REQUEST"))
		return 0, false
	}
	return chatId, true
}

var failureStatus = map[usecases.FailureKind]int{
	usecases.FailureUserNotFound:   http.StatusNotFound,
	usecases.FailureChatNotFound:   http.StatusNotFound,
	usecases.FailureChatNotPrivate: http.StatusConflict,
}

func (s *ChatServer) writeError(c *gin.Context, err error) {
	var failure *usecases.Failure
	if errors.As(err, &failure) {
		status, ok := failureStatus[failure.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, Response[MessageView]{
			Success: false,
			Data:    FailureToView(failure),
			Error:   failure.Message,
			Code:    string(failure.Kind),
		})
		return
	}

	status, code := wrapError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		internalError(c)
		return
	}
	c.JSON(status, NewErrorResponse(err.Error(), code))
}

// wrapError maps usecase errors to an HTTP status and error code.
// Order matters: more specific errors come first.
func wrapError(err error) (int, string) {
	errorMapper := []struct {
		from   error
		status int
		code   string
	}{
		{usecases.ErrAuthenticationRequired, http.StatusUnauthorized, "UNAUTHORIZED"},
		{usecases.ErrPermissionDenied, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, mapping := range errorMapper {
		if errors.Is(err, mapping.from) {
			return mapping.status, mapping.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
