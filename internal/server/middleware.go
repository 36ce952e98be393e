package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	requestIdHeader = "X-Request-Id"
	requestIdKey    = "request_id"
	callerKey       = "caller"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(requestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		c.Set(requestIdKey, requestId)
		c.Writer.Header().Set(requestIdHeader, requestId)
		c.Next()
	}
}

func LoggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.
			WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).String()).
			WithField(requestIdKey, c.GetString(requestIdKey))

		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last().Err).Error("request failed")
		} else {
			entry.Info("request handled")
		}
	}
}

// RecoveryMiddleware turns panics into the generic error response.
func RecoveryMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				logger.
					WithField(requestIdKey, c.GetString(requestIdKey)).
					WithField("panic", p).
					Error("request panicked")
				internalError(c)
			}
		}()
		c.Next()
	}
}

func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifier.GetUserClaims(extractBearer(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}
		c.Set(callerKey, claims.Caller())
		c.Next()
	}
}

// JoinLimitMiddleware must run after AuthMiddleware. A nil limiter disables it.
func JoinLimitMiddleware(limiter JoinLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFrom(c)
		if limiter == nil || caller == nil {
			c.Next()
			return
		}

		result, err := limiter.AllowJoinAttempt(c.Request.Context(), caller.ID)
		if err != nil {
			_ = c.Error(err)
			internalError(c)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, NewErrorResponse("too many join attempts", "RATE_LIMITED"))
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) *models.Caller {
	value, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := value.(*models.Caller)
	return caller
}

func extractBearer(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func internalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success":    false,
		"error":      "internal server error",
		"code":       "INTERNAL_ERROR",
		"request_id": c.GetString(requestIdKey),
	})
}
