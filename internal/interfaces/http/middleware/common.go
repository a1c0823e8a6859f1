package middleware

import (
	"net/http"
	"strings"

	"github.com/cuotas/backend/internal/infrastructure/logger"
	"github.com/cuotas/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ActorHeader carries the identity of the administrator acting on the ledger
const ActorHeader = "X-Actor"

// ActorKey is the gin context key holding the resolved actor
const ActorKey = "actor"

// MaxActorLength bounds what is written to the audit log as actor
const MaxActorLength = 100

// Actor resolves the acting identity from X-Actor, falling back to defaultActor,
// and attaches it to the request context and its logger.
func Actor(defaultActor string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = defaultActor
		}
		if len(actor) > MaxActorLength {
			actor = actor[:MaxActorLength]
		}

		ctx := c.Request.Context()
		ctx, _ = logger.WithActor(ctx, logger.FromContext(ctx), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor resolved by the Actor middleware
func GetActor(c *gin.Context) string {
	return c.GetString(ActorKey)
}

// Secure adds a fixed set of security headers suited to a JSON API
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				getRequestID(c),
			))
			return
		}

		// Streaming bodies without Content-Length are cut off while reading
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
