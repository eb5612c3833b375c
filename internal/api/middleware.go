package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cointap/mining-api/internal/auth"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/errors"
	"github.com/cointap/mining-api/pkg/logger"
)

const userContextKey = "user"

// ErrorMiddleware maps typed errors attached via c.Error to HTTP
// responses. Dependency failures stay opaque to the client.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			switch e := err.(type) {
			case *errors.ValidationError:
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": e.Message})
			case *errors.ConflictError:
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": e.Message})
			case *errors.LimitExceededError:
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": e.Message})
			case *errors.InsufficientError:
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": e.Message})
			case *errors.AuthError:
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			case *errors.NotFoundError:
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": e.Error()})
			case *errors.DatabaseError:
				logger.Error("Database error: %v", e)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
			default:
				logger.Error("Unexpected error: %v", e)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
			}
			c.Abort()
		}
	}
}

// AuthMiddleware verifies the bearer token, loads the user and applies
// the lazy daily counter reset before the handler runs.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Error(&errors.AuthError{Reason: "missing bearer token"})
			c.Abort()
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		user, err := h.store.GetUserByID(userID)
		if err != nil {
			if _, ok := err.(*errors.NotFoundError); ok {
				c.Error(&errors.AuthError{Reason: "user no longer exists"})
			} else {
				c.Error(err)
			}
			c.Abort()
			return
		}

		today := h.clock.Now().Truncate(24 * time.Hour)
		if user.LastDailyReset.Before(today) {
			if err := h.store.ResetDailyCounters(user.ID, today); err != nil {
				c.Error(err)
				c.Abort()
				return
			}
			user, err = h.store.GetUserByID(user.ID)
			if err != nil {
				c.Error(err)
				c.Abort()
				return
			}
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// currentUser returns the user loaded by AuthMiddleware.
func currentUser(c *gin.Context) *db.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*db.User)
	return user
}
