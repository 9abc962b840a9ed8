package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/garka/garka-backend/internal/errors"
	"github.com/garka/garka-backend/pkg/redis"
	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"

	idempotencyLock       = 30 * time.Second
	idempotencyProcessing = "processing"
)

// storedResponse is what a finished request leaves behind for replays.
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the first 2xx response for a repeated Idempotency-Key
// from the same user and rejects a repeat while the first is still running.
// Requests without the header, or with redis disabled, pass straight through.
func Idempotency(retention time.Duration) gin.HandlerFunc {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || !redis.Enabled() {
			c.Next()
			return
		}

		log := GetLoggerFromContext(c)
		userID, _ := GetUserID(c)
		storageKey := fmt.Sprintf("idempotency:%d:%s", userID, key)
		ctx := c.Request.Context()

		acquired, err := redis.SetNX(ctx, storageKey, idempotencyProcessing, idempotencyLock)
		if err != nil {
			log.Error("Idempotency lock failed, continuing without it", err, map[string]interface{}{
				"key": storageKey,
			})
			c.Next()
			return
		}

		if !acquired {
			val, err := redis.Get(ctx, storageKey)
			switch {
			case err != nil && !redis.IsNil(err):
				log.Error("Idempotency lookup failed", err)
				c.Next()
				return
			case err != nil || val == idempotencyProcessing:
				apperrors.Conflict(c, apperrors.IdempotencyInProgress, "A request with this Idempotency-Key is still in progress")
				c.Abort()
				return
			}

			var stored storedResponse
			if err := json.Unmarshal([]byte(val), &stored); err != nil {
				log.Warn("Discarding unreadable idempotency record", map[string]interface{}{
					"key": storageKey,
				})
				_ = redis.Del(ctx, storageKey)
				apperrors.Conflict(c, apperrors.IdempotencyInProgress, "Retry the request")
				c.Abort()
				return
			}

			log.Debug("Replaying idempotent response", map[string]interface{}{
				"key": storageKey,
			})
			c.Header(IdempotencyHitHeader, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		w := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			// failures may be retried with the same key
			_ = redis.Del(ctx, storageKey)
			return
		}

		payload, err := json.Marshal(storedResponse{Status: status, Body: json.RawMessage(w.body.Bytes())})
		if err != nil || !json.Valid(w.body.Bytes()) {
			_ = redis.Del(ctx, storageKey)
			return
		}
		if err := redis.Set(ctx, storageKey, payload, retention); err != nil {
			log.Error("Failed to store idempotent response", err, map[string]interface{}{
				"key": storageKey,
			})
		}
	}
}
