package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"go.uber.org/zap"
)

// statusFor maps a domain error kind to its HTTP status
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation, model.KindNotAvailable:
		return http.StatusBadRequest
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindCapacity, model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the uniform failure envelope.
// Unclassified errors are logged and hidden from the client.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	kind := model.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("correlation_id", c.GetString("correlation_id")),
			zap.Error(err),
		)
		msg = "Internal server error"
	}

	c.JSON(status, model.ErrorResponse{
		Envelope: model.Envelope{Success: false, Error: msg},
		Kind:     kind.String(),
	})
}

func badRequest(c *gin.Context, msg string, detail error) {
	resp := model.ErrorResponse{
		Envelope: model.Envelope{Success: false, Error: msg},
		Kind:     model.KindValidation.String(),
	}
	if detail != nil {
		resp.Message = detail.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

func ok(msg string) model.Envelope {
	return model.Envelope{Success: true, Message: msg}
}

// chatIDParam parses the :id path segment, writing a 400 on failure
func chatIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid chat ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// parseTime accepts RFC 3339 or a zone-less ISO 8601 timestamp, read as UTC.
// An empty string yields the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
