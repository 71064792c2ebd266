package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

// Входящие и исходящие события чата.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventMessage     = "message"
	EventError       = "error"
	EventJoined      = "joinedRoom"
	EventLeft        = "leftRoom"

	MaxChatMessageLength = 2000
)

type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinRoomPayload struct {
	ReportID string `json:"reportId" validate:"required,uuid"`
}

type leaveRoomPayload struct {
	ReportID string `json:"reportId" validate:"required,uuid"`
}

type sendMessagePayload struct {
	ReportID string `json:"reportId" validate:"required,uuid"`
	Message  string `json:"message" validate:"required,max=2000"`
}

// ChatMessage - сообщение, которое получают участники комнаты заявки.
type ChatMessage struct {
	SenderID  uuid.UUID `json:"senderId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// HandleInbound разбирает сообщение клиента. Отправитель всегда берётся из
// подключения, а не из тела сообщения.
func (h *Hub) HandleInbound(ctx context.Context, c *Client, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.replyError(c, "некорректный формат сообщения")
		return
	}

	switch env.Type {
	case EventJoinRoom:
		var p joinRoomPayload
		if !h.decode(c, env.Data, &p) {
			return
		}
		reportID := uuid.MustParse(p.ReportID)
		if !h.allowed(ctx, c, reportID) {
			return
		}
		room := ReportRoom(reportID)
		h.Join(room, c)
		h.EmitToClient(c, EventJoined, map[string]interface{}{"reportId": reportID})

	case EventLeaveRoom:
		var p leaveRoomPayload
		if !h.decode(c, env.Data, &p) {
			return
		}
		reportID := uuid.MustParse(p.ReportID)
		h.Leave(ReportRoom(reportID), c)
		h.EmitToClient(c, EventLeft, map[string]interface{}{"reportId": reportID})

	case EventSendMessage:
		var p sendMessagePayload
		if !h.decode(c, env.Data, &p) {
			return
		}
		text := strings.TrimSpace(p.Message)
		if text == "" {
			h.replyError(c, "сообщение не может быть пустым")
			return
		}
		reportID := uuid.MustParse(p.ReportID)
		if !h.allowed(ctx, c, reportID) {
			return
		}
		h.Emit(ReportRoom(reportID), EventMessage, ChatMessage{
			SenderID:  c.userID,
			Message:   text,
			Timestamp: time.Now().UTC(),
		})

	default:
		h.replyError(c, "неизвестный тип сообщения")
	}
}

func (h *Hub) decode(c *Client, data json.RawMessage, dst interface{}) bool {
	if len(data) == 0 {
		h.replyError(c, "пустое сообщение")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		h.replyError(c, "некорректный формат сообщения")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.replyError(c, err.Error())
		return false
	}
	return true
}

func (h *Hub) allowed(ctx context.Context, c *Client, reportID uuid.UUID) bool {
	err := h.authorize(ctx, reportID, c.userID)
	if err == nil {
		return true
	}

	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code != apperror.ErrCodeDatabaseError && appErr.Code != apperror.ErrCodeInternal:
		h.replyError(c, appErr.Message)
	case errors.Is(err, errChatUnavailable):
		h.replyError(c, errChatUnavailable.Error())
	default:
		h.log.WithFields(logrus.Fields{
			"user_id":   c.userID,
			"report_id": reportID,
			"error":     err,
		}).Error("ws: chat authorization failed")
		h.replyError(c, "не удалось проверить доступ к чату")
	}
	return false
}

func (h *Hub) replyError(c *Client, message string) {
	h.EmitToClient(c, EventError, errorPayload{Message: message})
}
