// Package ws доставляет события клиентам по WebSocket и обслуживает чат
// заявки. Комнаты: user:<id> (личная, при подключении) и report:<id> (чат).
// joinRoom и sendMessage доступны только владельцу заявки и выбранному
// специалисту; leaveRoom проверок не требует.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/goroutine"
	"github.com/ignatzorin/wheelitin-backend/internal/validation"
)

// ChatAuthorizer проверяет, может ли пользователь писать в комнату заявки.
type ChatAuthorizer interface {
	AuthorizeChat(ctx context.Context, reportID, userID uuid.UUID) error
}

// UserRoom - личная комната пользователя, клиент попадает в неё при подключении.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ReportRoom - комната чата по заявке.
func ReportRoom(reportID uuid.UUID) string {
	return "report:" + reportID.String()
}

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opJoin
	opLeave
	opEmit
	opBroadcast
	opDirect
)

type hubOp struct {
	kind    opKind
	client  *Client
	room    string
	payload []byte
}

// Hub управляет комнатами и доставкой. Все изменения состава комнат и вся
// доставка идут через один цикл Run, поэтому порядок сообщений в комнате
// совпадает с порядком вызовов Emit.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}

	ops  chan hubOp
	done chan struct{}
	once sync.Once

	chat     ChatAuthorizer
	validate *validation.Validator
	log      logrus.FieldLogger
	recovery *goroutine.RecoveryHandler
}

// NewHub создаёт новый хаб.
func NewHub(chat ChatAuthorizer, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		rooms:    make(map[string]map[*Client]struct{}),
		members:  make(map[*Client]map[string]struct{}),
		ops:      make(chan hubOp, 256),
		done:     make(chan struct{}),
		chat:     chat,
		validate: validation.Default,
		log:      log,
		recovery: goroutine.NewRecoveryHandler(log),
	}
}

// Run запускает главный цикл хаба и блокируется до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.ops:
			h.recovery.Run("ws hub", func() { h.apply(op) })
		}
	}
}

func (h *Hub) shutdown() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.members {
		h.dropLocked(c)
	}
}

// Register добавляет клиента и его личную комнату.
func (h *Hub) Register(client *Client) {
	h.enqueue(hubOp{kind: opRegister, client: client})
}

// Unregister удаляет клиента из всех комнат.
func (h *Hub) Unregister(client *Client) {
	h.enqueue(hubOp{kind: opUnregister, client: client})
}

func (h *Hub) Join(room string, client *Client) {
	h.enqueue(hubOp{kind: opJoin, client: client, room: room})
}

// Leave убирает клиента из комнаты; личную комнату покинуть нельзя.
func (h *Hub) Leave(room string, client *Client) {
	h.enqueue(hubOp{kind: opLeave, client: client, room: room})
}

// Emit отправляет событие всем участникам комнаты.
func (h *Hub) Emit(room, event string, data interface{}) {
	if payload, ok := h.encode(event, data); ok {
		h.enqueue(hubOp{kind: opEmit, room: room, payload: payload})
	}
}

// EmitToUser отправляет событие во все подключения пользователя.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	h.Emit(UserRoom(userID), event, data)
}

// BroadcastAll отправляет событие всем подключённым клиентам.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	if payload, ok := h.encode(event, data); ok {
		h.enqueue(hubOp{kind: opBroadcast, payload: payload})
	}
}

// EmitToClient отправляет событие одному подключению.
func (h *Hub) EmitToClient(client *Client, event string, data interface{}) {
	if payload, ok := h.encode(event, data); ok {
		h.enqueue(hubOp{kind: opDirect, client: client, payload: payload})
	}
}

// RoomSize - число подключений в комнате.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Clients - число зарегистрированных подключений.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

func (h *Hub) enqueue(op hubOp) {
	select {
	case h.ops <- op:
	case <-h.done:
	}
}

func (h *Hub) encode(event string, data interface{}) ([]byte, bool) {
	// Сообщение для клиента строго следует контракту WebSocket API:
	// поле "type" содержит имя события, "data" - полезную нагрузку.
	raw, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": data,
	})
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"event": event,
			"error": err,
		}).Error("ws: failed to encode message")
		return nil, false
	}
	return raw, true
}

func (h *Hub) apply(op hubOp) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch op.kind {
	case opRegister:
		if _, ok := h.members[op.client]; ok {
			return
		}
		h.members[op.client] = make(map[string]struct{})
		h.joinLocked(UserRoom(op.client.userID), op.client)
	case opUnregister:
		h.dropLocked(op.client)
	case opJoin:
		h.joinLocked(op.room, op.client)
	case opLeave:
		if op.room != UserRoom(op.client.userID) {
			h.leaveLocked(op.room, op.client)
		}
	case opEmit:
		for c := range h.rooms[op.room] {
			h.deliverLocked(c, op.payload)
		}
	case opBroadcast:
		for c := range h.members {
			h.deliverLocked(c, op.payload)
		}
	case opDirect:
		if _, ok := h.members[op.client]; ok {
			h.deliverLocked(op.client, op.payload)
		}
	}
}

func (h *Hub) joinLocked(room string, c *Client) {
	joined, ok := h.members[c]
	if !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	joined[room] = struct{}{}
}

func (h *Hub) leaveLocked(room string, c *Client) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if joined, ok := h.members[c]; ok {
		delete(joined, room)
	}
}

// deliverLocked не блокирует цикл: клиент с переполненным буфером отключается.
func (h *Hub) deliverLocked(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.WithField("user_id", c.userID).Warn("ws: slow client dropped")
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	joined, ok := h.members[c]
	if !ok {
		return
	}
	for room := range joined {
		h.leaveLocked(room, c)
	}
	delete(h.members, c)
	close(c.send)
}

var errChatUnavailable = errors.New("чат недоступен")

func (h *Hub) authorize(ctx context.Context, reportID, userID uuid.UUID) error {
	if h.chat == nil {
		return errChatUnavailable
	}
	if err := h.chat.AuthorizeChat(ctx, reportID, userID); err != nil {
		return fmt.Errorf("authorize chat: %w", err)
	}
	return nil
}
