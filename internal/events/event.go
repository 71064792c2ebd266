// Package events - шина доменных событий внутри процесса.
// Мутации заявок публикуют события, а побочные эффекты (рассылка по сокетам,
// письма, таймеры, кэш) подписываются на них и не влияют на исход операции.
package events

import (
	"context"
	"time"
)

// Event - общий интерфейс всех доменных событий.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent содержит общие поля событий.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent создаёт BaseEvent с заданным временем.
func NewBaseEvent(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at}
}

// Handler обрабатывает события одного типа.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc позволяет использовать обычную функцию как Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Publisher - сторона, которая только публикует события (usecase-слой).
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus - публикация и подписка.
type Bus interface {
	Publisher
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
