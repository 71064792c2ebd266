package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/goroutine"
)

const defaultQueueSize = 256

type envelope struct {
	ctx   context.Context
	event Event
}

// InMemoryBus доставляет события подписчикам в порядке публикации через
// единственный диспетчер. При переполненной очереди событие обрабатывается
// в отдельной горутине, и порядок для него не гарантируется.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	queue    chan envelope
	closeMu  sync.RWMutex
	closed   bool
	stopped  chan struct{}
	runOnce  sync.Once
	recovery *goroutine.RecoveryHandler
	log      logrus.FieldLogger
}

// NewInMemoryBus создаёт шину; queueSize <= 0 означает размер по умолчанию.
func NewInMemoryBus(log logrus.FieldLogger, queueSize int) *InMemoryBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		queue:    make(chan envelope, queueSize),
		stopped:  make(chan struct{}),
		recovery: goroutine.NewRecoveryHandler(log),
		log:      log,
	}
}

var _ Bus = (*InMemoryBus)(nil)

func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish ставит событие в очередь и сразу возвращается.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	env := envelope{ctx: context.WithoutCancel(ctx), event: event}

	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		b.log.WithField("event", event.EventName()).Warn("event bus closed, event dropped")
		return
	}

	select {
	case b.queue <- env:
	default:
		b.log.WithField("event", event.EventName()).Warn("event queue full, dispatching out of order")
		b.recovery.SafeGo(func() { b.dispatch(env) })
	}
}

// PublishSync вызывает обработчики в текущей горутине и собирает их ошибки.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.handlersFor(event.EventName()) {
		var err error
		ok := b.recovery.Run("event handler "+event.EventName(), func() {
			err = h.Handle(ctx, event)
		})
		if !ok {
			err = fmt.Errorf("handler for %s panicked", event.EventName())
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run обрабатывает очередь до Close или отмены ctx. Повторный вызов не делает ничего.
func (b *InMemoryBus) Run(ctx context.Context) {
	started := false
	b.runOnce.Do(func() { started = true })
	if !started {
		return
	}
	defer close(b.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-b.queue:
			if !ok {
				return
			}
			b.dispatch(env)
		}
	}
}

// Close прекращает приём событий и ждёт, пока очередь будет разобрана.
// Если Run так и не был запущен, очередь разбирается прямо здесь.
func (b *InMemoryBus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.closeMu.Unlock()

	drainHere := false
	b.runOnce.Do(func() { drainHere = true })
	if !drainHere {
		<-b.stopped
		return
	}
	for env := range b.queue {
		b.dispatch(env)
	}
	close(b.stopped)
}

func (b *InMemoryBus) dispatch(env envelope) {
	name := env.event.EventName()
	for _, h := range b.handlersFor(name) {
		var err error
		b.recovery.Run("event handler "+name, func() {
			err = h.Handle(env.ctx, env.event)
		})
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"event": name,
				"error": err,
			}).Warn("event handler failed")
		}
	}
}

func (b *InMemoryBus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.handlers[name]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}
