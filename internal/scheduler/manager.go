// Package scheduler переводит принятые заявки в работу в момент визита.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/goroutine"
)

// ErrStopped возвращается из Schedule после Stop.
var ErrStopped = errors.New("scheduler: stopped")

// FireFunc вызывается, когда наступило время визита.
type FireFunc func(ctx context.Context, reportID uuid.UUID) error

type timerEntry struct {
	timer *time.Timer
	at    time.Time
	gen   uint64
}

// Manager - таймеры в памяти процесса, не больше одного на заявку.
type Manager struct {
	mu      sync.Mutex
	timers  map[uuid.UUID]*timerEntry
	gen     uint64
	stopped bool

	fire     FireFunc
	log      logrus.FieldLogger
	recovery *goroutine.RecoveryHandler
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(fire FireFunc, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		timers:   make(map[uuid.UUID]*timerEntry),
		fire:     fire,
		log:      log,
		recovery: goroutine.NewRecoveryHandler(log),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule взводит таймер, отменяя предыдущий для этой заявки.
// Время в прошлом срабатывает сразу.
func (m *Manager) Schedule(_ context.Context, reportID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	m.cancelLocked(reportID)

	delay := at.Sub(m.now())
	if delay < 0 {
		delay = 0
	}

	m.gen++
	gen := m.gen
	m.timers[reportID] = &timerEntry{
		at:    at,
		gen:   gen,
		timer: time.AfterFunc(delay, func() { m.run(reportID, gen) }),
	}

	m.log.WithFields(logrus.Fields{
		"report_id": reportID,
		"fire_at":   at,
	}).Debug("transition scheduled")
	return nil
}

func (m *Manager) Cancel(_ context.Context, reportID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(reportID)
	return nil
}

// Pending - число взведённых и ещё не сработавших таймеров.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// ScheduledAt возвращает время срабатывания таймера заявки.
func (m *Manager) ScheduledAt(reportID uuid.UUID) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.timers[reportID]
	if !ok {
		return time.Time{}, false
	}
	return e.at, true
}

// Stop отменяет все таймеры и ждёт завершения уже запущенных переходов.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	for id := range m.timers {
		m.cancelLocked(id)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.cancel()
}

func (m *Manager) cancelLocked(reportID uuid.UUID) {
	if e, ok := m.timers[reportID]; ok {
		e.timer.Stop()
		delete(m.timers, reportID)
	}
}

func (m *Manager) run(reportID uuid.UUID, gen uint64) {
	m.mu.Lock()
	e, ok := m.timers[reportID]
	if !ok || e.gen != gen || m.stopped {
		m.mu.Unlock()
		return
	}
	delete(m.timers, reportID)
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	m.recovery.Run("scheduled transition", func() {
		if err := m.fire(m.ctx, reportID); err != nil {
			m.log.WithFields(logrus.Fields{
				"report_id": reportID,
				"error":     err,
			}).Error("scheduled transition failed")
		}
	})
}
