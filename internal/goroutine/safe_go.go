package goroutine

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.Recover("goroutine")
		fn()
	}()
}

// Run выполняет fn в текущей горутине и превращает panic в запись в логе.
// Возвращает true, если fn завершилась без panic.
func (rh *RecoveryHandler) Run(where string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			rh.logger.Errorf("Panic in %s: %v\nStack trace:\n%s", where, r, debug.Stack())
			ok = false
		}
	}()
	fn()
	return true
}

// Recover предназначен для defer внутри уже запущенной горутины.
func (rh *RecoveryHandler) Recover(where string) {
	if r := recover(); r != nil {
		rh.logger.Errorf("Panic in %s: %v\nStack trace:\n%s", where, r, debug.Stack())
	}
}
