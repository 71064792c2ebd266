package report

import (
	"sync"

	"github.com/google/uuid"
)

// Locker - мьютекс с ключом по идентификатору заявки. Все изменяющие
// операции над одной заявкой выполняются последовательно.
type Locker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[uuid.UUID]*keyLock)}
}

// Lock захватывает заявку и возвращает функцию освобождения.
func (l *Locker) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[id]
	if !ok {
		kl = &keyLock{}
		l.locks[id] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// Size - число ключей, по которым есть захват или ожидание.
func (l *Locker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
