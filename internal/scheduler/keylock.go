package scheduler

import (
	"sync"

	"github.com/Spok95/mod-bot/internal/domain/actions"
)

// keyLocks мьютекс на ключ (чат, пользователь, вид); записи удаляются,
// когда ими никто не пользуется.
type keyLocks struct {
	mu    sync.Mutex
	locks map[actions.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks { return &keyLocks{locks: make(map[actions.Key]*keyLock)} }

func (l *keyLocks) lock(k actions.Key) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[k]
	if !ok {
		kl = &keyLock{}
		l.locks[k] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, k)
		}
		l.mu.Unlock()
	}
}

func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
