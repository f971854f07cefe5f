package pages

import (
	"errors"
	"strings"
	"sync"
)

var ErrInFlight = errors.New("a previous submission is still in progress")

// Guard не даёт отправить форму повторно, пока предыдущая отправка того же
// ключа (форма + identity) не завершилась.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (g *Guard) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[key]; busy {
		return nil, ErrInFlight
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[key]
	return busy
}

// Do выполняет fn под ключом или сразу возвращает ErrInFlight.
func (g *Guard) Do(key string, fn func() error) error {
	release, err := g.Acquire(key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
