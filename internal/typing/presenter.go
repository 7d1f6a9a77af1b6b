// Package typing reveals an already-complete generated response one
// character at a time, simulating live typing. The reveal is purely a
// presentation concern and runs after the network call has settled.
package typing

import (
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultInterval matches the cadence the original client used between
// revealed characters.
const DefaultInterval = 30 * time.Millisecond

// Presenter runs at most one reveal per key (character id). Starting a new
// reveal for a key replaces the running one; a replaced or cancelled reveal
// never fires its OnComplete, so a message is committed at most once.
type Presenter struct {
	mu       sync.Mutex
	interval time.Duration
	active   map[string]*reveal
}

type reveal struct {
	cancel chan struct{}
	once   sync.Once
}

// NewPresenter creates a presenter. A non-positive interval falls back to
// DefaultInterval.
func NewPresenter(interval time.Duration) *Presenter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Presenter{
		interval: interval,
		active:   make(map[string]*reveal),
	}
}

// Reveal starts revealing fullText under the given key. onTick receives the
// accumulated prefix after every appended character; onComplete receives the
// full text exactly once, when the reveal finishes uncancelled.
func (p *Presenter) Reveal(key, fullText string, onTick func(partial string), onComplete func(full string)) {
	r := &reveal{cancel: make(chan struct{})}

	p.mu.Lock()
	if prev, ok := p.active[key]; ok {
		prev.stop()
	}
	p.active[key] = r
	p.mu.Unlock()

	go p.run(key, r, fullText, onTick, onComplete)
}

// Cancel stops the running reveal for key, if any, without completing it.
func (p *Presenter) Cancel(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.active[key]; ok {
		r.stop()
		delete(p.active, key)
	}
}

// Active reports whether a reveal is currently running for key.
func (p *Presenter) Active(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[key]
	return ok
}

func (r *reveal) stop() {
	r.once.Do(func() { close(r.cancel) })
}

func (p *Presenter) run(key string, r *reveal, fullText string, onTick func(string), onComplete func(string)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	revealed := 0
	for revealed < len(fullText) {
		select {
		case <-r.cancel:
			return
		case <-ticker.C:
			_, size := utf8.DecodeRuneInString(fullText[revealed:])
			revealed += size
			if onTick != nil {
				onTick(fullText[:revealed])
			}
		}
	}

	p.mu.Lock()
	// Another reveal may have replaced this one between the last tick and
	// now; only the current holder may complete and clear the slot.
	if p.active[key] == r {
		delete(p.active, key)
	}
	p.mu.Unlock()

	select {
	case <-r.cancel:
		return
	default:
	}

	if onComplete != nil {
		onComplete(fullText)
	}
}
