package playback

import (
	"sync"
	"time"

	"github.com/desertthunder/ytloop/internal/shared"
)

// Poller runs a progress poll on a [shared.Clock] while started.
type Poller struct {
	mu       sync.Mutex
	clock    shared.Clock
	fn       func()
	interval time.Duration
	periodic *shared.Periodic
}

// NewPoller creates a stopped poller that calls fn on every tick.
func NewPoller(clock shared.Clock, fn func()) *Poller {
	return &Poller{clock: clock, fn: fn}
}

// Start begins polling at interval. A running poller with a different interval is restarted.
func (p *Poller) Start(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.periodic != nil && !p.periodic.Stopped() {
		if p.interval == interval {
			return
		}
		p.periodic.Stop()
	}
	p.interval = interval
	p.periodic = shared.Every(p.clock, interval, p.fn)
}

// Stop ends polling.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.periodic.Stop()
	p.periodic = nil
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.periodic != nil && !p.periodic.Stopped()
}

// Interval returns the interval of the running poll.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}
