package gpio

import (
	"sync"
	"time"

	"github.com/ubxmodem/ubxmodem/internal/interfaces"
)

// MockPin is an in-memory interfaces.Pin for tests that don't have real
// hardware to drive.
type MockPin struct {
	mu       sync.Mutex
	dir      interfaces.Direction
	polarity interfaces.Polarity
	active   bool
	changed  chan struct{}
	closed   bool
}

// NewMockPin returns a pin whose asserted state starts as inactive.
func NewMockPin() *MockPin {
	return &MockPin{changed: make(chan struct{}, 1)}
}

func (p *MockPin) Configure(dir interfaces.Direction, polarity interfaces.Polarity, initialActive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dir = dir
	p.polarity = polarity
	p.active = initialActive
	return nil
}

func (p *MockPin) Set(active bool) error {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
	select {
	case p.changed <- struct{}{}:
	default:
	}
	return nil
}

func (p *MockPin) Get() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, nil
}

// SetFromTest lets a test drive the pin as if external hardware changed
// it; it does exactly what Set does.
func (p *MockPin) SetFromTest(active bool) {
	p.Set(active)
}

func (p *MockPin) WaitEdge(active bool, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		cur, _ := p.Get()
		if cur == active {
			return true, nil
		}
		var remaining time.Duration
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
		} else {
			remaining = time.Hour
		}
		select {
		case <-p.changed:
		case <-time.After(remaining):
			if timeout > 0 {
				return false, nil
			}
		}
	}
}

func (p *MockPin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
