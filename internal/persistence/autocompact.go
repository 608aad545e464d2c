package persistence

import (
	"sync"
	"time"
)

// MinAutocompactionInterval is the shortest interval an Autocompactor will
// accept: compaction rewrites the whole datafile, so running
// it too often would make writes pay its cost constantly.
const MinAutocompactionInterval = 5 * time.Second

// Autocompactor runs a compaction function on a fixed interval until
// stopped.
type Autocompactor struct {
	interval time.Duration
	run      func() error
	onError  func(error)

	mu     sync.Mutex
	ticker *time.Ticker
	stopCh chan struct{}
}

// NewAutocompactor creates an Autocompactor. interval below
// MinAutocompactionInterval is rejected.
func NewAutocompactor(interval time.Duration, run func() error, onError func(error)) (*Autocompactor, error) {
	if interval < MinAutocompactionInterval {
		return nil, &ErrInvalidOptions{Reason: "autocompaction interval must be at least 5 seconds"}
	}
	return &Autocompactor{interval: interval, run: run, onError: onError}, nil
}

// Start begins running the compaction function every interval. Calling
// Start while already running is a no-op.
func (a *Autocompactor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ticker != nil {
		return
	}
	a.ticker = time.NewTicker(a.interval)
	a.stopCh = make(chan struct{})

	ticker, stopCh := a.ticker, a.stopCh
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := a.run(); err != nil && a.onError != nil {
					a.onError(err)
				}
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop halts the autocompaction goroutine. Calling Stop when not running
// is a no-op.
func (a *Autocompactor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ticker == nil {
		return
	}
	a.ticker.Stop()
	close(a.stopCh)
	a.ticker = nil
	a.stopCh = nil
}
