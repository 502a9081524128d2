package main

import (
	"sync"
	"time"
)

// ShutdownTimer ends the process after the server has been without a host for
// the configured duration. Started when the last host disconnects, cancelled
// when any host arrives.
type ShutdownTimer struct {
	mu       sync.Mutex
	duration time.Duration
	signal   chan<- struct{}
	pending  *time.Timer
}

func newShutdownTimer(duration time.Duration, signal chan<- struct{}) *ShutdownTimer {
	return &ShutdownTimer{
		duration: duration,
		signal:   signal,
	}
}

// Start arms the countdown. A no-op when already armed.
func (s *ShutdownTimer) Start(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return
	}

	logf(cfg, "IDLE: No hosts connected, shutting down in %s", s.duration)

	s.pending = time.AfterFunc(s.duration, func() {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	})
}

// Cancel disarms a pending countdown, if any.
func (s *ShutdownTimer) Cancel(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return
	}

	s.pending.Stop()
	s.pending = nil

	logf(cfg, "IDLE: Host connected, shutdown cancelled")
}
