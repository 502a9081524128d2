package main

import (
	"sync"
	"time"
)

// timerTask is the handle for one running countdown goroutine. Cancelling it
// is idempotent; the game's timerTask pointer doubles as the staleness check
// so a superseded task that misses the stop signal still exits on its next
// tick.
type timerTask struct {
	stop chan struct{}
	once sync.Once
}

func newTimerTask() *timerTask {
	return &timerTask{stop: make(chan struct{})}
}

func (t *timerTask) cancel() {
	t.once.Do(func() { close(t.stop) })
}

// startGameTimer opens submissions and spawns the tick goroutine. Starting
// while already running restarts cleanly. Caller holds the registry lock.
func startGameTimer(reg *Registry, cfg *Config, g *Game) {
	g.stopTimer()

	if g.TimerSecondsRemaining <= 0 {
		g.TimerSecondsRemaining = g.currentQuestion().TimerDuration
	}

	g.TimerRunning = true
	g.timerTask = newTimerTask()

	go runGameTimer(reg, cfg, g.GameCode, g.timerTask)
}

// pauseGameTimer closes submissions and keeps the remaining seconds. Caller
// holds the registry lock.
func pauseGameTimer(g *Game) {
	g.stopTimer()
}

// resetGameTimer closes submissions and reseeds the countdown from the current
// question. Caller holds the registry lock.
func resetGameTimer(g *Game) {
	g.stopTimer()
	g.TimerSecondsRemaining = g.currentQuestion().TimerDuration
}

// runGameTimer decrements the countdown once per second. Every tick re-looks
// the game up under the lock and verifies it is still the active task, so a
// game that was deleted, paused, or restarted just ends the goroutine.
func runGameTimer(reg *Registry, cfg *Config, gameCode string, task *timerTask) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-task.stop:
			return
		case <-ticker.C:
		}

		reg.mu.Lock()

		g, ok := reg.games[gameCode]
		if !ok || !g.TimerRunning || g.timerTask != task {
			reg.mu.Unlock()
			return
		}
		if g.TimerSecondsRemaining <= 0 {
			// Shouldn't happen; expiry clears the task below.
			logf(cfg, "TIMER: %s ticked with no time remaining", gameCode)
			g.TimerRunning = false
			g.timerTask = nil
			reg.mu.Unlock()
			return
		}

		g.TimerSecondsRemaining--

		var plan fanout
		expired := g.TimerSecondsRemaining == 0
		if expired {
			g.TimerRunning = false
			g.timerTask = nil
			plan = g.broadcastAll()
			logf(cfg, "TIMER: %s expired", gameCode)
		} else {
			plan = g.broadcastTimerTick(g.TimerSecondsRemaining)
		}

		reg.mu.Unlock()

		plan.deliver()

		if expired {
			return
		}
	}
}
