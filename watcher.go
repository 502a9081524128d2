package main

import "strings"

// handleWatcherEntry subscribes a read-only scoreboard watcher to a game. The
// watcher gets the current scoreboard immediately and then every update until
// it disconnects; anything it sends is ignored.
func (s *server) handleWatcherEntry(c *client, action *WatcherAction) {
	if action.Type != actionWatchGame {
		c.trySend(errorMessage("first action must be watchGame"))
		return
	}

	gameCode := strings.ToUpper(strings.TrimSpace(action.GameCode))

	s.games.mu.Lock()

	g, ok := s.games.games[gameCode]
	if !ok {
		s.games.mu.Unlock()
		c.trySend(errorMessage("Game code not found"))
		return
	}
	g.addWatcher(c)
	data := g.toScoreboardData()

	s.games.mu.Unlock()

	c.trySend(scoreboardDataMessage(data))
	logf(s.cfg, "WATCH: Watcher subscribed to game %s", gameCode)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}

	s.games.mu.Lock()
	if g, ok := s.games.games[gameCode]; ok {
		g.removeWatcher(c)
	}
	s.games.mu.Unlock()

	logf(s.cfg, "WATCH: Watcher left game %s", gameCode)
}
