package main

import (
	"encoding/json"
	"strings"
)

// handleTeamEntry runs the two-step team join: validateJoin checks the game
// code and name availability, joinGame commits the team with its color and
// roster. A team that already exists but is disconnected skips straight in on
// validateJoin.
func (s *server) handleTeamEntry(c *client, action *TeamAction) {
	if action.Type != actionValidateJoin {
		c.trySend(errorMessage("first action must be validateJoin"))
		return
	}

	gameCode := strings.ToUpper(strings.TrimSpace(action.GameCode))
	teamName := strings.TrimSpace(action.TeamName)
	if teamName == "" {
		c.trySend(errorMessage("Team name is required"))
		return
	}

	s.games.mu.Lock()

	g, ok := s.games.games[gameCode]
	if !ok {
		s.games.mu.Unlock()
		c.trySend(errorMessage("Game code not found"))
		return
	}

	if team := g.findTeam(teamName); team != nil {
		if team.Connected {
			s.games.mu.Unlock()
			c.trySend(errorMessage("Team name already in use"))
			return
		}

		// Rejoin: reattach to the existing team, keeping score and color.
		g.rejoinTeam(teamName, c)
		plan := s.teamJoinedFanout(g, c, teamName)
		s.games.mu.Unlock()

		plan.deliver()
		logf(s.cfg, "TEAM: %s rejoined game %s", teamName, gameCode)
		s.teamLoop(c, gameCode, teamName)
		return
	}

	s.games.mu.Unlock()

	c.trySend(joinValidatedMessage())

	var msg ClientMessage
	if err := c.conn.ReadJSON(&msg); err != nil {
		return
	}
	join := msg.Team
	if join == nil || join.Type != actionJoinGame {
		c.trySend(errorMessage("expected a joinGame action"))
		return
	}

	s.games.mu.Lock()

	g, ok = s.games.games[gameCode]
	if !ok {
		s.games.mu.Unlock()
		c.trySend(errorMessage("Game code not found"))
		return
	}
	if team := g.findTeam(teamName); team != nil && team.Connected {
		s.games.mu.Unlock()
		c.trySend(errorMessage("Team name already in use"))
		return
	}

	color := TeamColor{HexCode: join.ColorHex, Name: join.ColorName}
	g.addTeam(teamName, c, color, join.TeamMembers)
	plan := s.teamJoinedFanout(g, c, teamName)

	s.games.mu.Unlock()

	plan.deliver()
	logf(s.cfg, "TEAM: %s joined game %s", teamName, gameCode)
	s.teamLoop(c, gameCode, teamName)
}

// teamJoinedFanout is the delivery plan after a team joins or rejoins: their
// own view to the new connection, plus the usual host and watcher updates.
// Caller holds the lock.
func (s *server) teamJoinedFanout(g *Game, c *client, teamName string) fanout {
	var f fanout
	if state := g.toTeamGameState(teamName); state != nil {
		f.add(c, teamGameStateMessage(*state))
	}
	if g.host != nil {
		f.add(g.host, gameStateMessage(g.toGameState()))
	}
	return append(f, g.broadcastScoreboard()...)
}

// teamLoop handles the team's messages until disconnect, then marks the team
// disconnected and tells the host and watchers.
func (s *server) teamLoop(c *client, gameCode, teamName string) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		s.processTeamMessage(c, gameCode, teamName, raw)
	}

	s.games.mu.Lock()

	var plan fanout
	if g, ok := s.games.games[gameCode]; ok && g.teams[teamKey(teamName)] == c {
		g.setTeamConnected(teamName, false)
		g.clearTeamConn(teamName)
		if g.host != nil {
			plan.add(g.host, gameStateMessage(g.toGameState()))
		}
		plan = append(plan, g.broadcastScoreboard()...)
	}

	s.games.mu.Unlock()

	plan.deliver()
	logf(s.cfg, "TEAM: %s disconnected from game %s", teamName, gameCode)
}

func (s *server) processTeamMessage(c *client, gameCode, teamName string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Team == nil {
		c.trySend(errorMessage("expected a team action"))
		return
	}
	action := msg.Team

	switch action.Type {
	case actionSubmitAnswer:
		s.games.mu.Lock()

		g, ok := s.games.games[gameCode]
		if !ok {
			s.games.mu.Unlock()
			c.trySend(errorMessage("game no longer exists"))
			return
		}
		if !g.TimerRunning {
			s.games.mu.Unlock()
			c.trySend(errorMessage("Submissions are closed"))
			return
		}
		if err := g.addAnswer(teamName, action.Answer); err != nil {
			s.games.mu.Unlock()
			c.trySend(errorMessage(err.Error()))
			return
		}

		plan := g.broadcastAll()
		s.games.mu.Unlock()

		plan.deliver()

	case actionValidateJoin, actionJoinGame:
		c.trySend(errorMessage("Game already joined"))

	default:
		c.trySend(errorMessage("unknown team action: " + action.Type))
	}
}
