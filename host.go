package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// handleHostEntry establishes a host session. The first action must be
// createGame; the game code in it selects create, reclaim, or restore from a
// snapshot. On success the host enters its command loop until disconnect.
func (s *server) handleHostEntry(c *client, auth *AuthResult, action *HostAction) {
	if auth == nil {
		c.trySend(errorMessage("authentication required for host actions"))
		return
	}
	if !auth.IsHost {
		c.trySend(errorMessage("user is not authorized as a host"))
		return
	}
	if action.Type != actionCreateGame {
		c.trySend(errorMessage("first action must be createGame"))
		return
	}

	s.idle.Cancel(s.cfg)

	gameCode := strings.ToUpper(strings.TrimSpace(action.GameCode))

	s.games.mu.Lock()

	if gameCode == "" {
		gameCode = s.games.generateCode()
	}

	g, exists := s.games.games[gameCode]
	switch {
	case exists && g.host != nil:
		s.games.mu.Unlock()
		c.trySend(errorMessage(fmt.Sprintf("game '%s' already has an active host", gameCode)))
		return

	case exists && g.HostUserID != auth.UserID:
		s.games.mu.Unlock()
		c.trySend(errorMessage(fmt.Sprintf("game code '%s' already exists", gameCode)))
		return

	case exists:
		// Reclaim: the host dropped and came back while the game stayed live.
		g.setHost(c)
		state := g.toGameState()
		s.games.mu.Unlock()
		c.trySend(gameStateMessage(state))
		logf(s.cfg, "HOST: %s reclaimed game %s", auth.UserID, gameCode)

	default:
		// No live game. Check for a snapshot before creating fresh; the store
		// may block, so drop the lock around the load.
		s.games.mu.Unlock()

		saved, err := s.store.LoadGameState(auth.UserID, gameCode)
		if err != nil {
			c.trySend(errorMessage(err.Error()))
			return
		}

		s.games.mu.Lock()
		if existing, ok := s.games.games[gameCode]; ok {
			// Someone else created this code while we were loading.
			s.games.mu.Unlock()
			if existing.HostUserID == auth.UserID {
				c.trySend(errorMessage(fmt.Sprintf("game '%s' already has an active host", gameCode)))
			} else {
				c.trySend(errorMessage(fmt.Sprintf("game code '%s' already exists", gameCode)))
			}
			return
		}

		if saved != nil {
			g = newGameFromState(auth.UserID, gameCode, c, saved)
			logf(s.cfg, "HOST: %s restored game %s from snapshot", auth.UserID, gameCode)
		} else {
			g = newGame(gameCode, auth.UserID, c)
			logf(s.cfg, "HOST: %s created game %s", auth.UserID, gameCode)
		}
		s.games.games[gameCode] = g
		state := g.toGameState()
		s.games.mu.Unlock()

		c.trySend(gameStateMessage(state))
	}

	s.hostLoop(c, auth, gameCode)
}

// hostLoop runs the host's command stream until the connection dies, then
// detaches the host and snapshots the game in the background.
func (s *server) hostLoop(c *client, auth *AuthResult, gameCode string) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		s.processHostMessage(c, gameCode, raw)
	}

	s.games.mu.Lock()
	g, ok := s.games.games[gameCode]
	var state *GameState
	if ok && g.host == c {
		g.clearHost()
		snapshot := g.toGameState()
		state = &snapshot
	}
	s.games.mu.Unlock()

	if state != nil {
		logf(s.cfg, "HOST: %s disconnected from game %s", auth.UserID, gameCode)
		go func() {
			if err := s.store.SaveGameState(auth.UserID, gameCode, state); err != nil {
				logf(s.cfg, "STORE: Failed to save game %s on disconnect: %v", gameCode, err)
			}
		}()
	}
}

// processHostMessage applies one host command under the lock, then delivers
// the resulting broadcast. Errors go back to the host alone; every successful
// mutation fans the new state out to everybody.
func (s *server) processHostMessage(c *client, gameCode string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Host == nil {
		c.trySend(errorMessage("expected a host action"))
		return
	}
	action := msg.Host

	s.games.mu.Lock()

	g, ok := s.games.games[gameCode]
	if !ok || g.host != c {
		s.games.mu.Unlock()
		c.trySend(errorMessage("game no longer exists"))
		return
	}

	persist, err := s.applyHostAction(g, action)
	if err != nil {
		s.games.mu.Unlock()
		c.trySend(errorMessage(err.Error()))
		return
	}

	plan := g.broadcastAll()
	var snapshot *GameState
	if persist {
		snap := g.toGameState()
		snapshot = &snap
	}
	hostUserID := g.HostUserID

	s.games.mu.Unlock()

	plan.deliver()

	if snapshot != nil {
		if err := s.store.SaveGameState(hostUserID, gameCode, snapshot); err != nil {
			c.trySend(errorMessage(fmt.Sprintf("failed to save game state: %v", err)))
		}
	}
}

// applyHostAction mutates the game for one command. Caller holds the lock.
// The bool result requests a snapshot save after the broadcast.
func (s *server) applyHostAction(g *Game, action *HostAction) (bool, error) {
	switch action.Type {
	case actionCreateGame:
		return false, errors.New("game already created")

	case actionStartTimer:
		startGameTimer(s.games, s.cfg, g)
		return false, nil

	case actionPauseTimer:
		pauseGameTimer(g)
		return false, nil

	case actionResetTimer:
		resetGameTimer(g)
		return false, nil

	case actionNextQuestion:
		g.nextQuestion()
		return true, nil

	case actionPrevQuestion:
		if err := g.prevQuestion(); err != nil {
			return false, err
		}
		return true, nil

	case actionScoreAnswer:
		if action.Score == nil {
			return false, errors.New("scoreAnswer requires a score")
		}
		if !g.scoreAnswer(action.QuestionNumber, action.TeamName, *action.Score) {
			return false, fmt.Errorf("failed to score answer for team %q", action.TeamName)
		}
		return false, nil

	case actionOverrideTeamScore:
		if !g.overrideTeamScore(action.TeamName, action.OverridePoints) {
			return false, fmt.Errorf("team %q not found", action.TeamName)
		}
		return false, nil

	case actionUpdateGameSettings:
		settings := GameSettings{
			DefaultTimerDuration:       action.DefaultTimerDuration,
			DefaultQuestionPoints:      action.DefaultQuestionPoints,
			DefaultBonusIncrement:      action.DefaultBonusIncrement,
			DefaultQuestionType:        action.DefaultQuestionType,
			DefaultMcConfig:            defaultMcConfig(),
			SpeedBonusEnabled:          action.SpeedBonusEnabled,
			SpeedBonusNumTeams:         action.SpeedBonusNumTeams,
			SpeedBonusFirstPlacePoints: action.SpeedBonusFirstPlacePoints,
		}
		if action.DefaultMcConfig != nil {
			settings.DefaultMcConfig = action.DefaultMcConfig.clone()
		}
		g.updateGameSettings(settings)
		return false, nil

	case actionUpdateQuestionSettings:
		kind := action.QuestionType
		if kind == "" {
			kind = QuestionStandard
		}
		err := g.updateQuestionSettings(
			action.QuestionNumber,
			action.TimerDuration,
			action.QuestionPoints,
			action.BonusIncrement,
			kind,
			action.SpeedBonusEnabled,
		)
		return false, err

	case actionUpdateTypeSpecificSettings:
		if action.QuestionConfig == nil {
			return false, errors.New("updateTypeSpecificSettings requires a questionConfig")
		}
		return false, g.updateTypeSpecificSettings(action.QuestionNumber, *action.QuestionConfig)

	default:
		return false, fmt.Errorf("unknown host action: %s", action.Type)
	}
}
