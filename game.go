package main

import (
	"errors"
	"fmt"
	"strings"
)

// Game is the authoritative in-memory state of one running quiz plus the live
// send channels for everyone connected to it. All access happens under the
// registry lock; Game itself has no locking.
type Game struct {
	GameCode   string
	HostUserID string

	CurrentQuestionNumber int // 1-based
	TimerRunning          bool
	TimerSecondsRemaining int
	Teams                 []TeamData
	Questions             []Question
	Settings              GameSettings

	host     *client
	teams    map[string]*client // lowercased team name -> connection
	watchers map[*client]struct{}

	timerTask *timerTask
}

func newGame(gameCode, hostUserID string, host *client) *Game {
	settings := defaultGameSettings()

	g := &Game{
		GameCode:              gameCode,
		HostUserID:            hostUserID,
		CurrentQuestionNumber: 1,
		TimerSecondsRemaining: settings.DefaultTimerDuration,
		Settings:              settings,
		host:                  host,
		teams:                 make(map[string]*client),
		watchers:              make(map[*client]struct{}),
	}
	g.Questions = []Question{g.questionFromSettings()}

	return g
}

// newGameFromState reconstructs a game from a persisted snapshot. No timer
// task exists for a restored game, so the timer always comes back stopped, and
// every team starts disconnected until it rejoins.
func newGameFromState(hostUserID, gameCode string, host *client, state *GameState) *Game {
	g := &Game{
		GameCode:              gameCode,
		HostUserID:            hostUserID,
		CurrentQuestionNumber: state.CurrentQuestionNumber,
		TimerSecondsRemaining: state.TimerSecondsRemaining,
		Teams:                 make([]TeamData, len(state.Teams)),
		Questions:             make([]Question, len(state.Questions)),
		Settings:              state.GameSettings.clone(),
		host:                  host,
		teams:                 make(map[string]*client),
		watchers:              make(map[*client]struct{}),
	}
	for i := range state.Teams {
		g.Teams[i] = state.Teams[i].clone()
		g.Teams[i].Connected = false
	}
	for i := range state.Questions {
		g.Questions[i] = state.Questions[i].clone()
	}
	if len(g.Questions) == 0 {
		g.Questions = []Question{g.questionFromSettings()}
	}
	if g.CurrentQuestionNumber < 1 || g.CurrentQuestionNumber > len(g.Questions) {
		g.CurrentQuestionNumber = 1
	}

	return g
}

// teamKey normalizes a team name for lookups. Team names are case-insensitive
// everywhere in the system.
func teamKey(teamName string) string {
	return strings.ToLower(teamName)
}

func (g *Game) findTeam(teamName string) *TeamData {
	for i := range g.Teams {
		if strings.EqualFold(g.Teams[i].TeamName, teamName) {
			return &g.Teams[i]
		}
	}
	return nil
}

func (g *Game) answerFor(q *Question, teamName string) *TeamQuestion {
	for i := range q.Answers {
		if strings.EqualFold(q.Answers[i].TeamName, teamName) {
			return &q.Answers[i]
		}
	}
	return nil
}

// === Connection channels ===

func (g *Game) setHost(c *client) {
	g.host = c
}

func (g *Game) clearHost() {
	g.host = nil
}

// addTeam registers a team connection. An existing name (case-insensitive) is
// treated as a reconnect: color and members are refreshed, the score survives.
func (g *Game) addTeam(teamName string, c *client, color TeamColor, members []string) {
	g.teams[teamKey(teamName)] = c

	if team := g.findTeam(teamName); team != nil {
		team.Connected = true
		team.TeamMembers = members
		team.TeamColor = color
		return
	}

	g.Teams = append(g.Teams, TeamData{
		TeamName:    teamName,
		TeamMembers: members,
		TeamColor:   color,
		Connected:   true,
	})
}

// rejoinTeam re-attaches a connection to an existing team, preserving color
// and members from the original join. Returns false if the team is unknown.
func (g *Game) rejoinTeam(teamName string, c *client) bool {
	team := g.findTeam(teamName)
	if team == nil {
		return false
	}
	g.teams[teamKey(teamName)] = c
	team.Connected = true
	return true
}

func (g *Game) setTeamConnected(teamName string, connected bool) bool {
	team := g.findTeam(teamName)
	if team == nil {
		return false
	}
	team.Connected = connected
	return true
}

func (g *Game) clearTeamConn(teamName string) {
	delete(g.teams, teamKey(teamName))
}

func (g *Game) addWatcher(c *client) {
	g.watchers[c] = struct{}{}
}

func (g *Game) removeWatcher(c *client) {
	delete(g.watchers, c)
}

// === Question navigation ===

func (g *Game) currentQuestion() *Question {
	return &g.Questions[g.CurrentQuestionNumber-1]
}

func (g *Game) questionFromSettings() Question {
	return Question{
		TimerDuration:     g.Settings.DefaultTimerDuration,
		QuestionPoints:    g.Settings.DefaultQuestionPoints,
		BonusIncrement:    g.Settings.DefaultBonusIncrement,
		SpeedBonusEnabled: g.Settings.SpeedBonusEnabled,
		QuestionKind:      g.Settings.DefaultQuestionType,
		QuestionConfig:    configForKind(g.Settings.DefaultQuestionType, g.Settings.DefaultMcConfig),
	}
}

// stopTimer cancels any running tick task and closes submissions. The
// remaining seconds are left alone.
func (g *Game) stopTimer() {
	if g.timerTask != nil {
		g.timerTask.cancel()
		g.timerTask = nil
	}
	g.TimerRunning = false
}

// nextQuestion advances to the next question, appending a fresh one built from
// the game settings when navigating past the end.
func (g *Game) nextQuestion() {
	g.stopTimer()
	g.CurrentQuestionNumber++
	if g.CurrentQuestionNumber > len(g.Questions) {
		g.Questions = append(g.Questions, g.questionFromSettings())
	}
	g.TimerSecondsRemaining = g.currentQuestion().TimerDuration
}

func (g *Game) prevQuestion() error {
	if g.CurrentQuestionNumber <= 1 {
		return errors.New("already at the first question")
	}
	g.stopTimer()
	g.CurrentQuestionNumber--
	g.TimerSecondsRemaining = g.currentQuestion().TimerDuration
	return nil
}

// === Answer submission ===

// normalizeAnswerKey reduces answer content to the key used for equivalence
// matching: trimmed, lowercased text. Multi-answer content has no key and is
// never eligible for auto-scoring.
func normalizeAnswerKey(content *AnswerContent) (string, bool) {
	if content == nil {
		return "", false
	}
	switch content.Type {
	case QuestionStandard:
		return strings.ToLower(strings.TrimSpace(content.AnswerText)), true
	case QuestionMultipleChoice:
		return strings.ToLower(strings.TrimSpace(content.Selected)), true
	default:
		return "", false
	}
}

var (
	errAlreadySubmitted   = errors.New("answer already submitted")
	errKindNotSubmittable = errors.New("this question type does not accept answers")
)

// addAnswer records a team's submission on the current question. The caller
// has already checked that submissions are open. If the text matches an
// existing answer that was scored fully correct, the new answer inherits that
// answer's question points and bonus points.
func (g *Game) addAnswer(teamName, answer string) error {
	q := g.currentQuestion()

	if g.answerFor(q, teamName) != nil {
		return errAlreadySubmitted
	}

	var content *AnswerContent
	switch q.QuestionKind {
	case QuestionStandard:
		content = &AnswerContent{Type: QuestionStandard, AnswerText: answer}
	case QuestionMultipleChoice:
		content = &AnswerContent{Type: QuestionMultipleChoice, Selected: answer}
	default:
		return errKindNotSubmittable
	}

	var score ScoreData
	autoScored := false
	if key, ok := normalizeAnswerKey(content); ok {
		for i := range q.Answers {
			existing := &q.Answers[i]
			if existing.Score.QuestionPoints != q.QuestionPoints {
				continue
			}
			existingKey, ok := normalizeAnswerKey(existing.Content)
			if !ok || existingKey != key {
				continue
			}
			score.QuestionPoints = q.QuestionPoints
			score.BonusPoints = existing.Score.BonusPoints
			autoScored = true
			break
		}
	}

	q.Answers = append(q.Answers, TeamQuestion{
		TeamName:       teamName,
		Score:          score,
		Content:        content,
		QuestionKind:   q.QuestionKind,
		QuestionConfig: q.QuestionConfig.clone(),
	})

	if autoScored {
		changed := g.recomputeSpeedBonuses(q)
		g.recalculateTeamScores(append(changed, teamName))
	}

	return nil
}

// === Scoring ===

// scoreAnswer writes the target answer's question and bonus points, then
// propagates them to every other answer on the question whose normalized text
// matches. This covers both marking correct and clearing back to zero. Speed
// bonuses and the affected teams' aggregates are recomputed afterwards.
func (g *Game) scoreAnswer(questionNumber int, teamName string, score ScoreData) bool {
	if questionNumber < 1 || questionNumber > len(g.Questions) {
		return false
	}
	q := &g.Questions[questionNumber-1]

	target := g.answerFor(q, teamName)
	if target == nil {
		return false
	}

	target.Score.QuestionPoints = score.QuestionPoints
	target.Score.BonusPoints = score.BonusPoints
	affected := []string{target.TeamName}

	if key, ok := normalizeAnswerKey(target.Content); ok {
		for i := range q.Answers {
			other := &q.Answers[i]
			if other == target {
				continue
			}
			otherKey, ok := normalizeAnswerKey(other.Content)
			if !ok || otherKey != key {
				continue
			}
			if other.Score.QuestionPoints == score.QuestionPoints && other.Score.BonusPoints == score.BonusPoints {
				continue
			}
			other.Score.QuestionPoints = score.QuestionPoints
			other.Score.BonusPoints = score.BonusPoints
			affected = append(affected, other.TeamName)
		}
	}

	affected = append(affected, g.recomputeSpeedBonuses(q)...)
	g.recalculateTeamScores(affected)

	return true
}

func (g *Game) clearAnswerScore(questionNumber int, teamName string) bool {
	return g.scoreAnswer(questionNumber, teamName, ScoreData{})
}

// overrideTeamScore sets the team's manual adjustment. It is independent of
// answer scoring and triggers no recomputation.
func (g *Game) overrideTeamScore(teamName string, overridePoints int) bool {
	team := g.findTeam(teamName)
	if team == nil {
		return false
	}
	team.Score.OverridePoints = overridePoints
	return true
}

// recomputeSpeedBonuses rewrites every answer's speed bonus on one question
// from submission order. Placement counts only answers with positive question
// points; the settings' team count and first-place points are read at call
// time. Returns the names of teams whose bonus changed.
func (g *Game) recomputeSpeedBonuses(q *Question) []string {
	var changed []string

	numTeams := g.Settings.SpeedBonusNumTeams
	place := 0
	for i := range q.Answers {
		a := &q.Answers[i]
		bonus := 0
		if q.SpeedBonusEnabled && a.Score.QuestionPoints > 0 {
			if place < numTeams && numTeams > 0 {
				bonus = g.Settings.SpeedBonusFirstPlacePoints * (numTeams - place) / numTeams
			}
			place++
		}
		if a.Score.SpeedBonusPoints != bonus {
			a.Score.SpeedBonusPoints = bonus
			changed = append(changed, a.TeamName)
		}
	}

	return changed
}

// recalculateTeamScores rebuilds the aggregate score for each named team by
// summing that team's answers across all questions. Override points are left
// untouched. Duplicate names in the list are harmless.
func (g *Game) recalculateTeamScores(teamNames []string) {
	for _, name := range teamNames {
		team := g.findTeam(name)
		if team == nil {
			continue
		}
		var questionPoints, bonusPoints, speedBonusPoints int
		for i := range g.Questions {
			if a := g.answerFor(&g.Questions[i], name); a != nil {
				questionPoints += a.Score.QuestionPoints
				bonusPoints += a.Score.BonusPoints
				speedBonusPoints += a.Score.SpeedBonusPoints
			}
		}
		team.Score.QuestionPoints = questionPoints
		team.Score.BonusPoints = bonusPoints
		team.Score.SpeedBonusPoints = speedBonusPoints
	}
}

// === Settings ===

// updateGameSettings replaces the game settings and applies the new defaults
// to every question that has no answers yet. When the current question is
// still unanswered and the timer isn't running, the visible countdown resets
// to the new default too.
func (g *Game) updateGameSettings(settings GameSettings) {
	g.Settings = settings.clone()

	defaultConfig := configForKind(settings.DefaultQuestionType, settings.DefaultMcConfig)
	for i := range g.Questions {
		q := &g.Questions[i]
		if q.hasAnswers() {
			continue
		}
		q.TimerDuration = settings.DefaultTimerDuration
		q.QuestionPoints = settings.DefaultQuestionPoints
		q.BonusIncrement = settings.DefaultBonusIncrement
		q.QuestionKind = settings.DefaultQuestionType
		q.QuestionConfig = defaultConfig.clone()
		q.SpeedBonusEnabled = settings.SpeedBonusEnabled
	}

	if !g.currentQuestion().hasAnswers() && !g.TimerRunning {
		g.TimerSecondsRemaining = settings.DefaultTimerDuration
	}
}

// updateQuestionSettings edits one question's settings. Fails if the question
// doesn't exist or is locked by having answers. Changing the kind resets the
// question config to the default for the new kind.
func (g *Game) updateQuestionSettings(questionNumber, timerDuration, questionPoints, bonusIncrement int, kind QuestionKind, speedBonusEnabled bool) error {
	if questionNumber < 1 || questionNumber > len(g.Questions) {
		return fmt.Errorf("question %d does not exist", questionNumber)
	}
	q := &g.Questions[questionNumber-1]
	if q.hasAnswers() {
		return errors.New("cannot update settings for a question that has answers")
	}

	q.TimerDuration = timerDuration
	q.QuestionPoints = questionPoints
	q.BonusIncrement = bonusIncrement
	q.SpeedBonusEnabled = speedBonusEnabled
	if q.QuestionKind != kind {
		q.QuestionKind = kind
		q.QuestionConfig = configForKind(kind, defaultMcConfig())
	}

	if questionNumber == g.CurrentQuestionNumber && !g.TimerRunning {
		g.TimerSecondsRemaining = timerDuration
	}

	return nil
}

func (g *Game) updateTypeSpecificSettings(questionNumber int, config QuestionConfig) error {
	if questionNumber < 1 || questionNumber > len(g.Questions) {
		return fmt.Errorf("question %d does not exist", questionNumber)
	}
	q := &g.Questions[questionNumber-1]
	if q.hasAnswers() {
		return errors.New("cannot update settings for a question that has answers")
	}
	if config.Type != q.QuestionKind {
		return errors.New("config type does not match question type")
	}
	q.QuestionConfig = config.clone()
	return nil
}

// === Projections ===

func (g *Game) toGameState() GameState {
	state := GameState{
		GameCode:              g.GameCode,
		CurrentQuestionNumber: g.CurrentQuestionNumber,
		TimerRunning:          g.TimerRunning,
		TimerSecondsRemaining: g.TimerSecondsRemaining,
		Teams:                 make([]TeamData, len(g.Teams)),
		Questions:             make([]Question, len(g.Questions)),
		GameSettings:          g.Settings.clone(),
	}
	for i := range g.Teams {
		state.Teams[i] = g.Teams[i].clone()
	}
	for i := range g.Questions {
		state.Questions[i] = g.Questions[i].clone()
	}
	return state
}

// filterForTeam reduces a question to one team's view of it: their own answer,
// or an empty placeholder if they never submitted.
func (g *Game) filterForTeam(q *Question, teamName string) TeamQuestion {
	if a := g.answerFor(q, teamName); a != nil {
		return a.clone()
	}
	return TeamQuestion{
		TeamName:       teamName,
		QuestionKind:   q.QuestionKind,
		QuestionConfig: q.QuestionConfig.clone(),
	}
}

// toTeamGameState builds the filtered view for one team, or nil if the team
// isn't part of the game.
func (g *Game) toTeamGameState(teamName string) *TeamGameState {
	team := g.findTeam(teamName)
	if team == nil {
		return nil
	}
	state := &TeamGameState{
		GameCode:              g.GameCode,
		CurrentQuestionNumber: g.CurrentQuestionNumber,
		TimerRunning:          g.TimerRunning,
		TimerSecondsRemaining: g.TimerSecondsRemaining,
		Team:                  team.clone(),
		Questions:             make([]TeamQuestion, len(g.Questions)),
	}
	for i := range g.Questions {
		state.Questions[i] = g.filterForTeam(&g.Questions[i], teamName)
	}
	return state
}

func (g *Game) toScoreboardData() ScoreboardData {
	data := ScoreboardData{
		GameCode:              g.GameCode,
		CurrentQuestionNumber: g.CurrentQuestionNumber,
		TimerRunning:          g.TimerRunning,
		TimerSecondsRemaining: g.TimerSecondsRemaining,
		Teams:                 make([]TeamData, len(g.Teams)),
	}
	for i := range g.Teams {
		data.Teams[i] = g.Teams[i].clone()
	}
	return data
}

// === Fan-out plans ===
//
// These collect (connection, message) pairs under the registry lock; the
// caller delivers them after releasing it.

// broadcastAll is the full post-mutation fan-out: host view to the host, a
// filtered view to every connected team, and the scoreboard to every watcher.
func (g *Game) broadcastAll() fanout {
	var f fanout
	if g.host != nil {
		f.add(g.host, gameStateMessage(g.toGameState()))
	}
	for name, c := range g.teams {
		if state := g.toTeamGameState(name); state != nil {
			f.add(c, teamGameStateMessage(*state))
		}
	}
	return append(f, g.broadcastScoreboard()...)
}

func (g *Game) broadcastScoreboard() fanout {
	if len(g.watchers) == 0 {
		return nil
	}
	var f fanout
	msg := scoreboardDataMessage(g.toScoreboardData())
	for w := range g.watchers {
		f.add(w, msg)
	}
	return f
}

// broadcastTimerTick goes to the host and every team; watchers only see timer
// state through full scoreboard updates.
func (g *Game) broadcastTimerTick(secondsRemaining int) fanout {
	var f fanout
	msg := timerTickMessage(secondsRemaining)
	f.add(g.host, msg)
	for _, c := range g.teams {
		f.add(c, msg)
	}
	return f
}
