package main

// Wire formats. Clients wrap every action in a single-key envelope naming the
// role; actions and server messages carry a camelCase "type" tag.

// ClientMessage is the client-to-server envelope. Exactly one field is set.
type ClientMessage struct {
	Host    *HostAction    `json:"host,omitempty"`
	Team    *TeamAction    `json:"team,omitempty"`
	Watcher *WatcherAction `json:"watcher,omitempty"`
}

// Host action types
const (
	actionCreateGame                 = "createGame"
	actionStartTimer                 = "startTimer"
	actionPauseTimer                 = "pauseTimer"
	actionResetTimer                 = "resetTimer"
	actionNextQuestion               = "nextQuestion"
	actionPrevQuestion               = "prevQuestion"
	actionScoreAnswer                = "scoreAnswer"
	actionOverrideTeamScore          = "overrideTeamScore"
	actionUpdateGameSettings         = "updateGameSettings"
	actionUpdateQuestionSettings     = "updateQuestionSettings"
	actionUpdateTypeSpecificSettings = "updateTypeSpecificSettings"
)

// Team action types
const (
	actionValidateJoin = "validateJoin"
	actionJoinGame     = "joinGame"
	actionSubmitAnswer = "submitAnswer"
)

// Watcher action types
const (
	actionWatchGame = "watchGame"
)

// HostAction holds every host command; which fields are meaningful depends on
// Type.
type HostAction struct {
	Type string `json:"type"`

	// createGame
	GameCode string `json:"gameCode,omitempty"`

	// scoreAnswer / overrideTeamScore
	QuestionNumber int        `json:"questionNumber,omitempty"`
	TeamName       string     `json:"teamName,omitempty"`
	Score          *ScoreData `json:"score,omitempty"`
	OverridePoints int        `json:"overridePoints,omitempty"`

	// updateGameSettings
	DefaultTimerDuration       int          `json:"defaultTimerDuration,omitempty"`
	DefaultQuestionPoints      int          `json:"defaultQuestionPoints,omitempty"`
	DefaultBonusIncrement      int          `json:"defaultBonusIncrement,omitempty"`
	DefaultQuestionType        QuestionKind `json:"defaultQuestionType,omitempty"`
	DefaultMcConfig            *McConfig    `json:"defaultMcConfig,omitempty"`
	SpeedBonusNumTeams         int          `json:"speedBonusNumTeams,omitempty"`
	SpeedBonusFirstPlacePoints int          `json:"speedBonusFirstPlacePoints,omitempty"`

	// updateGameSettings / updateQuestionSettings
	SpeedBonusEnabled bool `json:"speedBonusEnabled,omitempty"`

	// updateQuestionSettings
	TimerDuration  int          `json:"timerDuration,omitempty"`
	QuestionPoints int          `json:"questionPoints,omitempty"`
	BonusIncrement int          `json:"bonusIncrement,omitempty"`
	QuestionType   QuestionKind `json:"questionType,omitempty"`

	// updateTypeSpecificSettings
	QuestionConfig *QuestionConfig `json:"questionConfig,omitempty"`
}

type TeamAction struct {
	Type        string   `json:"type"`
	TeamName    string   `json:"teamName,omitempty"`
	GameCode    string   `json:"gameCode,omitempty"`
	ColorHex    string   `json:"colorHex,omitempty"`
	ColorName   string   `json:"colorName,omitempty"`
	TeamMembers []string `json:"teamMembers,omitempty"`
	Answer      string   `json:"answer,omitempty"`
}

type WatcherAction struct {
	Type     string `json:"type"`
	GameCode string `json:"gameCode,omitempty"`
}

// === Server to client ===

type GameStateMessage struct {
	Type  string    `json:"type"` // "gameState"
	State GameState `json:"state"`
}

type TeamGameStateMessage struct {
	Type  string        `json:"type"` // "teamGameState"
	State TeamGameState `json:"state"`
}

type ScoreboardDataMessage struct {
	Type string         `json:"type"` // "scoreboardData"
	Data ScoreboardData `json:"data"`
}

type JoinValidatedMessage struct {
	Type string `json:"type"` // "joinValidated"
}

type TimerTickMessage struct {
	Type             string `json:"type"` // "timerTick"
	SecondsRemaining int    `json:"secondsRemaining"`
}

type ErrorMessage struct {
	Type    string     `json:"type"` // "error"
	Message string     `json:"message"`
	State   *GameState `json:"state,omitempty"`
}

func gameStateMessage(state GameState) GameStateMessage {
	return GameStateMessage{Type: "gameState", State: state}
}

func teamGameStateMessage(state TeamGameState) TeamGameStateMessage {
	return TeamGameStateMessage{Type: "teamGameState", State: state}
}

func scoreboardDataMessage(data ScoreboardData) ScoreboardDataMessage {
	return ScoreboardDataMessage{Type: "scoreboardData", Data: data}
}

func joinValidatedMessage() JoinValidatedMessage {
	return JoinValidatedMessage{Type: "joinValidated"}
}

func timerTickMessage(secondsRemaining int) TimerTickMessage {
	return TimerTickMessage{Type: "timerTick", SecondsRemaining: secondsRemaining}
}

func errorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}
