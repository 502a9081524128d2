package main

// === Question kinds ===

type QuestionKind string

const (
	QuestionStandard       QuestionKind = "standard"
	QuestionMultiAnswer    QuestionKind = "multiAnswer"
	QuestionMultipleChoice QuestionKind = "multipleChoice"
)

// === Multiple choice configuration ===

type McOptionType string

const (
	McOptionLetters   McOptionType = "letters"
	McOptionNumbers   McOptionType = "numbers"
	McOptionYesNo     McOptionType = "yesNo"
	McOptionTrueFalse McOptionType = "trueFalse"
	McOptionOther     McOptionType = "other"
)

type McConfig struct {
	OptionType    McOptionType `json:"optionType"`
	NumOptions    int          `json:"numOptions"`
	CustomOptions []string     `json:"customOptions,omitempty"`
}

func defaultMcConfig() McConfig {
	return McConfig{
		OptionType: McOptionLetters,
		NumOptions: 4,
	}
}

func (m McConfig) clone() McConfig {
	out := m
	if m.CustomOptions != nil {
		out.CustomOptions = append([]string(nil), m.CustomOptions...)
	}
	return out
}

// QuestionConfig is the per-kind question configuration. Only multiple choice
// questions carry extra data; the other kinds are bare tags.
type QuestionConfig struct {
	Type   QuestionKind `json:"type"`
	Config *McConfig    `json:"config,omitempty"`
}

// configForKind builds the config a question of the given kind should start
// with. mc supplies the multiple choice settings when the kind needs them.
func configForKind(kind QuestionKind, mc McConfig) QuestionConfig {
	if kind == QuestionMultipleChoice {
		c := mc.clone()
		return QuestionConfig{Type: kind, Config: &c}
	}
	return QuestionConfig{Type: kind}
}

func (qc QuestionConfig) clone() QuestionConfig {
	out := QuestionConfig{Type: qc.Type}
	if qc.Config != nil {
		c := qc.Config.clone()
		out.Config = &c
	}
	return out
}

// === Scores ===

// ScoreData is the four-component score vector used both per answer and per
// team. The first three components are derived from answers; overridePoints is
// a manual adjustment that no recomputation ever touches.
type ScoreData struct {
	QuestionPoints   int `json:"questionPoints"`
	BonusPoints      int `json:"bonusPoints"`
	SpeedBonusPoints int `json:"speedBonusPoints"`
	OverridePoints   int `json:"overridePoints"`
}

func (s ScoreData) Total() int {
	return s.QuestionPoints + s.BonusPoints + s.SpeedBonusPoints + s.OverridePoints
}

// === Answers ===

// AnswerContent varies by question kind. Exactly one of the payload fields is
// set, matching the Type tag.
type AnswerContent struct {
	Type       QuestionKind `json:"type"`
	AnswerText string       `json:"answerText,omitempty"`
	Answers    []string     `json:"answers,omitempty"`
	Selected   string       `json:"selected,omitempty"`
}

// TeamQuestion is one team's state on one question: their answer (if any) and
// their score. In Question.Answers only submitting teams appear; in the
// team-filtered view Content is nil when the team did not submit.
type TeamQuestion struct {
	TeamName       string         `json:"teamName"`
	Score          ScoreData      `json:"score"`
	Content        *AnswerContent `json:"content"`
	QuestionKind   QuestionKind   `json:"questionKind"`
	QuestionConfig QuestionConfig `json:"questionConfig"`
}

func (tq TeamQuestion) clone() TeamQuestion {
	out := tq
	out.QuestionConfig = tq.QuestionConfig.clone()
	if tq.Content != nil {
		c := *tq.Content
		if c.Answers != nil {
			c.Answers = append([]string(nil), c.Answers...)
		}
		out.Content = &c
	}
	return out
}

// === Questions ===

type Question struct {
	TimerDuration     int            `json:"timerDuration"`
	QuestionPoints    int            `json:"questionPoints"`
	BonusIncrement    int            `json:"bonusIncrement"`
	SpeedBonusEnabled bool           `json:"speedBonusEnabled"`
	QuestionKind      QuestionKind   `json:"questionKind"`
	QuestionConfig    QuestionConfig `json:"questionConfig"`
	Answers           []TeamQuestion `json:"answers"`
}

// hasAnswers reports whether any team has submitted. A question with answers
// is locked against settings edits.
func (q *Question) hasAnswers() bool {
	return len(q.Answers) > 0
}

func (q *Question) clone() Question {
	out := *q
	out.QuestionConfig = q.QuestionConfig.clone()
	out.Answers = make([]TeamQuestion, len(q.Answers))
	for i := range q.Answers {
		out.Answers[i] = q.Answers[i].clone()
	}
	return out
}

// === Game settings ===

type GameSettings struct {
	DefaultTimerDuration       int          `json:"defaultTimerDuration"`
	DefaultQuestionPoints      int          `json:"defaultQuestionPoints"`
	DefaultBonusIncrement      int          `json:"defaultBonusIncrement"`
	DefaultQuestionType        QuestionKind `json:"defaultQuestionType"`
	DefaultMcConfig            McConfig     `json:"defaultMcConfig"`
	SpeedBonusEnabled          bool         `json:"speedBonusEnabled"`
	SpeedBonusNumTeams         int          `json:"speedBonusNumTeams"`
	SpeedBonusFirstPlacePoints int          `json:"speedBonusFirstPlacePoints"`
}

func defaultGameSettings() GameSettings {
	return GameSettings{
		DefaultTimerDuration:       30,
		DefaultQuestionPoints:      50,
		DefaultBonusIncrement:      5,
		DefaultQuestionType:        QuestionStandard,
		DefaultMcConfig:            defaultMcConfig(),
		SpeedBonusEnabled:          false,
		SpeedBonusNumTeams:         2,
		SpeedBonusFirstPlacePoints: 10,
	}
}

func (gs GameSettings) clone() GameSettings {
	out := gs
	out.DefaultMcConfig = gs.DefaultMcConfig.clone()
	return out
}

// === Teams ===

type TeamColor struct {
	HexCode string `json:"hexCode"`
	Name    string `json:"name"`
}

type TeamData struct {
	TeamName    string    `json:"teamName"`
	TeamMembers []string  `json:"teamMembers"`
	TeamColor   TeamColor `json:"teamColor"`
	Score       ScoreData `json:"score"`
	Connected   bool      `json:"connected"`
}

func (td TeamData) clone() TeamData {
	out := td
	if td.TeamMembers != nil {
		out.TeamMembers = append([]string(nil), td.TeamMembers...)
	}
	return out
}

// === Projections ===

// GameState is the full host view. It is also the shape persisted by the
// snapshot store.
type GameState struct {
	GameCode              string       `json:"gameCode"`
	CurrentQuestionNumber int          `json:"currentQuestionNumber"`
	TimerRunning          bool         `json:"timerRunning"`
	TimerSecondsRemaining int          `json:"timerSecondsRemaining"`
	Teams                 []TeamData   `json:"teams"`
	Questions             []Question   `json:"questions"`
	GameSettings          GameSettings `json:"gameSettings"`
}

// TeamGameState is the per-team view: the caller's team record plus one
// filtered TeamQuestion per question.
type TeamGameState struct {
	GameCode              string         `json:"gameCode"`
	CurrentQuestionNumber int            `json:"currentQuestionNumber"`
	TimerRunning          bool           `json:"timerRunning"`
	TimerSecondsRemaining int            `json:"timerSecondsRemaining"`
	Team                  TeamData       `json:"team"`
	Questions             []TeamQuestion `json:"questions"`
}

// ScoreboardData is the minimal watcher projection: teams and totals, no
// answers.
type ScoreboardData struct {
	GameCode              string     `json:"gameCode"`
	CurrentQuestionNumber int        `json:"currentQuestionNumber"`
	TimerRunning          bool       `json:"timerRunning"`
	TimerSecondsRemaining int        `json:"timerSecondsRemaining"`
	Teams                 []TeamData `json:"teams"`
}
