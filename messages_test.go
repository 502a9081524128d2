package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessageEnvelopeRouting(t *testing.T) {
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"host":{"type":"createGame","gameCode":"ABCD"}}`), &msg))
	require.NotNil(t, msg.Host)
	assert.Nil(t, msg.Team)
	assert.Nil(t, msg.Watcher)
	assert.Equal(t, actionCreateGame, msg.Host.Type)
	assert.Equal(t, "ABCD", msg.Host.GameCode)

	msg = ClientMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{"team":{"type":"submitAnswer","answer":"pluto"}}`), &msg))
	require.NotNil(t, msg.Team)
	assert.Equal(t, actionSubmitAnswer, msg.Team.Type)
	assert.Equal(t, "pluto", msg.Team.Answer)

	msg = ClientMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{"watcher":{"type":"watchGame","gameCode":"WXYZ"}}`), &msg))
	require.NotNil(t, msg.Watcher)
	assert.Equal(t, "WXYZ", msg.Watcher.GameCode)
}

func TestScoreAnswerActionDecoding(t *testing.T) {
	raw := `{"host":{"type":"scoreAnswer","questionNumber":2,"teamName":"Alpha","score":{"questionPoints":50,"bonusPoints":5,"speedBonusPoints":0,"overridePoints":0}}}`

	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.NotNil(t, msg.Host)
	require.NotNil(t, msg.Host.Score)
	assert.Equal(t, 2, msg.Host.QuestionNumber)
	assert.Equal(t, 50, msg.Host.Score.QuestionPoints)
	assert.Equal(t, 5, msg.Host.Score.BonusPoints)
}

func TestUpdateGameSettingsActionDecoding(t *testing.T) {
	raw := `{"host":{"type":"updateGameSettings","defaultTimerDuration":60,"defaultQuestionPoints":100,"defaultBonusIncrement":10,"defaultQuestionType":"multipleChoice","defaultMcConfig":{"optionType":"numbers","numOptions":6},"speedBonusEnabled":true,"speedBonusNumTeams":3,"speedBonusFirstPlacePoints":15}}`

	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	a := msg.Host
	require.NotNil(t, a)
	assert.Equal(t, 60, a.DefaultTimerDuration)
	assert.Equal(t, QuestionMultipleChoice, a.DefaultQuestionType)
	require.NotNil(t, a.DefaultMcConfig)
	assert.Equal(t, McOptionNumbers, a.DefaultMcConfig.OptionType)
	assert.Equal(t, 6, a.DefaultMcConfig.NumOptions)
	assert.True(t, a.SpeedBonusEnabled)
	assert.Equal(t, 3, a.SpeedBonusNumTeams)
}

func TestServerMessageTags(t *testing.T) {
	data, err := json.Marshal(gameStateMessage(GameState{GameCode: "ABCD"}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"gameState"`)
	assert.Contains(t, string(data), `"gameCode":"ABCD"`)

	data, err = json.Marshal(timerTickMessage(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"timerTick","secondsRemaining":7}`, string(data))

	data, err = json.Marshal(joinValidatedMessage())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"joinValidated"}`, string(data))

	data, err = json.Marshal(errorMessage("nope"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"nope"}`, string(data))
}
