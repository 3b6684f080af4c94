package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

func TestOpenUpHappyPath(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(&stubClassifier{}, testLibrary(), fixedPicker{n: 1}, nil)
	ctx := context.Background()

	reply, err := engine.OpenUp(ctx, OpenUpTurn{Step: StepOpenUp, Mood: models.MoodHappy}, sink)
	require.NoError(t, err)
	assert.Equal(t, openUpCatalog[models.MoodHappy].comfort, reply.Response)
	assert.Len(t, reply.Options, 4)
	assert.Contains(t, reply.Options, ActivityNatureWalk)
	assert.Equal(t, StepWaitingForActivityChoice, reply.NextStep)

	reply, err = engine.OpenUp(ctx, OpenUpTurn{Step: StepActivityInstruction, Message: "Nature walk", Mood: models.MoodHappy}, sink)
	require.NoError(t, err)
	assert.Contains(t, reply.Response, natureWalk.instructions[1])
	assert.Equal(t, StepFollowUp, reply.NextStep)
	assert.Equal(t, ActivityNatureWalk, sink.activity)

	reply, err = engine.OpenUp(ctx, OpenUpTurn{Step: StepFollowUp, Mood: models.MoodHappy}, sink)
	require.NoError(t, err)
	assert.Equal(t, StepWaitingForFollowUpResponse, reply.NextStep)

	reply, err = engine.OpenUp(ctx, OpenUpTurn{Step: StepFollowUpResponse, Message: "yes", Mood: models.MoodHappy, ChosenActivity: sink.activity}, sink)
	require.NoError(t, err)
	assert.Contains(t, natureWalk.tips, reply.Response)
	assert.Equal(t, StepFeedbackCheck, reply.NextStep)

	reply, err = engine.OpenUp(ctx, OpenUpTurn{Step: StepFeedbackCheck, Mood: models.MoodHappy}, sink)
	require.NoError(t, err)
	assert.Equal(t, StepWaitingForFeedbackResponse, reply.NextStep)

	reply, err = engine.OpenUp(ctx, OpenUpTurn{Step: StepWaitingForFeedbackResponse, Message: "oo", Mood: models.MoodHappy}, sink)
	require.NoError(t, err)
	assert.Equal(t, feedbackThanks, reply.Response)
	assert.Equal(t, StepClosing, reply.NextStep)

	reply, err = engine.OpenUp(ctx, OpenUpTurn{Step: StepClosing, Mood: models.MoodHappy}, sink)
	require.NoError(t, err)
	assert.True(t, reply.Completed)
	assert.Equal(t, StepCompleted, reply.NextStep)
	assert.True(t, sink.ended)
}

func TestOpenUpDeclinedTip(t *testing.T) {
	engine := NewEngine(&stubClassifier{}, testLibrary(), fixedPicker{}, nil)
	reply, err := engine.OpenUp(context.Background(), OpenUpTurn{Step: StepFollowUpResponse, Message: "no", Mood: models.MoodSad, ChosenActivity: ActivityJournaling}, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, followUpDecline, reply.Response)
	assert.Equal(t, StepFeedbackCheck, reply.NextStep)
}

func TestOpenUpUnknownActivityReprompts(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(&stubClassifier{}, testLibrary(), fixedPicker{}, nil)
	reply, err := engine.OpenUp(context.Background(), OpenUpTurn{Step: StepActivityInstruction, Message: "skydiving", Mood: models.MoodAngry}, sink)
	require.NoError(t, err)
	assert.Equal(t, StepWaitingForActivityChoice, reply.NextStep)
	assert.Equal(t, openUpCatalog[models.MoodAngry].Options(), reply.Options)
	assert.Empty(t, sink.activity)
}

func TestOpenUpUnknownMoodUsesNeutral(t *testing.T) {
	engine := NewEngine(&stubClassifier{}, testLibrary(), fixedPicker{}, nil)
	reply, err := engine.OpenUp(context.Background(), OpenUpTurn{Mood: ""}, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, openUpCatalog[models.MoodNeutral].comfort, reply.Response)
}

func TestOpenUpCatalogComplete(t *testing.T) {
	for _, mood := range []models.Mood{models.MoodHappy, models.MoodGood, models.MoodNeutral, models.MoodSad, models.MoodAngry} {
		plan, ok := openUpCatalog[mood]
		require.True(t, ok, mood)
		assert.NotEmpty(t, plan.comfort)
		for _, activity := range plan.activities {
			g, ok := plan.guides[activity]
			require.True(t, ok, "%s/%s", mood, activity)
			for _, variant := range g.instructions {
				assert.NotEmpty(t, variant)
			}
			assert.NotEmpty(t, g.tips)
		}
	}
}

func TestMatchActivityLoose(t *testing.T) {
	plan := planFor(models.MoodSad)
	activity, ok := plan.matchActivity("i want to talk")
	require.True(t, ok)
	assert.Equal(t, ActivityFriend, activity)

	activity, ok = plan.matchActivity("JOURNALING")
	require.True(t, ok)
	assert.Equal(t, ActivityJournaling, activity)
}
