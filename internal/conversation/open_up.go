package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

// Open-Up steps.
const (
	StepOpenUp                     Step = "open_up"
	StepWaitingForInput            Step = "waiting_for_input"
	StepWaitingForActivityChoice   Step = "waiting_for_activity_choice"
	StepActivityInstruction        Step = "activity_instruction"
	StepFollowUp                   Step = "follow_up"
	StepWaitingForFollowUpResponse Step = "waiting_for_follow_up_response"
	StepFollowUpResponse           Step = "follow_up_response"
	StepFeedbackCheck              Step = "feedback_check"
	StepWaitingForFeedbackResponse Step = "waiting_for_feedback_response"
	StepCompleted                  Step = "completed"
)

// StepClosing is shared by both flows.
const StepClosing Step = "closing"

const (
	followUpPrompt   = "Would you like a quick mindfulness tip to go with your activity? (yes/no)"
	followUpDecline  = "That's perfectly fine. Take your time with the activity and go at your own pace."
	feedbackPrompt   = "Did this activity help you feel a little better? (yes/no)"
	feedbackThanks   = "I'm really glad it helped. Remember you can come back and open up anytime."
	feedbackGentle   = "Thank you for being honest. Not every activity works every time, and that's okay. You can always try another one or talk to your counselor."
	openUpClosing    = "Thank you for opening up today. Take care of yourself, and remember that your school counselor is always here for you."
	activityReprompt = "I didn't quite catch that. Which of these would you like to try?"
)

// OpenUpTurn is one Open-Up request. Mood is the resolved current mood and
// ChosenActivity the activity stored on the session, if any.
type OpenUpTurn struct {
	Step           Step
	Message        string
	Mood           models.Mood
	ChosenActivity string
}

// OpenUp advances the mood-driven wellness flow by one step.
func (e *Engine) OpenUp(ctx context.Context, turn OpenUpTurn, sink Sink) (Reply, error) {
	plan := planFor(turn.Mood)
	step := turn.Step
	if step == "" {
		step = StepOpenUp
	}

	switch step {
	case StepOpenUp, StepWaitingForInput:
		return Reply{
			Response: plan.comfort,
			NextStep: StepWaitingForActivityChoice,
			Options:  plan.Options(),
		}, nil

	case StepWaitingForActivityChoice, StepActivityInstruction:
		activity, ok := plan.matchActivity(turn.Message)
		if !ok {
			return Reply{
				Response: activityReprompt,
				NextStep: StepWaitingForActivityChoice,
				Options:  plan.Options(),
			}, nil
		}
		g := plan.guides[activity]
		e.warn("set chosen activity", sink.SetActivity(ctx, activity))
		return Reply{
			Response: fmt.Sprintf("%s: %s", activity, g.instructions[e.picker.Intn(len(g.instructions))]),
			NextStep: StepFollowUp,
		}, nil

	case StepFollowUp:
		return Reply{
			Response: followUpPrompt,
			NextStep: StepWaitingForFollowUpResponse,
			Options:  []string{"Yes", "No"},
		}, nil

	case StepWaitingForFollowUpResponse, StepFollowUpResponse:
		response := followUpDecline
		if isYes(turn.Message) {
			response = e.tipFor(plan, turn.ChosenActivity)
		}
		return Reply{Response: response, NextStep: StepFeedbackCheck}, nil

	case StepFeedbackCheck:
		return Reply{
			Response: feedbackPrompt,
			NextStep: StepWaitingForFeedbackResponse,
			Options:  []string{"Yes", "No"},
		}, nil

	case StepWaitingForFeedbackResponse:
		response := feedbackGentle
		if isYes(turn.Message) {
			response = feedbackThanks
		}
		return Reply{Response: response, NextStep: StepClosing}, nil

	case StepClosing, StepCompleted:
		e.warn("end open-up session", sink.End(ctx))
		return Reply{Response: openUpClosing, NextStep: StepCompleted, Completed: true}, nil
	}

	return Reply{}, fmt.Errorf("%w: %q", ErrUnknownStep, step)
}

// tipFor picks a tip for the chosen activity, or any activity of the mood when
// none was stored.
func (e *Engine) tipFor(plan moodPlan, activity string) string {
	g, ok := plan.guides[activity]
	if !ok {
		g, ok = guidesByActivity[activity]
	}
	if !ok {
		for _, name := range plan.activities {
			if strings.EqualFold(name, activity) {
				g, ok = plan.guides[name], true
				break
			}
		}
	}
	if !ok {
		g = plan.guides[plan.activities[0]]
	}
	return e.pick(g.tips)
}
