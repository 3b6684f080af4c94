package conversation

import (
	"strings"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

// Activity names offered by the Open-Up flow.
const (
	ActivityNatureWalk   = "Nature walk"
	ActivityJournaling   = "Journaling"
	ActivityBreathing    = "Breathing exercise"
	ActivityMusic        = "Listen to music"
	ActivityStretching   = "Stretching"
	ActivityFriend       = "Talk to a friend"
	ActivityGratitude    = "Gratitude list"
	ActivityDrawing      = "Drawing or doodling"
	activitiesPerMood    = 4
	instructionsPerGuide = 3
)

type guide struct {
	instructions [instructionsPerGuide]string
	tips         []string
}

type moodPlan struct {
	comfort    string
	activities [activitiesPerMood]string
	guides     map[string]guide
}

var (
	natureWalk = guide{
		instructions: [instructionsPerGuide]string{
			"Step outside for 10 to 15 minutes. Walk slowly and name five things you can see, four you can hear and three you can feel.",
			"Find a nearby tree, garden or open space. Walk at an easy pace and notice the colors around you, one at a time.",
			"Take a short walk around the campus or your street. Leave your phone in your pocket and pay attention to your steps and your breathing.",
		},
		tips: []string{
			"Next time you walk, try matching your breathing to your steps: in for four steps, out for four steps.",
			"Pause once during your walk and look up at the sky for a few breaths. It helps your mind slow down.",
			"Notice one small thing in nature you have never paid attention to before, like the shape of a leaf.",
		},
	}
	journaling = guide{
		instructions: [instructionsPerGuide]string{
			"Grab a notebook and write for five minutes without stopping. Start with: \"Right now I feel...\"",
			"Write down three things that happened today and how each one made you feel. There are no wrong answers.",
			"Write a short letter to yourself as if you were writing to a good friend who is going through the same thing.",
		},
		tips: []string{
			"Try writing at the same time each day. Even two sentences count.",
			"When you finish writing, read it back once and underline one sentence that feels true.",
			"You don't have to share what you write. Journaling is just for you.",
		},
	}
	breathing = guide{
		instructions: [instructionsPerGuide]string{
			"Try box breathing: breathe in for 4 counts, hold for 4, breathe out for 4, hold for 4. Repeat four times.",
			"Sit comfortably, place a hand on your belly and breathe in slowly through your nose so your hand rises. Breathe out through your mouth. Do this ten times.",
			"Try the 4-7-8 breath: in through your nose for 4, hold for 7, out through your mouth for 8. Repeat three times.",
		},
		tips: []string{
			"Making your exhale longer than your inhale tells your body it is safe to relax.",
			"You can do box breathing anywhere, even in class, and no one will notice.",
			"If counting feels hard, just follow your breath in and out for one minute.",
		},
	}
	music = guide{
		instructions: [instructionsPerGuide]string{
			"Put on a song you love and just listen. Close your eyes and focus on one instrument all the way through.",
			"Make a short playlist of three songs that match how you want to feel, then listen to them in order.",
			"Play a calm instrumental track and breathe slowly along with the rhythm for the length of the song.",
		},
		tips: []string{
			"Keep a \"feel better\" playlist ready for days that are heavy.",
			"Singing along, even quietly, can lift your mood faster than listening alone.",
			"Try listening without doing anything else. Let the song have all your attention.",
		},
	}
	stretching = guide{
		instructions: [instructionsPerGuide]string{
			"Stand up, reach both arms over your head and hold for 10 seconds. Then slowly roll your shoulders back five times.",
			"Gently tilt your head toward each shoulder and hold for 15 seconds on each side. Breathe slowly as you stretch.",
			"Sit tall, twist gently to the left and hold, then to the right. Finish by touching your toes for a few breaths.",
		},
		tips: []string{
			"Tension often hides in the shoulders and jaw. Check them a few times a day and let them drop.",
			"A two-minute stretch between study sessions helps you focus when you sit back down.",
			"Move slowly. Stretching should feel good, never painful.",
		},
	}
	friend = guide{
		instructions: [instructionsPerGuide]string{
			"Think of one person you trust and send them a simple message: \"Hey, can we talk for a bit?\"",
			"Reach out to a friend or family member and tell them one honest thing about your day.",
			"Call or chat with someone who makes you feel safe. You don't need to explain everything, just connect.",
		},
		tips: []string{
			"You don't have to carry everything alone. Sharing even a little can make it lighter.",
			"If talking feels hard, start by asking how they are. Connection can start small.",
			"Your school counselor is also someone you can talk to, anytime you need.",
		},
	}
	gratitude = guide{
		instructions: [instructionsPerGuide]string{
			"Write down three things you are thankful for today, big or small.",
			"Think of one person who made your day better and write down what they did.",
			"List three good things about yourself that you noticed this week.",
		},
		tips: []string{
			"Try adding one item to your gratitude list every night before you sleep.",
			"Share one thing you're grateful for with someone today. It can brighten their day too.",
			"On harder days, go back and read your old gratitude lists.",
		},
	}
	drawing = guide{
		instructions: [instructionsPerGuide]string{
			"Grab any paper and draw how you feel right now using only shapes and colors.",
			"Doodle freely for five minutes. Don't plan it, just let your pen move.",
			"Draw the strong feeling as a shape, then draw it again smaller and softer.",
		},
		tips: []string{
			"Scribbling hard and fast is a safe way to let anger out of your body.",
			"Keep a small sketchpad with you for moments when words are not enough.",
			"No one has to see your drawings. It's about the process, not the result.",
		},
	}
)

var openUpCatalog = map[models.Mood]moodPlan{
	models.MoodHappy: {
		comfort:    "It's great to hear you're feeling happy today! Let's keep that good energy going. Here are some activities you might enjoy:",
		activities: [activitiesPerMood]string{ActivityNatureWalk, ActivityGratitude, ActivityMusic, ActivityFriend},
	},
	models.MoodGood: {
		comfort:    "I'm glad you're having a good day. Taking a moment for yourself can make it even better. Pick one that sounds nice:",
		activities: [activitiesPerMood]string{ActivityNatureWalk, ActivityJournaling, ActivityStretching, ActivityGratitude},
	},
	models.MoodNeutral: {
		comfort:    "Thanks for checking in. Some days just feel in-between, and that's okay. Would any of these help you feel a little more centered?",
		activities: [activitiesPerMood]string{ActivityNatureWalk, ActivityJournaling, ActivityMusic, ActivityStretching},
	},
	models.MoodSad: {
		comfort:    "I'm sorry you're feeling sad. Your feelings are valid, and you don't have to go through this alone. These might help you feel a bit lighter:",
		activities: [activitiesPerMood]string{ActivityJournaling, ActivityFriend, ActivityMusic, ActivityNatureWalk},
	},
	models.MoodAngry: {
		comfort:    "It sounds like something really upset you. It's okay to feel angry. Let's find a safe way to let some of it out:",
		activities: [activitiesPerMood]string{ActivityBreathing, ActivityStretching, ActivityDrawing, ActivityNatureWalk},
	},
}

var guidesByActivity = map[string]guide{
	ActivityNatureWalk: natureWalk,
	ActivityJournaling: journaling,
	ActivityBreathing:  breathing,
	ActivityMusic:      music,
	ActivityStretching: stretching,
	ActivityFriend:     friend,
	ActivityGratitude:  gratitude,
	ActivityDrawing:    drawing,
}

func init() {
	for mood, plan := range openUpCatalog {
		plan.guides = make(map[string]guide, activitiesPerMood)
		for _, activity := range plan.activities {
			plan.guides[activity] = guidesByActivity[activity]
		}
		openUpCatalog[mood] = plan
	}
}

func planFor(mood models.Mood) moodPlan {
	if plan, ok := openUpCatalog[mood]; ok {
		return plan
	}
	return openUpCatalog[models.MoodNeutral]
}

// Options returns the activities offered for mood.
func (p moodPlan) Options() []string {
	out := make([]string, len(p.activities))
	copy(out, p.activities[:])
	return out
}

// matchActivity resolves free text against the mood's activity options.
func (p moodPlan) matchActivity(message string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(message))
	if lowered == "" {
		return "", false
	}
	for _, activity := range p.activities {
		name := strings.ToLower(activity)
		if lowered == name || strings.Contains(lowered, name) {
			return activity, true
		}
	}
	for _, activity := range p.activities {
		first := strings.Fields(strings.ToLower(activity))[0]
		if strings.Contains(lowered, first) {
			return activity, true
		}
	}
	return "", false
}
