package conversation

import "strings"

var emotionKeywords = []struct {
	emotion  string
	keywords []string
}{
	{"stress", []string{"stress", "pressure", "deadline", "exam", "overwhelm", "pagod", "dami"}},
	{"sadness", []string{"sad", "malungkot", "iyak", "cry", "down", "lungkot", "heartbroken"}},
	{"anxiety", []string{"anxious", "anxiety", "kabado", "nervous", "worried", "takot", "panic", "kinakabahan"}},
	{"anger", []string{"angry", "galit", "inis", "frustrated", "mad", "asar"}},
	{"loneliness", []string{"lonely", "alone", "mag-isa", "walang kaibigan", "nag-iisa", "isolated"}},
}

// DetectEmotion maps text onto a coping-strategy key. It returns "stress"
// when nothing matches.
func DetectEmotion(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range emotionKeywords {
		for _, k := range entry.keywords {
			if strings.Contains(lowered, k) {
				return entry.emotion
			}
		}
	}
	return "stress"
}
