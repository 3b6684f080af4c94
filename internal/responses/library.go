package responses

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Risk categories that key the catalog.
const (
	CategoryGeneral         = "general"
	CategoryHighRisk        = "high_risk"
	CategoryModerateRisk    = "moderate_risk"
	CategoryLowRisk         = "low_risk"
	CategoryPositiveEmotion = "positive_emotion"
)

// Response types used by the conversation engine.
const (
	TypeGreeting         = "greeting"
	TypeListening        = "listening"
	TypeClosing          = "closing"
	TypeInitial          = "initial"
	TypeEscalation       = "escalation"
	TypeHotline          = "hotline"
	TypeSupportive       = "supportive"
	TypeFollowUp         = "follow_up"
	TypeActivities       = "activities"
	TypeEncouragement    = "encouragement"
	TypeCopingStrategies = "coping_strategies"
)

// DefaultEmotion is used when a coping-strategy lookup misses.
const DefaultEmotion = "stress"

// DefaultHotline is served when the catalog has no hotline entry. The wording
// and numbers must stay verbatim.
const DefaultHotline = "Please reach out now: NCMH Crisis Hotline 1553 (landline, toll-free), 0917-899-8727 or 0966-351-4518. Hopeline PH: (02) 8804-4673, 0917-558-4673, or 2919 (toll-free for Globe/TM). If you are in immediate danger, call 911."

// ListeningFallback is the generic acknowledgement when nothing matches.
const ListeningFallback = "I'm here and I'm listening. Tell me more whenever you're ready."

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// NewRandomPicker returns a goroutine-safe uniform picker.
func NewRandomPicker(seed int64) Picker {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// Library is the read-only response pool.
type Library struct {
	pools  map[string]map[string][]string
	coping map[string][]string
	picker Picker
}

// New builds a library from in-memory pools.
func New(pools map[string]map[string][]string, coping map[string][]string, picker Picker) *Library {
	if pools == nil {
		pools = map[string]map[string][]string{}
	}
	if coping == nil {
		coping = map[string][]string{}
	}
	if picker == nil {
		picker = NewRandomPicker(time.Now().UnixNano())
	}
	return &Library{pools: pools, coping: coping, picker: picker}
}

// Load reads the catalog file; a missing or malformed file yields an empty library.
func Load(path string, picker Picker, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	pools, coping, err := readCatalog(path)
	if err != nil {
		logger.Warn("response catalog unavailable, using built-in fallbacks", zap.String("path", path), zap.Error(err))
		return New(nil, nil, picker)
	}
	logger.Info("response catalog loaded", zap.Int("categories", len(pools)))
	return New(pools, coping, picker)
}

func readCatalog(path string) (map[string]map[string][]string, map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	var decoded map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}

	pools := make(map[string]map[string][]string, len(decoded))
	coping := map[string][]string{}
	for category, types := range decoded {
		pools[category] = make(map[string][]string, len(types))
		for responseType, body := range types {
			if category == CategoryModerateRisk && responseType == TypeCopingStrategies {
				if err := json.Unmarshal(body, &coping); err != nil {
					return nil, nil, fmt.Errorf("decode coping strategies: %w", err)
				}
				continue
			}
			var list []string
			if err := json.Unmarshal(body, &list); err != nil {
				return nil, nil, fmt.Errorf("decode %s.%s: %w", category, responseType, err)
			}
			pools[category][responseType] = list
		}
	}
	return pools, coping, nil
}

// Get picks uniformly from category/responseType. Missing categories fall
// back to general; coping strategy misses fall back to stress. It returns ""
// when nothing matches, except for hotline which always has a default.
func (l *Library) Get(category, responseType string, emotion ...string) string {
	if responseType == TypeCopingStrategies {
		key := DefaultEmotion
		if len(emotion) > 0 && emotion[0] != "" {
			key = emotion[0]
		}
		list, ok := l.coping[key]
		if !ok || len(list) == 0 {
			list = l.coping[DefaultEmotion]
		}
		return l.pick(list)
	}

	types, ok := l.pools[category]
	if !ok {
		types = l.pools[CategoryGeneral]
	}
	if out := l.pick(types[responseType]); out != "" {
		return out
	}
	if responseType == TypeHotline {
		return DefaultHotline
	}
	return ""
}

// GetOr is Get with a caller-supplied fallback for empty results.
func (l *Library) GetOr(fallback, category, responseType string, emotion ...string) string {
	if out := l.Get(category, responseType, emotion...); out != "" {
		return out
	}
	return fallback
}

func (l *Library) pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[l.picker.Intn(len(list))]
}
