package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const intentSystemPrompt = `You are a risk intent classifier for a school guidance office.
Messages may be in English, Tagalog or Taglish.
Score the message against exactly four labels: high_risk, moderate_risk, low_risk, general.
high_risk means self-harm or suicidal intent. moderate_risk means persistent distress.
low_risk means everyday stress. general means no distress.
Return ONLY a JSON object with the four labels as keys and probabilities summing to 1.`

// OpenAIModelConfig addresses an OpenAI-compatible endpoint serving the classifier.
type OpenAIModelConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIModel scores intents through a chat-completions endpoint.
type OpenAIModel struct {
	client  openaigo.Client
	model   string
	timeout time.Duration
}

// NewOpenAIModel validates cfg and builds the client.
func NewOpenAIModel(cfg OpenAIModelConfig) (*OpenAIModel, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("classifier base url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("classifier model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}

	return &OpenAIModel{
		client:  openaigo.NewClient(opts...),
		model:   strings.TrimSpace(cfg.Model),
		timeout: cfg.Timeout,
	}, nil
}

// OpenAIModelLoader defers client construction to first use.
func OpenAIModelLoader(cfg OpenAIModelConfig) ModelLoader {
	return func() (Model, error) {
		return NewOpenAIModel(cfg)
	}
}

// Predict implements Model.
func (m *OpenAIModel) Predict(ctx context.Context, text string) (map[Intent]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(m.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(intentSystemPrompt),
			openaigo.UserMessage(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned empty choices")
	}
	return ParseScores(resp.Choices[0].Message.Content)
}

// ParseScores decodes a label→probability object, tolerating code fences and
// surrounding prose, and renormalises it to sum to 1.
func ParseScores(content string) (map[Intent]float64, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("classifier output has no json object")
	}
	var decoded map[string]float64
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("classifier output invalid json: %w", err)
	}

	scores := make(map[Intent]float64, len(Intents))
	var total float64
	for _, intent := range Intents {
		v := decoded[string(intent)]
		if v < 0 {
			v = 0
		}
		scores[intent] = v
		total += v
	}
	if total <= 0 {
		return nil, fmt.Errorf("classifier output has no positive scores")
	}
	for intent, v := range scores {
		scores[intent] = v / total
	}
	return scores, nil
}

func extractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if strings.HasPrefix(raw, "```") {
		rest := strings.TrimSpace(strings.TrimPrefix(raw, "```"))
		if i := strings.Index(rest, "\n"); i >= 0 {
			rest = rest[i+1:]
		}
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		raw = strings.TrimSpace(rest)
	}
	i := strings.Index(raw, "{")
	j := strings.LastIndex(raw, "}")
	if i < 0 || j <= i {
		return ""
	}
	return raw[i : j+1]
}
