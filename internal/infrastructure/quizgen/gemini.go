// Package quizgen turns advertisement copy into a three-choice quiz using the
// Gemini generateContent REST API. Its output is untrusted: callers validate
// the returned draft before using it.
package quizgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 20 * time.Second
	maxErrorBody   = 512
)

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Gemini implements ports.QuizGenerator.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ ports.QuizGenerator = (*Gemini)(nil)

func NewGemini(opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Gemini{apiKey: opts.APIKey, model: model, baseURL: baseURL, client: client}, nil
}

type request struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// quizPayload is the JSON shape the prompt asks the model for.
type quizPayload struct {
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	AnswerIndex      *int     `json:"answerIndex"`
	DetectedLanguage string   `json:"detectedLanguage"`
}

// Generate asks the model for a quiz about text. Transport and API failures
// wrap domain.ErrQuizGenerator; unparseable or incomplete output wraps
// domain.ErrInvalidQuiz.
func (g *Gemini) Generate(ctx context.Context, text string) (*domain.QuizDraft, error) {
	payload := request{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildPrompt(text)}},
		}},
		GenerationConfig: &generationConfig{
			Temperature:      0.4,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrQuizGenerator, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizGenerator, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizGenerator, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrQuizGenerator, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrQuizGenerator, err)
	}
	raw := extractText(out)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty model response", domain.ErrInvalidQuiz)
	}
	return parseDraft(raw)
}

func (g *Gemini) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

func buildPrompt(text string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Input Text: %q\n", text)
	sb.WriteString("Task:\n")
	sb.WriteString("1. Detect the language of the Input Text.\n")
	sb.WriteString("2. Return the language as a 2-letter ISO 639-1 code only (for example \"ja\" or \"en\").\n")
	sb.WriteString("3. Create a 3-choice quiz about the Input Text in that same language.\n")
	sb.WriteString(`Respond strictly with JSON: {"question":string,"options":[string,string,string],"answerIndex":number,"detectedLanguage":string}`)
	return sb.String()
}

func extractText(resp response) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}

// parseDraft decodes the model output without coercing it. A missing answer
// index is an error, not option 0.
func parseDraft(raw string) (*domain.QuizDraft, error) {
	cleaned := extractJSONObject(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: no JSON object in model response", domain.ErrInvalidQuiz)
	}
	var p quizPayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuiz, err)
	}
	if p.AnswerIndex == nil {
		return nil, fmt.Errorf("%w: answerIndex missing", domain.ErrInvalidQuiz)
	}
	return &domain.QuizDraft{
		Quiz: domain.Quiz{
			Question:    p.Question,
			Options:     p.Options,
			AnswerIndex: *p.AnswerIndex,
		},
		Language: p.DetectedLanguage,
	}, nil
}

func extractJSONObject(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func trimCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
