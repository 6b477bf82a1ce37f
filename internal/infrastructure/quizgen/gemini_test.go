package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func modelReply(status int, text string) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		body, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
		})
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(string(body))),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	}
}

func newTestGemini(t *testing.T, rt roundTripFunc) *Gemini {
	t.Helper()
	g, err := NewGemini(Options{APIKey: "dummy", HTTPClient: &http.Client{Transport: rt}})
	if err != nil {
		t.Fatalf("NewGemini returned error: %v", err)
	}
	return g
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(Options{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGenerate_SendsRequest(t *testing.T) {
	var gotPath, gotKey, gotMime string
	var gotPrompt string
	g := newTestGemini(t, func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig != nil {
			gotMime = req.GenerationConfig.ResponseMimeType
		}
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		return modelReply(http.StatusOK, `{"question":"Q","options":["a","b","c"],"answerIndex":1,"detectedLanguage":"en"}`)(r)
	})

	draft, err := g.Generate(context.Background(), "Fresh bread daily")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "dummy" || gotMime != "application/json" {
		t.Errorf("key=%q mime=%q", gotKey, gotMime)
	}
	if !strings.Contains(gotPrompt, "Fresh bread daily") {
		t.Errorf("prompt does not carry the input text: %q", gotPrompt)
	}
	if draft.Question != "Q" || draft.AnswerIndex != 1 || draft.Language != "en" || len(draft.Options) != 3 {
		t.Errorf("unexpected draft %+v", draft)
	}
}

func TestGenerate_StripsCodeFence(t *testing.T) {
	g := newTestGemini(t, modelReply(http.StatusOK, "```json\n{\"question\":\"質問\",\"options\":[\"あ\",\"い\",\"う\"],\"answerIndex\":2,\"detectedLanguage\":\"ja\"}\n```"))

	draft, err := g.Generate(context.Background(), "パン屋")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.AnswerIndex != 2 || draft.Language != "ja" {
		t.Errorf("unexpected draft %+v", draft)
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		rt      roundTripFunc
		wantErr error
	}{
		{
			name:    "transport error",
			rt:      func(*http.Request) (*http.Response, error) { return nil, errors.New("boom") },
			wantErr: domain.ErrQuizGenerator,
		},
		{
			name:    "api error status",
			rt:      modelReply(http.StatusTooManyRequests, "quota"),
			wantErr: domain.ErrQuizGenerator,
		},
		{
			name:    "not json",
			rt:      modelReply(http.StatusOK, "Sorry, I cannot help with that."),
			wantErr: domain.ErrInvalidQuiz,
		},
		{
			name:    "missing answer index",
			rt:      modelReply(http.StatusOK, `{"question":"Q","options":["a","b","c"],"detectedLanguage":"en"}`),
			wantErr: domain.ErrInvalidQuiz,
		},
		{
			name:    "empty reply",
			rt:      modelReply(http.StatusOK, "  "),
			wantErr: domain.ErrInvalidQuiz,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGemini(t, tc.rt)
			_, err := g.Generate(context.Background(), "text")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// Shape problems are left to domain validation; the generator passes them through.
func TestGenerate_DoesNotCoerceShape(t *testing.T) {
	g := newTestGemini(t, modelReply(http.StatusOK, `{"question":"Q","options":["a","b"],"answerIndex":7,"detectedLanguage":"eng"}`))

	draft, err := g.Generate(context.Background(), "text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(draft.Options) != 2 || draft.AnswerIndex != 7 {
		t.Fatalf("draft was altered: %+v", draft)
	}
	if err := domain.ValidateDraft(*draft); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Errorf("ValidateDraft = %v, want ErrInvalidQuiz", err)
	}
}
