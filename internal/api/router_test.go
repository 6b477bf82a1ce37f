package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrecipro/adquiz/internal/api/handler"
	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
	"github.com/adrecipro/adquiz/internal/core/service"
	"github.com/adrecipro/adquiz/internal/infrastructure/db/memory"
	"github.com/adrecipro/adquiz/internal/infrastructure/storage"
)

const testSecret = "test-secret"

// syncCounters applies counter events inline so assertions see them immediately.
type syncCounters struct {
	ads ports.AdService
}

func (s syncCounters) Enqueue(ev ports.CounterEvent) {
	_ = s.ads.ApplyCounterEvent(context.Background(), ev)
}

type fixedGenerator struct{}

func (fixedGenerator) Generate(_ context.Context, _ string) (*domain.QuizDraft, error) {
	return &domain.QuizDraft{
		Quiz:     domain.Quiz{Question: "What do we roast?", Options: []string{"Tea", "Coffee", "Rice"}, AnswerIndex: 1},
		Language: "ja",
	}, nil
}

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New()

	ledger := service.NewLedgerService(store.Users(), memory.NewNotifier(), log)
	ads := service.NewAdService(store.Ads(), log)
	counters := syncCounters{ads: ads}
	feed := service.NewFeedService(store.Ads(), ledger, counters, memory.NewImpressionDedup(), service.FeedConfig{}, log)
	files, err := storage.NewFileStore(t.TempDir(), "http://media.test")
	require.NoError(t, err)
	publication := service.NewPublicationService(ledger, ads, files, fixedGenerator{}, log)
	resolution := service.NewResolutionService(ledger, ads, log)

	reg := prometheus.NewRegistry()
	e := NewRouter(Dependencies{
		Ledger:      ledger,
		Ads:         ads,
		Feed:        feed,
		Publication: publication,
		Resolution:  resolution,
		Counters:    counters,
		JWTSecret:   testSecret,
		Ready:       map[string]handler.PingFunc{"store": store.Ping},
		Registerer:  reg,
		Gatherer:    reg,
		Log:         log,
	})
	return &testServer{e: e}
}

func token(t *testing.T, sub, name string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"name": name,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user, strings.ToUpper(user[:1])+user[1:]))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func publishBody(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"language":    "ja",
		"link_url":    "https://shop.example/coffee",
		"quiz": map[string]any{
			"question":     "What do we roast?",
			"options":      []string{"Tea", "Coffee", "Rice"},
			"answer_index": 1,
		},
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":{"status":"ok"}`)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_FirstSignInGrantsCredits(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/me", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, float64(domain.InitialCredits), me["credits"])
	assert.Equal(t, "free", me["plan"])
	assert.Equal(t, "Alice", me["display_name"])
}

func TestRouter_PublishAnswerFlow(t *testing.T) {
	s := newTestServer(t)

	// The first three ads on the platform are free.
	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		res := decode[map[string]any](t, rec)
		assert.Equal(t, true, res["exempt"])
		assert.Equal(t, float64(0), res["charged"])
	}

	rec := s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, false, res["exempt"])
	assert.Equal(t, float64(domain.PublicationCost), res["charged"])

	rec = s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee"))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	me := decode[map[string]any](t, s.do(t, http.MethodGet, "/v1/me", "alice", nil))
	assert.Equal(t, float64(0), me["credits"])

	// Bob sees a card without the answer and answers it correctly.
	rec = s.do(t, http.MethodGet, "/v1/feed/next?lang=ja", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	card := decode[map[string]any](t, rec)
	quiz := card["quiz"].(map[string]any)
	assert.NotContains(t, quiz, "answer_index")
	adID := card["id"].(string)

	rec = s.do(t, http.MethodPost, "/v1/ads/"+adID+"/answer", "bob", map[string]any{"selected_index": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answer := decode[map[string]any](t, rec)
	assert.Equal(t, "correct", answer["outcome"])
	assert.Equal(t, float64(1), answer["credits_awarded"])
	assert.Equal(t, false, answer["already_resolved"])

	// A repeated answer has no economic effect.
	rec = s.do(t, http.MethodPost, "/v1/ads/"+adID+"/answer", "bob", map[string]any{"selected_index": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[map[string]any](t, rec)
	assert.Equal(t, true, again["already_resolved"])
	assert.Equal(t, float64(0), again["credits_awarded"])

	bob := decode[map[string]any](t, s.do(t, http.MethodGet, "/v1/me", "bob", nil))
	assert.Equal(t, float64(domain.InitialCredits+domain.CorrectAnswerReward), bob["credits"])

	// The owner dashboard reflects the impression and the attempt.
	rec = s.do(t, http.MethodGet, "/v1/me/ads", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	owned := decode[[]map[string]any](t, rec)
	require.Len(t, owned, 4)
	var found bool
	for _, ad := range owned {
		if ad["id"] != adID {
			continue
		}
		found = true
		counters := ad["counters"].(map[string]any)
		assert.Equal(t, float64(1), counters["impressions"])
		assert.Equal(t, float64(1), counters["attempts"])
		assert.Equal(t, float64(1), counters["correct_answers"])
		assert.Equal(t, float64(100), ad["success_rate"])
		assert.Equal(t, "active", ad["state"])
	}
	assert.True(t, found)
}

func TestRouter_FeedEmptyAndLanguage(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee")).Code)

	rec := s.do(t, http.MethodGet, "/v1/feed/next?lang=en", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/feed/next", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "bob", "Bob"))
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/feed/next?lang=japanese", "bob", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_SkipRemovesCardFromFeed(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee"))
	require.Equal(t, http.StatusCreated, rec.Code)
	adID := decode[map[string]any](t, rec)["ad"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPost, "/v1/ads/"+adID+"/skip", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	skip := decode[map[string]any](t, rec)
	assert.Equal(t, "skipped", skip["outcome"])
	assert.NotContains(t, skip, "correct_index")

	rec = s.do(t, http.MethodGet, "/v1/feed/next?lang=ja", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_OwnerLifecycle(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee"))
	require.Equal(t, http.StatusCreated, rec.Code)
	adID := decode[map[string]any](t, rec)["ad"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPatch, "/v1/ads/"+adID+"/active", "bob", map[string]any{"active": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, "/v1/ads/"+adID+"/active", "alice", map[string]any{"active": false})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/feed/next?lang=ja", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPatch, "/v1/ads/"+adID+"/active", "alice", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/ads/"+adID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/ads/"+adID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ClickCountsAndReturnsLink(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/v1/ads", "alice", publishBody("Fresh coffee"))
	require.Equal(t, http.StatusCreated, rec.Code)
	adID := decode[map[string]any](t, rec)["ad"].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPost, "/v1/ads/"+adID+"/click", "bob", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "https://shop.example/coffee", decode[map[string]any](t, rec)["link_url"])

	owned := decode[[]map[string]any](t, s.do(t, http.MethodGet, "/v1/me/ads", "alice", nil))
	require.Len(t, owned, 1)
	assert.Equal(t, float64(1), owned[0]["counters"].(map[string]any)["clicks"])

	rec = s.do(t, http.MethodPost, "/v1/ads/missing/click", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PublishValidation(t *testing.T) {
	s := newTestServer(t)

	body := publishBody(strings.Repeat("あ", 141))
	rec := s.do(t, http.MethodPost, "/v1/ads", "alice", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body = publishBody("Fresh coffee")
	body["quiz"].(map[string]any)["options"] = []string{"Tea", "Coffee"}
	rec = s.do(t, http.MethodPost, "/v1/ads", "alice", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body = publishBody("Fresh coffee")
	delete(body["quiz"].(map[string]any), "answer_index")
	rec = s.do(t, http.MethodPost, "/v1/ads", "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	me := decode[map[string]any](t, s.do(t, http.MethodGet, "/v1/me", "alice", nil))
	assert.Equal(t, float64(domain.InitialCredits), me["credits"])
}

func TestRouter_PublishMultipartWithImage(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", "Fresh coffee"))
	require.NoError(t, mw.WriteField("language", "ja"))
	require.NoError(t, mw.WriteField("quiz", `{"question":"What do we roast?","options":["Tea","Coffee","Rice"],"answer_index":1}`))
	fw, err := mw.CreateFormFile("image", "cup.png")
	require.NoError(t, err)
	_, err = fw.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/ads", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "alice", "Alice"))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ad := decode[map[string]any](t, rec)["ad"].(map[string]any)
	imageURL, _ := ad["image_url"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "http://media.test/ads/"), imageURL)
	assert.True(t, strings.HasSuffix(imageURL, "_alice.png"), imageURL)
}

func TestRouter_PublishMultipartRejectsNonImage(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", "Fresh coffee"))
	require.NoError(t, mw.WriteField("language", "ja"))
	require.NoError(t, mw.WriteField("quiz", `{"question":"Q?","options":["a","b","c"],"answer_index":0}`))
	fw, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain text, not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/ads", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "alice", "Alice"))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_QuizDraft(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/quizzes/draft", "alice", map[string]any{"text": "We roast coffee beans daily."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	draft := decode[map[string]any](t, rec)
	assert.Equal(t, "What do we roast?", draft["question"])
	assert.Equal(t, float64(1), draft["answer_index"])
	assert.Equal(t, "ja", draft["language"])

	rec = s.do(t, http.MethodPost, "/v1/quizzes/draft", "alice", map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UpdateProfile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPatch, "/v1/me", "alice", map[string]any{"display_name": "  Alice Cafe  "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alice Cafe", decode[map[string]any](t, rec)["display_name"])

	rec = s.do(t, http.MethodPatch, "/v1/me", "alice", map[string]any{"photo_url": "ftp://nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_BalanceStreamSendsSnapshot(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/me", "alice", nil).Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/balance/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice", "Alice"))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "event: balance")
	assert.Contains(t, rec.Body.String(), `"credits":3`)
}
