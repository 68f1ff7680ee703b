package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"VidyaSync/internal/artifact"
	"VidyaSync/internal/feed"
	"VidyaSync/internal/models"
	"VidyaSync/internal/pipeline"
	"VidyaSync/internal/playback"
	"VidyaSync/internal/search"
	"VidyaSync/internal/store"
	"VidyaSync/internal/translate"
	"VidyaSync/pkg/cache"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/i18n"
	"VidyaSync/pkg/middleware"
	"VidyaSync/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTranscripts struct{ err error }

func (s *stubTranscripts) GenerateTranscript(ctx context.Context, fileURL, lang string) ([]models.TranscriptSegment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.TranscriptSegment{
		{Start: "0:00", End: "0:05", Text: "photosynthesis converts light"},
		{Start: "0:05", End: "0:10", Text: "into chemical energy"},
	}, nil
}

type stubDubs struct{}

func (stubDubs) GenerateDubAudio(ctx context.Context, segs []models.TranscriptSegment, lang string) ([]models.DubSegment, error) {
	out := make([]models.DubSegment, len(segs))
	for i, s := range segs {
		out[i] = models.DubSegment{TranscriptSegment: s, AudioDataURI: "data:audio/mpeg;base64,AAAA"}
	}
	return out, nil
}

type stubCompleter struct{}

func (stubCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return `{"translatedQuestion":"प्रश्न","translatedAnswers":[{"id":"a","text":"उत्तर"}]}`, nil
}

type env struct {
	engine      *gin.Engine
	transcripts *stubTranscripts
}

func newEnv(t *testing.T, chain bool, rate *middleware.RateLimiterConfig) *env {
	t.Helper()
	db, err := util.OpenDatabase(&gorm.Config{}, "sqlite", "")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Resource{}))

	docs := store.NewCacheStore(cache.NewLocalCache(cache.LocalConfig{}))
	w := artifact.NewWriter(docs, artifact.WriterOptions{}, nil, nil)
	t.Cleanup(func() { w.Close(context.Background()) })
	ix, err := search.NewIndexAt("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	transcripts := &stubTranscripts{}
	svc := pipeline.NewService(pipeline.Deps{
		DB:          db,
		Cache:       artifact.NewCache(docs, w, time.Second, nil, nil),
		Transcripts: transcripts,
		Dubs:        stubDubs{},
		Index:       ix,
	}, pipeline.Options{ChainTranscript: chain})

	likes, err := feed.NewLikes(db, nil, nil)
	require.NoError(t, err)
	support, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)

	h := NewHandlers(Deps{
		DB:         db,
		Pipeline:   svc,
		Translator: translate.NewTranslator(stubCompleter{}, 0, 0, nil, nil),
		Likes:      likes,
		I18n:       support,
		RateLimit:  rate,
		Playback:   PlaybackConfig{Strategy: playback.PauseResume, MaxRate: 2},
	})
	engine := gin.New()
	h.Register(engine, "/api")
	return &env{engine: engine, transcripts: transcripts}
}

type body struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
}

func (e *env) do(t *testing.T, method, path string, payload interface{}, headers ...string) (int, body) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	var b body
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	}
	return w.Code, b
}

func (e *env) createResource(t *testing.T) string {
	code, b := e.do(t, http.MethodPost, "/api/resources", map[string]string{
		"title":   "Biology 101",
		"fileUrl": "https://cdn.example.com/bio.mp4",
	})
	require.Equal(t, http.StatusCreated, code)
	var r models.Resource
	require.NoError(t, json.Unmarshal(b.Data, &r))
	require.NotEmpty(t, r.ID)
	return r.ID
}

func TestResourceLifecycle(t *testing.T) {
	e := newEnv(t, true, nil)
	id := e.createResource(t)

	code, _ := e.do(t, http.MethodGet, "/api/resources/"+id, nil)
	assert.Equal(t, http.StatusOK, code)

	code, b := e.do(t, http.MethodPost, "/api/resources/"+id+"/dubbings/Hindi", nil)
	require.Equal(t, http.StatusOK, code)
	var d models.Dubbing
	require.NoError(t, json.Unmarshal(b.Data, &d))
	assert.Len(t, d.Segments, 2)

	code, b = e.do(t, http.MethodGet, "/api/search?q=photosynthesis&language=Hindi", nil)
	require.Equal(t, http.StatusOK, code)
	var hits struct {
		Hits []search.Hit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(b.Data, &hits))
	require.NotEmpty(t, hits.Hits)
	assert.Equal(t, id, hits.Hits[0].ResourceID)

	code, _ = e.do(t, http.MethodDelete, "/api/resources/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = e.do(t, http.MethodGet, "/api/resources/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorStatusMapping(t *testing.T) {
	e := newEnv(t, false, nil)
	id := e.createResource(t)

	t.Run("dependency missing", func(t *testing.T) {
		code, b := e.do(t, http.MethodPost, "/api/resources/"+id+"/dubbings/Hindi", nil)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, errors.CodeDependencyMissing, b.Code)
		assert.Contains(t, b.Error, "Hindi")
	})

	t.Run("dependency missing localized", func(t *testing.T) {
		code, b := e.do(t, http.MethodPost, "/api/resources/"+id+"/dubbings/Hindi?lang=hi", nil)
		assert.Equal(t, http.StatusConflict, code)
		assert.Contains(t, b.Error, "ट्रांसक्रिप्ट")
	})

	t.Run("generation", func(t *testing.T) {
		e.transcripts.err = errors.Generation(nil, "model unavailable")
		defer func() { e.transcripts.err = nil }()
		code, b := e.do(t, http.MethodPost, "/api/resources/"+id+"/transcripts/Tamil", nil)
		assert.Equal(t, http.StatusBadGateway, code)
		assert.False(t, b.Success)
	})

	t.Run("validation", func(t *testing.T) {
		code, _ := e.do(t, http.MethodPost, "/api/resources", map[string]string{"title": "no file"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)

		code, _ = e.do(t, http.MethodPost, "/api/generate-audio", map[string]interface{}{
			"language": "Hindi",
			"segments": []models.TranscriptSegment{{Start: "0:05", End: "0:01", Text: "x"}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("not found", func(t *testing.T) {
		code, _ := e.do(t, http.MethodPost, "/api/resources/missing/transcripts/Hindi", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("bad json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/generate-audio", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		e.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGenerateAudio(t *testing.T) {
	e := newEnv(t, true, nil)
	code, b := e.do(t, http.MethodPost, "/api/generate-audio", map[string]interface{}{
		"language": "Hindi",
		"segments": []models.TranscriptSegment{{Start: "0:00", End: "0:03", Text: "नमस्ते"}},
	})
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Segments []models.DubSegment `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(b.Data, &out))
	require.Len(t, out.Segments, 1)
	assert.Contains(t, out.Segments[0].AudioDataURI, "data:audio/mpeg")
}

func TestTranslateQuestionAndLikes(t *testing.T) {
	e := newEnv(t, true, nil)

	code, b := e.do(t, http.MethodPost, "/api/questions/translate", map[string]interface{}{
		"targetLanguage": "Hindi",
		"question": translate.Question{ID: "q1", Text: "What is a cell?", Answers: []translate.Answer{{ID: "a", Text: "A unit"}}},
	})
	require.Equal(t, http.StatusOK, code)
	var res translate.Result
	require.NoError(t, json.Unmarshal(b.Data, &res))
	assert.True(t, res.Translated)
	assert.Equal(t, "प्रश्न", res.Question.Text)

	code, b = e.do(t, http.MethodPost, "/api/posts", map[string]string{"authorId": "t1", "content": "Quiz tomorrow"})
	require.Equal(t, http.StatusCreated, code)
	var post models.Post
	require.NoError(t, json.Unmarshal(b.Data, &post))

	path := "/api/posts/" + strconv.FormatUint(uint64(post.ID), 10) + "/like"
	code, b = e.do(t, http.MethodPost, path, nil, userHeader, "u1")
	require.Equal(t, http.StatusOK, code)
	var st feed.LikeState
	require.NoError(t, json.Unmarshal(b.Data, &st))
	assert.Equal(t, feed.LikeState{Liked: true, Count: 1}, st)

	code, _ = e.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code, "user header is required")

	code, _ = e.do(t, http.MethodPost, "/api/posts/abc/like", nil, userHeader, "u1")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSystemRoutes(t *testing.T) {
	e := newEnv(t, true, nil)

	code, _ := e.do(t, http.MethodGet, "/api/system/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, b := e.do(t, http.MethodGet, "/api/system/playback", nil)
	require.Equal(t, http.StatusOK, code)
	var cfg struct {
		Strategy string  `json:"strategy"`
		MaxRate  float64 `json:"maxRate"`
	}
	require.NoError(t, json.Unmarshal(b.Data, &cfg))
	assert.Equal(t, "pause", cfg.Strategy)
	assert.Equal(t, 2.0, cfg.MaxRate)
}

func TestGenerationRoutesAreRateLimited(t *testing.T) {
	e := newEnv(t, true, &middleware.RateLimiterConfig{Rate: "1-M"})
	id := e.createResource(t)

	code, _ := e.do(t, http.MethodPost, "/api/resources/"+id+"/transcripts/Hindi", nil)
	assert.Equal(t, http.StatusOK, code)
	code, b := e.do(t, http.MethodPost, "/api/resources/"+id+"/transcripts/Hindi", nil, "Accept-Language", "hi")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, b.Error, "अनुरोध")

	code, _ = e.do(t, http.MethodGet, "/api/resources/"+id, nil)
	assert.Equal(t, http.StatusOK, code, "read routes are not limited")
}

func TestEventsDisabled(t *testing.T) {
	e := newEnv(t, true, nil)
	id := e.createResource(t)
	code, _ := e.do(t, http.MethodGet, "/api/resources/"+id+"/events", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
