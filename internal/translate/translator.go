// Package translate renders quiz questions and their answers in the learner's language.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/llm"
	"VidyaSync/pkg/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = time.Hour
)

type Answer struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Answers []Answer `json:"answers"`
}

// Result Translated 为 false 表示返回的是原文（英文直通或翻译失败回退）
type Result struct {
	Question   Question `json:"question"`
	Language   string   `json:"language"`
	Translated bool     `json:"translated"`
}

// Translator 问题翻译，结果按 questionID|language 缓存在进程内
type Translator struct {
	model   llm.Completer
	cache   *expirable.LRU[string, Question]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTranslator(model llm.Completer, size int, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Translator {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		model:   model,
		cache:   expirable.NewLRU[string, Question](size, nil, ttl),
		logger:  logger,
		metrics: m,
	}
}

func cacheKey(questionID, lang string) string {
	return questionID + "|" + lang
}

// IsEnglish 同时接受语言名和 BCP 47 标签
func IsEnglish(lang string) bool {
	l := strings.TrimSpace(lang)
	if l == "" || strings.EqualFold(l, "english") {
		return true
	}
	tag, err := language.Parse(l)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}

// Translate 失败时回退原文并记录告警，只有参数错误才返回 error
func (t *Translator) Translate(ctx context.Context, q Question, lang string) (Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return Result{}, errors.Validation("question text is required")
	}
	if IsEnglish(lang) {
		return Result{Question: q, Language: lang}, nil
	}

	key := cacheKey(q.ID, lang)
	if q.ID != "" {
		if cached, ok := t.cache.Get(key); ok {
			t.metrics.RecordTranslationLookup(true)
			return Result{Question: cached, Language: lang, Translated: true}, nil
		}
		t.metrics.RecordTranslationLookup(false)
	}

	out, err := t.translate(ctx, q, lang)
	if err != nil {
		t.logger.Warn("question translation failed, using original text",
			zap.String("question_id", q.ID),
			zap.String("language", lang),
			zap.Error(err))
		return Result{Question: q, Language: lang}, nil
	}
	if q.ID != "" {
		t.cache.Add(key, out)
	}
	return Result{Question: out, Language: lang, Translated: true}, nil
}

// Purge 清空缓存
func (t *Translator) Purge() {
	t.cache.Purge()
}

func (t *Translator) Len() int {
	return t.cache.Len()
}

const systemPrompt = "You are a translation expert specializing in STEM terminology."

type payload struct {
	Question string   `json:"question"`
	Answers  []Answer `json:"answers"`
}

type reply struct {
	TranslatedQuestion string   `json:"translatedQuestion"`
	TranslatedAnswers  []Answer `json:"translatedAnswers"`
}

func (t *Translator) translate(ctx context.Context, q Question, lang string) (Question, error) {
	if t.model == nil {
		return Question{}, errors.Generation(nil, "no translation model configured")
	}
	body, err := json.Marshal(payload{Question: q.Text, Answers: q.Answers})
	if err != nil {
		return Question{}, err
	}
	prompt := fmt.Sprintf(`Translate the following JSON object containing a question and its answers from English to %s.

Respond with a JSON object of the form {"translatedQuestion":"...","translatedAnswers":[{"id":"...","text":"..."}]}, keeping every answer id. Return ONLY the JSON object.

Text to translate:
%s`, lang, body)

	raw, err := t.model.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Question{}, errors.Generation(err, "translation model call failed")
	}
	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return Question{}, errors.Generation(err, "translation reply is not JSON")
	}
	var r reply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return Question{}, errors.Generation(err, "translation reply could not be decoded")
	}
	if strings.TrimSpace(r.TranslatedQuestion) == "" {
		return Question{}, errors.Generation(nil, "translation reply has no question text")
	}

	byID := make(map[string]string, len(r.TranslatedAnswers))
	for _, a := range r.TranslatedAnswers {
		byID[a.ID] = a.Text
	}
	out := Question{ID: q.ID, Text: r.TranslatedQuestion, Answers: make([]Answer, len(q.Answers))}
	for i, a := range q.Answers {
		text := a.Text
		if tr, ok := byID[a.ID]; ok && strings.TrimSpace(tr) != "" {
			text = tr
		}
		out.Answers[i] = Answer{ID: a.ID, Text: text}
	}
	return out, nil
}
