package handlers

import (
	"VidyaSync/internal/feed"
	"VidyaSync/internal/pipeline"
	"VidyaSync/internal/playback"
	"VidyaSync/internal/translate"
	"VidyaSync/pkg/i18n"
	"VidyaSync/pkg/middleware"
	"VidyaSync/pkg/sse"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlaybackConfig 下发给播放端的同步策略
type PlaybackConfig struct {
	Strategy playback.Strategy `json:"-"`
	MaxRate  float64           `json:"maxRate"`
}

type Deps struct {
	DB          *gorm.DB
	Pipeline    *pipeline.Service
	Translator  *translate.Translator
	Likes       *feed.Likes
	I18n        *i18n.I18nSupport
	RateLimit   *middleware.RateLimiterConfig // 可选，只作用于生成类路由
	Events      *sse.Hub                      // 可选，生成事件推送
	Playback    PlaybackConfig
	Logger      *zap.Logger
}

type Handlers struct {
	db         *gorm.DB
	pipeline   *pipeline.Service
	translator *translate.Translator
	likes      *feed.Likes
	i18n       *i18n.I18nSupport
	limiter    *middleware.RateLimiter
	events     *sse.Hub
	playback   PlaybackConfig
	logger     *zap.Logger
}

func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{
		db:         deps.DB,
		pipeline:   deps.Pipeline,
		translator: deps.Translator,
		likes:      deps.Likes,
		i18n:       deps.I18n,
		events:     deps.Events,
		playback:   deps.Playback,
		logger:     logger,
	}
	if deps.RateLimit != nil {
		h.limiter = middleware.NewRateLimiter(*deps.RateLimit, nil, h.RateLimited)
	}
	return h
}

func (h *Handlers) Register(engine *gin.Engine, prefix string) {
	r := engine.Group(prefix)
	r.Use(middleware.LanguageMiddleware(h.i18n))

	h.registerSystemRoutes(r)
	h.registerResourceRoutes(r)
	h.registerQuestionRoutes(r)
	h.registerPostRoutes(r)
}

// generation 生成类路由的限流中间件
func (h *Handlers) generation() []gin.HandlerFunc {
	if h.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{h.limiter.Middleware()}
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)

		system.GET("/playback", h.handlePlaybackConfig)
	}
}

func (h *Handlers) registerResourceRoutes(r *gin.RouterGroup) {
	resources := r.Group("resources")
	{
		resources.POST("", h.handleCreateResource)

		resources.GET("/:id", h.handleGetResource)

		resources.DELETE("/:id", h.handleDeleteResource)

		resources.GET("/:id/events", h.handleEvents)

		resources.POST("/:id/transcripts/:lang", append(h.generation(), h.handleTranscript)...)

		resources.POST("/:id/dubbings/:lang", append(h.generation(), h.handleDubbing)...)
	}

	r.POST("/generate-audio", append(h.generation(), h.handleGenerateAudio)...)

	r.GET("/search", h.handleSearch)
}

func (h *Handlers) registerQuestionRoutes(r *gin.RouterGroup) {
	questions := r.Group("questions")
	{
		questions.POST("/translate", append(h.generation(), h.handleTranslateQuestion)...)
	}
}

func (h *Handlers) registerPostRoutes(r *gin.RouterGroup) {
	posts := r.Group("posts")
	{
		posts.POST("", h.handleCreatePost)

		posts.POST("/:id/like", h.handleToggleLike)
	}
}
