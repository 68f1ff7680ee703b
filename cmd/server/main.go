// Package main runs the VidyaSync HTTP API with graceful shutdown.
package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"VidyaSync/internal/artifact"
	"VidyaSync/internal/feed"
	"VidyaSync/internal/generator"
	handlers "VidyaSync/internal/handler"
	"VidyaSync/internal/models"
	"VidyaSync/internal/pipeline"
	"VidyaSync/internal/playback"
	"VidyaSync/internal/search"
	"VidyaSync/internal/store"
	"VidyaSync/internal/translate"
	"VidyaSync/pkg/cache"
	"VidyaSync/pkg/config"
	"VidyaSync/pkg/grpcx"
	"VidyaSync/pkg/i18n"
	"VidyaSync/pkg/llm"
	"VidyaSync/pkg/logger"
	"VidyaSync/pkg/metrics"
	"VidyaSync/pkg/middleware"
	"VidyaSync/pkg/scheduler"
	"VidyaSync/pkg/sse"
	"VidyaSync/pkg/storage"
	"VidyaSync/pkg/tts"
	"VidyaSync/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	cfg := config.GlobalConfig

	log, err := logger.Init(cfg.Log, cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := util.OpenDatabase(&gorm.Config{}, cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Resource{}); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	docs, closeDocs, err := newDocumentStore(cfg, db)
	if err != nil {
		log.Fatal("artifact store", zap.Error(err))
	}
	defer closeDocs()

	writer := artifact.NewWriter(docs, artifact.WriterOptions{}, log.Named("writer"), m)
	cron := scheduler.NewCron(nil)
	if _, err := cron.Add(cfg.PersistRetryCron, writer); err != nil {
		log.Fatal("schedule persist retries", zap.String("expr", cfg.PersistRetryCron), zap.Error(err))
	}
	cron.Start()
	ticker := scheduler.New()
	ticker.Every(time.Minute, scheduler.FuncJob(func(context.Context) { logger.Sync() }))

	llmLogger := logrus.New()
	llmLogger.SetLevel(logrus.InfoLevel)
	model, err := llm.NewHandler(cfg.LLMProvider, cfg.LLMApiKey, cfg.LLMBaseURL, cfg.LLMModel, llmLogger)
	if err != nil {
		log.Fatal("llm", zap.Error(err))
	}

	synth, closeSynth, err := newSynthesizer(ctx, cfg)
	if err != nil {
		log.Fatal("tts", zap.Error(err))
	}
	defer closeSynth()

	events := sse.NewHub(30 * time.Second)
	deps := pipeline.Deps{
		DB:          db,
		Cache:       artifact.NewCache(docs, writer, cfg.GenerationTimeout, log.Named("artifact"), m),
		Transcripts: generator.NewTranscriptGenerator(model, cfg.GenerationTimeout, log.Named("transcript")),
		Dubs:        generator.NewDubGenerator(synth, cfg.DubConcurrency, cfg.GenerationTimeout, log.Named("dub")),
		Events:      events,
		Logger:      log.Named("pipeline"),
	}
	if cfg.AudioOffload {
		audio, err := storage.NewMinioStore(cfg.Minio)
		if err != nil {
			log.Fatal("minio", zap.Error(err))
		}
		deps.AudioStore = audio
	}
	if cfg.SearchEnabled {
		ix, err := search.NewIndexAt(cfg.SearchPath, log.Named("search"))
		if err != nil {
			log.Fatal("search index", zap.Error(err))
		}
		defer ix.Close()
		deps.Index = ix
	}
	svc := pipeline.NewService(deps, pipeline.Options{ChainTranscript: cfg.ChainTranscript})

	likes, err := feed.NewLikes(db, log.Named("feed"), m)
	if err != nil {
		log.Fatal("feed", zap.Error(err))
	}
	support, err := i18n.NewI18nSupport("en")
	if err != nil {
		log.Fatal("i18n", zap.Error(err))
	}
	strategy, err := playback.ParseStrategy(cfg.PlaybackStrategy)
	if err != nil {
		log.Warn("unknown playback strategy, using speedup", zap.Error(err))
	}

	h := handlers.NewHandlers(handlers.Deps{
		DB:         db,
		Pipeline:   svc,
		Translator: translate.NewTranslator(model, cfg.TranslationCacheSize, cfg.TranslationCacheTTL, log.Named("translate"), m),
		Likes:      likes,
		I18n:       support,
		RateLimit:  &middleware.RateLimiterConfig{Rate: cfg.RateLimit, AddHeaders: true},
		Events:     events,
		Playback:   handlers.PlaybackConfig{Strategy: strategy, MaxRate: cfg.PlaybackMaxRate},
		Logger:     log.Named("http"),
	})

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLog(log.Named("access")), metrics.Middleware(m))
	engine.GET("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	h.Register(engine, cfg.APIPrefix)

	if cfg.GRPCAddr != "" {
		gs := grpcx.NewServer(grpcx.ServerConfig{Addr: cfg.GRPCAddr, EnableReflection: true}, log.Named("grpc"))
		health := grpcx.NewHealthReporter(gs, map[string]grpcx.Check{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}, 5*time.Second, log.Named("health"))
		health.Run(ctx)
		ticker.Every(15*time.Second, health)
		go func() {
			if err := grpcx.Serve(ctx, gs, cfg.GRPCAddr); err != nil {
				log.Error("grpc server", zap.Error(err))
			}
		}()
		defer health.Shutdown()
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cron.Stop()
	ticker.Stop()
	writer.Close(shutdownCtx)
}

// newDocumentStore sql 使用数据库表，cache 使用配置的缓存后端（local/gocache/redis/layered）
func newDocumentStore(cfg *config.Config, db *gorm.DB) (store.DocumentStore, func(), error) {
	if strings.EqualFold(cfg.ArtifactStore, "cache") {
		c, err := cache.NewCache(cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		return store.NewCacheStore(c), func() { _ = c.Close() }, nil
	}
	s, err := store.NewGormStore(db)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

func newSynthesizer(ctx context.Context, cfg *config.Config) (tts.Synthesizer, func(), error) {
	switch strings.ToLower(cfg.TTSProvider) {
	case "openai":
		return tts.NewOpenAISynthesizer(cfg.LLMApiKey, cfg.LLMBaseURL, cfg.TTSModel), func() {}, nil
	default:
		g, err := tts.NewGoogleSynthesizer(ctx, tts.EncodingMP3)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	}
}
