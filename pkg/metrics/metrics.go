package metrics

import (
	"strconv"
	"sync"
	"time"

	"VidyaSync/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 指标管理器，nil 接收者上的方法均为空操作
type Metrics struct {
	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 产物缓存指标
	artifactLookups    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationErrors   *prometheus.CounterVec

	// 持久化指标
	persistFailures *prometheus.CounterVec
	persistRetries  *prometheus.CounterVec
	persistPending  prometheus.Gauge

	// 播放与业务指标
	playbackWarnings  *prometheus.CounterVec
	translationLookup *prometheus.CounterVec
	likeReverts       prometheus.Counter
}

// NewMetrics 在指定注册器上创建指标，reg 为 nil 时使用默认注册器
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		artifactLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_cache_lookups_total",
				Help: "Artifact cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		generationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "artifact_generation_duration_seconds",
				Help:    "Duration of external artifact generation",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
			},
			[]string{"kind"},
		),
		generationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_generation_errors_total",
				Help: "Failed artifact generations by kind and error class",
			},
			[]string{"kind", "class"},
		),

		persistFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_persist_failures_total",
				Help: "Failed artifact persistence attempts",
			},
			[]string{"kind"},
		),
		persistRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifact_persist_retries_total",
				Help: "Persistence retries by outcome",
			},
			[]string{"outcome"},
		),
		persistPending: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "artifact_persist_pending",
				Help: "Artifacts generated but not yet acknowledged by the store",
			},
		),

		playbackWarnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playback_warnings_total",
				Help: "Contained playback failures",
			},
			[]string{"reason"},
		),
		translationLookup: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "translation_cache_lookups_total",
				Help: "Question translation cache lookups",
			},
			[]string{"result"},
		),
		likeReverts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "like_toggle_reverts_total",
				Help: "Optimistic like toggles reverted after a failed transaction",
			},
		),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default 返回注册在默认注册器上的全局实例
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// RecordHTTPRequest 记录HTTP请求
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordArtifactLookup 记录缓存命中或未命中
func (m *Metrics) RecordArtifactLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.artifactLookups.WithLabelValues(kind, result).Inc()
}

// ObserveGeneration 记录一次生成的耗时与失败类型
func (m *Metrics) ObserveGeneration(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		m.generationErrors.WithLabelValues(kind, errorClass(err)).Inc()
	}
}

// RecordPersistFailure 记录持久化失败
func (m *Metrics) RecordPersistFailure(kind string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(kind).Inc()
}

// RecordPersistRetry outcome: success | failed | dropped
func (m *Metrics) RecordPersistRetry(outcome string) {
	if m == nil {
		return
	}
	m.persistRetries.WithLabelValues(outcome).Inc()
}

// SetPersistPending 设置待确认写入数量
func (m *Metrics) SetPersistPending(n int) {
	if m == nil {
		return
	}
	m.persistPending.Set(float64(n))
}

// RecordPlaybackWarning 记录播放降级
func (m *Metrics) RecordPlaybackWarning(reason string) {
	if m == nil {
		return
	}
	m.playbackWarnings.WithLabelValues(reason).Inc()
}

// RecordTranslationLookup 记录翻译缓存命中
func (m *Metrics) RecordTranslationLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.translationLookup.WithLabelValues(result).Inc()
}

// RecordLikeRevert 记录点赞回滚
func (m *Metrics) RecordLikeRevert() {
	if m == nil {
		return
	}
	m.likeReverts.Inc()
}

func errorClass(err error) string {
	switch {
	case errors.IsValidation(err):
		return "validation"
	case errors.IsDependencyMissing(err):
		return "dependency_missing"
	case errors.IsGeneration(err):
		return "generation"
	default:
		return "other"
	}
}
