// Package playback keeps a muted source video in step with per-segment dub audio.
package playback

import (
	"sync"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/metrics"

	"go.uber.org/zap"
)

// State 同步器状态
type State int

const (
	Idle State = iota
	Seeking
	SegmentActive
	SegmentEnded
)

func (s State) String() string {
	switch s {
	case Seeking:
		return "seeking"
	case SegmentActive:
		return "segment_active"
	case SegmentEnded:
		return "segment_ended"
	default:
		return "idle"
	}
}

type config struct {
	strategy   Strategy
	maxRate    float64
	logger     *zap.Logger
	metrics    *metrics.Metrics
	onActivate func(index int)
}

type Option func(*config)

func WithStrategy(s Strategy) Option { return func(c *config) { c.strategy = s } }

func WithMaxRate(r float64) Option { return func(c *config) { c.maxRate = r } }

func WithLogger(l *zap.Logger) Option { return func(c *config) { c.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *config) { c.metrics = m } }

// OnActivate 每次激活新分段时回调，在锁外调用
func OnActivate(fn func(index int)) Option { return func(c *config) { c.onActivate = fn } }

// Session 一次视频与配音的绑定。所有状态由 mu 保护，媒体元素的回调通过 token 识别过期加载。
type Session struct {
	mu       sync.Mutex
	video    VideoElement
	audio    AudioElement
	segments []Segment
	cfg      config

	state    State
	active   int
	token    uint64
	playing  bool // 当前分段音频正在播放
	held     bool // 视频被同步器暂停
	plan     Plan
	detached bool
	cancel   func()
}

// Attach 订阅视频进度并开始同步
func Attach(video VideoElement, audio AudioElement, dub []models.DubSegment, opts ...Option) (*Session, error) {
	if video == nil || audio == nil {
		return nil, errors.Validation("video and audio elements are required")
	}
	if len(dub) == 0 {
		return nil, errors.Validation("dubbing has no segments")
	}
	cfg := config{strategy: SpeedUp, maxRate: DefaultMaxRate}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	s := &Session{
		video:    video,
		audio:    audio,
		segments: Prepare(dub, cfg.logger),
		cfg:      cfg,
		active:   -1,
	}
	s.cancel = video.OnTimeUpdate(s.onTimeUpdate)
	return s, nil
}

// AttachSync 返回解绑函数
func AttachSync(video VideoElement, audio AudioElement, dub []models.DubSegment, opts ...Option) (detach func(), err error) {
	s, err := Attach(video, audio, dub, opts...)
	if err != nil {
		return nil, err
	}
	return s.Detach, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveIndex Idle 时返回 -1
func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return -1
	}
	return s.active
}

// Plan 当前分段的播放方案
func (s *Session) Plan() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Held 视频是否因配音超时被暂停
func (s *Session) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

func (s *Session) Segments() []Segment {
	return s.segments
}

func (s *Session) onTimeUpdate(t float64) {
	activated := -1

	s.mu.Lock()
	switch {
	case s.detached:
	case s.held && s.crossedEnd(t):
		// 暂停前已在途的采样
	case s.overflowing(t):
		// 配音仍在播放而视频已到分段末尾
		if !s.video.Paused() {
			s.video.Pause()
			s.held = true
			s.cfg.logger.Debug("video held for dub overflow",
				zap.Int("segment", s.active),
				zap.Float64("position", t))
		}
	default:
		// 远离分段末尾的采样视为跳转，放开暂停后按新位置解析
		s.release()
		i := FindSegment(s.segments, t)
		switch {
		case i < 0:
			if s.state != Idle {
				s.state = Idle
				s.active = -1
			}
		case i == s.active:
		default:
			s.activate(i)
			activated = i
		}
	}
	s.mu.Unlock()

	if activated >= 0 && s.cfg.onActivate != nil {
		s.cfg.onActivate(activated)
	}
}

// seekJump 越过分段末尾超过该秒数的采样视为用户跳转而非自然播放
const seekJump = 1.0

// crossedEnd 视频刚刚自然播过当前分段末尾
func (s *Session) crossedEnd(t float64) bool {
	if s.active < 0 {
		return false
	}
	end := s.segments[s.active].End
	return t >= end && t < end+seekJump
}

func (s *Session) overflowing(t float64) bool {
	return s.cfg.strategy == PauseResume && s.playing && s.crossedEnd(t)
}

// activate 需持有 mu
func (s *Session) activate(i int) {
	s.audio.Stop()
	s.token++
	tok := s.token
	s.active = i
	s.state = Seeking
	s.playing = false
	s.plan = Plan{Rate: 1}

	seg := s.segments[i]
	s.audio.Load(seg.Src,
		func(d float64) { s.onReady(tok, d) },
		func() { s.onEnded(tok) },
		func(err error) { s.onError(tok, err) },
	)
}

func (s *Session) onReady(tok uint64, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || tok != s.token {
		return
	}

	seg := s.segments[s.active]
	plan := Reconcile(seg.Slot(), duration, s.cfg.strategy, s.cfg.maxRate)
	s.plan = plan
	s.audio.SetPlaybackRate(plan.Rate)
	if err := s.audio.Play(); err != nil {
		s.warn("play_failed", errors.PlaybackWarning(err, "dub audio could not start"))
		s.state = SegmentEnded
		return
	}
	s.playing = true
	s.state = SegmentActive
	s.cfg.logger.Debug("dub segment playing",
		zap.Int("segment", s.active),
		zap.Float64("slot", seg.Slot()),
		zap.Float64("audio", duration),
		zap.Float64("rate", plan.Rate))
}

func (s *Session) onEnded(tok uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || tok != s.token {
		return
	}
	s.playing = false
	s.release()
	if s.state == SegmentActive {
		s.state = SegmentEnded
	}
}

func (s *Session) onError(tok uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached || tok != s.token {
		return
	}
	s.warn("audio_error", errors.PlaybackWarning(err, "dub audio failed"))
	s.playing = false
	s.release()
	// 保留 active，避免同一分段内反复重新加载
	s.state = Idle
}

// release 恢复被暂停的视频，需持有 mu
func (s *Session) release() {
	if !s.held {
		return
	}
	s.held = false
	if err := s.video.Play(); err != nil {
		s.warn("resume_failed", errors.PlaybackWarning(err, "video could not resume"))
	}
}

func (s *Session) warn(reason string, err error) {
	s.cfg.metrics.RecordPlaybackWarning(reason)
	s.cfg.logger.Warn("playback degraded",
		zap.String("reason", reason),
		zap.Int("segment", s.active),
		zap.Error(err))
}

// Detach 取消订阅、停止音频并恢复被暂停的视频，可重复调用
func (s *Session) Detach() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	s.token++
	cancel := s.cancel
	s.audio.Stop()
	s.release()
	s.playing = false
	s.state = Idle
	s.active = -1
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
