package playback

// VideoElement 静音播放的源视频
type VideoElement interface {
	Play() error
	Pause()
	Paused() bool
	// OnTimeUpdate 订阅播放进度（秒），返回取消订阅函数
	OnTimeUpdate(fn func(position float64)) (cancel func())
}

// AudioElement 配音输出。Load 的回调必须异步触发，不能在 Load 内部同步调用。
type AudioElement interface {
	Load(src string, onReady func(duration float64), onEnded func(), onError func(err error))
	SetPlaybackRate(rate float64)
	Play() error
	Stop()
}
