package playback

import (
	"fmt"
	"math"
	"strings"
)

// Strategy 配音长于分段时的处理方式
type Strategy int

const (
	// SpeedUp 提高音频播放速率，最多 MaxRate 倍
	SpeedUp Strategy = iota
	// PauseResume 音频超出分段时暂停视频，音频结束后恢复
	PauseResume
)

// DefaultMaxRate 保证可懂度的最大播放速率
const DefaultMaxRate = 2.5

func (s Strategy) String() string {
	if s == PauseResume {
		return "pause"
	}
	return "speedup"
}

// ParseStrategy 支持 speedup、pause 及其别名
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "speedup", "speed-up", "rate":
		return SpeedUp, nil
	case "pause", "pause-resume", "pauseresume":
		return PauseResume, nil
	}
	return SpeedUp, fmt.Errorf("unknown playback strategy %q", s)
}

// Plan 一次分段激活的播放方案
type Plan struct {
	Rate     float64 // 音频播放速率
	Overflow float64 // 按 Rate 播放后仍超出分段的秒数
}

// Reconcile 根据分段时长和音频时长计算播放方案；时长未知或非法时按原速播放
func Reconcile(slot, audio float64, strategy Strategy, maxRate float64) Plan {
	if !finitePositive(slot) || !finitePositive(audio) || audio <= slot {
		return Plan{Rate: 1}
	}
	if strategy == PauseResume {
		return Plan{Rate: 1, Overflow: audio - slot}
	}
	if maxRate < 1 {
		maxRate = DefaultMaxRate
	}
	rate := math.Min(audio/slot, maxRate)
	overflow := audio/rate - slot
	if overflow < 1e-9 {
		overflow = 0
	}
	return Plan{Rate: rate, Overflow: overflow}
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
