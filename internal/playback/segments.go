package playback

import (
	"sort"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/timecode"

	"go.uber.org/zap"
)

// Segment 预处理后的配音分段，Index 为排序后的位置，作为分段身份
type Segment struct {
	Index int
	Start float64 // 秒
	End   float64
	Src   string // 音频地址或 data URI
	Text  string
}

// Slot 分段在视频中占用的时长
func (s Segment) Slot() float64 {
	return s.End - s.Start
}

// Prepare 解析时间码并按开始时间升序排列
func Prepare(dub []models.DubSegment, logger *zap.Logger) []Segment {
	out := make([]Segment, len(dub))
	for i, d := range dub {
		out[i] = Segment{
			Start: float64(timecode.ParseLogged(d.Start, logger)),
			End:   float64(timecode.ParseLogged(d.End, logger)),
			Src:   d.AudioDataURI,
			Text:  d.Text,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	for i := range out {
		out[i].Index = i
	}
	return out
}

// FindSegment 返回满足 Start <= t < End 的分段下标，没有时返回 -1
func FindSegment(segments []Segment, t float64) int {
	i := sort.Search(len(segments), func(k int) bool { return segments[k].Start > t }) - 1
	if i >= 0 && t < segments[i].End {
		return i
	}
	return -1
}
