package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/timecode"
)

// ArtifactKind 生成产物类型
type ArtifactKind string

const (
	KindTranscript ArtifactKind = "transcript"
	KindDubbing    ArtifactKind = "dubbing"
)

// ArtifactKey 产物缓存键，(资源, 类型, 语言) 唯一
type ArtifactKey struct {
	Kind       ArtifactKind
	ResourceID string
	Language   string
}

// String 形如 resources/{id}/transcripts/{language}
func (k ArtifactKey) String() string {
	return fmt.Sprintf("resources/%s/%ss/%s", k.ResourceID, k.Kind, k.Language)
}

// ResourcePrefix 某资源全部产物的键前缀
func ResourcePrefix(resourceID string) string {
	return "resources/" + resourceID + "/"
}

type TranscriptSegment struct {
	Start string `json:"start"` // MM:SS
	End   string `json:"end"`
	Text  string `json:"text"`
}

type Transcript struct {
	ResourceID string              `json:"resourceId"`
	Language   string              `json:"language"`
	Segments   []TranscriptSegment `json:"segments"`
	CreatedAt  time.Time           `json:"createdAt"`
}

type DubSegment struct {
	TranscriptSegment
	AudioDataURI string `json:"audioDataUri"` // data URI 或转存后的公开地址
}

type Dubbing struct {
	ResourceID string       `json:"resourceId"`
	Language   string       `json:"language"`
	Segments   []DubSegment `json:"segments"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// SegmentCount 实现 artifact 文档接口
func (t *Transcript) SegmentCount() int { return len(t.Segments) }

func (d *Dubbing) SegmentCount() int { return len(d.Segments) }

// NormalizeSegments 去除文本首尾空白、规范化时间码并按开始时间排序
func NormalizeSegments(segs []TranscriptSegment) []TranscriptSegment {
	out := make([]TranscriptSegment, len(segs))
	for i, s := range segs {
		out[i] = TranscriptSegment{
			Start: strings.TrimSpace(s.Start),
			End:   strings.TrimSpace(s.End),
			Text:  strings.TrimSpace(s.Text),
		}
		if timecode.Valid(out[i].Start) {
			out[i].Start = timecode.Normalize(out[i].Start)
		}
		if timecode.Valid(out[i].End) {
			out[i].End = timecode.Normalize(out[i].End)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timecode.Parse(out[i].Start) < timecode.Parse(out[j].Start)
	})
	return out
}

// ValidateSegments 校验字幕分段：非空、时间码合法、start<end、有文本、升序且不重叠
func ValidateSegments(segs []TranscriptSegment) error {
	if len(segs) == 0 {
		return errors.Validation("transcript has no segments")
	}
	prevEnd := -1
	for i, s := range segs {
		if !timecode.Valid(s.Start) || !timecode.Valid(s.End) {
			return errors.Validation("segment %d has malformed timecode %q-%q", i, s.Start, s.End)
		}
		start, end := timecode.Parse(s.Start), timecode.Parse(s.End)
		if start >= end {
			return errors.Validation("segment %d starts at %s but ends at %s", i, s.Start, s.End)
		}
		if strings.TrimSpace(s.Text) == "" {
			return errors.Validation("segment %d has empty text", i)
		}
		if start < prevEnd {
			return errors.Validation("segment %d overlaps or precedes the previous segment", i)
		}
		prevEnd = end
	}
	return nil
}
